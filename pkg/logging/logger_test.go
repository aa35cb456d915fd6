package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Level = %s, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Pretty = true, want JSON output by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject unknown level")
	}
}

// TestSetup_LevelFiltering emits one entry per level and checks which ones
// reach the output.
func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
	}{
		{LevelDebug, []string{"debug", "info", "warn", "error"}},
		{LevelInfo, []string{"info", "warn", "error"}},
		{LevelWarn, []string{"warn", "error"}},
		{LevelError, []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			logger.Debug().Msg("page merged")
			logger.Info().Msg("fetch complete")
			logger.Warn().Msg("fetch failed")
			logger.Error().Msg("request blocked")

			var got []string
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				if line == "" {
					continue
				}
				var entry map[string]any
				if err := json.Unmarshal([]byte(line), &entry); err != nil {
					t.Fatalf("entry %q is not JSON: %v", line, err)
				}
				got = append(got, entry["level"].(string))
			}

			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("levels = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger_Fields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{
		Level:   LevelInfo,
		Service: "listsync",
		Output:  buf,
	})

	logger := NewLogger("pagination-engine")
	logger.Info().
		Str("endpoint", "/v1/orders").
		Int("page", 2).
		Msg("Page merged")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}

	want := map[string]any{
		"service":   "listsync",
		"component": "pagination-engine",
		"endpoint":  "/v1/orders",
		"page":      float64(2),
		"message":   "Page merged",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("%s = %v, want %v", key, entry[key], value)
		}
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})
	logger.Info().Msg("fetch complete")

	out := buf.String()
	if !strings.Contains(out, "fetch complete") {
		t.Errorf("output = %q", out)
	}
	if strings.HasPrefix(out, "{") {
		t.Errorf("pretty output should not be JSON, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{input: "debug", want: LevelDebug},
		{input: " Info ", want: LevelInfo},
		{input: "", want: LevelInfo},
		{input: "warning", want: LevelWarn},
		{input: "WARN", want: LevelWarn},
		{input: "error", want: LevelError},
		{input: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLevel_Zerolog(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"WARNING", zerolog.WarnLevel},
		{"invalid", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
