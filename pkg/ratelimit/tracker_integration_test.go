//go:build integration

package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	return client, func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}
}

func integrationQuotaHeaders(remaining, resetSeconds int) http.Header {
	h := http.Header{}
	h.Set(HeaderRemaining, strconv.Itoa(remaining))
	h.Set(HeaderReset, strconv.Itoa(resetSeconds))
	return h
}

// TestTracker_Integration_SharedState checks that a quota reported to one
// process is seen by every tracker on the same Redis.
func TestTracker_Integration_SharedState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	writer := NewTracker(redisClient, zerolog.Nop())
	reader := NewTracker(redisClient, zerolog.Nop())

	state, err := reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsHealthy || state.Remaining < ThresholdHealthy {
		t.Errorf("empty Redis should read as healthy, got %+v", state)
	}

	if err := writer.UpdateFromHeaders(ctx, integrationQuotaHeaders(75, 120)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != 75 {
		t.Errorf("Remaining = %d, want 75", state.Remaining)
	}
	if until := state.TimeUntilReset(); until < 115*time.Second || until > 125*time.Second {
		t.Errorf("TimeUntilReset = %v, want about 2m", until)
	}

	// Keys live one minute past the reset window.
	ttl, err := redisClient.TTL(ctx, RedisKeyRemaining).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl < 170*time.Second || ttl > 180*time.Second {
		t.Errorf("TTL = %v, want about 3m", ttl)
	}
}

func TestTracker_Integration_Decisions(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, zerolog.Nop())
	tracker.SetThrottleDelay(200 * time.Millisecond)
	ctx := context.Background()

	tests := []struct {
		name        string
		remaining   int
		wantAllowed bool
		wantHealthy bool
		wantDelay   bool
	}{
		{name: "healthy", remaining: 90, wantAllowed: true, wantHealthy: true},
		{name: "between warning and healthy", remaining: 30, wantAllowed: true},
		{name: "warning throttles", remaining: 15, wantAllowed: true, wantDelay: true},
		{name: "critical blocks", remaining: 2, wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tracker.UpdateFromHeaders(ctx, integrationQuotaHeaders(tt.remaining, 60)); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			state, err := tracker.GetState(ctx)
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.wantHealthy)
			}

			start := time.Now()
			allowed, err := tracker.ShouldAllowRequest(ctx)
			elapsed := time.Since(start)
			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed != tt.wantAllowed {
				t.Errorf("ShouldAllowRequest() = %v, want %v", allowed, tt.wantAllowed)
			}
			if tt.wantDelay && elapsed < 150*time.Millisecond {
				t.Errorf("throttle delay = %v, want >= 200ms", elapsed)
			}
			if !tt.wantDelay && elapsed > 100*time.Millisecond {
				t.Errorf("unexpected delay %v", elapsed)
			}
		})
	}
}

func TestTracker_Integration_Wait(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, zerolog.Nop())
	tracker.SetThrottleDelay(time.Minute)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, integrationQuotaHeaders(1, 60)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	if err := tracker.Wait(ctx); !errors.Is(err, ErrBlocked) {
		t.Errorf("Wait() error = %v, want ErrBlocked", err)
	}

	// A throttled wait ends with the context.
	if err := tracker.UpdateFromHeaders(ctx, integrationQuotaHeaders(10, 60)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	cctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if err := tracker.Wait(cctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestTracker_Integration_WindowReset(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, zerolog.Nop())
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, integrationQuotaHeaders(3, 2)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Fatal("ShouldAllowRequest() = true inside the exhausted window")
	}

	// Once the window has passed the old quota no longer blocks.
	time.Sleep(3 * time.Second)

	allowed, err = tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("ShouldAllowRequest() = false after the window reset")
	}
}
