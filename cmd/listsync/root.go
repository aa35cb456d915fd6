package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/listsync/internal/config"
	"github.com/Sternrassler/listsync/pkg/client"
	"github.com/Sternrassler/listsync/pkg/logging"
	"github.com/Sternrassler/listsync/pkg/metrics"
	"github.com/Sternrassler/listsync/pkg/query"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the loaded configuration and shared resources of one run.
type app struct {
	v       *viper.Viper
	cfg     config.Config
	logger  zerolog.Logger
	redis   *redis.Client
	metrics *http.Server
}

// newRootCmd builds the command tree. Flags are bound to the viper keys of
// internal/config so they override the file and environment.
func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "listsync",
		Short: "listsync keeps paginated API resources in sync",
		Long: `listsync fetches paginated JSON resources page by page, accumulates them
into a single list, and browses the result in an interactive terminal view.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("base-url", "", "Base URL of the API")
	flags.String("user-agent", "", "User-Agent sent with every request")
	flags.Duration("timeout", 0, "HTTP request timeout")
	flags.Int("page-size", 0, "Items requested per page")
	flags.String("redis-addr", "", "Redis address for shared rate limit state")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("log-pretty", false, "Human readable logs")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	if err := bindFlags(a.v, rootCmd, flagBindings); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newBrowseCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// flagBindings maps config keys to the persistent flags that override them.
var flagBindings = map[string]string{
	"base_url":     "base-url",
	"user_agent":   "user-agent",
	"timeout":      "timeout",
	"page_size":    "page-size",
	"redis.addr":   "redis-addr",
	"log.level":    "log-level",
	"log.pretty":   "log-pretty",
	"metrics_addr": "metrics-addr",
}

// bindFlags binds persistent flags of cmd to viper keys. A binding naming a
// flag that does not exist is an error.
func bindFlags(v *viper.Viper, cmd *cobra.Command, bindings map[string]string) error {
	for key, name := range bindings {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("bind %s: no flag --%s", key, name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind %s to --%s: %w", key, name, err)
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup() error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{
		Level:   level,
		Pretty:  cfg.Log.Pretty,
		Service: "listsync",
		Output:  os.Stderr,
	})
	a.logger = logging.NewLogger("cli")

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.logger.Debug().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		a.logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
	}

	return nil
}

func (a *app) close() error {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// transport builds the HTTP transport from the loaded configuration.
func (a *app) transport() (*client.Client, error) {
	cfg := client.DefaultConfig(a.cfg.BaseURL, a.cfg.UserAgent)
	cfg.Timeout = a.cfg.Timeout
	cfg.Redis = a.redis
	return client.New(cfg)
}

// parseParams turns key=value pairs into a parameter mapping. Dotted keys
// build nested mappings: filter.status=open becomes {filter: {status: open}}.
// Repeated keys collect into a list.
func parseParams(pairs []string) (query.Params, error) {
	out := query.Params{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}

		path := strings.Split(key, ".")
		patch := map[string]any{path[len(path)-1]: value}
		for i := len(path) - 2; i >= 0; i-- {
			patch = map[string]any{path[i]: patch}
		}

		if existing, ok := lookup(out, path); ok {
			switch prev := existing.(type) {
			case string:
				setPath(out, path, []string{prev, value})
				continue
			case []string:
				setPath(out, path, append(prev, value))
				continue
			}
		}
		out = query.Merge(out, patch)
	}
	return out, nil
}

func lookup(p query.Params, path []string) (any, bool) {
	var cur any = map[string]any(p)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(p query.Params, path []string, value any) {
	m := map[string]any(p)
	for _, key := range path[:len(path)-1] {
		m = m[key].(map[string]any)
	}
	m[path[len(path)-1]] = value
}
