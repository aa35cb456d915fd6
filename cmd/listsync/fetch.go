package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/listsync/pkg/pagination"
	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		rawParams   []string
		pages       int
		all         bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "fetch <endpoint>",
		Short: "Fetch a paginated resource and print its items as JSON lines",
		Example: `  listsync fetch /v1/orders --pages 3
  listsync fetch /v1/orders --all -p status=open -p filter.region=eu`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}

			tr, err := a.transport()
			if err != nil {
				return err
			}

			eng, err := pagination.New[json.RawMessage](ctx, tr, pagination.Config[json.RawMessage]{
				Endpoint:    args[0],
				QueryParams: params,
				PageSize:    a.cfg.PageSize,
			})
			if err != nil {
				return err
			}
			if err := eng.Err(); err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}

			if all {
				loaded, err := eng.LoadAll(ctx, pagination.LoadConfig{
					MaxConcurrency: concurrency,
					Timeout:        a.cfg.Timeout,
				})
				if err != nil {
					return fmt.Errorf("fetch %s: %w", args[0], err)
				}
				a.logger.Debug().Int("pages", loaded).Msg("Loaded remaining pages")
			} else {
				for i := 1; i < pages; i++ {
					if !eng.FetchMore(ctx) {
						if err := eng.Err(); err != nil {
							return fmt.Errorf("fetch %s: %w", args[0], err)
						}
						break
					}
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, item := range eng.Items() {
				if err := enc.Encode(item); err != nil {
					return fmt.Errorf("write item: %w", err)
				}
			}

			md := eng.Metadata()
			a.logger.Info().
				Str("endpoint", args[0]).
				Int("items", eng.Len()).
				Int("page", md.Page).
				Int("page_count", md.PageCount).
				Int("total", md.Total).
				Msg("Fetch complete")
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&rawParams, "param", "p", nil, "Query parameter as key=value (repeatable, dotted keys nest)")
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to fetch")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every page in parallel")
	cmd.Flags().IntVar(&concurrency, "concurrency", pagination.DefaultLoadConfig().MaxConcurrency, "Parallel page requests with --all")

	return cmd
}
