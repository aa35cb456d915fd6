package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sternrassler/listsync/pkg/listview"
	"github.com/Sternrassler/listsync/pkg/pagination"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newBrowseCmd(a *app) *cobra.Command {
	var (
		rawParams []string
		fields    []string
		keyField  string
		threshold int
	)

	cmd := &cobra.Command{
		Use:   "browse <endpoint>",
		Short: "Browse a paginated resource in an interactive list",
		Long: `Browse loads the first page and fetches the next one whenever the
selection gets close to the end of the list. Press r to refresh from page 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

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

			view := eng.RenderList(ctx, &listview.Props[json.RawMessage]{
				Title:        args[0],
				KeyFunc:      fieldKey(keyField),
				ItemTemplate: fieldTemplate(fields),
				Threshold:    threshold,
			})

			_, err = tea.NewProgram(view, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&rawParams, "param", "p", nil, "Query parameter as key=value (repeatable, dotted keys nest)")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Fields shown per row (default: the whole item)")
	cmd.Flags().StringVar(&keyField, "key", "id", "Field that identifies an item")
	cmd.Flags().IntVar(&threshold, "threshold", 2, "Rows from the end that trigger the next page")

	return cmd
}

// fieldKey keys items by one top-level field.
func fieldKey(field string) func(json.RawMessage) string {
	if field == "" {
		return nil
	}
	return func(item json.RawMessage) string {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			return string(item)
		}
		return fmt.Sprint(obj[field])
	}
}

// fieldTemplate renders the selected top-level fields of an item, or the
// item itself when none are selected.
func fieldTemplate(fields []string) func(json.RawMessage) string {
	return func(item json.RawMessage) string {
		if item == nil {
			return "…"
		}
		if len(fields) == 0 {
			return string(item)
		}
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			return string(item)
		}
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprint(obj[f]))
		}
		return strings.Join(parts, " · ")
	}
}
