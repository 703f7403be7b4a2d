package main

import (
	"context"
	"iter"

	"github.com/Sternrassler/teselagen-client/pkg/build"
	"github.com/Sternrassler/teselagen-client/pkg/pagination"
	"github.com/spf13/cobra"
)

// collection binds one BUILD collection to the list/get subcommands.
type collection struct {
	list func(context.Context, build.ListParams) ([]pagination.Record, error)
	walk func(context.Context, build.ListParams) iter.Seq2[pagination.Record, error]
	get  func(context.Context, string) (pagination.Record, error)
}

func newAliquotsCommand(a *app) *cobra.Command {
	return newCollectionCommand(a, "aliquots", "List or fetch BUILD aliquots", func(b *build.Client) collection {
		return collection{list: b.GetAliquots, walk: b.Aliquots, get: b.GetAliquot}
	})
}

func newSamplesCommand(a *app) *cobra.Command {
	return newCollectionCommand(a, "samples", "List or fetch BUILD samples", func(b *build.Client) collection {
		return collection{list: b.GetSamples, walk: b.Samples, get: b.GetSample}
	})
}

// newCollectionCommand resolves the collection lazily since the platform
// client only exists once the root's pre-run has loaded the config.
func newCollectionCommand(a *app, use, short string, bind func(*build.Client) collection) *cobra.Command {
	var (
		page   int
		sort   string
		filter string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List records, one page or --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.login(cmd); err != nil {
				return err
			}
			c := bind(a.platform.Build)
			params := build.ListParams{
				PageNumber: page,
				PageSize:   a.cfg.PageSize,
				Sort:       sort,
				GQLFilter:  filter,
			}

			var (
				records []pagination.Record
				err     error
			)
			if a.all {
				records, err = pagination.Collect(c.walk(cmd.Context(), params))
			} else {
				records, err = c.list(cmd.Context(), params)
			}
			if err != nil {
				return err
			}
			if records == nil {
				records = []pagination.Record{}
			}
			return printJSON(cmd, records)
		},
	}
	listCmd.Flags().IntVar(&page, "page", pagination.DefaultStartPage, "page number (first page with --all)")
	listCmd.Flags().StringVar(&sort, "sort", build.DefaultSort, "sort field, prefixed with - for descending")
	listCmd.Flags().StringVar(&filter, "filter", "", "GraphQL filter as JSON")

	getCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Fetch one record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.login(cmd); err != nil {
				return err
			}
			record, err := bind(a.platform.Build).get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, record)
		},
	}

	cmd.AddCommand(listCmd, getCmd)
	return cmd
}
