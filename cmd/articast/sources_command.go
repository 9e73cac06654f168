package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"articast/internal/logging"
	"articast/internal/source"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the categories and feeds each enabled source offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sources := source.FromConfig(cfg)
			out := cmd.OutOrStdout()
			if len(sources) == 0 {
				fmt.Fprintln(out, "No sources enabled; set freshrss.enabled or wallabag.enabled")
				return nil
			}

			names := make([]string, 0, len(sources))
			for name := range sources {
				names = append(names, name)
			}
			sort.Strings(names)

			logger := ctx.commandLogger(cfg)
			var rows [][]string
			failures := 0
			for _, name := range names {
				listings, err := sources[name].Categories(cmd.Context())
				if err != nil {
					failures++
					logging.WarnWithContext(logger, "source listing failed", "source_listing_failed",
						append(logging.Failure(err), logging.String(logging.FieldSource, name))...)
					continue
				}
				for _, l := range listings {
					rows = append(rows, []string{name, l.Kind, l.Label, l.ID, l.URL})
				}
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Source", "Kind", "Label", "Stream", "URL"}, rows, nil))
			}
			if failures == len(names) {
				return fmt.Errorf("no source could be listed")
			}
			return nil
		},
	}
}
