package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"articast/internal/config"
	"articast/internal/feed"
)

func newFeedCommand(ctx *commandContext) *cobra.Command {
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Regenerate the podcast feed from the audio files in a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			generator := feed.NewSynthesizer(cfg, nil, ctx.commandLogger(cfg))
			if dir := strings.TrimSpace(dirFlag); dir != "" {
				expanded, err := config.ExpandPath(dir)
				if err != nil {
					return fmt.Errorf("resolve directory: %w", err)
				}
				generator = generator.WithOutputDir(expanded)
			}

			result, err := generator.Generate(cmd.Context())
			if errors.Is(err, feed.ErrNoEpisodes) {
				return fmt.Errorf("no mp3 or wav files found; the existing feed was left in place")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", result.Path)
			fmt.Fprintf(out, "Episodes: %d", result.Episodes)
			if result.Excluded > 0 {
				fmt.Fprintf(out, " (%d older files beyond feed.max_episodes)", result.Excluded)
			}
			fmt.Fprintf(out, "\nSize: %s\n", humanize.IBytes(uint64(result.Bytes)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "Directory to scan instead of paths.output_dir")
	return cmd
}
