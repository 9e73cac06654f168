package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"articast/internal/synth"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	var engineFlag string
	var languageFlag string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the voices a synthesis engine offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(engineFlag)
			if name == "" {
				name = cfg.TTS.Engine
			}
			engine, err := synth.NewRegistry(cfg.TTS).Get(name)
			if err != nil {
				return err
			}
			voices, err := engine.ListVoices(cmd.Context())
			if err != nil {
				return err
			}

			language := strings.ToLower(strings.TrimSpace(languageFlag))
			rows := make([][]string, 0, len(voices))
			for _, v := range voices {
				if language != "" && !strings.HasPrefix(strings.ToLower(v.Language), language) {
					continue
				}
				rows = append(rows, []string{v.ID, v.Language, v.Gender, v.Name})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No voices reported by %s\n", name)
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Voice", "Language", "Gender", "Name"}, rows, nil))
			fmt.Fprintf(out, "%d voices from %s\n", len(rows), name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&engineFlag, "engine", "e", "", "Engine to query (edge, gtts, openai); defaults to tts.engine")
	cmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Only show voices whose language starts with this prefix")
	return cmd
}
