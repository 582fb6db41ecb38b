package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"visiogen/internal/logging"
	"visiogen/internal/render"
)

func newFontsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fonts",
		Short: "List registered caption fonts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry := render.NewRegistry(cfg.Fonts, cfg.Render.Font, logging.NewNop())
			fonts := registry.List()

			if asJSON {
				return writeJSON(cmd, fonts)
			}

			rows := make([][]string, 0, len(fonts))
			for _, f := range fonts {
				id := f.ID
				if f.Default {
					id += " *"
				}
				rows = append(rows, []string{id, f.Source, yesNo(f.Present)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable([]string{"Font", "Source", "Available"}, rows, nil))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "* default; unknown ids fall back to it")
			if err := registry.Validate(); err != nil {
				fmt.Fprintf(out, "\nWarning: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print fonts as JSON")
	return cmd
}
