package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"visiogen/internal/captions"
	"visiogen/internal/services"
)

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var (
		text      string
		textFile  string
		wordsPath string
		fps       float64
		excess    string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Preview the caption table for saved word timestamps",
		Long: `Align display text against a saved timestamp file without touching video.

The timestamp file may be a JSON array of {"word","start","end"} objects, a
Whisper verbose_json response, or WhisperX output with per-segment words.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			display, err := readDisplayText(cmd, runOptions{text: text, textFile: textFile})
			if err != nil {
				return err
			}

			data, err := os.ReadFile(wordsPath)
			if err != nil {
				return services.Wrap(services.ErrResourceOpen, "align", "read timings", wordsPath, err)
			}
			words, err := captions.ParseWordTimings(data)
			if err != nil {
				return err
			}

			if excess == "" {
				excess = cfg.Render.ExcessPolicy
			}
			policy, err := captions.ParseExcessPolicy(excess)
			if err != nil {
				return err
			}

			table, mismatch, err := captions.Align(display, words, captions.FrameRate(fps), captions.WithExcessPolicy(policy))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{
					"frame_rate":    fps,
					"excess_policy": policy.String(),
					"entries":       alignEntries(table),
					"mismatch":      mismatch,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderCaptionTable(table, words))
			fmt.Fprintln(out)
			if mismatch != nil {
				fmt.Fprintf(out, "Warning: %s (excess policy: %s)\n", mismatch, policy)
				if div, ok := captions.Diff(captions.SplitWords(display), words); ok {
					fmt.Fprintf(out, "First difference at word %d: display %q, heard %q\n", div.Index+1, div.Display, div.Heard)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "Display text")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Read display text from a file (- for stdin)")
	cmd.Flags().StringVarP(&wordsPath, "words", "w", "", "Word timestamp JSON file")
	cmd.Flags().Float64Var(&fps, "fps", 30, "Frame rate of the target video")
	cmd.Flags().StringVar(&excess, "excess", "", "Excess word policy: zero, suppress, extend (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file")
	_ = cmd.MarkFlagRequired("words")
	return cmd
}

type alignEntry struct {
	Word       string `json:"word"`
	StartFrame int    `json:"start_frame"`
	EndFrame   int    `json:"end_frame"`
}

func alignEntries(table captions.Table) []alignEntry {
	entries := make([]alignEntry, 0, len(table))
	for _, e := range table {
		entries = append(entries, alignEntry{Word: e.Word, StartFrame: e.StartFrame, EndFrame: e.EndFrame})
	}
	return entries
}

func renderCaptionTable(table captions.Table, words []captions.WordTiming) string {
	rows := make([][]string, 0, len(table))
	for i, e := range table {
		heard, span := "-", "-"
		if i < len(words) {
			heard = words[i].Text
			span = fmt.Sprintf("%.2f-%.2f", words[i].Start, words[i].End)
		}
		frames := fmt.Sprintf("%d-%d", e.StartFrame, e.EndFrame)
		if e.Hidden {
			frames = "hidden"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), e.Word, heard, span, frames})
	}
	return renderTable(
		[]string{"#", "Word", "Heard", "Seconds", "Frames"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}
