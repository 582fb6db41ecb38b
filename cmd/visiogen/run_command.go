package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"visiogen/internal/pipeline"
	"visiogen/internal/services"
)

type runOptions struct {
	text      string
	textFile  string
	font      string
	videoType string
	output    string
	audio     string
	language  string
	json      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [video]",
		Short: "Caption a video",
		Long: `Caption a video with word-timed text.

The video argument is optional; without it the background clip configured for
--type is used. Display text comes from --text or --text-file ("-" reads
stdin) and should match the narration word for word.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			text, err := readDisplayText(cmd, opts)
			if err != nil {
				return err
			}
			job := pipeline.Job{
				DisplayText: text,
				Font:        opts.font,
				VideoType:   opts.videoType,
				OutputPath:  opts.output,
				AudioPath:   opts.audio,
				Language:    opts.language,
			}
			if len(args) == 1 {
				job.VideoPath = args[0]
			}

			controller, err := pipeline.New(cfg, logger, pipeline.WithProgress(os.Stderr))
			if err != nil {
				return err
			}
			result, err := controller.Run(cmd.Context(), job)
			if err != nil {
				return err
			}

			if opts.json {
				return writeJSON(cmd, runSummary(result))
			}
			printRunResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "Display text to caption")
	cmd.Flags().StringVar(&opts.textFile, "text-file", "", "Read display text from a file (- for stdin)")
	cmd.Flags().StringVarP(&opts.font, "font", "f", "", "Font id (see 'visiogen fonts')")
	cmd.Flags().StringVar(&opts.videoType, "type", "", "Background video type when no video is given")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "Output file (default: <output_dir>/<name>-captioned.mp4)")
	cmd.Flags().StringVar(&opts.audio, "audio", "", "Narration audio replacing the video's own track")
	cmd.Flags().StringVar(&opts.language, "language", "", "Spoken language hint (e.g. en, de)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file")
	return cmd
}

func readDisplayText(cmd *cobra.Command, opts runOptions) (string, error) {
	path := strings.TrimSpace(opts.textFile)
	if path == "" {
		return opts.text, nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrMissingInput, "validate", "text file", path, err)
		}
		return "", services.Wrap(services.ErrResourceOpen, "validate", "text file", path, err)
	}
	return string(data), nil
}

type runJSON struct {
	RunID      string  `json:"run_id"`
	Output     string  `json:"output"`
	Font       string  `json:"font"`
	FrameRate  float64 `json:"frame_rate"`
	Frames     int     `json:"frames"`
	Captioned  int     `json:"captioned_frames"`
	Words      int     `json:"words"`
	TimedWords *int    `json:"timed_words,omitempty"`
	Seconds    float64 `json:"elapsed_seconds"`
}

func runSummary(result pipeline.Result) runJSON {
	summary := runJSON{
		RunID:     result.RunID,
		Output:    result.OutputPath,
		Font:      result.Font,
		FrameRate: result.FrameRate,
		Frames:    result.Frames,
		Captioned: result.Captioned,
		Words:     len(result.Captions),
		Seconds:   result.Duration.Seconds(),
	}
	if result.Mismatch != nil {
		timed := result.Mismatch.TimedWords
		summary.TimedWords = &timed
	}
	return summary
}

func printRunResult(cmd *cobra.Command, result pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Output:    %s\n", result.OutputPath)
	fmt.Fprintf(out, "Font:      %s\n", result.Font)
	fmt.Fprintf(out, "Frames:    %d at %.3f fps (%d captioned)\n", result.Frames, result.FrameRate, result.Captioned)
	fmt.Fprintf(out, "Words:     %d\n", len(result.Captions))
	if result.Mismatch != nil {
		fmt.Fprintf(out, "Warning:   %s\n", result.Mismatch)
	}
	fmt.Fprintf(out, "Elapsed:   %s\n", result.Duration.Truncate(time.Millisecond))
}
