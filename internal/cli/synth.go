package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/subtitle"
)

var synthCmd = &cobra.Command{
	Use:   "synth [text_file]",
	Short: "Time a plain transcript into subtitles without any AI provider",
	Long: `Split a plain text transcript into cues and time them with the speech-rate
model from the config. Use "-" to read the transcript from stdin.

When --duration is given, cues that would run past it are scaled to fit.
The result is printed to stdout unless --output is set.

Examples:
  legendai synth transcript.txt --duration 95.5
  cat transcript.txt | legendai synth - -f vtt -o talk.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runSynth,
}

func init() {
	rootCmd.AddCommand(synthCmd)

	synthCmd.Flags().
		Float64P("duration", "d", 0, "Total media duration in seconds (0 when unknown)")
	synthCmd.Flags().
		StringP("format", "f", "srt", "Output subtitle format (srt, vtt, ass, ttml)")
}

func readTranscript(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

func runSynth(cmd *cobra.Command, args []string) error {
	duration, _ := cmd.Flags().GetFloat64("duration")
	formatStr, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	if duration < 0 {
		return fmt.Errorf("duration must not be negative, got %v", duration)
	}

	format, err := subtitle.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	text, err := readTranscript(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("transcript is empty")
	}

	cues := subtitle.Synthesized{Text: text, TotalDuration: duration}.Resolve(cfg.Timing)
	logger.Debugw("Synthesized cue timing", "cues", len(cues), "duration", duration)

	writer, err := subtitle.NewWriter(format)
	if err != nil {
		return err
	}
	sub := subtitle.FromCues(cues)

	if outputPath != "" {
		if err := writer.Write(sub, outputPath); err != nil {
			return fmt.Errorf("failed to write subtitles: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d cues to %s\n", len(cues), outputPath)
		return nil
	}

	data, err := writer.Render(sub)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
