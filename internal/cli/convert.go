package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/subtitle"
)

var convertCmd = &cobra.Command{
	Use:   "convert [subtitle_file]",
	Short: "Convert subtitles between SRT, VTT, ASS and TTML",
	Long: `Convert a subtitle file to another format. Timing and text are kept;
format specific styling is not.

Examples:
  legendai convert video.srt --format vtt
  legendai convert video.vtt -f srt -o video.srt
  legendai convert video.ass --format ttml`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().
		StringP("format", "f", "vtt", "Output subtitle format (srt, vtt, ass, ttml)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	formatStr, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	language, _ := cmd.Flags().GetString("language")

	format, err := subtitle.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	sub, err := subtitle.Open(inputPath)
	if err != nil {
		return err
	}
	sub.Language = language

	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + subtitle.ExtensionForFormat(format)
	}
	if filepath.Clean(outputPath) == filepath.Clean(inputPath) {
		return fmt.Errorf("output path %s would overwrite the input", outputPath)
	}

	writer, err := subtitle.NewWriter(format)
	if err != nil {
		return err
	}
	if err := writer.Write(sub, outputPath); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	logger.Infow("Converted subtitles",
		"input", inputPath,
		"from", sub.Format,
		"to", format,
		"entries", len(sub.Entries),
	)

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles converted successfully: %s\n", absOutput)
	return nil
}
