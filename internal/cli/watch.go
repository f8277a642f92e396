package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/subtitle"
	"github.com/legendai/legendai/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Generate subtitles for media files as they appear in a directory",
	Long: `Watch a directory and subtitle every new audio or video file once it has
stopped changing. Files that already have subtitles in the chosen format
are skipped. Runs until interrupted.

Examples:
  legendai watch ~/Videos/inbox
  legendai watch ./recordings --format vtt --existing
  legendai watch ./recordings --provider openai --model whisper-1`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addTranscriptionFlags(watchCmd)
	watchCmd.Flags().
		Duration("settle", 0, "Quiet period after the last write before a file is processed")
	watchCmd.Flags().
		Bool("existing", false, "Also process media already in the directory")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	if err := applyGenerateFlags(cmd, cfg); err != nil {
		return err
	}
	formatStr := cfg.Watch.Format
	if cmd.Flags().Changed("format") {
		formatStr = cfg.Transcription.Format
	}
	format, err := subtitle.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	settle, _ := cmd.Flags().GetDuration("settle")
	if settle <= 0 {
		settle = cfg.Watch.SettleDelay
	}
	existing, _ := cmd.Flags().GetBool("existing")

	handle := func(ctx context.Context, mediaPath string) error {
		_, _, err := generateSubtitles(ctx, mediaPath, format, watch.SubtitlePath(mediaPath, format))
		return err
	}

	w := watch.New(dir, handle, watch.Options{
		Format:       format,
		SettleDelay:  settle,
		ScanExisting: existing,
	}, logger.Named("watch"))

	return w.Run(cmd.Context())
}
