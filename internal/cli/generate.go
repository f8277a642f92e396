package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/config"
	"github.com/legendai/legendai/internal/media"
	"github.com/legendai/legendai/internal/pipeline"
	"github.com/legendai/legendai/internal/subtitle"
	"github.com/legendai/legendai/internal/transcribe"
	"github.com/legendai/legendai/internal/watch"
)

var generateCmd = &cobra.Command{
	Use:   "generate [media_file]",
	Short: "Generate subtitles for an audio or video file",
	Long: `Generate subtitles for the specified audio or video file using AI transcription.

The command accepts both audio files (mp3, wav, aac, etc.) and video files (mp4, mkv, etc.).
For video files, audio is automatically extracted before transcription.

Long audio is split into chunks (default 1 minute) and transcribed in parallel.
Providers that return timed segments keep their timing; flat transcripts are
timed from the configured speech rate. Output formats: SRT, VTT, ASS and TTML.

Examples:
  legendai generate video.mp4
  legendai generate audio.mp3 --format vtt
  legendai generate video.mp4 --provider openai --model whisper-1
  legendai generate podcast.mp3 -f srt -d 2 --concurrency 5 --copy`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	addTranscriptionFlags(generateCmd)
	generateCmd.Flags().
		Bool("copy", false, "Copy the generated subtitles to the clipboard")
}

// addTranscriptionFlags registers the flags read by applyGenerateFlags.
func addTranscriptionFlags(cmd *cobra.Command) {
	cmd.Flags().
		String("provider", "", "Transcription provider (gemini, openai)")
	cmd.Flags().
		StringP("api-key", "k", "", "Provider API key (or set GEMINI_API_KEY/OPENAI_API_KEY env var)")
	cmd.Flags().
		IntP("chunk-duration", "d", 0, "Chunk duration in minutes for splitting audio")
	cmd.Flags().
		StringP("format", "f", "", "Output subtitle format (srt, vtt, ass, ttml)")
	cmd.Flags().
		Int("concurrency", 0, "Number of parallel transcription workers")
	cmd.Flags().
		String("model", "", "Model to use for transcription (provider default when empty)")
	cmd.Flags().
		String("transcript-language", "", "Output language for transcript (e.g., 'english', 'spanish', or 'native' for original language)")
}

var transcriptionModels = map[transcribe.Provider][]string{
	transcribe.ProviderGemini: {"gemini-3-pro-preview", "gemini-3-flash-preview", "gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
	transcribe.ProviderOpenAI: {"whisper-1", "gpt-4o-transcribe", "gpt-4o-mini-transcribe"},
}

// OpenAI can only transcribe in the spoken language or translate to English.
func isValidOpenAITranscriptLanguage(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "native", "english", "en":
		return true
	default:
		return false
	}
}

// applyGenerateFlags overrides the transcription config with the flags
// that were set on the command line.
func applyGenerateFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("provider") {
		c.Transcription.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("model") {
		c.Transcription.Model, _ = flags.GetString("model")
	}
	if flags.Changed("format") {
		c.Transcription.Format, _ = flags.GetString("format")
	}
	if flags.Changed("chunk-duration") {
		c.Transcription.ChunkMinutes, _ = flags.GetInt("chunk-duration")
	}
	if flags.Changed("concurrency") {
		c.Transcription.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("transcript-language") {
		c.Transcription.TranscriptLanguage, _ = flags.GetString("transcript-language")
	}
	if lang, _ := flags.GetString("language"); lang != "" {
		c.Transcription.Language = lang
	}
	if key, _ := flags.GetString("api-key"); key != "" {
		c.APIKeys.Set(c.Transcription.Provider, key)
	}

	provider := transcribe.Provider(strings.ToLower(c.Transcription.Provider))
	models, ok := transcriptionModels[provider]
	if !ok {
		return fmt.Errorf("unsupported transcription provider %q: use gemini or openai", c.Transcription.Provider)
	}
	if c.Transcription.Model != "" && !slices.Contains(models, c.Transcription.Model) {
		logger.Warnw("Model is not in the known list, passing it through",
			"provider", provider,
			"model", c.Transcription.Model,
		)
	}
	if provider == transcribe.ProviderOpenAI && !isValidOpenAITranscriptLanguage(c.Transcription.TranscriptLanguage) {
		return fmt.Errorf(
			"OpenAI can only output the spoken language or English, got transcript language %q",
			c.Transcription.TranscriptLanguage,
		)
	}

	return c.Validate()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := cmd.Context()

	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", mediaPath)
	}
	if !media.IsMediaFile(mediaPath) {
		return fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(mediaPath))
	}

	if err := applyGenerateFlags(cmd, cfg); err != nil {
		return err
	}

	format, err := subtitle.ParseFormat(cfg.Transcription.Format)
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = watch.SubtitlePath(mediaPath, format)
	}
	copyOutput, _ := cmd.Flags().GetBool("copy")

	logger.Infow("Starting subtitle generation",
		"input", mediaPath,
		"output", outputPath,
		"format", format,
		"provider", cfg.Transcription.Provider,
		"chunk_minutes", cfg.Transcription.ChunkMinutes,
		"concurrency", cfg.Transcription.Concurrency,
	)

	out, content, err := generateSubtitles(ctx, mediaPath, format, outputPath)
	if err != nil {
		return err
	}

	if copyOutput {
		if err := clipboard.WriteAll(content); err != nil {
			logger.Warnw("Failed to copy subtitles to clipboard", "error", err)
		} else {
			logger.Infow("Subtitles copied to clipboard")
		}
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles generated successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d\n", len(out.Cues))
	fmt.Printf("  Duration: %.1fs\n", out.Duration)
	if out.Language != "" {
		fmt.Printf("  Language: %s\n", out.Language)
	}

	return nil
}

// generateSubtitles transcribes mediaPath with the loaded config and writes
// the rendered subtitles to outputPath.
func generateSubtitles(
	ctx context.Context,
	mediaPath string,
	format subtitle.Format,
	outputPath string,
) (*pipeline.Output, string, error) {
	gen, err := pipeline.NewFromConfig(ctx, cfg, logger.Named("pipeline"), func(p pipeline.Progress) {
		if p.Stage == pipeline.StageTranscribing && p.Done > 0 {
			logger.Debugw("Chunk transcribed", "done", p.Done, "total", p.Total)
		}
	})
	if err != nil {
		return nil, "", err
	}

	out, err := gen.Run(ctx, mediaPath)
	if err != nil {
		return nil, "", err
	}

	writer, err := subtitle.NewWriter(format)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create subtitle writer: %w", err)
	}

	sub := out.Subtitle()
	sub.Format = string(format)

	data, err := writer.Render(sub)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render subtitles: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return nil, "", fmt.Errorf("failed to write subtitles: %w", err)
	}

	return out, string(data), nil
}
