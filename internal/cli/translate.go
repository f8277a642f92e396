package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/subtitle"
	"github.com/legendai/legendai/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate subtitles to another language using AI",
	Long: `Translate an existing subtitle file to another language using AI.

SRT files are translated line by line with their structure left untouched.
VTT, ASS and TTML files are translated cue by cue and written back in the
same format.

The --overlay flag creates bilingual subtitles with the translated text
first, followed by the original text on the next line.

Examples:
  legendai translate video.srt --target-language japanese
  legendai translate video.srt --target-language ja --overlay
  legendai translate video.vtt -l english --target-language spanish -o translated.vtt
  legendai translate video.srt -t german --provider anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringP("target-language", "t", "", "Target language for translation (required)")
	translateCmd.Flags().
		Bool("overlay", false, "Overlay translated text with original (bilingual subtitles)")
	translateCmd.Flags().
		StringP("api-key", "k", "", "API key (or set the provider's *_API_KEY env var)")
	translateCmd.Flags().
		String("model", "", "Model to use for translation (provider-specific, uses sensible defaults)")
	translateCmd.Flags().
		Bool("model-override", false, "Allow any custom model, bypassing provider model validation")
	translateCmd.Flags().
		String("provider", "", "Translation provider (gemini, openai, anthropic, google)")
	translateCmd.Flags().
		Int("concurrency", 0, "Number of parallel translation workers")
	translateCmd.Flags().
		Int("batch-size", 0, "Number of subtitle lines per API request")
	translateCmd.Flags().
		String("prompt", "", "Extra instructions for the translation model")

	_ = translateCmd.MarkFlagRequired("target-language")
}

var translationModels = map[translate.Provider][]string{
	translate.ProviderGemini: {
		"gemini-3-pro-preview", "gemini-3-flash-preview",
		"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite",
	},
	translate.ProviderOpenAI: {
		"o1", "o3-mini", "o1-pro", "o3",
		"gpt-5", "gpt-5-nano", "gpt-5-mini", "gpt-5-pro",
		"gpt-5.1", "gpt-5.2", "gpt-5.2-pro",
	},
	translate.ProviderAnthropic: {
		"claude-haiku-4-5", "claude-sonnet-4-5", "claude-opus-4-1",
	},
}

// reports whether model is known for provider; providers without a model
// list accept anything
func isValidTranslationModel(provider translate.Provider, model string) bool {
	models, ok := translationModels[provider]
	if !ok {
		return true
	}
	return slices.Contains(models, model)
}

func translationOutputPath(inputPath, targetLang string, overlay bool) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	lang := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(targetLang), " ", "-"))
	if overlay {
		return fmt.Sprintf("%s.%s.overlay%s", base, lang, ext)
	}
	return fmt.Sprintf("%s.%s%s", base, lang, ext)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx := cmd.Context()

	targetLang, _ := cmd.Flags().GetString("target-language")
	overlay, _ := cmd.Flags().GetBool("overlay")
	apiKey, _ := cmd.Flags().GetString("api-key")
	model, _ := cmd.Flags().GetString("model")
	modelOverride, _ := cmd.Flags().GetBool("model-override")
	providerStr, _ := cmd.Flags().GetString("provider")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	prompt, _ := cmd.Flags().GetString("prompt")
	outputPath, _ := cmd.Flags().GetString("output")
	inputLang, _ := cmd.Flags().GetString("language")

	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}

	if providerStr == "" {
		providerStr = cfg.Translation.Provider
	}
	provider := translate.Provider(strings.ToLower(providerStr))

	if model != "" && !modelOverride && !isValidTranslationModel(provider, model) {
		return fmt.Errorf(
			"unsupported %s model %q: valid models are %s (use --model-override to bypass)",
			provider,
			model,
			strings.Join(translationModels[provider], ", "),
		)
	}

	if concurrency == 0 {
		concurrency = cfg.Translation.Concurrency
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if batchSize < 0 {
		return fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}

	if apiKey != "" {
		cfg.APIKeys.Set(string(provider), apiKey)
	}

	if outputPath == "" {
		outputPath = translationOutputPath(subtitlePath, targetLang, overlay)
	}

	logger.Infow("Starting subtitle translation",
		"input", subtitlePath,
		"output", outputPath,
		"provider", provider,
		"target_language", targetLang,
		"input_language", inputLang,
		"overlay", overlay,
		"model", model,
	)

	translator, err := translate.NewFromConfig(ctx, cfg, string(provider), translate.Options{
		InputLanguage:  inputLang,
		TargetLanguage: targetLang,
		Model:          model,
		Prompt:         prompt,
		BatchSize:      batchSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}
	defer func() {
		if err := translate.Close(translator); err != nil {
			logger.Warnw("Failed to close translator", "error", err)
		}
	}()

	content, entries, err := translateFile(ctx, translator, subtitlePath, overlay, concurrency)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles translated successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d\n", entries)
	fmt.Printf("  Target language: %s\n", targetLang)
	if overlay {
		fmt.Printf("  Mode: bilingual overlay\n")
	}

	return nil
}

// translateFile translates a subtitle file and renders it in its own format.
// SRT text is translated in place; other formats go through SRT and back.
func translateFile(
	ctx context.Context,
	tr translate.Translator,
	path string,
	overlay bool,
	concurrency int,
) (string, int, error) {
	run := translate.TranslateSRT
	if overlay {
		run = translate.TranslateOverlay
	}

	if strings.EqualFold(filepath.Ext(path), ".srt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read subtitle file: %w", err)
		}
		cues, err := subtitle.ParseSRT(string(data))
		if err != nil {
			return "", 0, fmt.Errorf("failed to parse subtitle file: %w", err)
		}
		if len(cues) == 0 {
			return "", 0, fmt.Errorf("subtitle file contains no entries")
		}

		logger.Infow("Translating subtitles", "entries", len(cues), "concurrency", concurrency)
		out, err := run(ctx, tr, string(data), concurrency)
		if err != nil {
			return "", 0, fmt.Errorf("translation failed: %w", err)
		}
		return out, len(cues), nil
	}

	sub, err := subtitle.Open(path)
	if err != nil {
		return "", 0, err
	}
	if len(sub.Entries) == 0 {
		return "", 0, fmt.Errorf("subtitle file contains no entries")
	}

	logger.Infow("Translating subtitles",
		"entries", len(sub.Entries),
		"format", sub.Format,
		"concurrency", concurrency,
	)
	translated, err := run(ctx, tr, subtitle.SerializeSRT(sub.Cues()), concurrency)
	if err != nil {
		return "", 0, fmt.Errorf("translation failed: %w", err)
	}

	cues, err := subtitle.ParseSRT(translated)
	if err != nil {
		return "", 0, fmt.Errorf("failed to reassemble translation: %w", err)
	}

	writer, err := subtitle.NewWriter(subtitle.Format(sub.Format))
	if err != nil {
		return "", 0, err
	}
	out := subtitle.FromCues(cues)
	out.Language = sub.Language
	data, err := writer.Render(out)
	if err != nil {
		return "", 0, fmt.Errorf("failed to render subtitles: %w", err)
	}
	return string(data), len(cues), nil
}
