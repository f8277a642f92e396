package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/legendai/legendai/internal/config"
	"github.com/legendai/legendai/internal/logging"
	"github.com/legendai/legendai/internal/transcribe"
)

// NewFromConfig builds a Generator for the configured transcription provider.
func NewFromConfig(
	ctx context.Context,
	cfg *config.Config,
	logger *logging.Logger,
	progress ProgressFunc,
) (*Generator, error) {
	provider := strings.ToLower(cfg.Transcription.Provider)

	apiKey := cfg.APIKeys.ForProvider(provider)
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key is required: set %s or api_keys.%s in the config file",
			config.EnvVarForProvider(provider),
			provider,
		)
	}

	t, err := transcribe.Factory(ctx, transcribe.Provider(provider), apiKey, transcribe.Options{
		Language:           cfg.Transcription.Language,
		TranscriptLanguage: cfg.Transcription.TranscriptLanguage,
		Model:              cfg.Transcription.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	return NewGenerator(t, Options{
		Timing:        cfg.Timing,
		ChunkDuration: cfg.Transcription.ChunkDuration(),
		Concurrency:   cfg.Transcription.Concurrency,
		Progress:      progress,
	}, logger), nil
}
