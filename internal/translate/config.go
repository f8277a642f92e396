package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/legendai/legendai/internal/config"
)

// NewFromConfig builds a translator for provider, falling back to the
// configured provider, model and batch size when they are not set.
func NewFromConfig(
	ctx context.Context,
	cfg *config.Config,
	provider string,
	opts Options,
) (Translator, error) {
	if provider == "" {
		provider = cfg.Translation.Provider
	}
	provider = strings.ToLower(provider)

	if opts.Model == "" && strings.EqualFold(provider, cfg.Translation.Provider) {
		opts.Model = cfg.Translation.Model
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = cfg.Translation.BatchSize
	}

	apiKey := cfg.APIKeys.ForProvider(provider)
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key is required: set %s or api_keys.%s in the config file",
			config.EnvVarForProvider(provider),
			provider,
		)
	}

	return Factory(ctx, Provider(provider), apiKey, opts)
}
