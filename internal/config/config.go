package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/legendai/legendai/internal/subtitle"
)

const (
	// DefaultFileName is looked up in the working directory and in the
	// user config directory when no explicit path is given.
	DefaultFileName = "legendai.yaml"
	envPrefix       = "LEGENDAI"
)

type Config struct {
	Transcription TranscriptionConfig   `mapstructure:"transcription" yaml:"transcription"`
	Translation   TranslationConfig     `mapstructure:"translation"   yaml:"translation"`
	Timing        subtitle.TimingConfig `mapstructure:"timing"        yaml:"timing"`
	Server        ServerConfig          `mapstructure:"server"        yaml:"server"`
	Watch         WatchConfig           `mapstructure:"watch"         yaml:"watch"`
	APIKeys       APIKeys               `mapstructure:"api_keys"      yaml:"api_keys"`

	// path of the file the config was read from, empty when none was found
	File string `mapstructure:"-" yaml:"-"`
}

type TranscriptionConfig struct {
	Provider           string `mapstructure:"provider"            yaml:"provider"`
	Model              string `mapstructure:"model"               yaml:"model"`
	Language           string `mapstructure:"language"            yaml:"language"`
	TranscriptLanguage string `mapstructure:"transcript_language" yaml:"transcript_language"`
	ChunkMinutes       int    `mapstructure:"chunk_minutes"       yaml:"chunk_minutes"`
	Concurrency        int    `mapstructure:"concurrency"         yaml:"concurrency"`
	Format             string `mapstructure:"format"              yaml:"format"`
}

// ChunkDuration is the longest audio slice sent to the provider in one request.
func (t TranscriptionConfig) ChunkDuration() time.Duration {
	return time.Duration(t.ChunkMinutes) * time.Minute
}

type TranslationConfig struct {
	Provider    string `mapstructure:"provider"    yaml:"provider"`
	Model       string `mapstructure:"model"       yaml:"model"`
	BatchSize   int    `mapstructure:"batch_size"  yaml:"batch_size"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"             yaml:"addr"`
	RateLimit      int           `mapstructure:"rate_limit"       yaml:"rate_limit"`
	RateWindow     time.Duration `mapstructure:"rate_window"      yaml:"rate_window"`
	MaxUploadMB    int64         `mapstructure:"max_upload_mb"    yaml:"max_upload_mb"`
	UsageRetention time.Duration `mapstructure:"usage_retention"  yaml:"usage_retention"`
	JobRetention   time.Duration `mapstructure:"job_retention"    yaml:"job_retention"`
}

type WatchConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	Format      string        `mapstructure:"format"       yaml:"format"`
}

// provider credentials; normally supplied through the environment
type APIKeys struct {
	Gemini    string `mapstructure:"gemini"    yaml:"gemini,omitempty"`
	OpenAI    string `mapstructure:"openai"    yaml:"openai,omitempty"`
	Anthropic string `mapstructure:"anthropic" yaml:"anthropic,omitempty"`
	Google    string `mapstructure:"google"    yaml:"google,omitempty"`
}

// ForProvider returns the key for a provider name.
func (k APIKeys) ForProvider(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		return k.Gemini
	case "openai":
		return k.OpenAI
	case "anthropic":
		return k.Anthropic
	case "google":
		return k.Google
	default:
		return ""
	}
}

// Set stores the key for a provider name. Unknown providers are ignored.
func (k *APIKeys) Set(provider, key string) {
	switch strings.ToLower(provider) {
	case "gemini":
		k.Gemini = key
	case "openai":
		k.OpenAI = key
	case "anthropic":
		k.Anthropic = key
	case "google":
		k.Google = key
	}
}

// EnvVarForProvider names the environment variable holding a provider key.
func EnvVarForProvider(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		return "GEMINI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	default:
		return "API_KEY"
	}
}

func Default() *Config {
	return &Config{
		Transcription: TranscriptionConfig{
			Provider:           "gemini",
			TranscriptLanguage: "native",
			ChunkMinutes:       1,
			Concurrency:        3,
			Format:             "srt",
		},
		Translation: TranslationConfig{
			Provider:    "gemini",
			BatchSize:   50,
			Concurrency: 3,
		},
		Timing: subtitle.DefaultTimingConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			RateLimit:      30,
			RateWindow:     time.Minute,
			MaxUploadMB:    200,
			UsageRetention: 30 * 24 * time.Hour,
			JobRetention:   time.Hour,
		},
		Watch: WatchConfig{
			SettleDelay: 2 * time.Second,
			Format:      "srt",
		},
	}
}

// Load reads configuration from path (or the default locations when path is
// empty), LEGENDAI_* environment variables and provider API key variables.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, provider := range []string{"gemini", "openai", "anthropic", "google"} {
		_ = v.BindEnv(
			"api_keys."+provider,
			envPrefix+"_API_KEYS_"+strings.ToUpper(provider),
			EnvVarForProvider(provider),
		)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, filepath.Ext(DefaultFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "legendai"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Timing = cfg.Timing.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// registers every leaf of the defaults so env overrides apply to keys absent
// from the file
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("transcription.provider", d.Transcription.Provider)
	v.SetDefault("transcription.model", d.Transcription.Model)
	v.SetDefault("transcription.language", d.Transcription.Language)
	v.SetDefault("transcription.transcript_language", d.Transcription.TranscriptLanguage)
	v.SetDefault("transcription.chunk_minutes", d.Transcription.ChunkMinutes)
	v.SetDefault("transcription.concurrency", d.Transcription.Concurrency)
	v.SetDefault("transcription.format", d.Transcription.Format)

	v.SetDefault("translation.provider", d.Translation.Provider)
	v.SetDefault("translation.model", d.Translation.Model)
	v.SetDefault("translation.batch_size", d.Translation.BatchSize)
	v.SetDefault("translation.concurrency", d.Translation.Concurrency)

	v.SetDefault("timing.max_words_per_cue", d.Timing.MaxWordsPerCue)
	v.SetDefault("timing.max_chars_per_cue", d.Timing.MaxCharsPerCue)
	v.SetDefault("timing.words_per_minute", d.Timing.WordsPerMinute)
	v.SetDefault("timing.min_cue_duration", d.Timing.MinCueDuration)
	v.SetDefault("timing.max_cue_duration", d.Timing.MaxCueDuration)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_window", d.Server.RateWindow)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	v.SetDefault("server.usage_retention", d.Server.UsageRetention)
	v.SetDefault("server.job_retention", d.Server.JobRetention)

	v.SetDefault("watch.settle_delay", d.Watch.SettleDelay)
	v.SetDefault("watch.format", d.Watch.Format)
}

func (c *Config) Validate() error {
	if c.Transcription.ChunkMinutes <= 0 {
		return fmt.Errorf("transcription.chunk_minutes must be positive, got %d", c.Transcription.ChunkMinutes)
	}
	if c.Transcription.Concurrency <= 0 {
		return fmt.Errorf("transcription.concurrency must be positive, got %d", c.Transcription.Concurrency)
	}
	if c.Translation.BatchSize <= 0 {
		return fmt.Errorf("translation.batch_size must be positive, got %d", c.Translation.BatchSize)
	}
	if c.Translation.Concurrency <= 0 {
		return fmt.Errorf("translation.concurrency must be positive, got %d", c.Translation.Concurrency)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %d", c.Server.RateLimit)
	}
	if _, err := subtitle.ParseFormat(c.Transcription.Format); err != nil {
		return fmt.Errorf("transcription.format: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration as YAML. Existing files are
// only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	header := []byte("# legendai configuration\n# API keys are read from GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY and GOOGLE_API_KEY.\n")
	return os.WriteFile(path, append(header, data...), 0600)
}
