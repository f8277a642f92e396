package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/config"
	"github.com/legendai/legendai/internal/logging"
)

// commands annotated with skipConfig run without loading the config file
const skipConfig = "skip-config"

var (
	cfgFile string
	verbose bool
	logger  *logging.Logger
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "legendai",
	Short: "AI-powered subtitle generator and translator",
	Long: `legendai turns audio and video into timed subtitles.

Transcripts come from an AI provider; when the provider returns flat text,
cue timing is synthesized from a speech-rate model. Subtitles can be
translated, converted between formats and served over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		if cmd.Annotations[skipConfig] == "true" {
			cfg = config.Default()
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		if cfg.File != "" {
			logger.Debugw("Loaded config", "file", cfg.File)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

// Execute runs the CLI; ctx is canceled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "Config file (default ./legendai.yaml or the user config dir)")
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("language", "l", "", "Language code (e.g., en, es, fr)")
}
