package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/legendai/legendai/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Long: `Write the default configuration as YAML, to ./legendai.yaml unless a path
is given. An existing file is only replaced with --force.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultFileName
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")

		if err := config.WriteDefault(path, force); err != nil {
			return err
		}

		absPath, _ := filepath.Abs(path)
		fmt.Fprintf(cmd.OutOrStdout(), "Config written: %s\n", absPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with API keys masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(maskedConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if cfg.File != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", cfg.File)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func maskedConfig(c *config.Config) config.Config {
	masked := *c
	for _, provider := range []string{"gemini", "openai", "anthropic", "google"} {
		if masked.APIKeys.ForProvider(provider) != "" {
			masked.APIKeys.Set(provider, "********")
		}
	}
	return masked
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
}
