package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/config"
)

// NewConfigCmd creates the 'config' command group.
func NewConfigCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	return cmd
}

// newConfigInitCmd creates 'config init'.
//
// init writes the built-in defaults, optionally with the items file and API
// key filled in, to the --config path or ~/.open-pet-platform/config.yaml.
func newConfigInitCmd(g *Globals) *cobra.Command {
	var (
		force     bool
		itemsFile string
		apiKey    string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to ~/.open-pet-platform/config.yaml (or the
--config path). An existing file is kept unless --force is given; a backup
of the old file is written next to it.`,
		Example: `  open-pet-platform config init --items-file ./listings.json
  open-pet-platform config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(g)
			if err != nil {
				return err
			}
			return runConfigInit(cmd.OutOrStdout(), path, itemsFile, apiKey, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&itemsFile, "items-file", "", "Set source.items_file")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Set inference.api_key")

	return cmd
}

func configPath(g *Globals) (string, error) {
	if g.ConfigPath != "" {
		return g.ConfigPath, nil
	}
	if p := os.Getenv(config.ConfigPathEnvVar); p != "" {
		return p, nil
	}
	return config.GetDefaultConfigPath()
}

func runConfigInit(w io.Writer, path, itemsFile, apiKey string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	cfg := config.Default()
	cfg.Source.ItemsFile = itemsFile
	cfg.Inference.APIKey = apiKey

	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(w, "✓ Wrote %s\n", path)
	if itemsFile == "" {
		fmt.Fprintln(w, "  Set source.items_file to load listings.")
	}
	if apiKey == "" {
		fmt.Fprintf(w, "  Set inference.api_key or %sINFERENCE_API_KEY to enable AI enrichment.\n", config.EnvPrefix)
	}
	return nil
}

func newConfigShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the merged configuration (defaults, file and environment) as YAML. Secrets are redacted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return runConfigShow(cmd.OutOrStdout(), cfg)
		},
	}
}

func runConfigShow(w io.Writer, cfg *config.Config) error {
	shown := *cfg
	shown.Inference.APIKey = redact(cfg.Inference.APIKey)
	shown.Cache.Redis.Password = redact(cfg.Cache.Redis.Password)

	data, err := config.Marshal(&shown)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
