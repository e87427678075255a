package cmd

import (
	"fmt"
	"net/url"

	"dbboot/bootstrap"
	"dbboot/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// shownConfig is the effective configuration as rendered by 'config show'.
// Secrets are redacted before display.
type shownConfig struct {
	Database struct {
		URI            string        `yaml:"uri,omitempty" json:"uri,omitempty"`
		Host           string        `yaml:"host" json:"host"`
		Port           int           `yaml:"port" json:"port"`
		Username       string        `yaml:"username,omitempty" json:"username,omitempty"`
		Password       string        `yaml:"password,omitempty" json:"password,omitempty"`
		Name           string `yaml:"name" json:"name"`
		ConnectTimeout string `yaml:"connect_timeout" json:"connect_timeout"`
		MaxPoolSize    uint64 `yaml:"max_pool_size" json:"max_pool_size"`
	} `yaml:"database" json:"database"`
	Log struct {
		Level string `yaml:"level" json:"level"`
	} `yaml:"log" json:"log"`
}

// newConfigCmd creates the 'config' subcommand group
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect dbboot configuration",
	}

	configCmd.AddCommand(newConfigShowCmd())
	return configCmd
}

// newConfigShowCmd creates the 'config show' subcommand
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Print the effective configuration after defaults, config file, and environment overrides. Secrets are redacted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.InitConfig(zap.NewNop().Sugar())
			if err != nil {
				return err
			}

			shown := redactConfig(cfg)

			if outputJSON {
				return outputAsJSON(shown)
			}

			out, err := yaml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

// redactConfig copies the configuration into its display form, resolving
// the effective database name and masking credentials.
func redactConfig(cfg *config.Config) shownConfig {
	var shown shownConfig
	shown.Database.URI = redactURI(cfg.Database.URI)
	shown.Database.Host = cfg.Database.Host
	shown.Database.Port = cfg.Database.Port
	shown.Database.Username = cfg.Database.Username
	if cfg.Database.Password != "" {
		shown.Database.Password = "********"
	}
	shown.Database.Name = cfg.EffectiveDatabase()
	shown.Database.ConnectTimeout = cfg.Database.ConnectTimeout.String()
	shown.Database.MaxPoolSize = cfg.Database.MaxPoolSize
	shown.Log.Level = cfg.Log.Level
	return shown
}

// redactURI masks the password portion of a connection URI, if present.
func redactURI(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		// Unparseable URIs may still hold credentials; hide everything.
		return "********"
	}
	if u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "********")
		}
	}
	return u.String()
}
