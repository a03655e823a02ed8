package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix   = "CMK"
	defaultHome = ".cmk"
)

// NewRootCmd builds the cmkd command tree. Configuration resolves in the
// usual order: flags, then CMK_* environment, then <home>/config.yaml.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cmkd",
		Short:         "CipherMarket ABCI application daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			home, err := cmd.Flags().GetString("home")
			if err != nil {
				return err
			}
			return loadConfig(cmd, home)
		},
	}

	rootCmd.PersistentFlags().String("home", defaultHome, "node home directory (state lives under <home>/app)")

	rootCmd.AddCommand(newStartCmd())
	return rootCmd
}

func loadConfig(cmd *cobra.Command, home string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Clean(home))
	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; flags and env carry the settings.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return viper.BindPFlags(cmd.Flags())
}
