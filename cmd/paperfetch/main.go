// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperfetch CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/logging"
	"github.com/pdiddy/paperfetch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paperfetch CLI.
var rootCmd = &cobra.Command{
	Use:   "paperfetch",
	Short: "Find and download open-access copies of research papers",
	Long: `paperfetch searches PubMed for bibliographic records and retrieves the
full-text PDF of each one from the first source that has an accessible copy:
PubMed Central, bioRxiv/medRxiv, arXiv, and finally an author-copy index.

Each stage is a subcommand: search writes a records file, fetch downloads the
papers and writes a ledger of what happened to every record, bundle packs
downloaded papers into a zip archive, and history lists earlier runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return preloadSecrets(cmd.ErrOrStderr())
	},
}

// preloadSecrets loads the secrets directory into loadedSecrets. Files that
// cannot be read are reported on w and skipped.
func preloadSecrets(w io.Writer) error {
	logger, err := logging.New(w, viper.GetString("log.level"), "")
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := secrets.Load(viper.GetString("secrets_dir"), logger)
	if err != nil {
		return err
	}
	loadedSecrets = s
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "Loaded secrets: %v\n", keys)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paperfetch.yaml or ~/.config/paperfetch/paperfetch.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of credential files")
	pf.String("db", "ledgers/history.db", "run history database (empty disables history)")
	pf.String("user-agent", defaultUserAgent, "User-Agent sent with every request")

	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("secrets_dir", pf.Lookup("secrets-dir"))
	viper.BindPFlag("ledger.db", pf.Lookup("db"))
	viper.BindPFlag("http.user_agent", pf.Lookup("user-agent"))
}

func initConfig() {
	// .env values become ordinary environment variables; variables already
	// set in the environment are not overridden.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperfetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperfetch"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("PAPERFETCH")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger on stderr, tagged with runID when
// one is given.
func newLogger(runID string) (*zap.Logger, error) {
	return logging.New(os.Stderr, viper.GetString("log.level"), runID)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
