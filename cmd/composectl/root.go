package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/centraunit/compose"
	"github.com/centraunit/compose/internal/sample"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:          "composectl",
	Short:        "Build and inspect the sample composition",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"compose config file (yaml)")
	rootCmd.PersistentFlags().String("ambiguity", compose.UseLast.String(),
		"ambiguity strategy: use-last, use-first or force-priority")
	rootCmd.PersistentFlags().Bool("validate", false,
		"validate the dependency graph at build time")
	rootCmd.PersistentFlags().StringSlice("include", nil,
		"convention candidate patterns to include (e.g. 'sample.*Operation')")
	rootCmd.PersistentFlags().StringSlice("exclude", nil,
		"convention candidate patterns to exclude")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log container activity to stderr")

	bindFlags()
}

func bindFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("ambiguity", flags.Lookup("ambiguity"))
	_ = viper.BindPFlag("validate", flags.Lookup("validate"))
	_ = viper.BindPFlag("conventions.include", flags.Lookup("include"))
	_ = viper.BindPFlag("conventions.exclude", flags.Lookup("exclude"))
}

func initConfig() {
	viper.SetEnvPrefix("COMPOSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// loadConfig merges the config file, COMPOSE_* variables and flags, in
// increasing precedence.
func loadConfig() (compose.Config, error) {
	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			return compose.Config{}, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	strategy, err := compose.ParseAmbiguityStrategy(viper.GetString("ambiguity"))
	if err != nil {
		return compose.Config{}, err
	}
	cfg := compose.Config{
		Ambiguity:  strategy,
		Validation: viper.GetBool("validate"),
		Conventions: compose.ConventionsConfig{
			Include: viper.GetStringSlice("conventions.include"),
			Exclude: viper.GetStringSlice("conventions.exclude"),
		},
	}
	return cfg, cfg.Validate()
}

func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// buildSample builds the sample root context from the merged configuration.
func buildSample() (*compose.Container, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	opts = append(opts, compose.WithLogger(logger))

	root, err := sample.Build([]compose.CatalogOption{compose.CatalogLogger(logger)}, opts...)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("building sample: %w", err)
	}
	return root, logger, nil
}
