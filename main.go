package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ossyrian/ipftools/internal/config"
	"github.com/ossyrian/ipftools/internal/logging"
	"github.com/ossyrian/ipftools/internal/parser"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ipftools",
	Short: "Decode IPF archives, IES tables, and XAC/XSM model files to JSON",
	RunE:  run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	// i/o
	rootCmd.Flags().StringP("input", "i", "", "path to .ipf/.ies/.xac/.xsm file to decode (required)")
	rootCmd.Flags().StringP("output", "o", "", "path to write output to (defaults to stdout)")
	rootCmd.Flags().String("output-mode", "json", "output rendering: json or hex")
	rootCmd.MarkFlagRequired("input")

	// format
	rootCmd.Flags().String("format", "", "force decoder format (ipf, ies, xac, xsm) instead of detecting from extension")
	rootCmd.Flags().Int("extract", -1, "for ipf archives, index of a single entry to extract instead of listing the archive")

	// other opts
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error, fatal)")
	rootCmd.Flags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stdout and file)")
	rootCmd.Flags().Bool("dry-run", false, "decode without writing output (validation)")

	viper.BindPFlag("input", rootCmd.Flags().Lookup("input"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("output_mode", rootCmd.Flags().Lookup("output-mode"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("extract_index", rootCmd.Flags().Lookup("extract"))
	viper.BindPFlag("log_level", rootCmd.Flags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.Flags().Lookup("log-output-dir"))
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ipftools"))
		}
		viper.AddConfigPath("/etc/ipftools")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("IPFTOOLS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// run executes the ipftools command against the configured input file.
func run(cmd *cobra.Command, args []string) error {
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir); err != nil {
		return fmt.Errorf("could not set up logging: %w", err)
	}

	result, err := parser.Run(cfg)
	if err != nil {
		slog.Error(fmt.Sprintf("error decoding %s", cfg.InputFile), "error", err)
		return nil
	}

	if cfg.DryRun {
		slog.Info("dry run, not writing output")
		return nil
	}

	out := os.Stdout
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := parser.Render(out, result, cfg.OutputMode); err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
