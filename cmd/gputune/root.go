package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/gputune/pkg/gputune/config"
	"github.com/jamesainslie/gputune/pkg/gputune/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "gputune",
		Short: "Tune RVC training for the local GPU",
		Long: `gputune detects the local GPU, derives a batch size, data-loader worker
count and CUDA/PyTorch environment flags for it, writes them to
gpu_optimization_config.json and patches the training configs.

Examples:
  gputune                        # Detect, tune, write and patch
  gputune --dry-run              # Show what would change
  gputune --no-patch             # Write the record only
  gputune detect --format json   # Print the detected profile
  gputune show                   # Read back the last record
  gputune history                # List previous runs
  gputune doctor                 # Check optional capabilities`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initLogging,
		RunE:              runTune,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/gputune/config.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "pretty", "output format (pretty, plain, json, yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	rootCmd.Flags().StringP("output", "o", "", "tuning record path (default: gpu_optimization_config.json)")
	rootCmd.Flags().String("env-file", "", "also write the environment flags as a dotenv file")
	rootCmd.Flags().BoolP("dry-run", "d", false, "show changes without writing any file")
	rootCmd.Flags().Bool("no-patch", false, "do not patch training configs")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.path", rootCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("output.env_file", rootCmd.Flags().Lookup("env-file"))
	_ = viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("no_patch", rootCmd.Flags().Lookup("no-patch"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	config.Configure(viper.GetViper(), cfgFile)
	if err := config.ReadInConfig(viper.GetViper()); err != nil {
		printError("%v", err)
	}
}

// initLogging opens the file log. Verbose mode mirrors debug output to stderr.
func initLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
	}
	if getVerbose() && !getQuiet() {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		// The log file is optional; keep going without it.
		printVerbose("logging disabled: %v", err)
	}
	return nil
}

// loadConfig decodes the global viper state into a Config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// getFormat returns the selected output format.
func getFormat() string {
	if f := viper.GetString("format"); f != "" {
		return f
	}
	return "pretty"
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
