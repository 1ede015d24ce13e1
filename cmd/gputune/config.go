package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/gputune/pkg/gputune/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage gputune configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/gputune/config.yaml (if set)
  2. ~/.config/gputune/config.yaml

Environment variables can override config file settings using the GPUTUNE_ prefix:
  GPUTUNE_OUTPUT_PATH=/srv/rvc/gpu_optimization_config.json
  GPUTUNE_HISTORY_ENABLED=false
  GPUTUNE_LOGGING_LEVEL=debug`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration from all sources as YAML.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configView is the YAML shape printed by config show.
type configView struct {
	Output struct {
		Path    string `yaml:"path"`
		EnvFile string `yaml:"env_file"`
	} `yaml:"output"`
	Training struct {
		Dirs  []string `yaml:"dirs"`
		Files []string `yaml:"files"`
	} `yaml:"training"`
	History struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"history"`
	Logging struct {
		Level      string            `yaml:"level"`
		Path       string            `yaml:"path"`
		Components map[string]string `yaml:"components,omitempty"`
	} `yaml:"logging"`
}

func newConfigView(cfg *config.Config) configView {
	var v configView
	v.Output.Path = cfg.Output.Path
	v.Output.EnvFile = cfg.Output.EnvFile
	v.Training.Dirs = cfg.Training.Dirs
	v.Training.Files = cfg.Training.Files
	v.History.Enabled = cfg.History.Enabled
	v.History.Path = cfg.History.Path
	v.History.RetentionDays = cfg.History.RetentionDays
	v.Logging.Level = cfg.Logging.Level
	v.Logging.Path = cfg.Logging.Path
	v.Logging.Components = cfg.Logging.Components
	return v
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("# Config file: %s\n", configFile)
	} else {
		fmt.Println("# Config file: (using defaults, no file found)")
	}

	data, err := yaml.Marshal(newConfigView(cfg))
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
