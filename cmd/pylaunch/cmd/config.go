package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pylaunch/pylaunch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Commands for inspecting and bootstrapping the launcher configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Show prints the configuration after merging defaults, the config file,
PYLAUNCH_* environment variables and command-line flags.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long:  `Init writes a commented default config file, refusing to overwrite an existing one.`,
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if IsJSONOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		dir := config.DefaultDir()
		if dir == "" {
			return fmt.Errorf("cannot determine home directory, pass --config")
		}
		path = filepath.Join(dir, "config.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	template := fmt.Sprintf(`# pylaunch configuration
# Every key can be overridden with a PYLAUNCH_* environment variable
# (e.g. PYLAUNCH_PROJECT_DIR) or the matching command-line flag.

# Directory containing the Python project to launch. Required.
project_dir: ""

# Virtual environment directory, relative to project_dir unless absolute.
venv_dir: venv

# Package entrypoint, run as '<interpreter> -m <module>'.
module: app

# Interpreter used when the venv does not provide one.
interpreter: %s

# Pause for acknowledgment when the venv is missing (interactive terminals only).
interactive: true

# Launch history database. Defaults to $HOME/.pylaunch/history.db; set to an
# empty string to disable recording.
#history_path: ""

# Log level: debug, info, warn, error.
log_level: warn
`, config.DefaultInterpreter())

	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Set project_dir before running 'pylaunch run'.")
	return nil
}
