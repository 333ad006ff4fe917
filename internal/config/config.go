package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config binds the launcher parameters resolved from flags, PYLAUNCH_*
// environment variables and the config file, in that precedence order.
type Config struct {
	ProjectDir  string `mapstructure:"project_dir" yaml:"project_dir" json:"project_dir"`
	VenvDir     string `mapstructure:"venv_dir" yaml:"venv_dir" json:"venv_dir"`
	Module      string `mapstructure:"module" yaml:"module" json:"module"`
	Interpreter string `mapstructure:"interpreter" yaml:"interpreter" json:"interpreter"`
	Interactive bool   `mapstructure:"interactive" yaml:"interactive" json:"interactive"`
	HistoryPath string `mapstructure:"history_path" yaml:"history_path" json:"history_path"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
}

// DefaultInterpreter is the ambient interpreter used when no venv provides one.
func DefaultInterpreter() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// DefaultDir is the directory holding the config file and history database.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pylaunch")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_dir", "")
	v.SetDefault("venv_dir", "venv")
	v.SetDefault("module", "app")
	v.SetDefault("interpreter", DefaultInterpreter())
	v.SetDefault("interactive", true)
	v.SetDefault("log_level", "warn")
	if dir := DefaultDir(); dir != "" {
		v.SetDefault("history_path", filepath.Join(dir, "history.db"))
	}
}

// Load resolves the effective configuration. An empty cfgFile searches the
// standard locations; a config file is optional unless explicitly named.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if dir := DefaultDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PYLAUNCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			if _, statErr := os.Stat(cfgFile); cfgFile != "" && os.IsNotExist(statErr) {
				return Config{}, fmt.Errorf("config file not found: %s", cfgFile)
			}
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
		logrus.Debug("no config file found, using defaults")
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Debug("config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a launch cannot proceed without.
func (c Config) Validate() error {
	if c.ProjectDir == "" {
		return errors.New("project_dir is not set: pass --project-dir, set PYLAUNCH_PROJECT_DIR, or run 'pylaunch config init'")
	}
	if c.Module == "" {
		return errors.New("module is not set")
	}
	if c.Interpreter == "" {
		return errors.New("interpreter is not set")
	}
	return nil
}
