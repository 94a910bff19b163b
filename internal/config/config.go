package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// RegistrationConfig selects the call shape that marks a packed module and
// the naming scheme for the artifacts sliced out of it.
type RegistrationConfig struct {
	Object       string `yaml:"object" mapstructure:"object"`               // callee object, e.g. "System"
	Property     string `yaml:"property" mapstructure:"property"`           // callee property, e.g. "register"
	SymbolPrefix string `yaml:"symbol_prefix" mapstructure:"symbol_prefix"` // prefix for derived entry points
	Extension    string `yaml:"extension" mapstructure:"extension"`         // artifact extension, no dot
}

// PassConfig toggles one analysis pass.
type PassConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// PassesConfig groups the per-pass toggles.
type PassesConfig struct {
	Extract         PassConfig `yaml:"extract" mapstructure:"extract"`
	FoldConditions  PassConfig `yaml:"fold_conditions" mapstructure:"fold_conditions"`
	ReorderSwitches PassConfig `yaml:"reorder_switches" mapstructure:"reorder_switches"`
}

// Config holds all settings for the unpacker.
// Struct tags control how Viper maps config file keys and environment variables.
type Config struct {
	// General behavior
	Silent  bool `mapstructure:"silent" yaml:"silent"`   // Suppress informational messages
	Summary bool `mapstructure:"summary" yaml:"summary"` // Print a per-run artifact table

	// Output handling. Empty means beside the input file.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	Registration RegistrationConfig `mapstructure:"registration" yaml:"registration"`
	Passes       PassesConfig       `mapstructure:"passes" yaml:"passes"`
}

var (
	// Testing controls whether output is suppressed for testing purposes
	Testing bool
)

// PrintInfo prints informational output unless Testing is set.
func PrintInfo(format string, args ...interface{}) {
	if !Testing {
		fmt.Printf(format, args...)
	}
}

// DefaultConfig returns a configuration with default settings. The
// registration defaults match the SystemJS-style bundles this tool was
// built for.
func DefaultConfig() *Config {
	return &Config{
		Silent:    false,
		Summary:   false,
		OutputDir: "",
		Registration: RegistrationConfig{
			Object:       "System",
			Property:     "register",
			SymbolPrefix: "Register",
			Extension:    "js",
		},
		Passes: PassesConfig{
			Extract:         PassConfig{Enabled: true},
			FoldConditions:  PassConfig{Enabled: true},
			ReorderSwitches: PassConfig{Enabled: true},
		},
	}
}

// LoadConfig reads configuration from file and environment variables, then
// returns a filled Config struct. A missing default-path file is not an
// error; a missing explicitly requested file is.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := configPath != ""
	if configPath == "" {
		configPath = "unbundle.yaml" // Default path
	}

	v := viper.New()
	v.SetEnvPrefix("UNBUNDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("error unmarshalling config file %s: %w", configPath, err)
		}
		if !cfg.Silent {
			PrintInfo("Info: Loaded configuration from %s\n", configPath)
		}
	} else if os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("specified config file not found: %s", configPath)
		}
	} else {
		return nil, fmt.Errorf("error checking config file %s: %w", configPath, err)
	}

	if cfg.Registration.Object == "" || cfg.Registration.Property == "" {
		return nil, fmt.Errorf("registration marker must name both an object and a property")
	}
	if cfg.Registration.Extension == "" {
		cfg.Registration.Extension = "js"
	}
	if cfg.OutputDir != "" {
		cfg.OutputDir = filepath.Clean(cfg.OutputDir)
	}
	return cfg, nil
}

// SaveConfig saves the default configuration to a file.
func SaveConfig(configPath string) error {
	cfg := DefaultConfig()
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshalling default config: %w", err)
	}
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory for config file %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, yamlData, 0644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configPath, err)
	}
	PrintInfo("Info: Saved default configuration to %s\n", configPath)
	return nil
}
