// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Images  ImagesConfig  `toml:"images"`
	Export  ExportConfig  `toml:"export"`
	Rating  RatingConfig  `toml:"rating"`
	Log     LogConfig     `toml:"log"`
}

type StorageConfig struct {
	// DataDir holds snapshots, the session ledger and the log file.
	DataDir string `toml:"data_dir"`
}

type ImagesConfig struct {
	Extensions []string `toml:"extensions"`
}

type ExportConfig struct {
	Format    string `toml:"format"`
	OutputDir string `toml:"output_dir"`
}

type RatingConfig struct {
	AllowIncompleteLast bool `toml:"allow_incomplete_last"`
	Autosave            bool `toml:"autosave"`
	// Questions are display labels for Q1..Q5.
	Questions []string `toml:"questions"`
}

type LogConfig struct {
	Level string `toml:"level"`
	// File defaults to <data_dir>/imgrate.log.
	File string `toml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Images: ImagesConfig{
			Extensions: []string{".png"},
		},
		Export: ExportConfig{
			Format: "csv",
		},
		Rating: RatingConfig{
			Autosave: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration file. Keys absent from the file
// keep their defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfgErr := &ConfigError{Path: path}
	content, missing := substituteEnvVars(string(data))
	cfgErr.Missing = missing
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}

	if _, err := toml.Decode(content, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfgErr.Errors = cfg.Validate()
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// QuestionLabel returns the configured label for the question at index i,
// or "" when none is set.
func (c *Config) QuestionLabel(i int) string {
	if i >= 0 && i < len(c.Rating.Questions) {
		return c.Rating.Questions[i]
	}
	return ""
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
// and reports the names that are not set.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		if !slices.Contains(missing, varName) {
			missing = append(missing, varName)
		}
		return match
	})
	return out, missing
}
