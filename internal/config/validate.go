package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/manash/imgrate/internal/export"
	"github.com/manash/imgrate/pkg/models"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Export.Format != "" && !slices.Contains(export.ValidFormats(), c.Export.Format) {
		errs = append(errs, fmt.Sprintf("export.format: must be one of %s; got %q",
			strings.Join(export.ValidFormats(), ", "), c.Export.Format))
	}
	if c.Export.OutputDir != "" {
		if info, err := os.Stat(c.Export.OutputDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Sprintf("export.output_dir: %q is not a directory", c.Export.OutputDir))
		}
	}

	for i, ext := range c.Images.Extensions {
		if strings.TrimPrefix(ext, ".") == "" {
			errs = append(errs, fmt.Sprintf("images.extensions[%d]: empty extension", i))
		}
	}

	if n := len(c.Rating.Questions); n != 0 && n != models.NumQuestions {
		errs = append(errs, fmt.Sprintf("rating.questions: expected %d labels, got %d", models.NumQuestions, n))
	}

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	return errs
}
