package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "imgrate"

// DefaultPath returns the XDG-compliant default config path.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./" + appName + ".toml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName, "config.toml")
}

// Discover finds the config file using the standard search order.
// Search order:
//  1. IMGRATE_CONFIG environment variable
//  2. ./imgrate.toml (current directory)
//  3. $XDG_CONFIG_HOME/imgrate/config.toml
//
// It returns "" when no file exists; running without a config is allowed.
func Discover() (string, error) {
	if envPath := os.Getenv("IMGRATE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", err
		}
		return envPath, nil
	}

	for _, p := range []string{"./" + appName + ".toml", DefaultPath()} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// DefaultDataDir returns the platform-specific data directory. IMGRATE_DATA_DIR
// overrides it.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("IMGRATE_DATA_DIR"); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, appName), nil
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, appName), nil
	}
}

// ResolveDataDir returns storage.data_dir when set, otherwise the platform
// default.
func (c *Config) ResolveDataDir() (string, error) {
	if dir := os.Getenv("IMGRATE_DATA_DIR"); dir != "" {
		return dir, nil
	}
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return DefaultDataDir()
}

// LogFile returns log.file, or imgrate.log inside dataDir.
func (c *Config) LogFile(dataDir string) string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(dataDir, appName+".log")
}
