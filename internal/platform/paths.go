// Package platform resolves the per-user locations of the config file and
// the local database.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// defaultAppName names the directories when no override is given.
const defaultAppName = "tally"

// Paths holds the resolved on-disk locations for one app instance.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
}

// Options selects the app directory name. DevMode gives the instance its own
// "-dev" tree so experiments never touch the real database.
type Options struct {
	AppName string
	DevMode bool
}

// DefaultPaths resolves paths for the default app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{})
}

// DefaultPathsWithOptions resolves paths for the current OS and environment.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	return resolvePaths(runtime.GOOS, os.Getenv, opts)
}

// resolvePaths picks the per-OS base directories and lays the app tree out
// under them. getenv is injected so the override rules stay testable without
// mutating the process environment.
func resolvePaths(goos string, getenv func(string) string, opts Options) (Paths, error) {
	app := strings.TrimSpace(opts.AppName)
	if app == "" {
		app = defaultAppName
	}
	if opts.DevMode {
		app += "-dev"
	}

	configBase, err := configBaseDir(goos, getenv)
	if err != nil {
		return Paths{}, err
	}
	dataBase, err := dataBaseDir(goos, getenv)
	if err != nil {
		return Paths{}, err
	}

	dataDir := filepath.Join(dataBase, app)
	return Paths{
		ConfigPath: filepath.Join(configBase, app, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, app+".db"),
	}, nil
}

func configBaseDir(goos string, getenv func(string) string) (string, error) {
	switch goos {
	case "linux":
		if dir := strings.TrimSpace(getenv("XDG_CONFIG_HOME")); dir != "" {
			return dir, nil
		}
	case "windows":
		if dir := strings.TrimSpace(getenv("APPDATA")); dir != "" {
			return dir, nil
		}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return dir, nil
}

// dataBaseDir diverges from configBaseDir only on linux, where data lives
// under XDG_DATA_HOME (or ~/.local/share) rather than next to the config.
func dataBaseDir(goos string, getenv func(string) string) (string, error) {
	switch goos {
	case "linux":
		if dir := strings.TrimSpace(getenv("XDG_DATA_HOME")); dir != "" {
			return dir, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("user home dir: %w", err)
		}
		return filepath.Join(home, ".local", "share"), nil
	case "windows":
		if dir := strings.TrimSpace(getenv("LOCALAPPDATA")); dir != "" {
			return dir, nil
		}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return dir, nil
}
