// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// XDGConfigHome returns the XDG config home or a platform fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		if dir, err := os.UserConfigDir(); err == nil && dir != "" {
			return dir
		}
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a platform fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		if dir, err := os.UserConfigDir(); err == nil && dir != "" {
			return dir
		}
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultSettingsPath returns the default TOML settings path.
func DefaultSettingsPath() string {
	return filepath.Join(XDGConfigHome(), "runtally", "runtally.toml")
}

// DefaultRunLogPath returns the default CSV run log path.
func DefaultRunLogPath() string {
	return filepath.Join(XDGDataHome(), "runtally", "runs.csv")
}

// DefaultLogFilePath returns the default diagnostic log path.
func DefaultLogFilePath() string {
	return filepath.Join(XDGDataHome(), "runtally", "runtally.log")
}
