// ABOUTME: Default locations for the config file and runtime data
// ABOUTME: Follows XDG with fallbacks to ~/.config and ~/.local/share

package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "COVEN_CHATOPS_CONFIG"

// Path returns the config file location.
// Priority: COVEN_CHATOPS_CONFIG > XDG_CONFIG_HOME/coven/chatops.toml > ~/.config/coven/chatops.toml
func Path() string {
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "chatops.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "coven", "chatops.toml")
}

// DataDir returns where crypto and audit databases live.
// Priority: XDG_DATA_HOME/coven > ~/.local/share/coven
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "coven")
}

