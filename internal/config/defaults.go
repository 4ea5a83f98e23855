// Package config handles configuration loading and validation for the gate
// daemon.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/nekogate/
//   - Linux:   ~/.local/share/nekogate/
//   - Windows: %APPDATA%\nekogate\
//
// Falls back to ~/.nekogate if platform detection fails.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSDataDir()
	case "linux":
		return linuxDataDir()
	case "windows":
		return windowsDataDir()
	default:
		return fallbackDataDir()
	}
}

// PlatformConfigDir returns the platform-specific config directory.
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSDataDir()
	case "linux":
		return linuxConfigDir()
	case "windows":
		return windowsDataDir()
	default:
		return fallbackDataDir()
	}
}

// PlatformLogDir returns the platform-specific log directory.
func PlatformLogDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSLogDir()
	case "linux":
		return filepath.Join(linuxDataDir(), "logs")
	case "windows":
		return windowsLogDir()
	default:
		return filepath.Join(fallbackDataDir(), "logs")
	}
}

func macOSDataDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, "Library", "Application Support", "nekogate")
}

func macOSLogDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, "Library", "Logs", "nekogate")
}

func linuxDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "nekogate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "nekogate")
}

func linuxConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "nekogate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nekogate")
}

func windowsDataDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "nekogate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Roaming", "nekogate")
}

func windowsLogDir() string {
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		return filepath.Join(localAppData, "nekogate", "logs")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Local", "nekogate", "logs")
}

func fallbackDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nekogate")
}

// DefaultPaths collects every default file path the daemon needs.
type DefaultPaths struct {
	DataDir   string
	ConfigDir string
	LogDir    string

	ConfigFile   string
	DatabaseFile string
	AuditLogFile string
	LogFile      string
}

// GetDefaultPaths returns all default paths for the current platform.
func GetDefaultPaths() *DefaultPaths {
	dataDir := PlatformDataDir()
	configDir := PlatformConfigDir()
	logDir := PlatformLogDir()

	return &DefaultPaths{
		DataDir:   dataDir,
		ConfigDir: configDir,
		LogDir:    logDir,

		ConfigFile:   filepath.Join(configDir, "config.toml"),
		DatabaseFile: filepath.Join(dataDir, "gate.db"),
		AuditLogFile: filepath.Join(logDir, "audit.log"),
		LogFile:      filepath.Join(logDir, "gate.log"),
	}
}

// Platform constants for feature detection.
const (
	PlatformMacOS   = "darwin"
	PlatformLinux   = "linux"
	PlatformWindows = "windows"
)

// HasTPMSupport returns true if the platform may have a TPM 2.0 device
// internal/tpmseal's Linux implementation can talk to.
func HasTPMSupport() bool {
	return runtime.GOOS == "linux"
}
