package cmd

import (
	"path/filepath"
	"runtime"

	"github.com/azzam1122112-dot/school-display/io/file"
)

// DefaultDataDir is the default data directory to use for the device
// identity file, the persisted clock offset and other persistence
// requirements.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir.
	home := file.HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "SchoolDisplay")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Local", "SchoolDisplay")
		} else {
			return filepath.Join(home, ".school-display")
		}
	}
	// As we cannot guess a stable location, return empty and handle later.
	return ""
}
