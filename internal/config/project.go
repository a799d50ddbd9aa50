package config

import (
	"os"
	"path/filepath"
)

// DirName is the per-project data directory.
const DirName = ".bbtrack"

// FindProjectRoot looks for the .bbtrack directory starting from the current
// working directory and moving up the directory tree
func FindProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := currentDir
	for {
		if _, err := os.Stat(filepath.Join(dir, DirName)); err == nil {
			return dir, nil
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			// Reached the root of the filesystem
			break
		}
		dir = parentDir
	}

	// If no .bbtrack directory found, return current directory
	return currentDir, nil
}

// GetDataDir returns the path to the .bbtrack directory relative to the project root
func GetDataDir(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// Subdirs lists the directories EnsureDataDirs creates.
func Subdirs(dataDir string) []string {
	return []string{
		filepath.Join(dataDir, "logs"),
		filepath.Join(dataDir, "store"),
	}
}

// EnsureDataDirs creates the necessary .bbtrack subdirectories
func EnsureDataDirs(dataDir string) error {
	for _, subdir := range Subdirs(dataDir) {
		if err := os.MkdirAll(subdir, 0755); err != nil {
			return err
		}
	}
	return nil
}
