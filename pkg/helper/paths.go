package helper

import (
	"errors"
	"os"
	"path/filepath"
)

const (
	configFallbackDir = "/etc/snipcollab"
	pidFallbackPath   = "/var/run/collabd.pid"
)

// ErrEmptyConfigName is returned by ConfigPath for an empty file name
var ErrEmptyConfigName = errors.New("config file name is empty")

// ConfigPath locates a configuration file. Absolute names are returned as-is,
// relative names are searched in the working directory, then in ./configs,
// and finally resolved under /etc/snipcollab.
func ConfigPath(filename string) (string, error) {
	if filename == "" {
		return "", ErrEmptyConfigName
	}
	if filepath.IsAbs(filename) {
		return filename, nil
	}
	for _, dir := range []string{".", "configs"} {
		candidate, err := filepath.Abs(filepath.Join(dir, filename))
		if err != nil {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return filepath.Join(configFallbackDir, filename), nil
}

// PIDPath resolves the pid file location. An empty name means /var/run/collabd.pid.
func PIDPath(filename string) string {
	if filename == "" {
		return pidFallbackPath
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		return pidFallbackPath
	}
	return abs
}
