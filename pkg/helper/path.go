package helper

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigDir overrides the directory searched for relative config files
	EnvConfigDir = "WORKBENCH_CONFIG_DIR"

	fallbackCfgDir  = "/etc/workbench"
	fallbackPIDPath = "/var/run/workbench.pid"
)

// GetCfgPath returns the path to the configuration file.
//
// Priority:
// 1. If filename is an absolute path, return it directly.
// 2. $WORKBENCH_CONFIG_DIR/{filename} when the variable is set and the file exists.
// 3. Check ./{filename} and ./configs/{filename}
// 4. Otherwise, fallback to /etc/workbench/{filename}
func GetCfgPath(filename string) string {
	if filename == "" {
		panic("filename cannot be empty")
	}
	if filepath.IsAbs(filename) {
		return filename
	}

	var dirs []string
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		dirs = append(dirs, dir)
	}
	if wd, err := os.Getwd(); err == nil && wd != "" {
		dirs = append(dirs, wd, filepath.Join(wd, "configs"))
	}
	for _, dir := range dirs {
		if p := existingAbs(filepath.Join(dir, filename)); p != "" {
			return p
		}
	}
	return filepath.Join(fallbackCfgDir, filename)
}

// GetPIDPath returns where the PID file should be written.
// Relative names resolve against the working directory when its parent exists.
func GetPIDPath(filename string) string {
	if filename == "" {
		return fallbackPIDPath
	}
	if filepath.IsAbs(filename) {
		return filename
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		return fallbackPIDPath
	}
	if _, err := os.Stat(filepath.Dir(abs)); err != nil {
		return fallbackPIDPath
	}
	return abs
}

func existingAbs(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	return abs
}
