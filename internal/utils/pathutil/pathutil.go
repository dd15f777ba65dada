package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands the path using the user's home directory.
// If the path starts with "~", it is replaced with the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		path = filepath.Join(homeDir, path[1:])
	}

	return path, nil
}

// ResolvePath expands "~" and makes the path absolute relative to the
// current working directory.
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		return "", err
	}

	return filepath.Abs(expanded)
}
