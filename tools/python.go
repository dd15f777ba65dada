package tools

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// DefaultPythonCommand returns the interpreter name used to launch the
// inference scripts when none is configured.
func DefaultPythonCommand() string {
	if runtime.GOOS == "windows" {
		return "python"
	}

	return "python3"
}

// LookupPython resolves the interpreter on PATH. An absolute or relative path
// is returned as-is when it points to an executable.
func LookupPython(command string) (string, error) {
	if command == "" {
		command = DefaultPythonCommand()
	}

	path, err := exec.LookPath(command)
	if err != nil {
		return "", err
	}

	return path, nil
}

func GetPythonVersion(command string) (string, error) {
	path, err := LookupPython(command)
	if err != nil {
		return "", err
	}

	cmd := exec.Command(path, "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}

	if len(output) == 0 {
		return "", errors.New("could not get python version")
	}

	return strings.TrimSpace(string(output)), nil
}
