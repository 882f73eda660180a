package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// RunBashCmdVerbose runs cmdStr through bash, streaming its output to the
// current process.
func RunBashCmdVerbose(ctx context.Context, cmdStr string) error {
	cmd := exec.CommandContext(ctx, "bash", "-c", cmdStr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("%s: %w", cmdStr, err)
	}
	return nil
}

// CheckDeps returns an error naming the first executable that is not on PATH.
func CheckDeps(names ...string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("required executable %s not found in PATH: %w", name, err)
		}
	}
	return nil
}

// ReplaceFile writes the output of write to a temporary file next to path and
// renames it over path once write and close both succeed. On any error the
// original file is left untouched.
func ReplaceFile(path string, write func(w io.Writer) error) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
