package appdir

import (
	"errors"
	"fmt"
	"os"
)

const gitignoreContent = "local/\n"

// EnsureStructure creates the root and local/ directories and the .gitignore
// file if they are missing. It is safe to call multiple times.
func EnsureStructure(d Dir) error {
	if err := os.MkdirAll(d.LocalDir(), 0o750); err != nil {
		return fmt.Errorf("appdir: create local dir: %w", err)
	}

	if err := ensureGitignore(d); err != nil {
		return fmt.Errorf("appdir: gitignore: %w", err)
	}

	return nil
}

// BootstrapWithConfig creates the directory structure and writes configYAML
// to config.yaml. An existing config is only replaced when overwrite is set.
func BootstrapWithConfig(d Dir, configYAML []byte, overwrite bool) error {
	if err := EnsureStructure(d); err != nil {
		return err
	}

	if !overwrite {
		if _, err := os.Stat(d.ConfigPath()); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("appdir: stat config: %w", err)
		}
	}

	if err := os.WriteFile(d.ConfigPath(), configYAML, 0o600); err != nil {
		return fmt.Errorf("appdir: write config: %w", err)
	}

	return nil
}

// ensureGitignore creates the .gitignore file if it does not exist.
func ensureGitignore(d Dir) error {
	path := d.GitignorePath()

	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}

	return os.WriteFile(path, []byte(gitignoreContent), 0o600)
}
