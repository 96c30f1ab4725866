// Package appdir encapsulates all path knowledge for the .stayfocused/
// directory. It provides a Dir value object with accessors for the config
// file and the local runtime state (identity store, session cache, log).
package appdir

import (
	"os"
	"path/filepath"
)

// Dir is a value object that resolves paths within a .stayfocused/ directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed; use EnsureStructure to create the
// directory layout.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// Root returns the absolute path to the .stayfocused/ directory.
func (d Dir) Root() string { return d.root }

// ConfigPath returns the path to the main config file.
func (d Dir) ConfigPath() string { return filepath.Join(d.root, "config.yaml") }

// LocalDir returns the path to the local (gitignored) runtime state directory.
func (d Dir) LocalDir() string { return filepath.Join(d.root, "local") }

// StatePath returns the path to the SQLite identity database.
func (d Dir) StatePath() string { return filepath.Join(d.root, "local", "state.db") }

// IdentityPath returns the path to the YAML identity file used by the file driver.
func (d Dir) IdentityPath() string { return filepath.Join(d.root, "local", "identity.yaml") }

// SessionPath returns the path to the cached provider sessions.
func (d Dir) SessionPath() string { return filepath.Join(d.root, "local", "session.yaml") }

// LogPath returns the path to the log file written while the TUI owns the terminal.
func (d Dir) LogPath() string { return filepath.Join(d.root, "local", "stayfocused.log") }

// GitignorePath returns the path to the .gitignore file inside .stayfocused/.
func (d Dir) GitignorePath() string { return filepath.Join(d.root, ".gitignore") }

// Exists reports whether the root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}
