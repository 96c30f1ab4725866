// Package identity persists the single device pairing identifier across
// process restarts. A Store holds at most one value; Save overwrites it and
// Clear removes it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyID is returned by Save when the identifier is empty after trimming.
var ErrEmptyID = errors.New("identity: device id is empty")

// Store persists one device identifier.
type Store interface {
	// Load returns the persisted identifier. ok is false when nothing has
	// been saved yet.
	Load(ctx context.Context) (id string, ok bool, err error)
	// Save persists id, replacing any previous value.
	Save(ctx context.Context, id string) error
	// Clear removes the persisted identifier. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
	// Close releases the underlying resources.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Open creates a Store for the named driver. path is the database file for
// the sqlite driver and the YAML file for the file driver; it is ignored by
// the memory driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLite(path)
	case DriverFile:
		return NewFile(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("identity: unknown driver %q", driver)
	}
}

func normalize(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyID
	}

	return id, nil
}
