// Package store persists host records, including their container list and
// history, as whole records.
package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/monitor"
)

var (
	// ErrNotFound is returned when a host ID is unknown.
	ErrNotFound = stderrors.New("host not found")

	// ErrDuplicateID is returned when saving a host whose ID already exists.
	ErrDuplicateID = stderrors.New("host with this ID already exists")
)

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Store is the persistence contract the fleet depends on. Every write
// replaces the whole host record at once.
type Store interface {
	LoadHosts(ctx context.Context) ([]monitor.Host, error)
	SaveHost(ctx context.Context, host monitor.Host) error
	UpdateHost(ctx context.Context, host monitor.Host) error
	DeleteHost(ctx context.Context, id string) error
	Close() error
}

// Open creates the store for driver at path.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverFile:
		return NewFileStore(path)
	case DriverSQLite, "sqlite3":
		return NewSQLiteStore(path)
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown store driver '%s'", driver),
			"Set store.driver to 'file' or 'sqlite'.")
	}
}

func notFound(op, id string) error {
	return errors.WrapWithCode(ErrNotFound, errors.ErrStore,
		fmt.Sprintf("%s: host %s not found", op, id),
		"Run 'sentinel host list' to see known hosts.")
}

func duplicate(op, id string) error {
	return errors.WrapWithCode(ErrDuplicateID, errors.ErrStore,
		fmt.Sprintf("%s: host %s already exists", op, id), "")
}

func storeError(err error, op, path string) error {
	return errors.WrapWithCode(err, errors.ErrStore,
		fmt.Sprintf("%s failed for %s", op, filepath.Base(path)),
		"Check that store.path is writable.")
}
