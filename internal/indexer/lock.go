package indexer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/mbra/nzbmonkey/internal/services"
)

// ErrBusy is returned when another run holds the lock.
var ErrBusy = errors.New("another nzbmonkey run is in progress")

func acquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "indexer", "lock", path, ErrBusy)
	}
	return lock, nil
}
