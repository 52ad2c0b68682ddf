package ledger

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
)

// ErrLocked means another run holds the cross-run lock. Callers exit
// cleanly without touching the ledger.
var ErrLocked = eris.New("ledger: another run is active")

// RunLock is the advisory file lock serializing pipeline runs. The OS
// releases it if the holder crashes, so a stuck run cannot wedge the
// schedule forever.
type RunLock struct {
	fl *flock.Flock
}

// Acquire tries to take the lock without blocking. ErrLocked on
// contention.
func Acquire(path string) (*RunLock, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "ledger: create lock dir")
		}
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, eris.Wrap(err, "ledger: acquire lock")
	}
	if !ok {
		return nil, ErrLocked
	}
	return &RunLock{fl: fl}, nil
}

// Release unlocks. Safe to call once on every exit path.
func (l *RunLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
