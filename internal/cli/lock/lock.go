// Package lock keeps two runs from writing into the same output root at once.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	// DirName is the lock directory created inside the output root.
	DirName   = ".img2pdf.lock"
	ownerFile = "owner.json"
)

// StaleAfter is the age at which a lock whose owner cannot be checked is
// considered abandoned.
const StaleAfter = 24 * time.Hour

// processAlive reports whether pid runs on this host and whether the check
// was possible at all. Replaced in tests.
var processAlive = pidAlive

var now = time.Now

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("output directory is locked by another run")

// Owner identifies the process holding a lock.
type Owner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// Lock is a held lock. The zero value is a no-op lock.
type Lock struct {
	fs  afero.Fs
	dir string
}

// Acquire creates the lock directory inside root. Directory creation is
// atomic, so exactly one concurrent caller succeeds. A lock left behind by a
// run that died is taken over once; see stale.
func Acquire(fs afero.Fs, root string) (*Lock, error) {
	target := strings.TrimSpace(root)
	if target == "" {
		return nil, fmt.Errorf("lock root is required")
	}
	lockDir := filepath.Join(target, DirName)
	err := fs.Mkdir(lockDir, 0o755)
	if errors.Is(err, os.ErrExist) && stale(fs, target, lockDir) {
		if rmErr := fs.RemoveAll(lockDir); rmErr != nil {
			return nil, fmt.Errorf("remove stale lock %s: %w", lockDir, rmErr)
		}
		err = fs.Mkdir(lockDir, 0o755)
	}
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, lockedError(fs, target, lockDir)
		}
		return nil, fmt.Errorf("acquire lock for %s: %w", target, err)
	}

	owner := Owner{
		PID:       os.Getpid(),
		CreatedAt: now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	data, err := json.MarshalIndent(owner, "", "  ")
	if err == nil {
		err = afero.WriteFile(fs, filepath.Join(lockDir, ownerFile), data, 0o644)
	}
	if err != nil {
		_ = fs.RemoveAll(lockDir)
		return nil, fmt.Errorf("write lock owner for %s: %w", target, err)
	}
	return &Lock{fs: fs, dir: lockDir}, nil
}

// ReadOwner returns the owner recorded in the lock inside root.
func ReadOwner(fs afero.Fs, root string) (Owner, error) {
	var owner Owner
	data, err := afero.ReadFile(fs, filepath.Join(root, DirName, ownerFile))
	if err != nil {
		return owner, err
	}
	if err := json.Unmarshal(data, &owner); err != nil {
		return owner, fmt.Errorf("decode lock owner: %w", err)
	}
	return owner, nil
}

// Release removes the lock. Releasing twice is harmless.
func (l *Lock) Release() error {
	if l == nil || l.dir == "" {
		return nil
	}
	_ = l.fs.Remove(filepath.Join(l.dir, ownerFile))
	if err := l.fs.Remove(l.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", l.dir, err)
	}
	l.dir = ""
	return nil
}

func lockedError(fs afero.Fs, target, lockDir string) error {
	hint := fmt.Sprintf("remove %s if no other run is active, or pass --no-lock", lockDir)
	if owner, err := ReadOwner(fs, target); err == nil && owner.PID > 0 {
		return fmt.Errorf("%w: %s (pid=%d created_at=%s host=%s); %s", ErrLocked, target, owner.PID, owner.CreatedAt, owner.Hostname, hint)
	}
	return fmt.Errorf("%w: %s; %s", ErrLocked, target, hint)
}

// stale reports whether an existing lock belongs to a run that is gone. An
// owner on this host is checked by PID. Otherwise, or when the PID cannot be
// checked on this platform, the lock is stale once older than StaleAfter.
func stale(fs afero.Fs, root, lockDir string) bool {
	owner, err := ReadOwner(fs, root)
	if err == nil && owner.PID > 0 && owner.Hostname == hostnameOrUnknown() {
		if alive, checked := processAlive(owner.PID); checked {
			return !alive
		}
	}

	created, parseErr := time.Parse(time.RFC3339, owner.CreatedAt)
	if err != nil || parseErr != nil {
		info, statErr := fs.Stat(lockDir)
		if statErr != nil {
			return false
		}
		created = info.ModTime()
	}
	return now().Sub(created) > StaleAfter
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return "unknown"
	}
	return strings.TrimSpace(host)
}
