package sync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/logger"
)

var findProcessFunc = ps.FindProcess

// Lock is a pid lockfile that keeps two habitflow processes from draining the same
// cache. The file holds "pid|unix-seconds".
type Lock struct {
	path string
}

// LockPath returns the lockfile path next to the cache file.
func LockPath(cachePath string) string {
	return filepath.Join(filepath.Dir(cachePath), constants.SyncLockfileName)
}

// AcquireLock takes the lock, replacing a lockfile whose owner is no longer running.
// ErrSyncInProgress is returned when a live habitflow process holds it.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			_, werr := fmt.Fprintf(file, "%d|%d", os.Getpid(), time.Now().Unix())
			cerr := file.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		pid, err := validateLockOwner(path)
		if err == nil {
			return nil, fmt.Errorf("%w (pid %d)", apperrors.ErrSyncInProgress, pid)
		}
		logger.Debug("removing stale sync lock", "path", path, "reason", err)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}
	return nil, apperrors.ErrSyncInProgress
}

// validateLockOwner returns the owner's pid if it is a running habitflow process.
func validateLockOwner(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 {
		return 0, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return 0, errors.New("invalid process ID in lockfile")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return 0, fmt.Errorf("process %d not running", pid)
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return 0, fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.AppName, process.Executable())
	}
	return pid, nil
}

// Release removes the lockfile.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
