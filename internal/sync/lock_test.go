package sync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	ps "github.com/mitchellh/go-ps"

	apperrors "github.com/3grands/habitflow/internal/errors"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int {
	return m.pid
}

func (m *mockProcess) PPid() int {
	return 0
}

func (m *mockProcess) Executable() string {
	return m.executable
}

func withProcesses(t *testing.T, fn func(pid int) (ps.Process, error)) {
	t.Helper()
	old := findProcessFunc
	findProcessFunc = fn
	t.Cleanup(func() { findProcessFunc = old })
}

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	withProcesses(t, func(pid int) (ps.Process, error) {
		return &mockProcess{pid: pid, executable: "habitflow"}, nil
	})

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read lockfile: %v", err)
	}
	var pid, ts int
	if _, err := fmt.Sscanf(string(content), "%d|%d", &pid, &ts); err != nil || pid != os.Getpid() {
		t.Errorf("unexpected lockfile content %q", content)
	}

	if _, err := AcquireLock(path); !errors.Is(err, apperrors.ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lockfile should be removed")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op: %v", err)
	}
}

func TestAcquireLockReplacesStale(t *testing.T) {
	tests := []struct {
		name    string
		content string
		find    func(pid int) (ps.Process, error)
	}{
		{
			name:    "dead process",
			content: "4242|1700000000",
			find:    func(pid int) (ps.Process, error) { return nil, nil },
		},
		{
			name:    "pid reused by another program",
			content: "4242|1700000000",
			find: func(pid int) (ps.Process, error) {
				return &mockProcess{pid: pid, executable: "postgres"}, nil
			},
		},
		{
			name:    "malformed",
			content: "garbage",
			find:    func(pid int) (ps.Process, error) { return nil, errors.New("unreachable") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sync.lock")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write lockfile: %v", err)
			}
			withProcesses(t, tt.find)

			lock, err := AcquireLock(path)
			if err != nil {
				t.Fatalf("expected the stale lock to be replaced, got %v", err)
			}
			defer lock.Release()
		})
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("/tmp/habitflow/cache.json")
	want := filepath.Join("/tmp/habitflow", "habitflow-sync.lock")
	if got != want {
		t.Errorf("LockPath() = %s, want %s", got, want)
	}
}
