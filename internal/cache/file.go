package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/models"
)

// FileStore persists the cache document as one JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

func emptyEntry() models.OfflineCacheEntry {
	return models.OfflineCacheEntry{
		Habits:         []models.HabitWithProgress{},
		PendingActions: []models.PendingAction{},
	}
}

// Load reads the cache document. A missing, unreadable or corrupt file yields an empty
// document; the problem is logged and never returned.
func (f *FileStore) Load() models.OfflineCacheEntry {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read offline cache, starting empty", "path", f.path, "error", err)
		}
		return emptyEntry()
	}

	var entry models.OfflineCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.Warn("offline cache is corrupt, starting empty", "path", f.path, "error", err)
		return emptyEntry()
	}
	if entry.Habits == nil {
		entry.Habits = []models.HabitWithProgress{}
	}
	if entry.PendingActions == nil {
		entry.PendingActions = []models.PendingAction{}
	}
	return entry
}

// Save writes the document to a temporary file in the same directory, syncs it and
// renames it over the cache file.
func (f *FileStore) Save(entry models.OfflineCacheEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to encode cache: %w", err))
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.Storage(fmt.Errorf("failed to create cache directory: %w", err))
	}

	tempPath := filepath.Join(dir, "."+filepath.Base(f.path)+"."+uuid.NewString()+".tmp")
	if err := writeSynced(tempPath, data); err != nil {
		_ = os.Remove(tempPath)
		return apperrors.Storage(err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Warn("failed to remove temporary cache file", "path", tempPath, "error", removeErr)
		}
		return apperrors.Storage(fmt.Errorf("failed to replace cache file: %w", err))
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync cache: %w", err)
	}
	return file.Close()
}
