package constants

import "time"

// Category is one of the fixed habit categories
type Category string

// Frequency is how often a habit repeats
type Frequency string

// ActionType identifies a queued client mutation
type ActionType string

// SyncState is the externally visible state of the offline cache
type SyncState string

const (
	AppName            = "habitflow"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/habitflow"
	DefaultDBPath      = "~/.config/habitflow/habitflow.db"
	DefaultCachePath   = "~/.config/habitflow/cache.json"
	DefaultServerURL   = "http://127.0.0.1:5000"
	DefaultListenAddr  = ":5000"
	Version            = "v0.3.0"

	// DefaultUserID is the single fixed user every operation runs as
	DefaultUserID int64 = 1

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Habit defaults
	DefaultGoal      = 1
	DefaultUnit      = "times"
	MaxNameLength    = 100
	MaxUnitLength    = 30
	MaxMoodNoteChars = 500
	StatsWindowDays  = 7

	// Sync timing
	DefaultSyncInterval   = 5 * time.Minute
	DefaultRequestTimeout = 10 * time.Second
	DefaultProbeInterval  = 15 * time.Second
	StaleAfter            = 10 * time.Minute
	SyncLockfileName      = "habitflow-sync.lock"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitflow-"
	BackupFileSuffix = ".db"

	// Categories
	CategoryHealth       Category = "health"
	CategoryFitness      Category = "fitness"
	CategoryMindfulness  Category = "mindfulness"
	CategoryLearning     Category = "learning"
	CategoryProductivity Category = "productivity"
	CategoryOther        Category = "other"

	// Frequencies
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"

	// Pending action types
	ActionCompleteHabit ActionType = "complete_habit"
	ActionUndoHabit     ActionType = "undo_habit"
	ActionCreateHabit   ActionType = "create_habit"
	ActionUpdateHabit   ActionType = "update_habit"
	ActionProgressHabit ActionType = "progress_habit"
	ActionDeleteHabit   ActionType = "delete_habit"

	// Sync states
	StateSynced  SyncState = "synced"
	StateStale   SyncState = "stale"
	StateDirty   SyncState = "dirty"
	StateSyncing SyncState = "syncing"
	StateOffline SyncState = "offline"
)

// Categories lists every accepted habit category in display order.
var Categories = []Category{
	CategoryHealth,
	CategoryFitness,
	CategoryMindfulness,
	CategoryLearning,
	CategoryProductivity,
	CategoryOther,
}

// IsValidCategory reports whether c is one of the fixed categories.
func IsValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsValidFrequency reports whether f is an accepted frequency.
func IsValidFrequency(f Frequency) bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}
