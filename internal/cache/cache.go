// Package cache is the client's durable view of the server: the last fetched habits and
// stats plus the FIFO queue of mutations the server has not confirmed yet. Mutations are
// applied optimistically with the habit engine and persisted before they return. A failed
// write is logged and the change stays in memory until a later write succeeds.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/habits"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/metrics"
	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/utils"
	"github.com/3grands/habitflow/internal/validation"
)

var errClosed = fmt.Errorf("%w: cache is not open", apperrors.ErrStorage)

// Source fetches the authoritative snapshot from the server.
type Source interface {
	ListHabits(ctx context.Context) ([]models.HabitWithProgress, error)
	Stats(ctx context.Context) (models.HabitStats, error)
}

// Options configures a Cache.
type Options struct {
	Path   string
	Source Source
	// Online reports connectivity; nil means the network is always tried
	Online   func() bool
	Clock    utils.Clock
	Location *time.Location
}

// Cache is safe for concurrent use. Several caches may be open at once as long as they
// use different paths.
type Cache struct {
	mu     sync.Mutex
	file   *FileStore
	source Source
	online func() bool
	clock  utils.Clock
	loc    *time.Location

	entry  models.OfflineCacheEntry
	isOpen bool
	// nextID is the next temporary id handed to an offline-created habit
	nextID int64
	// unsaved is set while the file lags behind entry after a failed write
	unsaved bool

	syncing atomic.Bool
}

func New(opts Options) *Cache {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	clock := opts.Clock
	if clock == nil {
		clock = utils.SystemClock(loc)
	}
	return &Cache{
		file:   NewFileStore(opts.Path),
		source: opts.Source,
		online: opts.Online,
		clock:  clock,
		loc:    loc,
		entry:  emptyEntry(),
		nextID: -1,
	}
}

// Open loads the persisted document. Opening an open cache is a no-op.
func (c *Cache) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isOpen {
		return nil
	}
	c.loadLocked()
	c.isOpen = true
	logger.Debug("offline cache opened", "path", c.file.Path(), "habits", len(c.entry.Habits), "pending", len(c.entry.PendingActions))
	return nil
}

// Reload re-reads the persisted document, picking up actions queued by another
// habitflow process since Open. Changes that never reached the file are written first,
// and the reload is skipped while that write keeps failing.
func (c *Cache) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isOpen {
		return errClosed
	}
	if c.unsaved {
		c.persistLocked()
		if c.unsaved {
			logger.Warn("skipping cache reload, in-memory changes are not on disk", "path", c.file.Path())
			return nil
		}
	}
	c.loadLocked()
	return nil
}

func (c *Cache) loadLocked() {
	c.entry = c.file.Load()
	c.nextID = -1
	for _, hp := range c.entry.Habits {
		if hp.ID <= c.nextID {
			c.nextID = hp.ID - 1
		}
	}
	for _, a := range c.entry.PendingActions {
		if a.HabitID != nil && *a.HabitID <= c.nextID {
			c.nextID = *a.HabitID - 1
		}
	}
	metrics.SetPending(len(c.entry.PendingActions))
}

// Close persists the document and releases the cache.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isOpen {
		return nil
	}
	c.isOpen = false
	return c.file.Save(c.entry)
}

// Online reports whether the connectivity monitor considers the server reachable.
func (c *Cache) Online() bool {
	return c.online == nil || c.online()
}

// SetSyncing marks a drain as running; State reports syncing while it is set.
func (c *Cache) SetSyncing(v bool) {
	c.syncing.Store(v)
}

// State summarizes the cache for status displays.
func (c *Cache) State() constants.SyncState {
	if c.syncing.Load() {
		return constants.StateSyncing
	}
	if !c.Online() {
		return constants.StateOffline
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entry.PendingActions) > 0 {
		return constants.StateDirty
	}
	if c.entry.LastSync == 0 || c.clock.Now().Sub(time.UnixMilli(c.entry.LastSync)) > constants.StaleAfter {
		return constants.StateStale
	}
	return constants.StateSynced
}

// LastSync returns when the cache last took a server snapshot, zero if never.
func (c *Cache) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry.LastSync == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.entry.LastSync)
}

// Snapshot returns a copy of the whole document.
func (c *Cache) Snapshot() models.OfflineCacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := models.OfflineCacheEntry{
		Habits:         c.habitsLocked(),
		LastSync:       c.entry.LastSync,
		PendingActions: c.pendingLocked(),
	}
	stats := c.statsLocked()
	out.Stats = &stats
	return out
}

// Habits returns the habit list. When online it is fetched from the server and the
// still-pending actions are re-applied on top; any fetch failure serves the cache.
func (c *Cache) Habits(ctx context.Context) ([]models.HabitWithProgress, error) {
	if c.Online() && c.source != nil {
		list, err := c.source.ListHabits(ctx)
		if err == nil {
			c.mu.Lock()
			defer c.mu.Unlock()
			if !c.isOpen {
				return nil, errClosed
			}
			c.entry.Habits = list
			c.entry.LastSync = utils.EpochMillis(c.clock.Now())
			c.replayLocked()
			c.persistLocked()
			return c.habitsLocked(), nil
		}
		logger.Warn("failed to fetch habits, serving offline cache", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil, errClosed
	}
	return c.habitsLocked(), nil
}

// Stats returns the stats, fetched the same way as Habits.
func (c *Cache) Stats(ctx context.Context) (models.HabitStats, error) {
	if c.Online() && c.source != nil {
		stats, err := c.source.Stats(ctx)
		if err == nil {
			c.mu.Lock()
			defer c.mu.Unlock()
			if !c.isOpen {
				return models.HabitStats{}, errClosed
			}
			c.entry.Stats = &stats
			c.entry.LastSync = utils.EpochMillis(c.clock.Now())
			if len(c.entry.PendingActions) > 0 {
				c.recomputeStatsLocked()
			}
			c.persistLocked()
			return c.statsLocked(), nil
		}
		logger.Warn("failed to fetch stats, serving offline cache", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return models.HabitStats{}, errClosed
	}
	return c.statsLocked(), nil
}

// Refresh replaces the snapshot with the server's habits and stats. Unlike Habits and
// Stats it reports fetch failures.
func (c *Cache) Refresh(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	list, err := c.source.ListHabits(ctx)
	if err != nil {
		return err
	}
	stats, err := c.source.Stats(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return errClosed
	}
	c.entry.Habits = list
	c.entry.Stats = &stats
	c.entry.LastSync = utils.EpochMillis(c.clock.Now())
	c.replayLocked()
	c.persistLocked()
	return nil
}

// Pending returns a copy of the queue, oldest first.
func (c *Cache) Pending() []models.PendingAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

// Remove drops one action from the queue after the server confirmed or rejected it.
func (c *Cache) Remove(actionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isOpen {
		return errClosed
	}
	kept := c.entry.PendingActions[:0:0]
	for _, a := range c.entry.PendingActions {
		if a.ID != actionID {
			kept = append(kept, a)
		}
	}
	c.entry.PendingActions = kept
	metrics.SetPending(len(kept))
	c.persistLocked()
	return nil
}

// RemapID replaces a temporary habit id with the id the server assigned, in the habit
// list and in every queued action.
func (c *Cache) RemapID(tempID, realID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isOpen {
		return errClosed
	}
	for i := range c.entry.Habits {
		if c.entry.Habits[i].ID == tempID {
			c.entry.Habits[i].ID = realID
			if row := c.entry.Habits[i].TodayCompletion; row != nil {
				remapped := *row
				remapped.HabitID = realID
				c.entry.Habits[i].TodayCompletion = &remapped
			}
		}
	}
	for i := range c.entry.PendingActions {
		if id := c.entry.PendingActions[i].HabitID; id != nil && *id == tempID {
			newID := realID
			c.entry.PendingActions[i].HabitID = &newID
		}
	}
	logger.Debug("remapped temporary habit id", "temp", tempID, "id", realID)
	c.persistLocked()
	return nil
}

// ActionDate returns the calendar day an action was recorded on, in the cache's location.
func (c *Cache) ActionDate(a models.PendingAction) string {
	return utils.DateIn(time.UnixMilli(a.Timestamp), c.loc)
}

// Toggle completes an incomplete habit and undoes a completed one. It is queued as a
// complete or undo action so the server replay is idempotent.
func (c *Cache) Toggle(ctx context.Context, id int64) (models.HabitWithProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hp, err := c.findLocked(id)
	if err != nil {
		return models.HabitWithProgress{}, err
	}
	typ := constants.ActionCompleteHabit
	if habits.DayOf(hp, c.clock.Today()).IsCompleted() {
		typ = constants.ActionUndoHabit
	}
	return c.mutateHabitLocked(typ, id, nil)
}

// Complete marks today as done. Completing a completed habit queues nothing.
func (c *Cache) Complete(ctx context.Context, id int64) (models.HabitWithProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hp, err := c.findLocked(id)
	if err != nil {
		return models.HabitWithProgress{}, err
	}
	if habits.DayOf(hp, c.clock.Today()).IsCompleted() {
		return hp, nil
	}
	return c.mutateHabitLocked(constants.ActionCompleteHabit, id, nil)
}

// Undo reverts today's completion. Undoing an incomplete habit queues nothing.
func (c *Cache) Undo(ctx context.Context, id int64) (models.HabitWithProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hp, err := c.findLocked(id)
	if err != nil {
		return models.HabitWithProgress{}, err
	}
	if !habits.DayOf(hp, c.clock.Today()).IsCompleted() {
		return hp, nil
	}
	return c.mutateHabitLocked(constants.ActionUndoHabit, id, nil)
}

// RecordProgress adds delta (which may be negative) to today's progress.
func (c *Cache) RecordProgress(ctx context.Context, id int64, delta int) (models.HabitWithProgress, error) {
	if delta == 0 {
		return models.HabitWithProgress{}, apperrors.Validation("delta must not be zero")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.findLocked(id); err != nil {
		return models.HabitWithProgress{}, err
	}
	return c.mutateHabitLocked(constants.ActionProgressHabit, id, models.ProgressPayload{Delta: delta})
}

// CreateHabit adds a habit under a negative temporary id until the server assigns one.
func (c *Cache) CreateHabit(ctx context.Context, in models.NewHabit) (models.HabitWithProgress, error) {
	in, err := validation.NormalizeNewHabit(in)
	if err != nil {
		return models.HabitWithProgress{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isOpen {
		return models.HabitWithProgress{}, errClosed
	}
	id := c.nextID
	action, err := c.newAction(constants.ActionCreateHabit, &id, in)
	if err != nil {
		return models.HabitWithProgress{}, err
	}
	if err := c.enqueueLocked(action); err != nil {
		return models.HabitWithProgress{}, err
	}
	c.nextID--
	return c.findLocked(id)
}

// UpdateHabit applies an allowlisted partial update. Unknown keys are dropped before
// the action is queued.
func (c *Cache) UpdateHabit(ctx context.Context, id int64, fields map[string]json.RawMessage) (models.Habit, error) {
	update, err := validation.BuildHabitUpdate(fields)
	if err != nil {
		return models.Habit{}, err
	}
	allowed := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if validation.UpdatableFields[k] {
			allowed[k] = v
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hp, err := c.findLocked(id)
	if err != nil {
		return models.Habit{}, err
	}
	action, err := c.newAction(constants.ActionUpdateHabit, &id, allowed)
	if err != nil {
		return models.Habit{}, err
	}
	if err := c.enqueueLocked(action); err != nil {
		return models.Habit{}, err
	}

	h := hp.Habit
	update.Apply(&h)
	return h, nil
}

// DeleteHabit removes a habit from the list. A habit that only exists locally is
// dropped together with its queued actions instead of queueing a delete.
func (c *Cache) DeleteHabit(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.findLocked(id); err != nil {
		return err
	}

	if id < 0 {
		c.removeHabitLocked(id)
		kept := make([]models.PendingAction, 0, len(c.entry.PendingActions))
		for _, a := range c.entry.PendingActions {
			if a.HabitID == nil || *a.HabitID != id {
				kept = append(kept, a)
			}
		}
		c.entry.PendingActions = kept
		c.recomputeStatsLocked()
		c.persistLocked()
		metrics.SetPending(len(kept))
		return nil
	}

	action, err := c.newAction(constants.ActionDeleteHabit, &id, nil)
	if err != nil {
		return err
	}
	return c.enqueueLocked(action)
}

func (c *Cache) mutateHabitLocked(typ constants.ActionType, id int64, payload interface{}) (models.HabitWithProgress, error) {
	action, err := c.newAction(typ, &id, payload)
	if err != nil {
		return models.HabitWithProgress{}, err
	}
	if err := c.enqueueLocked(action); err != nil {
		return models.HabitWithProgress{}, err
	}
	return c.findLocked(id)
}

func (c *Cache) newAction(typ constants.ActionType, habitID *int64, payload interface{}) (models.PendingAction, error) {
	a := models.PendingAction{
		ID:        uuid.NewString(),
		Type:      typ,
		HabitID:   habitID,
		Timestamp: utils.EpochMillis(c.clock.Now()),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return a, fmt.Errorf("failed to encode %s payload: %w", typ, err)
		}
		a.Payload = data
	}
	return a, nil
}

// enqueueLocked applies a to the snapshot, appends it to the queue and persists both.
// The snapshot is left untouched when a cannot be applied.
func (c *Cache) enqueueLocked(a models.PendingAction) error {
	prevHabits := append([]models.HabitWithProgress(nil), c.entry.Habits...)

	today := c.clock.Today()
	if err := c.applyLocked(a, today, today); err != nil {
		c.entry.Habits = prevHabits
		return err
	}
	c.entry.PendingActions = append(append([]models.PendingAction(nil), c.entry.PendingActions...), a)
	c.recomputeStatsLocked()
	c.persistLocked()

	metrics.SetPending(len(c.entry.PendingActions))
	logger.Debug("queued action", "id", a.ID, "type", a.Type, "pending", len(c.entry.PendingActions))
	return nil
}

// applyLocked folds one action into the habit list. today is the day new habits start
// on; date is the day the action was recorded on.
func (c *Cache) applyLocked(a models.PendingAction, today, date string) error {
	if a.HabitID == nil {
		return apperrors.Validation("action %s (%s) has no habit id", a.ID, a.Type)
	}
	id := *a.HabitID
	now := time.UnixMilli(a.Timestamp).In(c.loc)

	if a.Type == constants.ActionCreateHabit {
		if c.indexLocked(id) >= 0 {
			return nil
		}
		var in models.NewHabit
		if err := a.DecodePayload(&in); err != nil {
			return err
		}
		h := models.Habit{
			ID:           id,
			UserID:       constants.DefaultUserID,
			Name:         in.Name,
			Category:     in.Category,
			Frequency:    in.Frequency,
			Goal:         in.Goal,
			Unit:         in.Unit,
			ReminderTime: in.ReminderTime,
			IsActive:     true,
			CreatedAt:    now,
		}
		c.entry.Habits = append(c.entry.Habits, habits.WithProgress(h, today, nil, false))
		return nil
	}

	i := c.indexLocked(id)
	if i < 0 {
		return apperrors.NotFound("habit %d", id)
	}
	hp := c.entry.Habits[i]
	if hp.Date != "" && date < hp.Date && isDayAction(a.Type) {
		c.entry.Habits[i] = carryPastAction(hp, a.Type, date)
		return nil
	}
	day := habits.DayOf(hp, date)

	switch a.Type {
	case constants.ActionCompleteHabit:
		c.entry.Habits[i] = habits.Apply(day, habits.Complete(hp.Habit, day, now))
	case constants.ActionUndoHabit:
		c.entry.Habits[i] = habits.Apply(day, habits.Undo(hp.Habit, day))
	case constants.ActionProgressHabit:
		var p models.ProgressPayload
		if err := a.DecodePayload(&p); err != nil {
			return err
		}
		c.entry.Habits[i] = habits.Apply(day, habits.RecordProgress(hp.Habit, day, p.Delta, now))
	case constants.ActionUpdateHabit:
		var fields map[string]json.RawMessage
		if err := a.DecodePayload(&fields); err != nil {
			return err
		}
		update, err := validation.BuildHabitUpdate(fields)
		if err != nil {
			return err
		}
		update.Apply(&hp.Habit)
		if !hp.IsActive {
			c.removeHabitLocked(id)
			return nil
		}
		c.entry.Habits[i] = hp
	case constants.ActionDeleteHabit:
		c.removeHabitLocked(id)
	default:
		return apperrors.Validation("unknown action type %q", a.Type)
	}
	return nil
}

func isDayAction(t constants.ActionType) bool {
	return t == constants.ActionCompleteHabit || t == constants.ActionUndoHabit || t == constants.ActionProgressHabit
}

// carryPastAction folds an action recorded before the snapshot's day into it. Only the
// previous day's outcome is visible in the snapshot, so that is all that changes; the
// server settles the streak when the action drains.
func carryPastAction(hp models.HabitWithProgress, typ constants.ActionType, date string) models.HabitWithProgress {
	yesterday, err := utils.Yesterday(hp.Date)
	if err != nil || date != yesterday {
		return hp
	}
	switch typ {
	case constants.ActionCompleteHabit:
		hp.CompletedYesterday = true
	case constants.ActionUndoHabit:
		hp.CompletedYesterday = false
	}
	return hp
}

// replayLocked re-applies the queue on top of a fresh server snapshot, each action on
// the day it was recorded. Actions whose habit no longer exists are skipped; they stay
// queued for the drainer to resolve.
func (c *Cache) replayLocked() {
	if len(c.entry.PendingActions) == 0 {
		return
	}
	today := c.clock.Today()
	for _, a := range c.entry.PendingActions {
		if err := c.applyLocked(a, today, c.ActionDate(a)); err != nil {
			logger.Debug("skipped replay of pending action", "id", a.ID, "type", a.Type, "error", err)
		}
	}
	c.recomputeStatsLocked()
}

// recomputeStatsLocked derives today's figures from the habit list. Earlier days of the
// weekly window are kept from the last server snapshot.
func (c *Cache) recomputeStatsLocked() {
	today := c.clock.Today()
	list := make([]models.Habit, 0, len(c.entry.Habits))
	var rows []models.HabitCompletion
	for _, hp := range c.entry.Habits {
		list = append(list, hp.Habit)
		if hp.TodayCompletion != nil && hp.TodayCompletion.Date == today {
			row := *hp.TodayCompletion
			row.HabitID = hp.ID
			rows = append(rows, row)
		}
	}

	stats, err := habits.ComputeStats(list, rows, today, constants.StatsWindowDays, c.loc)
	if err != nil {
		logger.Warn("failed to recompute local stats", "error", err)
		return
	}
	if prev := c.entry.Stats; prev != nil {
		past := make(map[string]models.DayStat, len(prev.Weekly))
		for _, d := range prev.Weekly {
			if d.Date != today {
				past[d.Date] = d
			}
		}
		for i, d := range stats.Weekly {
			if p, ok := past[d.Date]; ok {
				stats.Weekly[i] = p
			}
		}
	}
	c.entry.Stats = &stats
}

// persistLocked writes the document. A failure is logged and marks the cache unsaved;
// the in-memory state stays authoritative for the session.
func (c *Cache) persistLocked() {
	if err := c.file.Save(c.entry); err != nil {
		c.unsaved = true
		logger.Warn("failed to persist offline cache, keeping changes in memory", "path", c.file.Path(), "error", err)
		return
	}
	c.unsaved = false
}

func (c *Cache) indexLocked(id int64) int {
	for i, hp := range c.entry.Habits {
		if hp.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) findLocked(id int64) (models.HabitWithProgress, error) {
	if !c.isOpen {
		return models.HabitWithProgress{}, errClosed
	}
	i := c.indexLocked(id)
	if i < 0 {
		return models.HabitWithProgress{}, apperrors.NotFound("habit %d", id)
	}
	return c.entry.Habits[i], nil
}

func (c *Cache) removeHabitLocked(id int64) {
	kept := make([]models.HabitWithProgress, 0, len(c.entry.Habits))
	for _, hp := range c.entry.Habits {
		if hp.ID != id {
			kept = append(kept, hp)
		}
	}
	c.entry.Habits = kept
}

func (c *Cache) habitsLocked() []models.HabitWithProgress {
	return append([]models.HabitWithProgress{}, c.entry.Habits...)
}

func (c *Cache) pendingLocked() []models.PendingAction {
	return append([]models.PendingAction{}, c.entry.PendingActions...)
}

func (c *Cache) statsLocked() models.HabitStats {
	if c.entry.Stats == nil {
		c.recomputeStatsLocked()
	}
	if c.entry.Stats == nil {
		return models.HabitStats{}
	}
	stats := *c.entry.Stats
	stats.Weekly = append([]models.DayStat{}, stats.Weekly...)
	return stats
}
