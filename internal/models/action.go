package models

import (
	"encoding/json"
	"fmt"

	"github.com/3grands/habitflow/internal/constants"
)

// PendingAction is a mutation applied locally but not yet confirmed by the server
type PendingAction struct {
	ID        string               `json:"id"`
	Type      constants.ActionType `json:"type"`
	HabitID   *int64               `json:"habitId,omitempty"`
	Payload   json.RawMessage      `json:"payload,omitempty"`
	Timestamp int64                `json:"timestamp"` // epoch ms
}

// ProgressPayload carries the delta of a progress_habit action
type ProgressPayload struct {
	Delta int `json:"delta"`
}

// DecodePayload unmarshals the action payload into v.
func (a PendingAction) DecodePayload(v interface{}) error {
	if len(a.Payload) == 0 {
		return fmt.Errorf("action %s (%s) has no payload", a.ID, a.Type)
	}
	if err := json.Unmarshal(a.Payload, v); err != nil {
		return fmt.Errorf("failed to decode payload of action %s: %w", a.ID, err)
	}
	return nil
}

// OfflineCacheEntry is the single persisted document of the client cache
type OfflineCacheEntry struct {
	Habits         []HabitWithProgress `json:"habits"`
	Stats          *HabitStats         `json:"stats"`
	LastSync       int64               `json:"lastSync"` // epoch ms, 0 if never synced
	PendingActions []PendingAction     `json:"pendingActions"`
}
