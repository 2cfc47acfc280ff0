package sqlite

import (
	"context"
	"fmt"

	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/storage"
)

func (s *Store) AddMood(ctx context.Context, entry models.MoodEntry) (models.MoodEntry, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO mood_entries (user_id, mood, note, date, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.UserID, entry.Mood, entry.Note, entry.Date, entry.CreatedAt)
	if err != nil {
		return models.MoodEntry{}, fmt.Errorf("failed to insert mood entry: %w", err)
	}
	entry.ID, err = result.LastInsertId()
	return entry, err
}

func (s *Store) GetMoods(ctx context.Context, userID int64, startDay, endDay string) ([]models.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+storage.MoodColumns+" FROM mood_entries WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date DESC, id DESC",
		userID, startDay, endDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.MoodEntry{}
	for rows.Next() {
		m, err := storage.ScanMood(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, m)
	}
	return entries, rows.Err()
}
