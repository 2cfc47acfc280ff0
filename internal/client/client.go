// Package client talks to the habitflow HTTP API. Every call is bounded by the client's
// request timeout and returns errors from internal/errors: NotFound and Validation for
// 404 and 400/422 responses, Network for transport failures and 5xx responses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/models"
)

// Client is an HTTP client bound to one server base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. A zero timeout uses the default request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server the client points at.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return apperrors.Network(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return apperrors.Network(err)
	}

	if err := statusError(res.StatusCode, data); err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func statusError(code int, data []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}

	msg := http.StatusText(code)
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}

	switch {
	case code == http.StatusNotFound:
		return apperrors.NotFound("%s", msg)
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return apperrors.Network(fmt.Errorf("server returned %d: %s", code, msg))
	case code >= 400:
		// the server will reject the same request again
		return apperrors.Validation("%s (status %d)", msg, code)
	default:
		return fmt.Errorf("unexpected status %d: %s", code, msg)
	}
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) ListHabits(ctx context.Context) ([]models.HabitWithProgress, error) {
	var list []models.HabitWithProgress
	if err := c.do(ctx, http.MethodGet, "/api/habits", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.HabitWithProgress{}
	}
	return list, nil
}

func (c *Client) Stats(ctx context.Context) (models.HabitStats, error) {
	var stats models.HabitStats
	err := c.do(ctx, http.MethodGet, "/api/habits/stats", nil, &stats)
	return stats, err
}

func (c *Client) CreateHabit(ctx context.Context, in models.NewHabit) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, http.MethodPost, "/api/habits", in, &h)
	return h, err
}

// UpdateHabit sends fields as the PATCH body unchanged.
func (c *Client) UpdateHabit(ctx context.Context, id int64, fields json.RawMessage) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, http.MethodPatch, habitPath(id, ""), fields, &h)
	return h, err
}

func (c *Client) DeleteHabit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, habitPath(id, ""), nil, nil)
}

func (c *Client) Toggle(ctx context.Context, id int64) (models.Transition, error) {
	return c.transition(ctx, id, "toggle", nil)
}

// dayBody is the body of the dated transition endpoints
type dayBody struct {
	Delta *int   `json:"delta,omitempty"`
	Date  string `json:"date,omitempty"`
}

// Complete marks date (YYYY-MM-DD) done; an empty date means the server's today.
func (c *Client) Complete(ctx context.Context, id int64, date string) (models.Transition, error) {
	return c.transition(ctx, id, "complete", dated(date))
}

func (c *Client) Undo(ctx context.Context, id int64, date string) (models.Transition, error) {
	return c.transition(ctx, id, "undo", dated(date))
}

func (c *Client) RecordProgress(ctx context.Context, id int64, delta int, date string) (models.Transition, error) {
	return c.transition(ctx, id, "progress", dayBody{Delta: &delta, Date: date})
}

func dated(date string) interface{} {
	if date == "" {
		return nil
	}
	return dayBody{Date: date}
}

func (c *Client) transition(ctx context.Context, id int64, op string, body interface{}) (models.Transition, error) {
	var t models.Transition
	err := c.do(ctx, http.MethodPost, habitPath(id, op), body, &t)
	return t, err
}

func (c *Client) AddMood(ctx context.Context, mood int, note string) (models.MoodEntry, error) {
	var entry models.MoodEntry
	body := map[string]interface{}{"mood": mood, "note": note}
	err := c.do(ctx, http.MethodPost, "/api/mood", body, &entry)
	return entry, err
}

func (c *Client) ListMoods(ctx context.Context, days int) ([]models.MoodEntry, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	path := "/api/mood"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var list []models.MoodEntry
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

// Tip fetches a coaching tip.
func (c *Client) Tip(ctx context.Context) (string, error) {
	var out struct {
		Tip string `json:"tip"`
	}
	err := c.do(ctx, http.MethodGet, "/api/coaching/tip", nil, &out)
	return out.Tip, err
}

func habitPath(id int64, op string) string {
	p := "/api/habits/" + strconv.FormatInt(id, 10)
	if op != "" {
		p += "/" + op
	}
	return p
}
