// Package todo keeps a small date-keyed todo list alongside transcripts.
package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

var ErrOutOfRange = errors.New("todo index out of range")

// Item is one todo entry under a date key.
type Item struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Store persists todos as a single JSON document keyed by ISO date.
type Store struct {
	path  string
	clock func() time.Time
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path, clock: time.Now}
}

// Today is the current date key.
func (s *Store) Today() string {
	return s.clock().Format(dateFormat)
}

// Add appends a todo under date. Empty text is ignored.
func (s *Store) Add(date, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	date = s.normalizeDate(date)

	todos, err := s.load()
	if err != nil {
		return err
	}
	todos[date] = append(todos[date], Item{Text: text})
	return s.save(todos)
}

// Toggle flips the done flag of the idx-th todo under date.
func (s *Store) Toggle(date string, idx int) error {
	date = s.normalizeDate(date)

	todos, err := s.load()
	if err != nil {
		return err
	}
	items := todos[date]
	if idx < 0 || idx >= len(items) {
		return fmt.Errorf("%w: %d (have %d for %s)", ErrOutOfRange, idx, len(items), date)
	}
	items[idx].Done = !items[idx].Done
	return s.save(todos)
}

// List returns the todos under date in insertion order.
func (s *Store) List(date string) ([]Item, error) {
	date = s.normalizeDate(date)

	todos, err := s.load()
	if err != nil {
		return nil, err
	}
	return todos[date], nil
}

// Dates returns every date key with at least one todo, ascending.
func (s *Store) Dates() ([]string, error) {
	todos, err := s.load()
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(todos))
	for date := range todos {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// normalizeDate substitutes today for an empty date key.
func (s *Store) normalizeDate(date string) string {
	if strings.TrimSpace(date) == "" {
		return s.Today()
	}
	return date
}

// load reads the whole document. A missing file yields an empty document.
func (s *Store) load() (map[string][]Item, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]Item{}, nil
		}
		return nil, fmt.Errorf("read todos: %w", err)
	}

	var todos map[string][]Item
	if err := json.Unmarshal(data, &todos); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}
	if todos == nil {
		todos = map[string][]Item{}
	}
	return todos, nil
}

// save rewrites the whole document.
func (s *Store) save(todos map[string][]Item) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure todos dir: %w", err)
	}
	data, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("encode todos: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write todos: %w", err)
	}
	return nil
}
