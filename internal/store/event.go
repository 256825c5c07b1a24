package store

import (
	"database/sql"
	"time"
)

// DefaultEventLimit caps List when the caller passes a non-positive limit.
const DefaultEventLimit = 50

// Event is one row of the dispatch log.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Gesture   string    `json:"gesture"`
	Action    string    `json:"action,omitempty"`
	Source    string    `json:"source_identity"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository appends to and reads the dispatch log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e. A zero CreatedAt is set to now.
func (r *EventRepository) Create(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO events (id, kind, gesture, action, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Gesture, e.Action, e.Source, e.CreatedAt.UTC(),
	)
	return err
}

// List returns the most recent events, newest first.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	rows, err := r.db.Query(
		`SELECT id, kind, gesture, action, source, created_at
		 FROM events ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*Event, 0, limit)
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.Kind, &e.Gesture, &e.Action, &e.Source, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountBySource returns how many events identity produced.
func (r *EventRepository) CountBySource(identity string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events WHERE source = ?`, identity).Scan(&n)
	return n, err
}
