package store

import (
	"database/sql"
	"errors"
	"time"
)

// Binding overrides the action bound to one gesture. An empty Action unbinds
// the gesture. Disabled bindings are ignored.
type Binding struct {
	Gesture   string    `json:"gesture"`
	Action    string    `json:"action"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BindingRepository provides CRUD operations for bindings.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

// Upsert inserts b or replaces the existing binding for the same gesture.
func (r *BindingRepository) Upsert(b *Binding) error {
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO bindings (gesture, action, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(gesture) DO UPDATE SET
			action = excluded.action,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		b.Gesture, b.Action, boolToInt(b.Enabled), b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// Get retrieves the binding for gesture.
func (r *BindingRepository) Get(gesture string) (*Binding, error) {
	b := &Binding{}
	var enabled int

	err := r.db.QueryRow(
		`SELECT gesture, action, enabled, created_at, updated_at
		 FROM bindings WHERE gesture = ?`,
		gesture,
	).Scan(&b.Gesture, &b.Action, &enabled, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	b.Enabled = enabled != 0
	return b, nil
}

// List retrieves all bindings ordered by gesture name.
func (r *BindingRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(
		`SELECT gesture, action, enabled, created_at, updated_at
		 FROM bindings ORDER BY gesture`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b := &Binding{}
		var enabled int

		if err := rows.Scan(&b.Gesture, &b.Action, &enabled, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}

		b.Enabled = enabled != 0
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bindings, nil
}

// Delete removes the binding for gesture.
func (r *BindingRepository) Delete(gesture string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE gesture = ?`, gesture)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
