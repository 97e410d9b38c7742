package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is a lead's pipeline state.
type Status string

const (
	StatusNew       Status = "New"
	StatusContacted Status = "Contacted"
	StatusConverted Status = "Converted"
)

// Lead is a prospective-student inquiry. Notes are kept most-recent-
// first, stored as a jsonb array.
type Lead struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Course       string    `json:"course"`
	Status       Status    `json:"status"`
	NextFollowUp string    `json:"next_follow_up"`
	Notes        []string  `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists leads in Postgres, scoped by user_id.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser returns the user's leads, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Lead, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, phone, course, status, next_follow_up, notes, created_at
		FROM leads
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Lead
	for rows.Next() {
		l, err := scanLead(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// Get returns one lead, nil when absent.
func (r *Repository) Get(ctx context.Context, userID, id string) (*Lead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, phone, course, status, next_follow_up, notes, created_at
		FROM leads
		WHERE user_id = $1 AND id = $2
	`, userID, id)
	l, err := scanLead(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// Insert creates a lead and echoes the written row.
func (r *Repository) Insert(ctx context.Context, l Lead) (Lead, error) {
	if l.Name == "" {
		return Lead{}, errors.New("name required")
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = StatusNew
	}
	notes, err := json.Marshal(notesOrEmpty(l.Notes))
	if err != nil {
		return Lead{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leads (id, user_id, name, phone, course, status, next_follow_up, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, l.ID, l.UserID, l.Name, l.Phone, l.Course, l.Status, l.NextFollowUp, notes)
	if err := row.Scan(&l.CreatedAt); err != nil {
		return Lead{}, err
	}
	return l, nil
}

// Update applies a full-field update and echoes the written row.
func (r *Repository) Update(ctx context.Context, userID, id string, l Lead) (*Lead, error) {
	notes, err := json.Marshal(notesOrEmpty(l.Notes))
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE leads
		SET name = $3, phone = $4, course = $5, status = $6, next_follow_up = $7, notes = $8
		WHERE user_id = $1 AND id = $2
		RETURNING id, user_id, name, phone, course, status, next_follow_up, notes, created_at
	`, userID, id, l.Name, l.Phone, l.Course, l.Status, l.NextFollowUp, notes)
	out, err := scanLead(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// AddNote prepends a note, keeping the most-recent-first convention.
func (r *Repository) AddNote(ctx context.Context, userID, id, note string) (*Lead, error) {
	l, err := r.Get(ctx, userID, id)
	if err != nil || l == nil {
		return l, err
	}
	l.Notes = append([]string{note}, l.Notes...)
	return r.Update(ctx, userID, id, *l)
}

// Delete removes a lead by id.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM leads WHERE user_id = $1 AND id = $2
	`, userID, id)
	return err
}

func scanLead(scan func(...any) error) (Lead, error) {
	var l Lead
	var notes []byte
	if err := scan(&l.ID, &l.UserID, &l.Name, &l.Phone, &l.Course, &l.Status, &l.NextFollowUp, &notes, &l.CreatedAt); err != nil {
		return Lead{}, err
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &l.Notes); err != nil {
			return Lead{}, err
		}
	}
	return l, nil
}

func notesOrEmpty(notes []string) []string {
	if notes == nil {
		return []string{}
	}
	return notes
}
