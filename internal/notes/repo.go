package notes

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DayNote annotates a calendar day that has no attendance activity,
// e.g. a holiday. Independent of attendance records.
type DayNote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Date      string    `json:"date"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists day notes in Postgres, scoped by user_id.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser returns the user's notes, newest date first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]DayNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, reason, created_at
		FROM day_notes
		WHERE user_id = $1
		ORDER BY date DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []DayNote
	for rows.Next() {
		var n DayNote
		if err := rows.Scan(&n.ID, &n.UserID, &n.Date, &n.Reason, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// Insert creates a note and echoes the written row.
func (r *Repository) Insert(ctx context.Context, n DayNote) (DayNote, error) {
	if n.Date == "" || n.Reason == "" {
		return DayNote{}, errors.New("date and reason required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO day_notes (id, user_id, date, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, n.ID, n.UserID, n.Date, n.Reason)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return DayNote{}, err
	}
	return n, nil
}

// Delete removes a note by id.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM day_notes WHERE user_id = $1 AND id = $2
	`, userID, id)
	return err
}
