package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance records in Postgres. Every query is
// scoped by user_id; the store never serves cross-user rows.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser returns the full record set for a user in chronological
// order. Callers of the grouping engine rely on this ordering.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, date, label, student_id, status, subject, class, remark, session_note, created_at
		FROM attendance_records
		WHERE user_id = $1
		ORDER BY date, label, created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &rec.Date, &rec.Label, &rec.StudentID, &rec.Status, &rec.Subject, &rec.Class, &rec.Remark, &rec.SessionNote, &rec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// InsertBatch writes all records of one session commit. IDs are
// assigned here when missing so callers never have to invent them.
func (r *Repository) InsertBatch(ctx context.Context, records []Record) ([]Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO attendance_records (id, user_id, session_id, date, label, student_id, status, subject, class, remark, session_note)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			RETURNING created_at
		`, records[i].ID, records[i].UserID, records[i].SessionID, records[i].Date, records[i].Label,
			records[i].StudentID, records[i].Status, records[i].Subject, records[i].Class, records[i].Remark,
			records[i].SessionNote)
		if err := row.Scan(&records[i].CreatedAt); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteSession removes every record matching the composite key.
func (r *Repository) DeleteSession(ctx context.Context, userID, date, label string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM attendance_records
		WHERE user_id = $1 AND date = $2 AND label = $3
	`, userID, date, label)
	return err
}

// DeleteFolder removes every record for one calendar date.
func (r *Repository) DeleteFolder(ctx context.Context, userID, date string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM attendance_records
		WHERE user_id = $1 AND date = $2
	`, userID, date)
	return err
}

// DeleteByStudent removes all of a student's records. Runs before the
// student row itself is deleted; the store has no cascading cleanup.
func (r *Repository) DeleteByStudent(ctx context.Context, userID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM attendance_records
		WHERE user_id = $1 AND student_id = $2
	`, userID, studentID)
	return err
}

// DailySummary is the worker-generated digest for one day.
type DailySummary struct {
	UserID      string    `json:"-"`
	Date        string    `json:"date"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
}

// UpsertDailySummary stores or replaces the AI digest for a day.
func (r *Repository) UpsertDailySummary(ctx context.Context, s DailySummary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (user_id, date, summary, generated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, date) DO UPDATE SET
			summary = EXCLUDED.summary,
			generated_at = NOW()
	`, s.UserID, s.Date, s.Summary)
	return err
}

// GetDailySummary returns the digest for a day, nil when absent.
func (r *Repository) GetDailySummary(ctx context.Context, userID, date string) (*DailySummary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, date, summary, generated_at
		FROM daily_summaries
		WHERE user_id = $1 AND date = $2
	`, userID, date)
	var s DailySummary
	if err := row.Scan(&s.UserID, &s.Date, &s.Summary, &s.GeneratedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
