package roster

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Student is one roster entry. AttendancePercentage is derived from the
// record set, never stored.
type Student struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"-"`
	RollNo               string    `json:"roll_no"`
	Name                 string    `json:"name"`
	Department           string    `json:"department"`
	Year                 int       `json:"year"`
	Status               string    `json:"status"`
	AttendancePercentage int       `json:"attendancePercentage"`
	CreatedAt            time.Time `json:"created_at"`
}

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Repository persists students in Postgres, scoped by user_id.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser returns the user's roster in insertion order.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, roll_no, name, department, year, status, created_at
		FROM students
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.UserID, &s.RollNo, &s.Name, &s.Department, &s.Year, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Insert creates a student and echoes the written row.
func (r *Repository) Insert(ctx context.Context, s Student) (Student, error) {
	if s.Name == "" || s.RollNo == "" {
		return Student{}, errors.New("name and roll_no required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, user_id, roll_no, name, department, year, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, s.ID, s.UserID, s.RollNo, s.Name, s.Department, s.Year, s.Status)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// InsertBatch creates several students in one transaction, used by the
// CSV importer.
func (r *Repository) InsertBatch(ctx context.Context, students []Student) ([]Student, error) {
	if len(students) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for i := range students {
		if students[i].ID == "" {
			students[i].ID = uuid.NewString()
		}
		if students[i].Status == "" {
			students[i].Status = StatusActive
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO students (id, user_id, roll_no, name, department, year, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING created_at
		`, students[i].ID, students[i].UserID, students[i].RollNo, students[i].Name,
			students[i].Department, students[i].Year, students[i].Status)
		if err := row.Scan(&students[i].CreatedAt); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return students, nil
}

// Update applies a full-field update and echoes the written row.
func (r *Repository) Update(ctx context.Context, userID, id string, s Student) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students
		SET roll_no = $3, name = $4, department = $5, year = $6, status = $7
		WHERE user_id = $1 AND id = $2
		RETURNING id, user_id, roll_no, name, department, year, status, created_at
	`, userID, id, s.RollNo, s.Name, s.Department, s.Year, s.Status)
	var out Student
	if err := row.Scan(&out.ID, &out.UserID, &out.RollNo, &out.Name, &out.Department, &out.Year, &out.Status, &out.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// Delete removes a student row. Attendance records must already be
// gone: the store does not cascade.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM students WHERE user_id = $1 AND id = $2
	`, userID, id)
	return err
}
