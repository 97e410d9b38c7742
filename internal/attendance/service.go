package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// recordStore is the slice of Repository the service needs. Tests swap
// in an in-memory implementation.
type recordStore interface {
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	InsertBatch(ctx context.Context, records []Record) ([]Record, error)
	DeleteSession(ctx context.Context, userID, date, label string) error
	DeleteFolder(ctx context.Context, userID, date string) error
	DeleteByStudent(ctx context.Context, userID, studentID string) error
}

// Service sequences session mutations against the store. Sessions have
// no stable row id at the storage layer, so an edit is a delete of the
// composite key followed by a batch reinsert under the original label.
type Service struct {
	store recordStore
}

// NewService creates a service backed by a store.
func NewService(store recordStore) *Service {
	return &Service{store: store}
}

// ErrEmptySession is returned when a commit or edit carries no marks.
var ErrEmptySession = errors.New("session has no marks")

// CommitSession inserts one record per mark, all sharing the session's
// date, label and a freshly minted session id.
func (s *Service) CommitSession(ctx context.Context, userID, date string, meta SessionMetadata, marks []Mark) ([]Record, error) {
	if len(marks) == 0 {
		return nil, ErrEmptySession
	}
	if date == "" {
		return nil, errors.New("date required")
	}
	records := buildRecords(userID, date, uuid.NewString(), meta, marks)
	inserted, err := s.store.InsertBatch(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}
	return inserted, nil
}

// EditSession replaces a session's records with a new full set. The
// original label is reused so the session keeps its identity even
// though storage sees a delete plus a recreate. The two steps are not
// transactional: a failed insert after a successful delete leaves the
// session empty, and callers must tolerate it vanishing. A failed
// delete aborts the edit with nothing inserted.
func (s *Service) EditSession(ctx context.Context, userID string, key SessionKey, meta SessionMetadata, marks []Mark) ([]Record, error) {
	if len(marks) == 0 {
		return nil, ErrEmptySession
	}
	if err := s.store.DeleteSession(ctx, userID, key.Date, key.Label); err != nil {
		return nil, fmt.Errorf("edit session: delete old records: %w", err)
	}
	meta.Label = key.Label
	records := buildRecords(userID, key.Date, uuid.NewString(), meta, marks)
	inserted, err := s.store.InsertBatch(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("edit session: insert new records: %w", err)
	}
	return inserted, nil
}

// DeleteSession removes one session by its composite key.
func (s *Service) DeleteSession(ctx context.Context, userID string, key SessionKey) error {
	return s.store.DeleteSession(ctx, userID, key.Date, key.Label)
}

// DeleteFolder removes every session on one date.
func (s *Service) DeleteFolder(ctx context.Context, userID, date string) error {
	return s.store.DeleteFolder(ctx, userID, date)
}

func buildRecords(userID, date, sessionID string, meta SessionMetadata, marks []Mark) []Record {
	records := make([]Record, 0, len(marks))
	for _, m := range marks {
		status := m.Status
		if !status.Valid() {
			status = StatusNotMarked
		}
		records = append(records, Record{
			UserID:      userID,
			SessionID:   sessionID,
			Date:        date,
			Label:       meta.Label,
			StudentID:   m.StudentID,
			Status:      status,
			Subject:     meta.Subject,
			Class:       meta.Class,
			Remark:      m.Remark,
			SessionNote: meta.GlobalNote,
		})
	}
	return records
}
