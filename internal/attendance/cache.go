package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Cache is the in-memory record store for each user, refreshed from
// Postgres after mutations. It owns no business logic.
type Cache struct {
	mu      sync.RWMutex
	records map[string][]Record
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{records: make(map[string][]Record)}
}

// ReplaceAll swaps in a freshly fetched record set for a user.
func (c *Cache) ReplaceAll(userID string, records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[userID] = records
}

// Records returns a copy of the user's cached records.
func (c *Cache) Records(userID string) []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached := c.records[userID]
	out := make([]Record, len(cached))
	copy(out, cached)
	return out
}

// DropSession filters out one session locally, mirroring the remote
// delete predicate.
func (c *Cache) DropSession(userID, date, label string) {
	c.drop(userID, func(r Record) bool {
		return r.Date == date && r.Label == label
	})
}

// DropFolder filters out every record for one date.
func (c *Cache) DropFolder(userID, date string) {
	c.drop(userID, func(r Record) bool { return r.Date == date })
}

// DropStudent filters out one student's records.
func (c *Cache) DropStudent(userID, studentID string) {
	c.drop(userID, func(r Record) bool { return r.StudentID == studentID })
}

// Clear forgets a user's records entirely, e.g. on sign-out.
func (c *Cache) Clear(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, userID)
}

func (c *Cache) drop(userID string, match func(Record) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.records[userID][:0:0]
	for _, r := range c.records[userID] {
		if !match(r) {
			kept = append(kept, r)
		}
	}
	c.records[userID] = kept
}

// SessionGate reports whether a user currently holds a valid
// authenticated session. Without one the reconciler serves an empty
// record set and refuses mutations.
type SessionGate interface {
	Authenticated(userID string) bool
}

// ErrNotAuthenticated is returned for operations on a user without a
// valid session.
var ErrNotAuthenticated = errors.New("no valid session")

// Reconciler keeps the cache consistent with the store after each
// mutation. Commits and edits are followed by a full refetch (the store
// assigns ids, so merging partial results is not worth it); session and
// folder deletes patch the cache optimistically with the same predicate
// as the remote delete and self-heal on the next refresh.
type Reconciler struct {
	svc   *Service
	store recordStore
	cache *Cache
	gate  SessionGate
}

// NewReconciler wires the mutation service, store and cache together.
// gate may be nil, in which case every user is treated as authenticated.
func NewReconciler(svc *Service, store recordStore, cache *Cache, gate SessionGate) *Reconciler {
	return &Reconciler{svc: svc, store: store, cache: cache, gate: gate}
}

func (r *Reconciler) allowed(userID string) bool {
	return r.gate == nil || r.gate.Authenticated(userID)
}

// Records serves the cached record set; empty when unauthenticated.
func (r *Reconciler) Records(userID string) []Record {
	if !r.allowed(userID) {
		return nil
	}
	return r.cache.Records(userID)
}

// Refresh refetches the user's records wholesale.
func (r *Reconciler) Refresh(ctx context.Context, userID string) error {
	if !r.allowed(userID) {
		return ErrNotAuthenticated
	}
	records, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("refresh records: %w", err)
	}
	r.cache.ReplaceAll(userID, records)
	return nil
}

// CommitSession commits a new session and refetches.
func (r *Reconciler) CommitSession(ctx context.Context, userID, date string, meta SessionMetadata, marks []Mark) ([]Record, error) {
	if !r.allowed(userID) {
		return nil, ErrNotAuthenticated
	}
	inserted, err := r.svc.CommitSession(ctx, userID, date, meta, marks)
	if err != nil {
		return nil, err
	}
	if err := r.Refresh(ctx, userID); err != nil {
		return nil, err
	}
	return inserted, nil
}

// EditSession replaces a session and refetches.
func (r *Reconciler) EditSession(ctx context.Context, userID string, key SessionKey, meta SessionMetadata, marks []Mark) ([]Record, error) {
	if !r.allowed(userID) {
		return nil, ErrNotAuthenticated
	}
	inserted, err := r.svc.EditSession(ctx, userID, key, meta, marks)
	if err != nil {
		return nil, err
	}
	if err := r.Refresh(ctx, userID); err != nil {
		return nil, err
	}
	return inserted, nil
}

// DeleteSession deletes remotely, then patches the cache without a
// refetch. If the remote delete failed the error propagates and the
// cache is left untouched.
func (r *Reconciler) DeleteSession(ctx context.Context, userID string, key SessionKey) error {
	if !r.allowed(userID) {
		return ErrNotAuthenticated
	}
	if err := r.svc.DeleteSession(ctx, userID, key); err != nil {
		return err
	}
	r.cache.DropSession(userID, key.Date, key.Label)
	return nil
}

// DeleteFolder deletes a whole date remotely, then patches the cache.
func (r *Reconciler) DeleteFolder(ctx context.Context, userID, date string) error {
	if !r.allowed(userID) {
		return ErrNotAuthenticated
	}
	if err := r.svc.DeleteFolder(ctx, userID, date); err != nil {
		return err
	}
	r.cache.DropFolder(userID, date)
	return nil
}

// RemoveStudentRecords deletes a student's attendance remotely and from
// the cache. Callers delete the student row only after this succeeds;
// the store does not cascade.
func (r *Reconciler) RemoveStudentRecords(ctx context.Context, userID, studentID string) error {
	if !r.allowed(userID) {
		return ErrNotAuthenticated
	}
	if err := r.store.DeleteByStudent(ctx, userID, studentID); err != nil {
		return err
	}
	r.cache.DropStudent(userID, studentID)
	return nil
}
