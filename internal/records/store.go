// Package records holds the ordered list of job applications and keeps it
// mirrored into a persisted slot.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rossigee/job-application-tracker/pkg/types"
	"github.com/sirupsen/logrus"
)

// DefaultKey is the slot key the snapshot is stored under
const DefaultKey = "jobApplications"

var (
	// ErrNotFound is returned when no application has the requested ID
	ErrNotFound = errors.New("application not found")
	// ErrDuplicateID is returned when the ID generator repeats an existing ID
	ErrDuplicateID = errors.New("duplicate application id")
)

// Slot is an external key-value location holding one serialized snapshot per key
type Slot interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Option configures a Store
type Option func(*Store)

// WithKey overrides the slot key
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithIDGenerator overrides the ID generator used by Add
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// Store holds the application list. Newest applications come first.
type Store struct {
	slot    Slot
	key     string
	newID   func() string
	records []types.JobApplication
	mu      sync.RWMutex
}

// NewStore creates a store backed by slot and loads its current snapshot
func NewStore(ctx context.Context, slot Slot, opts ...Option) (*Store, error) {
	s := &Store{
		slot:  slot,
		key:   DefaultKey,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	records, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	s.records = records

	logrus.WithFields(logrus.Fields{
		"key":          s.key,
		"applications": len(records),
	}).Info("Loaded job applications")
	return s, nil
}

// LoadAll reads the snapshot from the slot. A missing or undecodable snapshot
// yields an empty list; only a failing slot is reported as an error. Records
// without a status load as applied, and repeated IDs keep their first record.
func (s *Store) LoadAll(ctx context.Context) ([]types.JobApplication, error) {
	raw, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %q: %w", s.key, err)
	}
	if !ok || raw == "" {
		return []types.JobApplication{}, nil
	}

	var records []types.JobApplication
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		logrus.WithError(err).WithField("key", s.key).Warn("Discarding unreadable snapshot")
		return []types.JobApplication{}, nil
	}

	return s.sanitize(records), nil
}

func (s *Store) sanitize(loaded []types.JobApplication) []types.JobApplication {
	out := make([]types.JobApplication, 0, len(loaded))
	seen := make(map[string]bool, len(loaded))
	for _, r := range loaded {
		if seen[r.ID] {
			logrus.WithFields(logrus.Fields{
				"key": s.key,
				"id":  r.ID,
			}).Warn("Dropping application with duplicate id from snapshot")
			continue
		}
		seen[r.ID] = true
		r.ApplicationFields = normalize(r.ApplicationFields)
		out = append(out, r)
	}
	return out
}

// All returns a copy of every application in store order
func (s *Store) All() []types.JobApplication {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.JobApplication, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of applications
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Get returns the application with the given ID
func (s *Store) Get(id string) (types.JobApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.records[i], nil
	}
	return types.JobApplication{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Add assigns a fresh ID to fields and prepends the new application
func (s *Store) Add(ctx context.Context, fields types.ApplicationFields) (types.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app := types.JobApplication{
		ID:                s.newID(),
		ApplicationFields: normalize(fields),
	}
	if s.indexOf(app.ID) >= 0 {
		return types.JobApplication{}, fmt.Errorf("%w: %s", ErrDuplicateID, app.ID)
	}

	next := make([]types.JobApplication, 0, len(s.records)+1)
	next = append(next, app)
	next = append(next, s.records...)

	if err := s.commit(ctx, next); err != nil {
		return types.JobApplication{}, err
	}

	logrus.WithFields(logrus.Fields{
		"id":      app.ID,
		"company": app.Company,
	}).Debug("Added application")
	return app, nil
}

// Update replaces every field of the application with the given ID, keeping its
// ID and position. Unknown IDs return ErrNotFound and leave the store untouched.
func (s *Store) Update(ctx context.Context, id string, fields types.ApplicationFields) (types.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		logrus.WithField("id", id).Warn("Update of unknown application ignored")
		return types.JobApplication{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := make([]types.JobApplication, len(s.records))
	copy(next, s.records)
	next[i] = types.JobApplication{ID: id, ApplicationFields: normalize(fields)}

	if err := s.commit(ctx, next); err != nil {
		return types.JobApplication{}, err
	}

	logrus.WithField("id", id).Debug("Updated application")
	return next[i], nil
}

// Remove deletes the application with the given ID. Removing an unknown ID is
// a no-op and reports false.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	next := make([]types.JobApplication, 0, len(s.records)-1)
	next = append(next, s.records[:i]...)
	next = append(next, s.records[i+1:]...)

	if err := s.commit(ctx, next); err != nil {
		return false, err
	}

	logrus.WithField("id", id).Debug("Removed application")
	return true, nil
}

// commit persists next and only then makes it the current list, so memory and
// slot never disagree. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []types.JobApplication) error {
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.records = next
	return nil
}

// persist writes the full list to the slot
func (s *Store) persist(ctx context.Context, records []types.JobApplication) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode applications: %w", err)
	}

	if err := s.slot.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("failed to persist applications: %w", err)
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// normalize fills in defaults the form would otherwise supply
func normalize(fields types.ApplicationFields) types.ApplicationFields {
	if fields.Status == "" {
		fields.Status = types.StatusApplied
	}
	return fields
}
