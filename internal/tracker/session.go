// Package tracker ties the record store, view state and form machine into one
// session that handles user events one at a time.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rossigee/job-application-tracker/internal/form"
	"github.com/rossigee/job-application-tracker/internal/metrics"
	"github.com/rossigee/job-application-tracker/internal/records"
	"github.com/rossigee/job-application-tracker/internal/view"
	"github.com/rossigee/job-application-tracker/pkg/types"
	"github.com/sirupsen/logrus"
)

// Confirmer decides whether a delete may go ahead
type Confirmer func(app types.JobApplication) bool

// ErrDeclined is returned when the Confirmer refuses a delete
var ErrDeclined = errors.New("delete not confirmed")

// Session owns the view and form state for one tracker
type Session struct {
	store   *records.Store
	state   view.State
	form    *form.Machine
	metrics *metrics.Recorder
	mu      sync.Mutex
}

// NewSession creates a session over store. rec may be nil.
func NewSession(store *records.Store, machine *form.Machine, rec *metrics.Recorder) *Session {
	s := &Session{
		store:   store,
		state:   view.NewState(),
		form:    machine,
		metrics: rec,
	}
	s.metrics.SetApplications(view.Summarize(store.All()))
	return s
}

// List returns the applications matching query and statusFilter, ignoring the session view state
func (s *Session) List(query, statusFilter string) ([]types.JobApplication, error) {
	if statusFilter == "" {
		statusFilter = view.StatusAll
	}
	if statusFilter != view.StatusAll && !types.Status(statusFilter).Valid() {
		return nil, fmt.Errorf("%w: %q", view.ErrInvalidStatus, statusFilter)
	}
	return view.Filter(s.store.All(), query, statusFilter), nil
}

// Get returns one application
func (s *Session) Get(id string) (types.JobApplication, error) {
	return s.store.Get(id)
}

// Count returns the number of applications
func (s *Session) Count() int {
	return s.store.Len()
}

// Stats returns the aggregate counts over every application
func (s *Session) Stats() types.Stats {
	return view.Summarize(s.store.All())
}

// Add creates an application directly, bypassing the form
func (s *Session) Add(ctx context.Context, fields types.ApplicationFields) (types.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.add(ctx, fields)
}

// Update replaces an application directly, bypassing the form
func (s *Session) Update(ctx context.Context, id string, fields types.ApplicationFields) (types.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(ctx, id, fields)
}

// Delete removes the application with the given ID once confirm agrees.
// It reports whether anything was removed. An unknown ID removes nothing and
// is not an error; a declined delete returns ErrDeclined. Neither changes the store.
func (s *Session) Delete(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if confirm == nil || !confirm(app) {
		logrus.WithField("id", id).Info("Delete declined")
		return false, ErrDeclined
	}

	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		s.metrics.ObservePersistFailure()
		return false, err
	}
	if removed {
		s.observe(metrics.OpRemove)
	}
	return removed, nil
}

// View returns the view state with the derived list and counts
func (s *Session) View() types.ViewResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.viewLocked()
}

// SetView changes the search text, status filter and layout. Omitted values
// keep their current setting. Nothing changes unless every value is valid.
func (s *Session) SetView(state types.ViewUpdate) (types.ViewResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	if state.Search != nil {
		next.Search = *state.Search
	}
	if state.StatusFilter != "" {
		if err := next.SetStatusFilter(state.StatusFilter); err != nil {
			return types.ViewResponse{}, err
		}
	}
	if state.Mode != "" {
		if err := next.SetMode(view.Mode(state.Mode)); err != nil {
			return types.ViewResponse{}, err
		}
	}
	s.state = next

	return s.viewLocked(), nil
}

// Form returns the form state
func (s *Session) Form() types.FormState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.formLocked()
}

// OpenForm opens the form for adding when id is empty, for editing the application otherwise
func (s *Session) OpenForm(id string) (types.FormState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.form.Mode() != form.Closed {
		return types.FormState{}, form.ErrFormOpen
	}

	var target *types.JobApplication
	if id != "" {
		app, err := s.store.Get(id)
		if err != nil {
			return types.FormState{}, err
		}
		target = &app
	}

	if _, err := s.form.Open(target); err != nil {
		return types.FormState{}, err
	}
	return s.formLocked(), nil
}

// SubmitForm applies fields through the store and closes the form. The form
// stays open if the store rejects the submission.
func (s *Session) SubmitForm(ctx context.Context, fields types.ApplicationFields) (types.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.form.Submit(fields)
	if err != nil {
		return types.JobApplication{}, err
	}

	var app types.JobApplication
	switch sub.Mode {
	case form.Editing:
		app, err = s.update(ctx, sub.TargetID, sub.Fields)
	default:
		app, err = s.add(ctx, sub.Fields)
	}
	if err != nil {
		return types.JobApplication{}, err
	}

	s.form.Close()
	return app, nil
}

// CancelForm closes the form without touching the store
func (s *Session) CancelForm() types.FormState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form.Close()
	return s.formLocked()
}

func (s *Session) add(ctx context.Context, fields types.ApplicationFields) (types.JobApplication, error) {
	app, err := s.store.Add(ctx, fields)
	if err != nil {
		if !errors.Is(err, records.ErrDuplicateID) {
			s.metrics.ObservePersistFailure()
		}
		return types.JobApplication{}, err
	}
	s.observe(metrics.OpAdd)
	return app, nil
}

func (s *Session) update(ctx context.Context, id string, fields types.ApplicationFields) (types.JobApplication, error) {
	app, err := s.store.Update(ctx, id, fields)
	if err != nil {
		if !errors.Is(err, records.ErrNotFound) {
			s.metrics.ObservePersistFailure()
		}
		return types.JobApplication{}, err
	}
	s.observe(metrics.OpUpdate)
	return app, nil
}

func (s *Session) observe(op string) {
	s.metrics.ObserveMutation(op)
	s.metrics.SetApplications(view.Summarize(s.store.All()))
}

func (s *Session) viewLocked() types.ViewResponse {
	all := s.store.All()
	filtered := s.state.Apply(all)

	return types.ViewResponse{
		State:        s.state.Types(),
		Applications: filtered,
		Stats:        view.Summarize(all),
		Empty:        len(all) == 0,
		NoMatches:    len(all) > 0 && len(filtered) == 0,
	}
}

func (s *Session) formLocked() types.FormState {
	out := types.FormState{Mode: s.form.Mode().String()}
	if s.form.Mode() == form.Closed {
		return out
	}

	if target, ok := s.form.Target(); ok {
		out.Target = &target
	}
	draft := s.form.Draft()
	out.Draft = &draft
	return out
}
