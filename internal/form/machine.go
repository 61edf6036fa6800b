// Package form implements the add/edit form state machine.
//
// The form is either closed, adding a new application, or editing an existing
// one. Opening is only possible from closed; submit and cancel both return to
// closed. The machine never touches the record store itself: Submit tells the
// caller which store operation the submission stands for.
package form

import (
	"errors"
	"time"

	"github.com/rossigee/job-application-tracker/pkg/types"
)

// Mode is the state of the form
type Mode int

const (
	Closed Mode = iota
	Adding
	Editing
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case Adding:
		return "adding"
	case Editing:
		return "editing"
	default:
		return "closed"
	}
}

var (
	// ErrFormOpen is returned when opening a form that is already open
	ErrFormOpen = errors.New("form is already open")
	// ErrFormClosed is returned when submitting a closed form
	ErrFormClosed = errors.New("form is not open")
)

// Submission describes what a submitted form asks the store to do.
// TargetID is empty for an add.
type Submission struct {
	Mode     Mode
	TargetID string
	Fields   types.ApplicationFields
}

// Machine tracks the form state
type Machine struct {
	mode   Mode
	target types.JobApplication
	now    func() time.Time
}

// NewMachine returns a closed form. now supplies the default application date.
func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{mode: Closed, now: now}
}

// Mode returns the current state
func (m *Machine) Mode() Mode {
	return m.mode
}

// Target returns the application being edited
func (m *Machine) Target() (types.JobApplication, bool) {
	if m.mode != Editing {
		return types.JobApplication{}, false
	}
	return m.target, true
}

// Open moves closed -> adding when target is nil, closed -> editing(target) otherwise.
// It returns the values the form starts with.
func (m *Machine) Open(target *types.JobApplication) (types.ApplicationFields, error) {
	if m.mode != Closed {
		return types.ApplicationFields{}, ErrFormOpen
	}

	if target == nil {
		m.mode = Adding
		m.target = types.JobApplication{}
	} else {
		m.mode = Editing
		m.target = *target
	}
	return m.Draft(), nil
}

// Draft returns the initial form values for the current state: the edited
// application's fields, or an empty application dated today.
func (m *Machine) Draft() types.ApplicationFields {
	switch m.mode {
	case Editing:
		return m.target.ApplicationFields
	case Adding:
		return types.ApplicationFields{
			DateApplied: m.now().Format(types.DateLayout),
			Status:      types.StatusApplied,
		}
	default:
		return types.ApplicationFields{}
	}
}

// Submit describes the store operation for fields without changing state.
// Call Close once the store accepted it.
func (m *Machine) Submit(fields types.ApplicationFields) (Submission, error) {
	switch m.mode {
	case Adding:
		return Submission{Mode: Adding, Fields: fields}, nil
	case Editing:
		return Submission{Mode: Editing, TargetID: m.target.ID, Fields: fields}, nil
	default:
		return Submission{}, ErrFormClosed
	}
}

// Close returns to closed; used for both cancel and a completed submit.
// Closing a closed form does nothing.
func (m *Machine) Close() {
	m.mode = Closed
	m.target = types.JobApplication{}
}
