// Package view computes the read-only projections of the application list:
// the filtered list shown to the user and the aggregate counts.
package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rossigee/job-application-tracker/pkg/types"
)

// StatusAll disables status filtering
const StatusAll = "all"

// Mode is the layout the list is rendered in
type Mode string

const (
	ModeGrid Mode = "grid"
	ModeList Mode = "list"
)

var (
	// ErrInvalidStatus is returned for a status filter that is neither "all" nor a known status
	ErrInvalidStatus = errors.New("invalid status filter")
	// ErrInvalidMode is returned for an unknown view mode
	ErrInvalidMode = errors.New("invalid view mode")
)

// State holds the transient search, filter and layout selection
type State struct {
	Search       string
	StatusFilter string
	Mode         Mode
}

// NewState returns the initial view state: no search, all statuses, grid layout
func NewState() State {
	return State{StatusFilter: StatusAll, Mode: ModeGrid}
}

// SetStatusFilter changes the status filter
func (s *State) SetStatusFilter(filter string) error {
	if filter != StatusAll && !types.Status(filter).Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, filter)
	}
	s.StatusFilter = filter
	return nil
}

// SetMode changes the layout
func (s *State) SetMode(mode Mode) error {
	if mode != ModeGrid && mode != ModeList {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	s.Mode = mode
	return nil
}

// Apply filters records by the state's search text and status filter
func (s State) Apply(records []types.JobApplication) []types.JobApplication {
	return Filter(records, s.Search, s.StatusFilter)
}

// Types converts the state to its wire representation
func (s State) Types() types.ViewState {
	return types.ViewState{
		Search:       s.Search,
		StatusFilter: s.StatusFilter,
		Mode:         string(s.Mode),
	}
}

// Filter returns the records whose company, title or location contains query
// (case-insensitively) and whose status matches statusFilter. Order is kept.
func Filter(records []types.JobApplication, query, statusFilter string) []types.JobApplication {
	q := strings.ToLower(query)

	out := make([]types.JobApplication, 0, len(records))
	for _, r := range records {
		if matchesQuery(r, q) && matchesStatus(r, statusFilter) {
			out = append(out, r)
		}
	}
	return out
}

func matchesQuery(r types.JobApplication, q string) bool {
	return strings.Contains(strings.ToLower(r.Company), q) ||
		strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Location), q)
}

func matchesStatus(r types.JobApplication, statusFilter string) bool {
	return statusFilter == StatusAll || string(r.Status) == statusFilter
}

// Summarize counts records per status. Offers include accepted offers.
func Summarize(records []types.JobApplication) types.Stats {
	stats := types.Stats{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case types.StatusApplied:
			stats.Applied++
		case types.StatusInterviewing:
			stats.Interviewing++
		case types.StatusOffer:
			stats.Offers++
		case types.StatusAccepted:
			stats.Offers++
			stats.Accepted++
		case types.StatusRejected:
			stats.Rejected++
		}
	}
	return stats
}
