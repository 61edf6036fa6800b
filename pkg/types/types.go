package types

import "time"

// Status represents the stage a job application has reached
type Status string

const (
	StatusApplied      Status = "applied"
	StatusInterviewing Status = "interviewing"
	StatusOffer        Status = "offer"
	StatusAccepted     Status = "accepted"
	StatusRejected     Status = "rejected"
)

// Statuses lists every valid status in display order
var Statuses = []Status{
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusAccepted,
	StatusRejected,
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// DateLayout is the calendar date format used for DateApplied
const DateLayout = "2006-01-02"

// ApplicationFields holds everything about an application except its ID.
// It is the payload of the add and edit forms.
type ApplicationFields struct {
	Company     string `json:"company" binding:"required"`
	Title       string `json:"title" binding:"required"`
	DateApplied string `json:"dateApplied" binding:"required,datetime=2006-01-02"`
	Status      Status `json:"status" binding:"omitempty,oneof=applied interviewing offer accepted rejected"`
	Location    string `json:"location,omitempty"`
	Salary      string `json:"salary,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// JobApplication represents one tracked application
type JobApplication struct {
	ID string `json:"id"`
	ApplicationFields
}

// Stats holds aggregate counts over all applications
type Stats struct {
	Total        int `json:"total"`
	Applied      int `json:"applied"`
	Interviewing int `json:"interviewing"`
	Offers       int `json:"offers"`
	Accepted     int `json:"accepted"`
	Rejected     int `json:"rejected"`
}

// ViewState represents the search, filter and layout chosen by the user
type ViewState struct {
	Search       string `json:"search"`
	StatusFilter string `json:"status_filter"`
	Mode         string `json:"mode"`
}

// ViewUpdate changes part of the view state. Omitted fields keep their value;
// an explicit empty search clears it.
type ViewUpdate struct {
	Search       *string `json:"search"`
	StatusFilter string  `json:"status_filter"`
	Mode         string  `json:"mode"`
}

// ViewResponse represents the derived view returned to clients
type ViewResponse struct {
	State        ViewState        `json:"state"`
	Applications []JobApplication `json:"applications"`
	Stats        Stats            `json:"stats"`
	Empty        bool             `json:"empty"`
	NoMatches    bool             `json:"no_matches"`
}

// FormState represents the add/edit form as seen by clients
type FormState struct {
	Mode   string             `json:"mode"`
	Target *JobApplication    `json:"target,omitempty"`
	Draft  *ApplicationFields `json:"draft,omitempty"`
}

// OpenFormRequest opens the form, for editing when ID is set
type OpenFormRequest struct {
	ID string `json:"id,omitempty"`
}

// ListResponse represents a filtered list of applications
type ListResponse struct {
	Applications []JobApplication `json:"applications"`
	Count        int              `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	Applications int       `json:"applications"`
}
