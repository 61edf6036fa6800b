//go:build integration
// +build integration

package integration

// ApplicationRequest is the body accepted by create, update and form submit
type ApplicationRequest struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	Salary      string `json:"salary,omitempty"`
	DateApplied string `json:"dateApplied"`
	Status      string `json:"status,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Application is a stored job application as returned by the API
type Application struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	Salary      string `json:"salary"`
	DateApplied string `json:"dateApplied"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
}

// ListResponse is the body of GET /api/v1/applications
type ListResponse struct {
	Applications []Application `json:"applications"`
	Count        int           `json:"count"`
}

// Stats holds the aggregate counts
type Stats struct {
	Total        int `json:"total"`
	Applied      int `json:"applied"`
	Interviewing int `json:"interviewing"`
	Offers       int `json:"offers"`
	Accepted     int `json:"accepted"`
	Rejected     int `json:"rejected"`
}

// FormState is the body returned by the form endpoints
type FormState struct {
	Mode   string              `json:"mode"`
	Target *Application        `json:"target,omitempty"`
	Draft  *ApplicationRequest `json:"draft,omitempty"`
}
