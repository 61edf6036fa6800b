package view

import (
	"testing"

	"github.com/rossigee/job-application-tracker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func app(id, company, title, location string, status types.Status) types.JobApplication {
	return types.JobApplication{
		ID: id,
		ApplicationFields: types.ApplicationFields{
			Company:     company,
			Title:       title,
			DateApplied: "2024-01-01",
			Status:      status,
			Location:    location,
		},
	}
}

func sample() []types.JobApplication {
	return []types.JobApplication{
		app("1", "Google", "SWE", "Zurich", types.StatusInterviewing),
		app("2", "Acme", "Product Manager", "", types.StatusApplied),
		app("3", "Globex", "Designer", "Remote", types.StatusOffer),
		app("4", "Initech", "Go Developer", "Austin", types.StatusAccepted),
		app("5", "Hooli", "SRE", "Palo Alto", types.StatusRejected),
	}
}

func ids(records []types.JobApplication) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter_EmptyQueryAllStatusesKeepsEverything(t *testing.T) {
	records := sample()
	assert.Equal(t, records, Filter(records, "", StatusAll))
}

func TestFilter_EmptyInput(t *testing.T) {
	assert.Empty(t, Filter(nil, "x", StatusAll))
}

func TestFilter_Search(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{name: "company case-insensitive", query: "google", expected: []string{"1"}},
		{name: "upper-case query", query: "ACME", expected: []string{"2"}},
		{name: "title", query: "manager", expected: []string{"2"}},
		{name: "location", query: "remote", expected: []string{"3"}},
		{name: "matches across fields", query: "go", expected: []string{"1", "4"}},
		{name: "absent location does not match", query: "zzz", expected: []string{}},
		{name: "substring", query: "al", expected: []string{"5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(Filter(sample(), tt.query, StatusAll)))
		})
	}
}

func TestFilter_StatusIsExact(t *testing.T) {
	records := sample()

	assert.Equal(t, []string{"3"}, ids(Filter(records, "", string(types.StatusOffer))))
	assert.Equal(t, []string{"4"}, ids(Filter(records, "", string(types.StatusAccepted))))
	assert.Equal(t, []string{"5"}, ids(Filter(records, "", string(types.StatusRejected))))
}

func TestFilter_SearchAndStatusCombine(t *testing.T) {
	records := sample()

	assert.Equal(t, []string{"1"}, ids(Filter(records, "go", string(types.StatusInterviewing))))
	assert.Empty(t, Filter(records, "google", string(types.StatusApplied)))
}

func TestSummarize(t *testing.T) {
	stats := Summarize(sample())

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1, stats.Interviewing)
	assert.Equal(t, 2, stats.Offers)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, stats.Total, stats.Applied+stats.Interviewing+stats.Offers+stats.Rejected)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, types.Stats{}, Summarize(nil))
}

func TestSummarize_OffersCountButFilterDoesNot(t *testing.T) {
	records := []types.JobApplication{
		app("o", "A", "T", "", types.StatusOffer),
		app("a", "B", "T", "", types.StatusAccepted),
	}

	assert.Equal(t, 2, Summarize(records).Offers)
	assert.Equal(t, []string{"o"}, ids(Filter(records, "", "offer")))
	assert.Equal(t, []string{"a"}, ids(Filter(records, "", "accepted")))
}

func TestState(t *testing.T) {
	s := NewState()
	assert.Equal(t, StatusAll, s.StatusFilter)
	assert.Equal(t, ModeGrid, s.Mode)
	assert.Equal(t, sample(), s.Apply(sample()))

	require.NoError(t, s.SetStatusFilter("rejected"))
	require.NoError(t, s.SetMode(ModeList))
	s.Search = "hoo"
	assert.Equal(t, []string{"5"}, ids(s.Apply(sample())))
	assert.Equal(t, types.ViewState{Search: "hoo", StatusFilter: "rejected", Mode: "list"}, s.Types())

	assert.ErrorIs(t, s.SetStatusFilter("ghosted"), ErrInvalidStatus)
	assert.ErrorIs(t, s.SetMode("table"), ErrInvalidMode)
	assert.Equal(t, "rejected", s.StatusFilter)
	assert.Equal(t, ModeList, s.Mode)
}
