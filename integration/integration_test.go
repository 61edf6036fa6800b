//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// TestSuite holds the integration test suite
type TestSuite struct {
	suite.Suite
	tracker     *TrackerClient
	minioClient *minio.Client
	bucket      string
	objectName  string
	runID       string
}

// TrackerClient handles HTTP communication with the tracker
type TrackerClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newTrackerClient() *TrackerClient {
	baseURL := os.Getenv("TEST_TRACKER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	token := os.Getenv("TEST_API_TOKEN")
	if token == "" {
		token = "dev-token-12345"
	}

	return &TrackerClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do sends a request and decodes the body into out when out is non-nil
func (tc *TrackerClient) do(method, path string, body, out interface{}, headers map[string]string) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+tc.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (tc *TrackerClient) Create(req ApplicationRequest) (*Application, error) {
	var app Application
	status, err := tc.do(http.MethodPost, "/api/v1/applications", req, &app, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status: %d", status)
	}
	return &app, nil
}

func (tc *TrackerClient) Get(id string) (*Application, int, error) {
	var app Application
	status, err := tc.do(http.MethodGet, "/api/v1/applications/"+id, nil, &app, nil)
	return &app, status, err
}

func (tc *TrackerClient) Search(query string) (*ListResponse, error) {
	var list ListResponse
	status, err := tc.do(http.MethodGet, "/api/v1/applications?q="+url.QueryEscape(query), nil, &list, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", status)
	}
	return &list, nil
}

func (tc *TrackerClient) Stats() (*Stats, error) {
	var stats Stats
	if _, err := tc.do(http.MethodGet, "/api/v1/stats", nil, &stats, nil); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (tc *TrackerClient) Delete(id string, confirm bool) (int, error) {
	headers := map[string]string{}
	if confirm {
		headers["X-Confirm-Delete"] = "true"
	}
	return tc.do(http.MethodDelete, "/api/v1/applications/"+id, nil, nil, headers)
}

// SetupSuite initializes the test suite
func (suite *TestSuite) SetupSuite() {
	suite.T().Log("Setting up integration test suite...")

	suite.tracker = newTrackerClient()
	suite.runID = fmt.Sprintf("run-%d", time.Now().UnixNano())

	// The object store check only runs against a minio backed tracker
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		return
	}

	u, err := url.Parse(endpoint)
	require.NoError(suite.T(), err, "Invalid TEST_MINIO_ENDPOINT")

	accessKey := os.Getenv("TEST_MINIO_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "testminio"
	}

	secretKey := os.Getenv("TEST_MINIO_SECRET_KEY")
	if secretKey == "" {
		secretKey = "testminio123"
	}

	minioClient, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: u.Scheme == "https",
	})
	require.NoError(suite.T(), err, "Failed to create MinIO client")
	suite.minioClient = minioClient

	suite.bucket = os.Getenv("TEST_MINIO_BUCKET")
	if suite.bucket == "" {
		suite.bucket = "jobtracker"
	}
	suite.objectName = path.Join(strings.Trim(os.Getenv("TEST_MINIO_PREFIX"), "/"), "jobApplications.json")
}

// SetupTest closes any form left open by a previous test
func (suite *TestSuite) SetupTest() {
	_, err := suite.tracker.do(http.MethodPost, "/api/v1/form/cancel", nil, nil, nil)
	require.NoError(suite.T(), err)
}

func (suite *TestSuite) request(company string) ApplicationRequest {
	return ApplicationRequest{
		Company:     company + " " + suite.runID,
		Title:       "Backend Engineer",
		Location:    "Remote",
		DateApplied: "2024-03-01",
	}
}

// TestApplicationLifecycle creates, edits, finds and deletes one application
func (suite *TestSuite) TestApplicationLifecycle() {
	t := suite.T()

	before, err := suite.tracker.Stats()
	require.NoError(t, err)

	app, err := suite.tracker.Create(suite.request("Initech"))
	require.NoError(t, err)
	require.NotEmpty(t, app.ID)
	assert.Equal(t, "applied", app.Status, "status defaults to applied")

	after, err := suite.tracker.Stats()
	require.NoError(t, err)
	assert.Equal(t, before.Total+1, after.Total)
	assert.Equal(t, before.Applied+1, after.Applied)

	update := suite.request("Initech")
	update.Status = "interviewing"
	status, err := suite.tracker.do(http.MethodPut, "/api/v1/applications/"+app.ID, update, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	list, err := suite.tracker.Search("initech " + suite.runID)
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "interviewing", list.Applications[0].Status)

	status, err = suite.tracker.Delete(app.ID, false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, status, "unconfirmed delete is refused")

	_, status, err = suite.tracker.Get(app.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	status, err = suite.tracker.Delete(app.ID, true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	_, status, err = suite.tracker.Get(app.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

// TestFormWorkflow drives the add and edit form
func (suite *TestSuite) TestFormWorkflow() {
	t := suite.T()

	var state FormState
	status, err := suite.tracker.do(http.MethodPost, "/api/v1/form/open", nil, &state, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "adding", state.Mode)
	require.NotNil(t, state.Draft)
	assert.Equal(t, "applied", state.Draft.Status)

	var created Application
	status, err = suite.tracker.do(http.MethodPost, "/api/v1/form/submit", suite.request("Umbrella"), &created, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	status, err = suite.tracker.do(http.MethodPost, "/api/v1/form/open", map[string]string{"id": created.ID}, &state, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "editing", state.Mode)
	require.NotNil(t, state.Target)
	assert.Equal(t, created.ID, state.Target.ID)

	edit := suite.request("Umbrella")
	edit.Status = "offer"
	var edited Application
	status, err = suite.tracker.do(http.MethodPost, "/api/v1/form/submit", edit, &edited, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, edited.ID, "editing keeps the id")
	assert.Equal(t, "offer", edited.Status)

	status, err = suite.tracker.do(http.MethodPost, "/api/v1/form/submit", edit, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, status, "form is closed after submit")

	_, err = suite.tracker.Delete(created.ID, true)
	require.NoError(t, err)
}

// TestSnapshotInObjectStore verifies a created record reaches the minio slot
func (suite *TestSuite) TestSnapshotInObjectStore() {
	if suite.minioClient == nil {
		suite.T().Skip("TEST_MINIO_ENDPOINT not set")
	}
	t := suite.T()

	app, err := suite.tracker.Create(suite.request("Hooli"))
	require.NoError(t, err)
	defer func() { _, _ = suite.tracker.Delete(app.ID, true) }()

	obj, err := suite.minioClient.GetObject(context.Background(), suite.bucket, suite.objectName, minio.GetObjectOptions{})
	require.NoError(t, err)
	defer obj.Close()

	var snapshot []Application
	require.NoError(t, json.NewDecoder(obj).Decode(&snapshot))
	require.NotEmpty(t, snapshot)
	assert.Equal(t, app.ID, snapshot[0].ID, "new records are stored first")
}

// TestMain sets up the integration test environment
func TestMain(m *testing.M) {
	// Wait for the tracker to be ready
	if err := waitForService("tracker", newTrackerClient().baseURL+"/health", 60*time.Second); err != nil {
		fmt.Printf("Failed to wait for services: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// waitForService waits for a specific service to be ready
func waitForService(name, url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 5 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s", name)
		case <-ticker.C:
			resp, err := client.Get(url)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					fmt.Printf("%s is ready\n", name)
					return nil
				}
			}
		}
	}
}

// Run the test suite
func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
