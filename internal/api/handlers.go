package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rossigee/job-application-tracker/internal/form"
	"github.com/rossigee/job-application-tracker/internal/records"
	"github.com/rossigee/job-application-tracker/internal/tracker"
	"github.com/rossigee/job-application-tracker/internal/view"
	"github.com/rossigee/job-application-tracker/pkg/types"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// ConfirmHeader carries the delete confirmation when the query parameter is not used
const ConfirmHeader = "X-Confirm-Delete"

// Tracker interface for session operations
type Tracker interface {
	List(query, statusFilter string) ([]types.JobApplication, error)
	Get(id string) (types.JobApplication, error)
	Count() int
	Stats() types.Stats
	Add(ctx context.Context, fields types.ApplicationFields) (types.JobApplication, error)
	Update(ctx context.Context, id string, fields types.ApplicationFields) (types.JobApplication, error)
	Delete(ctx context.Context, id string, confirm tracker.Confirmer) (bool, error)
	View() types.ViewResponse
	SetView(state types.ViewUpdate) (types.ViewResponse, error)
	Form() types.FormState
	OpenForm(id string) (types.FormState, error)
	SubmitForm(ctx context.Context, fields types.ApplicationFields) (types.JobApplication, error)
	CancelForm() types.FormState
}

// Handler handles HTTP API requests
type Handler struct {
	tracker   Tracker
	startedAt time.Time
}

// NewHandler creates a new API handler
func NewHandler(t Tracker) *Handler {
	return &Handler{
		tracker:   t,
		startedAt: time.Now(),
	}
}

// SetupRoutes configures the API routes. Handlers passed in middleware guard
// /api/v1 only; health and metrics stay open.
func SetupRoutes(router *gin.Engine, handler *Handler, metricsHandler http.Handler, middleware ...gin.HandlerFunc) {
	api := router.Group("/api/v1", middleware...)
	{
		api.GET("/applications", handler.ListApplications)
		api.POST("/applications", handler.CreateApplication)
		api.GET("/applications/:id", handler.GetApplication)
		api.PUT("/applications/:id", handler.UpdateApplication)
		api.DELETE("/applications/:id", handler.DeleteApplication)

		api.GET("/stats", handler.GetStats)

		api.GET("/view", handler.GetView)
		api.PUT("/view", handler.SetView)

		api.GET("/form", handler.GetForm)
		api.POST("/form/open", handler.OpenForm)
		api.POST("/form/submit", handler.SubmitForm)
		api.POST("/form/cancel", handler.CancelForm)
	}

	router.GET("/health", handler.HealthCheck)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
}

// ListApplications returns applications filtered by the q and status query parameters
func (h *Handler) ListApplications(c *gin.Context) {
	apps, err := h.tracker.List(c.Query("q"), c.DefaultQuery("status", view.StatusAll))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ListResponse{
		Applications: apps,
		Count:        len(apps),
	})
}

// GetApplication returns one application
func (h *Handler) GetApplication(c *gin.Context) {
	app, err := h.tracker.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// CreateApplication adds an application
func (h *Handler) CreateApplication(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	app, err := h.tracker.Add(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// UpdateApplication replaces an application's fields
func (h *Handler) UpdateApplication(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	app, err := h.tracker.Update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// DeleteApplication removes an application once the request confirms it
func (h *Handler) DeleteApplication(c *gin.Context) {
	id := c.Param("id")
	confirmed := isConfirmed(c)

	removed, err := h.tracker.Delete(c.Request.Context(), id, func(types.JobApplication) bool {
		return confirmed
	})
	if errors.Is(err, tracker.ErrDeclined) {
		c.JSON(http.StatusConflict, types.ErrorResponse{
			Error:   "confirmation required",
			Message: "repeat the request with confirm=true or " + ConfirmHeader + ": true",
			Code:    409,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"removed": removed,
	})
}

// GetStats returns aggregate counts
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Stats())
}

// GetView returns the session view
func (h *Handler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.View())
}

// SetView updates the session search, status filter and layout
func (h *Handler) SetView(c *gin.Context) {
	var state types.ViewUpdate
	if err := c.ShouldBindJSON(&state); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
			Code:    400,
		})
		return
	}

	resp, err := h.tracker.SetView(state)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetForm returns the form state
func (h *Handler) GetForm(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Form())
}

// OpenForm opens the form, for editing when the body names an application
func (h *Handler) OpenForm(c *gin.Context) {
	var req types.OpenFormRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid request",
				Message: err.Error(),
				Code:    400,
			})
			return
		}
	}

	state, err := h.tracker.OpenForm(req.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// SubmitForm submits the open form
func (h *Handler) SubmitForm(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	app, err := h.tracker.SubmitForm(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// CancelForm closes the form
func (h *Handler) CancelForm(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.CancelForm())
}

// HealthCheck provides service health information
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Version:      Version,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		Applications: h.tracker.Count(),
	})
}

// bindFields decodes and validates an application body, writing a 400 on failure
func bindFields(c *gin.Context) (types.ApplicationFields, bool) {
	var fields types.ApplicationFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
			Code:    400,
		})
		return types.ApplicationFields{}, false
	}
	return fields, true
}

func isConfirmed(c *gin.Context) bool {
	if v, err := strconv.ParseBool(c.Query("confirm")); err == nil && v {
		return true
	}
	v, err := strconv.ParseBool(c.GetHeader(ConfirmHeader))
	return err == nil && v
}

// respondError maps tracker errors to status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, records.ErrNotFound):
		status, message = http.StatusNotFound, "application not found"
	case errors.Is(err, view.ErrInvalidStatus), errors.Is(err, view.ErrInvalidMode):
		status, message = http.StatusBadRequest, "invalid request"
	case errors.Is(err, form.ErrFormOpen), errors.Is(err, form.ErrFormClosed):
		status, message = http.StatusConflict, "form state conflict"
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}

	c.JSON(status, types.ErrorResponse{
		Error:   message,
		Message: err.Error(),
		Code:    status,
	})
}
