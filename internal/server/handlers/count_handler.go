package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/service/reconcile"
)

// CountHandler drives the stock count workflow.
type CountHandler struct {
	reconciler *reconcile.Reconciler
}

// NewCountHandler constructs the count handler.
func NewCountHandler(reconciler *reconcile.Reconciler) *CountHandler {
	return &CountHandler{reconciler: reconciler}
}

type startCountRequest struct {
	Location string `json:"location" binding:"required"`
	Type     string `json:"type"`
}

type recordCountRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type sessionResponse struct {
	ID        string              `json:"id"`
	Location  string              `json:"location"`
	Type      models.CountType    `json:"type"`
	StartedAt time.Time           `json:"started_at"`
	State     reconcile.State     `json:"state"`
	Entries   []models.CountEntry `json:"entries"`
}

func newSessionResponse(s *reconcile.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Location:  s.Location,
		Type:      s.Type,
		StartedAt: s.StartedAt,
		State:     s.State(),
		Entries:   s.Entries(),
	}
}

// Start snapshots a location and opens a count.
func (h *CountHandler) Start(c *gin.Context) {
	var req startCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	countType, err := models.ParseCountType(req.Type)
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := h.reconciler.StartSession(req.Location, countType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(session))
}

// Record sets the physical count of one model.
func (h *CountHandler) Record(c *gin.Context) {
	var req recordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.reconciler.RecordPhysicalCount(c.Param("id"), c.Param("model"), *req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	session, err := h.reconciler.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

// Report finalizes the count. Calling it again returns the same report.
func (h *CountHandler) Report(c *gin.Context) {
	report, err := h.reconciler.FinalizeReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Finish closes a reported count.
func (h *CountHandler) Finish(c *gin.Context) {
	if err := h.reconciler.Finish(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Abandon discards a count that is still taking input.
func (h *CountHandler) Abandon(c *gin.Context) {
	if err := h.reconciler.Abandon(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
