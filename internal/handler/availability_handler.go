package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/pkg/response"
)

type availabilityService interface {
	SetAvailable(ctx context.Context, req dto.SetAvailabilityRequest) (*dto.AvailabilitySlot, error)
	QueryRange(ctx context.Context, query dto.AvailabilityQuery) ([]dto.AvailabilitySlot, error)
}

// AvailabilityHandler exposes per-hour teacher availability.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Set godoc
// @Summary Mark a teacher hour available or unavailable
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.SetAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Set(c *gin.Context) {
	var req dto.SetAvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	if !requireTeacherAccess(c, req.TeacherID) {
		return
	}
	slot, err := h.service.SetAvailable(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// List godoc
// @Summary List stored availability of a teacher
// @Description Hours without a stored slot are omitted and count as unavailable.
// @Tags Availability
// @Produce json
// @Param teacherId query string true "Teacher ID"
// @Param start query string true "Window start, e.g. 2026-02-10T08:00:00"
// @Param end query string true "Window end (exclusive)"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	var query dto.AvailabilityQuery
	if !bindQuery(c, &query, "invalid availability query") {
		return
	}
	if !requireTeacherAccess(c, query.TeacherID) {
		return
	}
	slots, err := h.service.QueryRange(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
