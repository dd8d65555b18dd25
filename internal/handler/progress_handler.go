package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/pkg/response"
)

type progressService interface {
	Report(ctx context.Context, query dto.ProgressQuery) (*dto.CohortProgress, error)
}

// ProgressHandler reports curriculum progress of a cohort.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service progressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// Get godoc
// @Summary Curriculum progress of a cohort
// @Tags Progress
// @Produce json
// @Param cohortId query string true "Cohort ID"
// @Param moduleId query string false "Restrict to one module"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress [get]
func (h *ProgressHandler) Get(c *gin.Context) {
	var query dto.ProgressQuery
	if !bindQuery(c, &query, "invalid progress query") {
		return
	}
	report, err := h.service.Report(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
