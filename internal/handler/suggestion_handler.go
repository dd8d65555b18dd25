package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/internal/middleware"
	"github.com/noah-isme/turma-scheduler/pkg/response"
)

type suggestionService interface {
	Suggest(ctx context.Context, query dto.SuggestionQuery) ([]dto.Suggestion, bool, error)
}

// SuggestionHandler serves ranked (teacher, module) candidates.
type SuggestionHandler struct {
	service suggestionService
}

// NewSuggestionHandler constructs the handler.
func NewSuggestionHandler(service suggestionService) *SuggestionHandler {
	return &SuggestionHandler{service: service}
}

// List godoc
// @Summary Suggest teachers and modules for a cohort window
// @Tags Suggestions
// @Produce json
// @Param cohortId query string true "Cohort ID"
// @Param start query string true "Window start"
// @Param end query string true "Window end (exclusive)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /suggestions [get]
func (h *SuggestionHandler) List(c *gin.Context) {
	var query dto.SuggestionQuery
	if !bindQuery(c, &query, "invalid suggestion query") {
		return
	}
	items, cacheHit, err := h.service.Suggest(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}
