package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/internal/models"
	"github.com/noah-isme/turma-scheduler/internal/service"
	"github.com/noah-isme/turma-scheduler/pkg/response"
)

type bookingService interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (*dto.BookingResult, error)
	Update(ctx context.Context, id string, req dto.UpdateBookingRequest) (*dto.BookingResult, error)
	Delete(ctx context.Context, id string) error
	ListPage(ctx context.Context, query dto.BookingQuery) ([]dto.BookingEntry, *models.Pagination, error)
}

type timetableExporter interface {
	Export(ctx context.Context, query dto.BookingQuery, format string) (*service.ExportFile, error)
}

// BookingHandler exposes schedule entry mutations and listings.
type BookingHandler struct {
	bookings bookingService
	exporter timetableExporter
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(bookings bookingService, exporter timetableExporter) *BookingHandler {
	return &BookingHandler{bookings: bookings, exporter: exporter}
}

// Create godoc
// @Summary Book a cohort, teacher and room for a window of hours
// @Description Every hour in [start, end) is committed or none is.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope "CONFLICT, TIER_VIOLATION or OUT_OF_HOURS"
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req dto.CreateBookingRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	result, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Move one booked hour to another teacher, room or hour
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.UpdateBookingRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [put]
func (h *BookingHandler) Update(c *gin.Context) {
	var req dto.UpdateBookingRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	result, err := h.bookings.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete one booked hour
// @Tags Bookings
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.bookings.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id, "deleted": true}, nil)
}

// List godoc
// @Summary List booked hours
// @Tags Bookings
// @Produce json
// @Param start query string true "Window start"
// @Param end query string true "Window end (exclusive)"
// @Param cohortId query string false "Cohort ID"
// @Param teacherId query string false "Teacher ID"
// @Param moduleId query string false "Module ID"
// @Param roomId query string false "Room ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size (max 500)"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var query dto.BookingQuery
	if !bindQuery(c, &query, "invalid booking query") {
		return
	}
	entries, pagination, err := h.bookings.ListPage(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Export godoc
// @Summary Download booked hours as a timetable
// @Tags Bookings
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param start query string true "Window start"
// @Param end query string true "Window end (exclusive)"
// @Param cohortId query string false "Cohort ID"
// @Param teacherId query string false "Teacher ID"
// @Success 200 {file} file
// @Failure 422 {object} response.Envelope
// @Router /bookings/export [get]
func (h *BookingHandler) Export(c *gin.Context) {
	var query dto.BookingQuery
	if !bindQuery(c, &query, "invalid booking query") {
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), query, c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}
