package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type bookingLister interface {
	List(ctx context.Context, query dto.BookingQuery) ([]dto.BookingEntry, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportFile is a rendered timetable ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders booking listings as printable timetables.
type ExportService struct {
	bookings bookingLister
	csv      tableRenderer
	pdf      tableRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService. nil renderers fall back to the defaults.
func NewExportService(bookings bookingLister, csv, pdf tableRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{bookings: bookings, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Export lists the bookings matching query and renders them in format.
func (s *ExportService) Export(ctx context.Context, query dto.BookingQuery, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, validationReason(ReasonUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}

	entries, err := s.bookings.List(ctx, query)
	if err != nil {
		return nil, err
	}
	table := timetable(query, entries)

	file := &ExportFile{Filename: fmt.Sprintf("timetable_%s.%s", s.now().UTC().Format("20060102T150405"), format)}
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Payload, err = s.pdf.Render(table)
	default:
		file.ContentType = "text/csv"
		file.Payload, err = s.csv.Render(table)
	}
	if err != nil {
		return nil, persistenceError(err, "failed to render timetable")
	}

	s.logger.Info("timetable exported", zap.String("format", format), zap.Int("entries", len(entries)))
	return file, nil
}

func timetable(query dto.BookingQuery, entries []dto.BookingEntry) export.Table {
	table := export.Table{
		Title: fmt.Sprintf("Timetable %s to %s", query.Start, query.End),
		Columns: []export.Column{
			{Header: "Hour", Width: 36},
			{Header: "Course"},
			{Header: "Cohort", Width: 30},
			{Header: "Module"},
			{Header: "Teacher"},
			{Header: "Room", Width: 30},
		},
		Rows: make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		table.Rows = append(table.Rows, []string{
			strings.Replace(e.Hour, "T", " ", 1),
			e.CourseName,
			e.CohortID,
			firstNonEmpty(e.ModuleName, e.ModuleID),
			firstNonEmpty(e.TeacherName, e.TeacherID),
			firstNonEmpty(e.RoomName, e.RoomID),
		})
	}
	return table
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
