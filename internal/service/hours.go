package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/turma-scheduler/pkg/config"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

// HourLayout is the zone-less ISO-8601 form used on the wire.
const HourLayout = "2006-01-02T15:04:05"

var hourLayouts = []string{HourLayout, "2006-01-02T15:04", time.RFC3339}

// SchedulingWindow parses requested hours and enforces the daily operating window.
type SchedulingWindow struct {
	loc       *time.Location
	openHour  int
	closeHour int
	maxHours  int
}

// NewSchedulingWindow builds a window from configuration. Zero values fall back to 08:00-22:00.
func NewSchedulingWindow(cfg config.SchedulingConfig) *SchedulingWindow {
	w := &SchedulingWindow{
		loc:       cfg.Location(),
		openHour:  cfg.OpenHour,
		closeHour: cfg.CloseHour,
		maxHours:  cfg.MaxBookingHours,
	}
	if w.closeHour <= w.openHour {
		w.openHour, w.closeHour = 8, 22
	}
	if w.maxHours <= 0 {
		w.maxHours = w.closeHour - w.openHour
	}
	return w
}

// Location returns the zone hours are interpreted in.
func (w *SchedulingWindow) Location() *time.Location {
	return w.loc
}

// ParseHour reads an hour-aligned timestamp. Zone-less values are taken in the scheduling zone.
func (w *SchedulingWindow) ParseHour(raw string) (time.Time, error) {
	var (
		parsed time.Time
		err    error
	)
	for _, layout := range hourLayouts {
		parsed, err = time.ParseInLocation(layout, raw, w.loc)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid timestamp %q", raw))
	}
	local := parsed.In(w.loc)
	if local.Minute() != 0 || local.Second() != 0 || local.Nanosecond() != 0 {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("timestamp %q is not aligned to the hour", raw))
	}
	return parsed.UTC(), nil
}

// ParseRange parses [start, end) and requires end to be after start.
func (w *SchedulingWindow) ParseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := w.ParseHour(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := w.ParseHour(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	return start, end, nil
}

// Hours expands a booking window into its hour starts.
func (w *SchedulingWindow) Hours(start, end time.Time) ([]time.Time, error) {
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	count := int(end.Sub(start) / time.Hour)
	if count > w.maxHours {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("a booking may span at most %d hours", w.maxHours))
	}
	hours := make([]time.Time, 0, count)
	for h := start; h.Before(end); h = h.Add(time.Hour) {
		hours = append(hours, h)
	}
	return hours, nil
}

// CheckSpan returns OutOfHours when [start, end) leaves the operating window. Only the bounds are
// inspected, so it is safe on ranges of any length and runs before Hours applies its cap.
func (w *SchedulingWindow) CheckSpan(start, end time.Time) error {
	if !w.Contains(start) {
		return w.outOfHours(start)
	}
	local := start.In(w.loc)
	closing := time.Date(local.Year(), local.Month(), local.Day(), w.closeHour, 0, 0, 0, w.loc)
	if end.After(closing) {
		return w.outOfHours(closing)
	}
	return nil
}

// Contains reports whether the hour starts inside [open, close) local time.
func (w *SchedulingWindow) Contains(hour time.Time) bool {
	h := hour.In(w.loc).Hour()
	return h >= w.openHour && h < w.closeHour
}

// CheckOperating returns OutOfHours for the first hour outside the window.
func (w *SchedulingWindow) CheckOperating(hours []time.Time) error {
	for _, hour := range hours {
		if !w.Contains(hour) {
			return w.outOfHours(hour)
		}
	}
	return nil
}

func (w *SchedulingWindow) outOfHours(hour time.Time) error {
	return appErrors.Clone(appErrors.ErrOutOfHours, fmt.Sprintf("%s is outside operating hours %02d:00-%02d:00", w.Format(hour), w.openHour, w.closeHour))
}

// Format renders an hour in the scheduling zone without offset.
func (w *SchedulingWindow) Format(hour time.Time) string {
	return hour.In(w.loc).Format(HourLayout)
}

func sortedHours(hours []time.Time) []time.Time {
	out := append([]time.Time(nil), hours...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
