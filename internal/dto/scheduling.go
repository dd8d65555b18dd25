package dto

// SetAvailabilityRequest upserts a single teacher hour.
type SetAvailabilityRequest struct {
	TeacherID string `json:"teacherId" validate:"required,max=64"`
	Hour      string `json:"hour" validate:"required"`
	Available *bool  `json:"available" validate:"required"`
}

// AvailabilityQuery lists stored availability for [Start, End).
type AvailabilityQuery struct {
	TeacherID string `form:"teacherId" json:"teacherId" validate:"required,max=64"`
	Start     string `form:"start" json:"start" validate:"required"`
	End       string `form:"end" json:"end" validate:"required"`
}

// AvailabilitySlot is one stored hour. Hours without a slot are omitted.
type AvailabilitySlot struct {
	Hour      string `json:"hour"`
	Available bool   `json:"available"`
}

// SuggestionQuery requests ranked candidates for a cohort window.
type SuggestionQuery struct {
	CohortID string `form:"cohortId" json:"cohortId" validate:"required,max=64"`
	Start    string `form:"start" json:"start" validate:"required"`
	End      string `form:"end" json:"end" validate:"required"`
}

// Suggestion is a (teacher, module) pair able to fill the requested window.
type Suggestion struct {
	TeacherID           string `json:"teacherId"`
	TeacherName         string `json:"teacherName"`
	ModuleID            string `json:"moduleId"`
	ModuleName          string `json:"moduleName"`
	TierIndex           int    `json:"tierIndex"`
	HoursCompleted      int    `json:"hoursCompleted"`
	TotalDuration       int    `json:"totalDuration"`
	RemainingToSchedule int    `json:"remainingToSchedule"`
}

// CreateBookingRequest reserves teacher, room and cohort for every hour in [Start, End).
type CreateBookingRequest struct {
	CohortID  string `json:"cohortId" validate:"required,max=64"`
	ModuleID  string `json:"moduleId" validate:"required,max=64"`
	TeacherID string `json:"teacherId" validate:"required,max=64"`
	RoomID    string `json:"roomId" validate:"required,max=64"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
}

// UpdateBookingRequest moves one entry. Omitted fields keep their current value.
// CohortID and ModuleID are accepted for symmetry with create but must match the entry.
type UpdateBookingRequest struct {
	CohortID  *string `json:"cohortId" validate:"omitempty,max=64"`
	ModuleID  *string `json:"moduleId" validate:"omitempty,max=64"`
	TeacherID *string `json:"teacherId" validate:"omitempty,min=1,max=64"`
	RoomID    *string `json:"roomId" validate:"omitempty,min=1,max=64"`
	Start     *string `json:"start"`
	End       *string `json:"end"`
}

// BookingQuery filters committed entries.
type BookingQuery struct {
	Start     string `form:"start" json:"start" validate:"required"`
	End       string `form:"end" json:"end" validate:"required"`
	CohortID  string `form:"cohortId" json:"cohortId" validate:"omitempty,max=64"`
	TeacherID string `form:"teacherId" json:"teacherId" validate:"omitempty,max=64"`
	ModuleID  string `form:"moduleId" json:"moduleId" validate:"omitempty,max=64"`
	RoomID    string `form:"roomId" json:"roomId" validate:"omitempty,max=64"`
	Page      int    `form:"page" json:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" json:"pageSize" validate:"omitempty,min=1,max=500"`
}

// BookingEntry is a committed hour with display names.
type BookingEntry struct {
	ID          string `json:"id"`
	CohortID    string `json:"cohortId"`
	CourseName  string `json:"courseName,omitempty"`
	ModuleID    string `json:"moduleId"`
	ModuleName  string `json:"moduleName,omitempty"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName,omitempty"`
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName,omitempty"`
	Hour        string `json:"hour"`
}

// BookingResult is returned on a successful create or update.
type BookingResult struct {
	Entries []BookingEntry `json:"entries"`
}

// ProgressQuery selects a cohort and optionally a single module.
type ProgressQuery struct {
	CohortID string `form:"cohortId" json:"cohortId" validate:"required,max=64"`
	ModuleID string `form:"moduleId" json:"moduleId" validate:"omitempty,max=64"`
}

// ModuleProgress reports planned, taught and owed hours for one module.
type ModuleProgress struct {
	ModuleID            string `json:"moduleId"`
	ModuleName          string `json:"moduleName"`
	TierIndex           int    `json:"tierIndex"`
	TargetDuration      int    `json:"targetDuration"`
	TotalScheduled      int    `json:"totalScheduled"`
	HoursTaught         int    `json:"hoursTaught"`
	RemainingToSchedule int    `json:"remainingToSchedule"`
	RemainingToTeach    int    `json:"remainingToTeach"`
}

// CohortProgress is the full plan of a cohort with its current tier.
type CohortProgress struct {
	CohortID    string           `json:"cohortId"`
	CurrentTier *int             `json:"currentTier"`
	Modules     []ModuleProgress `json:"modules"`
}
