package models

import "time"

// ScheduleEntry is one committed hour of class. Entries are hard-deleted.
type ScheduleEntry struct {
	ID        string    `db:"id" json:"id"`
	CohortID  string    `db:"cohort_id" json:"cohort_id"`
	ModuleID  string    `db:"module_id" json:"module_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	Hour      time.Time `db:"hour_ts" json:"hour"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleEntryDetail adds display names to an entry.
type ScheduleEntryDetail struct {
	ScheduleEntry
	ModuleName  string `db:"module_name" json:"module_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	RoomName    string `db:"room_name" json:"room_name"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// ScheduleEntryFilter narrows entry listings to [Start, End) and optional resources.
// A zero PageSize lists every matching entry.
type ScheduleEntryFilter struct {
	Start     time.Time
	End       time.Time
	CohortID  string
	TeacherID string
	ModuleID  string
	RoomID    string
	Page      int
	PageSize  int
}
