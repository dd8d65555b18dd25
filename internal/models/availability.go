package models

import "time"

// TeacherAvailabilitySlot records whether a teacher can take a class during one hour.
// A missing slot means the hour is unknown and is never bookable.
type TeacherAvailabilitySlot struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Hour      time.Time `db:"hour_ts" json:"hour"`
	Available bool      `db:"available" json:"available"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
