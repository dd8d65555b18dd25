package models

import "time"

// Teacher is the read-only roster projection used for names and eligibility.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Active   bool   `db:"active" json:"active"`
}

// Room is a bookable classroom. Rooms are soft-deleted.
type Room struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	HasPCs      bool   `db:"has_pcs" json:"has_pcs"`
	HasWorkshop bool   `db:"has_workshop" json:"has_workshop"`
	Deleted     bool   `db:"deleted" json:"deleted"`
}

// Cohort ("turma") is a dated group of students following one course.
type Cohort struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	CourseName string    `db:"course_name" json:"course_name"`
	DateStart  time.Time `db:"date_start" json:"date_start"`
	DateEnd    time.Time `db:"date_end" json:"date_end"`
	Deleted    bool      `db:"deleted" json:"deleted"`
}

// QualifiedTeacher is a qualification joined with the teacher's display name.
type QualifiedTeacher struct {
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	ModuleID    string `db:"module_id" json:"module_id"`
}
