package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleRunStatus represents lifecycle phases for saved schedules.
type ScheduleRunStatus string

const (
	ScheduleRunStatusDraft     ScheduleRunStatus = "DRAFT"
	ScheduleRunStatusPublished ScheduleRunStatus = "PUBLISHED"
	ScheduleRunStatusArchived  ScheduleRunStatus = "ARCHIVED"
)

// ScheduleRun is a versioned, persisted schedule for a term.
type ScheduleRun struct {
	ID        string            `db:"id" json:"id"`
	TermID    string            `db:"term_id" json:"term_id"`
	Version   int               `db:"version" json:"version"`
	Status    ScheduleRunStatus `db:"status" json:"status"`
	Score     float64           `db:"score" json:"score"`
	Meta      types.JSONText    `db:"meta" json:"meta"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// ScheduleRunAssignment is one placed section inside a run.
type ScheduleRunAssignment struct {
	ID           string    `db:"id" json:"id"`
	RunID        string    `db:"run_id" json:"run_id"`
	SectionID    string    `db:"section_id" json:"section_id"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartSlot    int       `db:"start_slot" json:"start_slot"`
	Duration     int       `db:"duration" json:"duration"`
	RoomID       string    `db:"room_id" json:"room_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
