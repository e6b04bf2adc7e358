package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// SchedulingTerm carries the weekly grid a term is scheduled on.
type SchedulingTerm struct {
	ID             string        `db:"id" json:"id"`
	Name           string        `db:"name" json:"name"`
	Days           pq.Int64Array `db:"days" json:"days"`
	SlotsPerDay    int           `db:"slots_per_day" json:"slots_per_day"`
	SlotMinutes    int           `db:"slot_minutes" json:"slot_minutes"`
	DayStartMinute int           `db:"day_start_minute" json:"day_start_minute"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Room is a bookable room for a term.
type Room struct {
	ID        string         `db:"id" json:"id"`
	TermID    string         `db:"term_id" json:"term_id"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Kind      string         `db:"kind" json:"kind"`
	Equipment pq.StringArray `db:"equipment" json:"equipment"`
}

// AvailabilityWindow is one entry of an instructor's availability JSON.
type AvailabilityWindow struct {
	Day        int     `json:"day"`
	Start      int     `json:"start"`
	Length     int     `json:"length"`
	Preference float64 `json:"preference"`
}

// Instructor is a teaching resource for a term. Availability holds a JSON
// array of AvailabilityWindow; an empty array means always available.
type Instructor struct {
	ID             string         `db:"id" json:"id"`
	TermID         string         `db:"term_id" json:"term_id"`
	Name           string         `db:"name" json:"name"`
	Qualifications pq.StringArray `db:"qualifications" json:"qualifications"`
	MaxLoad        int            `db:"max_load" json:"max_load"`
	LoadMode       string         `db:"load_mode" json:"load_mode"`
	Availability   types.JSONText `db:"availability" json:"availability"`
}

// Section is a course section awaiting placement.
type Section struct {
	ID            string         `db:"id" json:"id"`
	TermID        string         `db:"term_id" json:"term_id"`
	Course        string         `db:"course" json:"course"`
	Kind          string         `db:"kind" json:"kind"`
	Capacity      int            `db:"capacity" json:"capacity"`
	Duration      int            `db:"duration" json:"duration"`
	Equipment     pq.StringArray `db:"equipment" json:"equipment"`
	Qualification string         `db:"qualification" json:"qualification"`
	RoomKind      string         `db:"room_kind" json:"room_kind"`
	InstructorID  *string        `db:"instructor_id" json:"instructor_id,omitempty"`
}

// Cohort is a student group; SectionIDs is aggregated from cohort_members.
type Cohort struct {
	ID         string         `db:"id" json:"id"`
	TermID     string         `db:"term_id" json:"term_id"`
	Size       int            `db:"size" json:"size"`
	SectionIDs pq.StringArray `db:"section_ids" json:"section_ids"`
}
