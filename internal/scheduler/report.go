package scheduler

import (
	"sort"

	"github.com/samber/lo"
)

// Report is the read-only summary of a schedule handed to export and
// presentation layers.
type Report struct {
	Status             Status              `json:"status"`
	BudgetExceeded     bool                `json:"budgetExceeded"`
	Cancelled          bool                `json:"cancelled"`
	TotalSections      int                 `json:"totalSections"`
	Assigned           int                 `json:"assigned"`
	Unassigned         int                 `json:"unassigned"`
	Feasible           int                 `json:"feasible"`
	Assignments        []ReportAssignment  `json:"assignments"`
	UnassignedSections []UnassignedSection `json:"unassignedSections"`
	Conflicts          []Conflict          `json:"conflicts"`
	Quality            Quality             `json:"quality"`
	Weights            Weights             `json:"weights"`
	Stats              Stats               `json:"stats"`
	Rooms              []RoomUsage         `json:"rooms"`
	Instructors        []InstructorLoad    `json:"instructors"`

	Summary              ConflictSummary       `json:"summary"`
	PreferenceViolations []PreferenceViolation `json:"preferenceViolations"`
	// Improvement is set on optimizer output only.
	Improvement *Improvement `json:"improvement,omitempty"`
}

// ReportAssignment is an assignment enriched for display.
type ReportAssignment struct {
	SectionID    string     `json:"sectionId"`
	Course       string     `json:"course,omitempty"`
	Kind         CourseKind `json:"kind"`
	Day          int        `json:"day"`
	DayName      string     `json:"dayName"`
	Start        int        `json:"start"`
	Duration     int        `json:"duration"`
	StartTime    string     `json:"startTime"`
	EndTime      string     `json:"endTime"`
	Label        string     `json:"label"`
	RoomID       string     `json:"roomId"`
	InstructorID string     `json:"instructorId"`
	Cohorts      []string   `json:"cohorts,omitempty"`
	Preference   float64    `json:"preference"`
}

// UnassignedSection explains why a section has no assignment. Reasons is the
// union of constraints blocking its candidates; it is empty when the run
// stopped before the section could be tried.
type UnassignedSection struct {
	SectionID  string         `json:"sectionId"`
	Course     string         `json:"course,omitempty"`
	Reasons    []ConflictKind `json:"reasons"`
	Candidates int            `json:"candidates"`
}

// RoomUsage reports how much of a room's week is booked.
type RoomUsage struct {
	RoomID      string  `json:"roomId"`
	Capacity    int     `json:"capacity"`
	Sections    int     `json:"sections"`
	UsedUnits   int     `json:"usedUnits"`
	TotalUnits  int     `json:"totalUnits"`
	Utilization float64 `json:"utilization"`
	SeatFill    float64 `json:"seatFill"`
}

// InstructorLoad reports an instructor's load against the maximum.
type InstructorLoad struct {
	InstructorID string `json:"instructorId"`
	Sections     int    `json:"sections"`
	Load         int    `json:"load"`
	MaxLoad      int    `json:"maxLoad"`
}

// BuildReport summarises s without modifying it.
func BuildReport(s *Schedule) Report {
	cat := s.cat
	r := Report{
		Status:         s.Status(),
		BudgetExceeded: s.budgetExceeded,
		Cancelled:      s.cancelled,
		TotalSections:  len(cat.sections),
		Assigned:       s.AssignedCount(),
		Feasible:       s.FeasibleCount(),
		Conflicts:      Detect(s),
		Quality:        s.Quality(),
		Weights:        s.weights,
		Stats:          s.Stats(),
	}
	r.Unassigned = r.TotalSections - r.Assigned
	if r.Conflicts == nil {
		r.Conflicts = []Conflict{}
	}

	r.Assignments = make([]ReportAssignment, 0, r.Assigned)
	for _, a := range s.Assignments() {
		sec := cat.sectionIndex[a.SectionID]
		section := cat.sections[sec]
		c, _ := s.placementOf(sec)
		r.Assignments = append(r.Assignments, ReportAssignment{
			SectionID:    a.SectionID,
			Course:       section.Course,
			Kind:         section.Kind,
			Day:          a.Slot.Day,
			DayName:      DayName(a.Slot.Day),
			Start:        a.Slot.Start,
			Duration:     a.Slot.Duration,
			StartTime:    cat.grid.Clock(a.Slot.Start),
			EndTime:      cat.grid.Clock(a.Slot.End()),
			Label:        cat.grid.Label(a.Slot),
			RoomID:       a.RoomID,
			InstructorID: a.InstructorID,
			Cohorts:      lo.Map(cat.sectionCohorts[sec], func(cohort int, _ int) string { return cat.cohorts[cohort].ID }),
			Preference:   cat.preference(sec, c),
		})
	}

	r.UnassignedSections = []UnassignedSection{}
	for sec, p := range s.places {
		if p.set {
			continue
		}
		var reasons ConflictSet
		cat.candidates[sec].each(func(c candidate) bool {
			set := check(s, sec, c)
			if set.Empty() {
				reasons = 0
				return false
			}
			reasons |= set
			return true
		})
		r.UnassignedSections = append(r.UnassignedSections, UnassignedSection{
			SectionID:  cat.sections[sec].ID,
			Course:     cat.sections[sec].Course,
			Reasons:    lo.Ternary(reasons.Empty(), []ConflictKind{}, reasons.Kinds()),
			Candidates: cat.candidates[sec].count,
		})
	}

	total := cat.grid.Units()
	for room, list := range s.byRoom {
		usage := RoomUsage{RoomID: cat.rooms[room].ID, Capacity: cat.rooms[room].Capacity, Sections: len(list), TotalUnits: total}
		var fill float64
		for _, sec := range list {
			usage.UsedUnits += s.places[sec].slot.Duration
			c, _ := s.placementOf(sec)
			fill += cat.utilization(sec, c)
		}
		if total > 0 {
			usage.Utilization = 100 * float64(usage.UsedUnits) / float64(total)
		}
		if len(list) > 0 {
			usage.SeatFill = fill / float64(len(list))
		}
		r.Rooms = append(r.Rooms, usage)
	}
	for instr, inst := range cat.instructors {
		r.Instructors = append(r.Instructors, InstructorLoad{
			InstructorID: inst.ID,
			Sections:     len(s.byInstr[instr]),
			Load:         s.load[instr],
			MaxLoad:      inst.MaxLoad,
		})
	}
	sort.Slice(r.UnassignedSections, func(i, j int) bool {
		return r.UnassignedSections[i].SectionID < r.UnassignedSections[j].SectionID
	})
	r.Summary = summarize(r.Conflicts, r.UnassignedSections)
	r.PreferenceViolations = preferenceViolations(s)
	r.Improvement = improvement(s, r.Quality, r.Feasible)
	return r
}
