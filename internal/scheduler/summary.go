package scheduler

import (
	"sort"

	"github.com/samber/lo"
)

// topOffenders caps the entity lists in a ConflictSummary.
const topOffenders = 5

// ConflictSummary aggregates a schedule's conflicts and unplaced sections.
type ConflictSummary struct {
	Total       int                  `json:"total"`
	BySeverity  map[Severity]int     `json:"bySeverity"`
	ByKind      map[ConflictKind]int `json:"byKind"`
	Sections    []EntityConflicts    `json:"sections"`
	Instructors []EntityConflicts    `json:"instructors"`
	Rooms       []EntityConflicts    `json:"rooms"`
	Suggestions []string             `json:"suggestions"`
}

// EntityConflicts counts the conflicts an entity takes part in.
type EntityConflicts struct {
	ID        string `json:"id"`
	Conflicts int    `json:"conflicts"`
}

// PreferenceViolation is a soft miss: the section sits in a slot its
// instructor likes less than the best window they declared.
type PreferenceViolation struct {
	SectionID    string   `json:"sectionId"`
	InstructorID string   `json:"instructorId"`
	Label        string   `json:"label"`
	Preference   float64  `json:"preference"`
	Best         float64  `json:"best"`
	Severity     Severity `json:"severity"`
}

// Improvement compares an optimizer run's output with its input.
type Improvement struct {
	FeasibleBefore int     `json:"feasibleBefore"`
	FeasibleAfter  int     `json:"feasibleAfter"`
	FeasibleGained int     `json:"feasibleGained"`
	ScoreBefore    float64 `json:"scoreBefore"`
	ScoreAfter     float64 `json:"scoreAfter"`
	ScoreDelta     float64 `json:"scoreDelta"`
	Before         Quality `json:"before"`
	After          Quality `json:"after"`
}

// summarize counts conflicts by severity, kind and entity. Suggestions cover
// the kinds seen in conflicts and in the reasons sections stayed unplaced.
func summarize(conflicts []Conflict, unassigned []UnassignedSection) ConflictSummary {
	sum := ConflictSummary{
		Total:      len(conflicts),
		BySeverity: map[Severity]int{SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0},
		ByKind:     map[ConflictKind]int{},
	}
	sections := map[string]int{}
	instructors := map[string]int{}
	rooms := map[string]int{}
	var kinds ConflictSet
	for _, c := range conflicts {
		sum.BySeverity[c.Severity]++
		sum.ByKind[c.Kind]++
		kinds = kinds.Add(c.Kind)
		for _, id := range c.Sections {
			sections[id]++
		}
		if c.InstructorID != "" {
			instructors[c.InstructorID]++
		}
		if c.RoomID != "" {
			rooms[c.RoomID]++
		}
	}
	for _, u := range unassigned {
		for _, k := range u.Reasons {
			kinds = kinds.Add(k)
		}
	}

	sum.Sections = rank(sections)
	sum.Instructors = rank(instructors)
	sum.Rooms = rank(rooms)
	sum.Suggestions = lo.Map(kinds.Kinds(), func(k ConflictKind, _ int) string { return k.Suggestion() })
	return sum
}

// rank orders counts highest first, then by id, keeping the top offenders.
func rank(counts map[string]int) []EntityConflicts {
	out := lo.MapToSlice(counts, func(id string, n int) EntityConflicts {
		return EntityConflicts{ID: id, Conflicts: n}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Conflicts != out[j].Conflicts {
			return out[i].Conflicts > out[j].Conflicts
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topOffenders {
		out = out[:topOffenders]
	}
	return out
}

// preferenceViolations lists placed sections whose instructor declared
// availability and got a slot below their best window.
func preferenceViolations(s *Schedule) []PreferenceViolation {
	cat := s.cat
	out := []PreferenceViolation{}
	for _, a := range s.Assignments() {
		sec := cat.sectionIndex[a.SectionID]
		c, _ := s.placementOf(sec)
		windows := cat.instructors[c.instr].Availability
		if len(windows) == 0 {
			continue
		}
		best := lo.MaxBy(windows, func(x, y Window) bool { return x.Preference > y.Preference }).Preference
		pref := cat.preference(sec, c)
		if pref >= best-scoreEpsilon {
			continue
		}
		out = append(out, PreferenceViolation{
			SectionID:    a.SectionID,
			InstructorID: a.InstructorID,
			Label:        cat.grid.Label(a.Slot),
			Preference:   pref,
			Best:         best,
			Severity:     SeverityLow,
		})
	}
	return out
}

func improvement(s *Schedule, after Quality, feasible int) *Improvement {
	if !s.optimized {
		return nil
	}
	return &Improvement{
		FeasibleBefore: s.stats.InputFeasible,
		FeasibleAfter:  feasible,
		FeasibleGained: feasible - s.stats.InputFeasible,
		ScoreBefore:    s.input.Score,
		ScoreAfter:     after.Score,
		ScoreDelta:     after.Score - s.input.Score,
		Before:         s.input,
		After:          after,
	}
}
