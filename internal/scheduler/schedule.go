package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Assignment places a section at a slot, in a room, with an instructor.
type Assignment struct {
	SectionID    string   `json:"sectionId"`
	Slot         TimeSlot `json:"slot"`
	RoomID       string   `json:"roomId"`
	InstructorID string   `json:"instructorId"`
}

// Status summarises how complete a schedule is.
type Status string

// Schedule statuses. An incomplete schedule reports why it stopped short:
// cancelled, out of budget, or simply partial.
const (
	StatusComplete       Status = "complete"
	StatusPartial        Status = "partial"
	StatusBudgetExceeded Status = "budget_exceeded"
	StatusCancelled      Status = "cancelled"
)

// Stats records the work the engine did on a schedule.
type Stats struct {
	Placed     int  `json:"placed"`
	Steps      int  `json:"steps"`
	Repaired   int  `json:"repaired"`
	Displaced  int  `json:"displaced"`
	Iterations int  `json:"iterations"`
	Sweeps     int  `json:"sweeps"`
	Moves      int  `json:"moves"`
	Converged  bool `json:"converged"`

	// InputScore and InputFeasible describe the schedule the optimizer
	// started from. Repair may trade score for feasibility, so InputScore can
	// exceed the first ScoreTrace entry.
	InputScore    float64       `json:"inputScore"`
	InputFeasible int           `json:"inputFeasible"`
	ScoreTrace    []float64     `json:"scoreTrace,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
}

type placement struct {
	slot  TimeSlot
	room  int
	instr int
	set   bool
}

type undo struct {
	sec  int
	prev placement
}

// Schedule maps sections to assignments. It is always passed explicitly;
// every write goes through assign or unassign so it can be rolled back.
// A Schedule is not safe for concurrent mutation, but concurrent reads
// are fine while no write is in progress.
type Schedule struct {
	cat     *Catalog
	weights Weights

	places   []placement
	byRoom   [][]int
	byInstr  [][]int
	byCohort [][]int
	load     []int
	loadSum  int
	loadSq   int

	journal []undo

	budgetExceeded bool
	cancelled      bool
	stats          Stats

	// optimized is set on optimizer output; input is the quality it started from.
	optimized bool
	input     Quality
}

// NewSchedule returns an empty schedule for the catalog.
func NewSchedule(cat *Catalog) *Schedule {
	return newSchedule(cat, DefaultWeights)
}

func newSchedule(cat *Catalog, weights Weights) *Schedule {
	return &Schedule{
		cat:      cat,
		weights:  weights,
		places:   make([]placement, len(cat.sections)),
		byRoom:   make([][]int, len(cat.rooms)),
		byInstr:  make([][]int, len(cat.instructors)),
		byCohort: make([][]int, len(cat.cohorts)),
		load:     make([]int, len(cat.instructors)),
	}
}

// ScheduleFrom rebuilds a schedule from external assignments. The result may
// contain conflicts; it is meant to be repaired by the optimizer.
func (c *Catalog) ScheduleFrom(assignments []Assignment) (*Schedule, error) {
	s := newSchedule(c, DefaultWeights)
	var issues []string
	seen := make(map[int]bool, len(assignments))
	for _, a := range assignments {
		sec, cand, err := c.resolve(a)
		if err != nil {
			issues = append(issues, err.Error())
			continue
		}
		if seen[sec] {
			issues = append(issues, fmt.Sprintf("section %s assigned twice", a.SectionID))
			continue
		}
		seen[sec] = true
		s.apply(sec, placement{slot: cand.slot, room: cand.room, instr: cand.instr, set: true})
	}
	if len(issues) > 0 {
		return nil, &InputError{Issues: issues}
	}
	return s, nil
}

func (c *Catalog) resolve(a Assignment) (int, candidate, error) {
	sec, ok := c.sectionIndex[a.SectionID]
	if !ok {
		return 0, candidate{}, fmt.Errorf("unknown section %s", a.SectionID)
	}
	room, ok := c.roomIndex[a.RoomID]
	if !ok {
		return 0, candidate{}, fmt.Errorf("section %s: unknown room %s", a.SectionID, a.RoomID)
	}
	instr, ok := c.instructorIndex[a.InstructorID]
	if !ok {
		return 0, candidate{}, fmt.Errorf("section %s: unknown instructor %s", a.SectionID, a.InstructorID)
	}
	slot := a.Slot
	if slot.Duration == 0 {
		slot.Duration = c.sections[sec].Duration
	}
	if slot.Duration != c.sections[sec].Duration {
		return 0, candidate{}, fmt.Errorf("section %s: slot duration %d differs from required %d", a.SectionID, slot.Duration, c.sections[sec].Duration)
	}
	if !c.grid.Contains(slot) {
		return 0, candidate{}, fmt.Errorf("section %s: slot %s/%d+%d is outside the grid", a.SectionID, DayName(slot.Day), slot.Start, slot.Duration)
	}
	return sec, candidate{slot: slot, room: room, instr: instr}, nil
}

// apply writes a placement without journaling.
func (s *Schedule) apply(sec int, next placement) {
	if cur := s.places[sec]; cur.set {
		s.byRoom[cur.room] = remove(s.byRoom[cur.room], sec)
		s.byInstr[cur.instr] = remove(s.byInstr[cur.instr], sec)
		for _, cohort := range s.cat.sectionCohorts[sec] {
			s.byCohort[cohort] = remove(s.byCohort[cohort], sec)
		}
		s.addLoad(cur.instr, -s.cat.loadOf(sec, cur.instr))
	}
	s.places[sec] = next
	if next.set {
		s.byRoom[next.room] = append(s.byRoom[next.room], sec)
		s.byInstr[next.instr] = append(s.byInstr[next.instr], sec)
		for _, cohort := range s.cat.sectionCohorts[sec] {
			s.byCohort[cohort] = append(s.byCohort[cohort], sec)
		}
		s.addLoad(next.instr, s.cat.loadOf(sec, next.instr))
	}
}

func (s *Schedule) addLoad(instr, delta int) {
	before := s.load[instr]
	s.load[instr] += delta
	s.loadSum += delta
	s.loadSq += s.load[instr]*s.load[instr] - before*before
}

func (s *Schedule) assign(sec int, c candidate) {
	s.journal = append(s.journal, undo{sec: sec, prev: s.places[sec]})
	s.apply(sec, placement{slot: c.slot, room: c.room, instr: c.instr, set: true})
}

func (s *Schedule) unassign(sec int) {
	if !s.places[sec].set {
		return
	}
	s.journal = append(s.journal, undo{sec: sec, prev: s.places[sec]})
	s.apply(sec, placement{})
}

func (s *Schedule) mark() int {
	return len(s.journal)
}

// rollback pops undo records until the journal is back at mark.
func (s *Schedule) rollback(mark int) {
	for len(s.journal) > mark {
		last := s.journal[len(s.journal)-1]
		s.journal = s.journal[:len(s.journal)-1]
		s.apply(last.sec, last.prev)
	}
}

// settle discards the journal once changes are final.
func (s *Schedule) settle() {
	s.journal = s.journal[:0]
}

// Clone returns an independent copy of the schedule.
func (s *Schedule) Clone() *Schedule {
	out := &Schedule{
		cat:            s.cat,
		weights:        s.weights,
		places:         append([]placement(nil), s.places...),
		byRoom:         cloneLists(s.byRoom),
		byInstr:        cloneLists(s.byInstr),
		byCohort:       cloneLists(s.byCohort),
		load:           append([]int(nil), s.load...),
		loadSum:        s.loadSum,
		loadSq:         s.loadSq,
		budgetExceeded: s.budgetExceeded,
		cancelled:      s.cancelled,
		stats:          s.stats,
		optimized:      s.optimized,
		input:          s.input,
	}
	out.stats.ScoreTrace = append([]float64(nil), s.stats.ScoreTrace...)
	return out
}

func (s *Schedule) placementOf(sec int) (candidate, bool) {
	p := s.places[sec]
	return candidate{slot: p.slot, room: p.room, instr: p.instr}, p.set
}

// Catalog returns the catalog the schedule was built from.
func (s *Schedule) Catalog() *Catalog { return s.cat }

// Assignment returns the assignment of a section, if any.
func (s *Schedule) Assignment(sectionID string) (Assignment, bool) {
	sec, ok := s.cat.sectionIndex[sectionID]
	if !ok || !s.places[sec].set {
		return Assignment{}, false
	}
	return s.export(sec), true
}

func (s *Schedule) export(sec int) Assignment {
	p := s.places[sec]
	return Assignment{
		SectionID:    s.cat.sections[sec].ID,
		Slot:         p.slot,
		RoomID:       s.cat.rooms[p.room].ID,
		InstructorID: s.cat.instructors[p.instr].ID,
	}
}

// Assignments lists every placed section ordered by slot, room and section.
func (s *Schedule) Assignments() []Assignment {
	out := make([]Assignment, 0, len(s.places))
	for sec, p := range s.places {
		if p.set {
			out = append(out, s.export(sec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot.Before(out[j].Slot)
		}
		if out[i].RoomID != out[j].RoomID {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].SectionID < out[j].SectionID
	})
	return out
}

// Unassigned lists the ids of sections without an assignment.
func (s *Schedule) Unassigned() []string {
	var out []string
	for sec, p := range s.places {
		if !p.set {
			out = append(out, s.cat.sections[sec].ID)
		}
	}
	return out
}

// AssignedCount returns the number of placed sections.
func (s *Schedule) AssignedCount() int {
	return lo.CountBy(s.places, func(p placement) bool { return p.set })
}

// FeasibleCount returns the number of placed sections that violate no hard
// constraint.
func (s *Schedule) FeasibleCount() int {
	count := 0
	for sec, p := range s.places {
		if !p.set {
			continue
		}
		if c, _ := s.placementOf(sec); check(s, sec, c).Empty() {
			count++
		}
	}
	return count
}

func (s *Schedule) conflicted() []int {
	var out []int
	for sec, p := range s.places {
		if !p.set {
			continue
		}
		if c, _ := s.placementOf(sec); !check(s, sec, c).Empty() {
			out = append(out, sec)
		}
	}
	return out
}

// Status is complete when every section is placed without conflict.
// Otherwise cancellation takes precedence over an exhausted budget.
func (s *Schedule) Status() Status {
	switch {
	case s.FeasibleCount() == len(s.places):
		return StatusComplete
	case s.cancelled:
		return StatusCancelled
	case s.budgetExceeded:
		return StatusBudgetExceeded
	default:
		return StatusPartial
	}
}

// BudgetExceeded reports whether the optimizer stopped on its step or time budget.
func (s *Schedule) BudgetExceeded() bool { return s.budgetExceeded }

// Cancelled reports whether the run producing the schedule was cancelled.
func (s *Schedule) Cancelled() bool { return s.cancelled }

// Stats returns the work counters accumulated on the schedule.
func (s *Schedule) Stats() Stats {
	out := s.stats
	out.ScoreTrace = append([]float64(nil), s.stats.ScoreTrace...)
	return out
}

// Weights returns the quality weights the schedule is scored with.
func (s *Schedule) Weights() Weights { return s.weights }

// InstructorLoad returns the current load of an instructor.
func (s *Schedule) InstructorLoad(instructorID string) int {
	instr, ok := s.cat.instructorIndex[instructorID]
	if !ok {
		return 0
	}
	return s.load[instr]
}

func remove(list []int, v int) []int {
	for i, item := range list {
		if item == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func cloneLists(in [][]int) [][]int {
	out := make([][]int, len(in))
	for i, list := range in {
		out[i] = append([]int(nil), list...)
	}
	return out
}
