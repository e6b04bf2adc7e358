package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ConflictKind names a violated hard constraint.
type ConflictKind uint8

// Hard constraint kinds.
const (
	RoomDoubleBooked ConflictKind = iota
	InstructorDoubleBooked
	CohortOverlap
	CapacityExceeded
	EquipmentMissing
	QualificationMismatch
	LoadExceeded
	RoomKindMismatch
	InstructorUnavailable
	conflictKindCount
)

var conflictKindNames = [conflictKindCount]string{
	RoomDoubleBooked:       "ROOM_DOUBLE_BOOKED",
	InstructorDoubleBooked: "INSTRUCTOR_DOUBLE_BOOKED",
	CohortOverlap:          "COHORT_OVERLAP",
	CapacityExceeded:       "CAPACITY_EXCEEDED",
	EquipmentMissing:       "EQUIPMENT_MISSING",
	QualificationMismatch:  "QUALIFICATION_MISMATCH",
	LoadExceeded:           "LOAD_EXCEEDED",
	RoomKindMismatch:       "ROOM_KIND_MISMATCH",
	InstructorUnavailable:  "INSTRUCTOR_UNAVAILABLE",
}

func (k ConflictKind) String() string {
	if k < conflictKindCount {
		return conflictKindNames[k]
	}
	return fmt.Sprintf("CONFLICT_%d", uint8(k))
}

// MarshalText encodes the kind by name.
func (k ConflictKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ConflictKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseConflictKind(string(text))
	if !ok {
		return fmt.Errorf("unknown conflict kind %q", string(text))
	}
	*k = parsed
	return nil
}

// ParseConflictKind maps a kind name back to its value.
func ParseConflictKind(name string) (ConflictKind, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, candidate := range conflictKindNames {
		if candidate == name {
			return ConflictKind(i), true
		}
	}
	return 0, false
}

// Severity grades how disruptive a conflict is.
type Severity string

// Severity levels.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Severity classifies the kind: double bookings are high, resource fit medium.
func (k ConflictKind) Severity() Severity {
	switch k {
	case RoomDoubleBooked, InstructorDoubleBooked, CohortOverlap:
		return SeverityHigh
	case CapacityExceeded, EquipmentMissing, RoomKindMismatch:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

var conflictSuggestions = [conflictKindCount]string{
	RoomDoubleBooked:       "Add rooms or spread sections across more time slots",
	InstructorDoubleBooked: "Review instructor assignments or add qualified instructors",
	CohortOverlap:          "Move overlapping cohort sections apart or split the cohort",
	CapacityExceeded:       "Move large sections to bigger rooms or split them",
	EquipmentMissing:       "Install the required equipment or move sections to equipped rooms",
	QualificationMismatch:  "Assign qualified instructors or extend instructor qualifications",
	LoadExceeded:           "Redistribute teaching load or raise the instructor's maximum load",
	RoomKindMismatch:       "Convert rooms to the required kind or relax the room kind requirement",
	InstructorUnavailable:  "Widen instructor availability or assign an available instructor",
}

// Suggestion returns a resolution hint for the kind.
func (k ConflictKind) Suggestion() string {
	if k < conflictKindCount {
		return conflictSuggestions[k]
	}
	return ""
}

// ConflictSet is a set of conflict kinds. The zero value is empty.
type ConflictSet uint16

// Has reports membership.
func (s ConflictSet) Has(k ConflictKind) bool { return s&(1<<k) != 0 }

// Add returns the set with k included.
func (s ConflictSet) Add(k ConflictKind) ConflictSet { return s | 1<<k }

// Empty reports whether the set has no kinds, i.e. the candidate is feasible.
func (s ConflictSet) Empty() bool { return s == 0 }

// Kinds lists the members in declaration order.
func (s ConflictSet) Kinds() []ConflictKind {
	var out []ConflictKind
	for k := ConflictKind(0); k < conflictKindCount; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s ConflictSet) String() string {
	return "{" + strings.Join(lo.Map(s.Kinds(), func(k ConflictKind, _ int) string { return k.String() }), ",") + "}"
}

// Check reports every hard constraint the assignment would violate if written
// into s. The section's own current placement is ignored. Unknown ids are an
// error.
func Check(s *Schedule, a Assignment) (ConflictSet, error) {
	sec, c, err := s.cat.resolve(a)
	if err != nil {
		return 0, err
	}
	return check(s, sec, c), nil
}

func check(s *Schedule, sec int, c candidate) ConflictSet {
	return checkStatic(s.cat, sec, c) | checkDynamic(s, sec, c)
}

func checkStatic(cat *Catalog, sec int, c candidate) ConflictSet {
	var set ConflictSet
	room := cat.rooms[c.room]
	if room.Capacity < cat.need[sec] {
		set = set.Add(CapacityExceeded)
	}
	if !lo.Every(room.Equipment, cat.sections[sec].Equipment) {
		set = set.Add(EquipmentMissing)
	}
	if len(cat.roomKinds[sec]) > 0 && !lo.Contains(cat.roomKinds[sec], room.Kind) {
		set = set.Add(RoomKindMismatch)
	}
	if !cat.instructorQualified(sec, c.instr) {
		set = set.Add(QualificationMismatch)
	}
	if _, ok := cat.slotPreference(c.instr, c.slot); !ok {
		set = set.Add(InstructorUnavailable)
	}
	return set
}

// checkDynamic evaluates only the constraints that depend on other placements.
// Static candidates already satisfy the rest.
func checkDynamic(s *Schedule, sec int, c candidate) ConflictSet {
	var set ConflictSet
	if s.overlapsAny(s.byRoom[c.room], sec, c.slot) {
		set = set.Add(RoomDoubleBooked)
	}
	if s.overlapsAny(s.byInstr[c.instr], sec, c.slot) {
		set = set.Add(InstructorDoubleBooked)
	}
	for _, cohort := range s.cat.sectionCohorts[sec] {
		if s.overlapsAny(s.byCohort[cohort], sec, c.slot) {
			set = set.Add(CohortOverlap)
			break
		}
	}
	if limit := s.cat.instructors[c.instr].MaxLoad; limit > 0 {
		load := s.load[c.instr]
		if p := s.places[sec]; p.set && p.instr == c.instr {
			load -= s.cat.loadOf(sec, c.instr)
		}
		if load+s.cat.loadOf(sec, c.instr) > limit {
			set = set.Add(LoadExceeded)
		}
	}
	return set
}

func (s *Schedule) overlapsAny(list []int, sec int, slot TimeSlot) bool {
	for _, other := range list {
		if other != sec && s.places[other].slot.Overlaps(slot) {
			return true
		}
	}
	return false
}

// blockers returns the placed sections that make c infeasible through
// room, instructor or cohort overlap.
func (s *Schedule) blockers(sec int, c candidate) []int {
	var out []int
	collect := func(list []int) {
		for _, other := range list {
			if other != sec && s.places[other].slot.Overlaps(c.slot) && !lo.Contains(out, other) {
				out = append(out, other)
			}
		}
	}
	collect(s.byRoom[c.room])
	collect(s.byInstr[c.instr])
	for _, cohort := range s.cat.sectionCohorts[sec] {
		collect(s.byCohort[cohort])
	}
	sort.Ints(out)
	return out
}

// Conflict is one unresolved hard-constraint violation in a schedule.
type Conflict struct {
	Kind         ConflictKind `json:"kind"`
	Severity     Severity     `json:"severity"`
	Sections     []string     `json:"sections"`
	RoomID       string       `json:"roomId,omitempty"`
	InstructorID string       `json:"instructorId,omitempty"`
	CohortID     string       `json:"cohortId,omitempty"`
	Slot         *TimeSlot    `json:"slot,omitempty"`
	Message      string       `json:"message"`
}

// Detect audits the whole schedule and lists every violation once.
func Detect(s *Schedule) []Conflict {
	cat := s.cat
	var out []Conflict
	add := func(kind ConflictKind, secs []int, slot *TimeSlot, format string, args ...any) Conflict {
		ids := lo.Map(secs, func(sec int, _ int) string { return cat.sections[sec].ID })
		sort.Strings(ids)
		return Conflict{Kind: kind, Severity: kind.Severity(), Sections: ids, Slot: slot, Message: fmt.Sprintf(format, args...)}
	}
	pairs := func(list []int, fn func(a, b int)) {
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if s.places[list[i]].slot.Overlaps(s.places[list[j]].slot) {
					fn(list[i], list[j])
				}
			}
		}
	}

	for room, list := range s.byRoom {
		pairs(list, func(a, b int) {
			slot := s.places[a].slot
			conflict := add(RoomDoubleBooked, []int{a, b}, &slot, "room %s double-booked by %s and %s at %s",
				cat.rooms[room].ID, cat.sections[a].ID, cat.sections[b].ID, cat.grid.Label(slot))
			conflict.RoomID = cat.rooms[room].ID
			out = append(out, conflict)
		})
	}
	for instr, list := range s.byInstr {
		pairs(list, func(a, b int) {
			slot := s.places[a].slot
			conflict := add(InstructorDoubleBooked, []int{a, b}, &slot, "instructor %s double-booked by %s and %s at %s",
				cat.instructors[instr].ID, cat.sections[a].ID, cat.sections[b].ID, cat.grid.Label(slot))
			conflict.InstructorID = cat.instructors[instr].ID
			out = append(out, conflict)
		})
	}
	for cohort, list := range s.byCohort {
		pairs(list, func(a, b int) {
			slot := s.places[a].slot
			conflict := add(CohortOverlap, []int{a, b}, &slot, "cohort %s attends both %s and %s at %s",
				cat.cohorts[cohort].ID, cat.sections[a].ID, cat.sections[b].ID, cat.grid.Label(slot))
			conflict.CohortID = cat.cohorts[cohort].ID
			out = append(out, conflict)
		})
	}
	for instr, inst := range cat.instructors {
		if inst.MaxLoad > 0 && s.load[instr] > inst.MaxLoad {
			conflict := add(LoadExceeded, s.byInstr[instr], nil, "instructor %s carries load %d over maximum %d",
				inst.ID, s.load[instr], inst.MaxLoad)
			conflict.InstructorID = inst.ID
			out = append(out, conflict)
		}
	}
	for sec, p := range s.places {
		if !p.set {
			continue
		}
		c := candidate{slot: p.slot, room: p.room, instr: p.instr}
		slot := p.slot
		for _, kind := range checkStatic(cat, sec, c).Kinds() {
			conflict := add(kind, []int{sec}, &slot, "section %s: %s in room %s with instructor %s",
				cat.sections[sec].ID, strings.ToLower(strings.ReplaceAll(kind.String(), "_", " ")), cat.rooms[p.room].ID, cat.instructors[p.instr].ID)
			conflict.RoomID = cat.rooms[p.room].ID
			conflict.InstructorID = cat.instructors[p.instr].ID
			out = append(out, conflict)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return strings.Join(out[i].Sections, ",") < strings.Join(out[j].Sections, ",")
	})
	return out
}
