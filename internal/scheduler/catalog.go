package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// CourseKind identifies the teaching format of a section.
type CourseKind string

// Supported course kinds.
const (
	KindLecture CourseKind = "lecture"
	KindLab     CourseKind = "lab"
	KindSeminar CourseKind = "seminar"
)

// KindRule lists the extra constraints a course kind adds to its sections.
// Rules compose with the generic section requirements rather than replacing them.
type KindRule struct {
	RequireEquipment bool     `json:"requireEquipment,omitempty"`
	RoomKinds        []string `json:"roomKinds,omitempty"`
	MaxEnrollment    int      `json:"maxEnrollment,omitempty"`
}

// DefaultKindRules returns the stock rule set: labs must name their
// equipment and seminars are capped at 30 students.
func DefaultKindRules() map[CourseKind]KindRule {
	return map[CourseKind]KindRule{
		KindLecture: {},
		KindLab:     {RequireEquipment: true},
		KindSeminar: {MaxEnrollment: 30},
	}
}

// LoadMode selects how an instructor's weekly load is counted.
type LoadMode string

// Load counting modes.
const (
	LoadSections LoadMode = "sections"
	LoadUnits    LoadMode = "units"
)

// Room is a teaching space.
type Room struct {
	ID        string   `json:"id"`
	Capacity  int      `json:"capacity"`
	Equipment []string `json:"equipment,omitempty"`
	Kind      string   `json:"kind,omitempty"`
}

// Window is a preference-weighted availability range for an instructor.
type Window struct {
	Day        int     `json:"day"`
	Start      int     `json:"start"`
	Length     int     `json:"length"`
	Preference float64 `json:"preference"`
}

// Instructor teaches sections. An empty availability list means the instructor
// is available in every unit with preference 0. MaxLoad <= 0 means unlimited.
type Instructor struct {
	ID             string   `json:"id"`
	Qualifications []string `json:"qualifications,omitempty"`
	Availability   []Window `json:"availability,omitempty"`
	MaxLoad        int      `json:"maxLoad,omitempty"`
	LoadMode       LoadMode `json:"loadMode,omitempty"`
}

// Cohort is a group of students whose sections must never overlap.
type Cohort struct {
	ID       string   `json:"id"`
	Sections []string `json:"sections,omitempty"`
	Size     int      `json:"size,omitempty"`
}

// Section is the schedulable unit of a course.
type Section struct {
	ID            string     `json:"id"`
	Course        string     `json:"course,omitempty"`
	Kind          CourseKind `json:"kind,omitempty"`
	Capacity      int        `json:"capacity"`
	Equipment     []string   `json:"equipment,omitempty"`
	Duration      int        `json:"duration"`
	Cohorts       []string   `json:"cohorts,omitempty"`
	Qualification string     `json:"qualification,omitempty"`
	RoomKind      string     `json:"roomKind,omitempty"`
	InstructorID  string     `json:"instructorId,omitempty"`
}

// Input is the raw material for a catalog.
type Input struct {
	Grid        Grid                    `json:"grid"`
	Rooms       []Room                  `json:"rooms"`
	Instructors []Instructor            `json:"instructors"`
	Cohorts     []Cohort                `json:"cohorts,omitempty"`
	Sections    []Section               `json:"sections"`
	KindRules   map[CourseKind]KindRule `json:"kindRules,omitempty"`
}

type candidate struct {
	slot  TimeSlot
	room  int
	instr int
}

type availability struct {
	open []bool
	pref []float64
}

// Catalog is the validated, immutable set of entities for one run.
type Catalog struct {
	grid        Grid
	dayPos      map[int]int
	rooms       []Room
	instructors []Instructor
	cohorts     []Cohort
	sections    []Section
	rules       map[CourseKind]KindRule

	roomIndex       map[string]int
	instructorIndex map[string]int
	cohortIndex     map[string]int
	sectionIndex    map[string]int

	need           []int
	roomKinds      [][]string
	sectionCohorts [][]int
	cohortMembers  [][]int
	avail          []availability
	candidates     []candidateSpace
	order          []int
}

// NewCatalog validates the input and indexes every section's statically
// compatible rooms, instructors and start slots. All problems are collected
// into a single *InputError.
func NewCatalog(in Input) (*Catalog, error) {
	c := &Catalog{
		grid:            in.Grid.normalized(),
		rules:           DefaultKindRules(),
		roomIndex:       make(map[string]int, len(in.Rooms)),
		instructorIndex: make(map[string]int, len(in.Instructors)),
		cohortIndex:     make(map[string]int, len(in.Cohorts)),
		sectionIndex:    make(map[string]int, len(in.Sections)),
	}
	for kind, rule := range in.KindRules {
		rule.RoomKinds = normalizeTags(rule.RoomKinds)
		c.rules[CourseKind(normalizeTag(string(kind)))] = rule
	}

	var issues []string
	issues = append(issues, c.grid.validate()...)
	if len(issues) > 0 {
		return nil, &InputError{Issues: issues}
	}
	c.dayPos = make(map[int]int, len(c.grid.Days))
	for i, day := range c.grid.Days {
		c.dayPos[day] = i
	}

	issues = append(issues, c.loadRooms(in.Rooms)...)
	issues = append(issues, c.loadInstructors(in.Instructors)...)
	issues = append(issues, c.loadSections(in.Sections)...)
	issues = append(issues, c.loadCohorts(in.Cohorts)...)
	if len(issues) > 0 {
		return nil, &InputError{Issues: issues}
	}

	issues = append(issues, c.applyKindRules()...)
	if len(issues) > 0 {
		return nil, &InputError{Issues: issues}
	}

	c.buildCandidates()
	for i, sec := range c.sections {
		if c.candidates[i].count == 0 {
			issues = append(issues, c.explainInfeasible(i, sec))
		}
	}
	if len(issues) > 0 {
		return nil, &InputError{Issues: issues}
	}

	c.buildOrder()
	return c, nil
}

func (c *Catalog) loadRooms(rooms []Room) []string {
	var issues []string
	c.rooms = make([]Room, 0, len(rooms))
	for _, room := range rooms {
		room.ID = strings.TrimSpace(room.ID)
		if room.ID == "" {
			issues = append(issues, "room id is required")
			continue
		}
		if room.Capacity < 0 {
			issues = append(issues, fmt.Sprintf("room %s: capacity must be >= 0", room.ID))
		}
		room.Equipment = normalizeTags(room.Equipment)
		room.Kind = normalizeTag(room.Kind)
		c.rooms = append(c.rooms, room)
	}
	sort.Slice(c.rooms, func(i, j int) bool { return c.rooms[i].ID < c.rooms[j].ID })
	for i, room := range c.rooms {
		if _, dup := c.roomIndex[room.ID]; dup {
			issues = append(issues, fmt.Sprintf("room %s defined twice", room.ID))
		}
		c.roomIndex[room.ID] = i
	}
	if len(c.rooms) == 0 {
		issues = append(issues, "at least one room is required")
	}
	return issues
}

func (c *Catalog) loadInstructors(instructors []Instructor) []string {
	var issues []string
	c.instructors = make([]Instructor, 0, len(instructors))
	for _, inst := range instructors {
		inst.ID = strings.TrimSpace(inst.ID)
		if inst.ID == "" {
			issues = append(issues, "instructor id is required")
			continue
		}
		inst.Qualifications = normalizeTags(inst.Qualifications)
		switch inst.LoadMode {
		case "":
			inst.LoadMode = LoadSections
		case LoadSections, LoadUnits:
		default:
			issues = append(issues, fmt.Sprintf("instructor %s: unknown load mode %q", inst.ID, inst.LoadMode))
		}
		for _, w := range inst.Availability {
			if !c.grid.Contains(TimeSlot{Day: w.Day, Start: w.Start, Duration: w.Length}) {
				issues = append(issues, fmt.Sprintf("instructor %s: availability window %s/%d+%d is outside the grid", inst.ID, DayName(w.Day), w.Start, w.Length))
			}
		}
		c.instructors = append(c.instructors, inst)
	}
	sort.Slice(c.instructors, func(i, j int) bool { return c.instructors[i].ID < c.instructors[j].ID })
	c.avail = make([]availability, len(c.instructors))
	for i, inst := range c.instructors {
		if _, dup := c.instructorIndex[inst.ID]; dup {
			issues = append(issues, fmt.Sprintf("instructor %s defined twice", inst.ID))
		}
		c.instructorIndex[inst.ID] = i
		c.avail[i] = c.expandAvailability(inst.Availability)
	}
	if len(c.instructors) == 0 {
		issues = append(issues, "at least one instructor is required")
	}
	return issues
}

func (c *Catalog) expandAvailability(windows []Window) availability {
	if len(windows) == 0 {
		return availability{}
	}
	units := c.grid.Units()
	a := availability{open: make([]bool, units), pref: make([]float64, units)}
	for _, w := range windows {
		pos, ok := c.dayPos[w.Day]
		if !ok {
			continue
		}
		for u := w.Start; u < w.Start+w.Length && u < c.grid.SlotsPerDay; u++ {
			if u < 0 {
				continue
			}
			idx := pos*c.grid.SlotsPerDay + u
			if !a.open[idx] || w.Preference > a.pref[idx] {
				a.pref[idx] = w.Preference
			}
			a.open[idx] = true
		}
	}
	return a
}

func (c *Catalog) loadSections(sections []Section) []string {
	var issues []string
	c.sections = make([]Section, 0, len(sections))
	for _, sec := range sections {
		sec.ID = strings.TrimSpace(sec.ID)
		if sec.ID == "" {
			issues = append(issues, "section id is required")
			continue
		}
		sec.Kind = CourseKind(normalizeTag(string(sec.Kind)))
		if sec.Kind == "" {
			sec.Kind = KindLecture
		}
		if _, ok := c.rules[sec.Kind]; !ok {
			issues = append(issues, fmt.Sprintf("section %s: unknown course kind %q", sec.ID, sec.Kind))
		}
		if sec.Capacity < 0 {
			issues = append(issues, fmt.Sprintf("section %s: capacity must be >= 0", sec.ID))
		}
		if sec.Duration <= 0 || sec.Duration > c.grid.SlotsPerDay {
			issues = append(issues, fmt.Sprintf("section %s: duration %d must be between 1 and %d", sec.ID, sec.Duration, c.grid.SlotsPerDay))
		}
		if sec.InstructorID != "" {
			if _, ok := c.instructorIndex[sec.InstructorID]; !ok {
				issues = append(issues, fmt.Sprintf("section %s: unknown instructor %s", sec.ID, sec.InstructorID))
			}
		}
		cohorts := make([]string, 0, len(sec.Cohorts))
		for _, id := range sec.Cohorts {
			id = strings.TrimSpace(id)
			if id == "" {
				issues = append(issues, fmt.Sprintf("section %s: cohort id is required", sec.ID))
				continue
			}
			cohorts = append(cohorts, id)
		}
		sec.Cohorts = lo.Uniq(cohorts)
		sec.Equipment = normalizeTags(sec.Equipment)
		sec.Qualification = normalizeTag(sec.Qualification)
		sec.RoomKind = normalizeTag(sec.RoomKind)
		c.sections = append(c.sections, sec)
	}
	sort.Slice(c.sections, func(i, j int) bool { return c.sections[i].ID < c.sections[j].ID })
	for i, sec := range c.sections {
		if _, dup := c.sectionIndex[sec.ID]; dup {
			issues = append(issues, fmt.Sprintf("section %s defined twice", sec.ID))
		}
		c.sectionIndex[sec.ID] = i
	}
	return issues
}

func (c *Catalog) loadCohorts(cohorts []Cohort) []string {
	var issues []string
	c.cohorts = make([]Cohort, 0, len(cohorts))
	for _, cohort := range cohorts {
		cohort.ID = strings.TrimSpace(cohort.ID)
		if cohort.ID == "" {
			issues = append(issues, "cohort id is required")
			continue
		}
		if cohort.Size < 0 {
			issues = append(issues, fmt.Sprintf("cohort %s: size must be >= 0", cohort.ID))
		}
		c.cohorts = append(c.cohorts, cohort)
	}
	// Sections may name cohorts the cohort list does not declare.
	for _, sec := range c.sections {
		for _, id := range sec.Cohorts {
			if !lo.ContainsBy(c.cohorts, func(item Cohort) bool { return item.ID == id }) {
				c.cohorts = append(c.cohorts, Cohort{ID: id})
			}
		}
	}
	sort.Slice(c.cohorts, func(i, j int) bool { return c.cohorts[i].ID < c.cohorts[j].ID })

	c.cohortMembers = make([][]int, len(c.cohorts))
	c.sectionCohorts = make([][]int, len(c.sections))
	for i, cohort := range c.cohorts {
		if _, dup := c.cohortIndex[cohort.ID]; dup {
			issues = append(issues, fmt.Sprintf("cohort %s defined twice", cohort.ID))
			continue
		}
		c.cohortIndex[cohort.ID] = i
	}
	join := func(cohort, sec int) {
		if !lo.Contains(c.cohortMembers[cohort], sec) {
			c.cohortMembers[cohort] = append(c.cohortMembers[cohort], sec)
			c.sectionCohorts[sec] = append(c.sectionCohorts[sec], cohort)
		}
	}
	for i, cohort := range c.cohorts {
		for _, id := range cohort.Sections {
			sec, ok := c.sectionIndex[strings.TrimSpace(id)]
			if !ok {
				issues = append(issues, fmt.Sprintf("cohort %s: unknown section %s", cohort.ID, id))
				continue
			}
			join(i, sec)
		}
	}
	for s, sec := range c.sections {
		for _, id := range sec.Cohorts {
			join(c.cohortIndex[id], s)
		}
	}
	for i := range c.cohortMembers {
		sort.Ints(c.cohortMembers[i])
	}
	for i := range c.sectionCohorts {
		sort.Ints(c.sectionCohorts[i])
	}
	return issues
}

func (c *Catalog) applyKindRules() []string {
	var issues []string
	c.need = make([]int, len(c.sections))
	c.roomKinds = make([][]string, len(c.sections))
	for i, sec := range c.sections {
		enrolled := lo.SumBy(c.sectionCohorts[i], func(cohort int) int { return c.cohorts[cohort].Size })
		c.need[i] = sec.Capacity
		if c.need[i] == 0 {
			c.need[i] = enrolled
		}
		rule := c.rules[sec.Kind]
		if rule.RequireEquipment && len(sec.Equipment) == 0 {
			issues = append(issues, fmt.Sprintf("section %s: %s sections must list required equipment", sec.ID, sec.Kind))
		}
		if rule.MaxEnrollment > 0 && lo.Max([]int{c.need[i], enrolled}) > rule.MaxEnrollment {
			issues = append(issues, fmt.Sprintf("section %s: %s enrollment %d exceeds cap %d", sec.ID, sec.Kind, lo.Max([]int{c.need[i], enrolled}), rule.MaxEnrollment))
		}
		switch {
		case sec.RoomKind != "":
			c.roomKinds[i] = []string{sec.RoomKind}
		case len(rule.RoomKinds) > 0:
			c.roomKinds[i] = rule.RoomKinds
		}
	}
	return issues
}

func (c *Catalog) roomFits(sec, room int) bool {
	r := c.rooms[room]
	if r.Capacity < c.need[sec] {
		return false
	}
	if !lo.Every(r.Equipment, c.sections[sec].Equipment) {
		return false
	}
	return len(c.roomKinds[sec]) == 0 || lo.Contains(c.roomKinds[sec], r.Kind)
}

func (c *Catalog) instructorQualified(sec, instr int) bool {
	s := c.sections[sec]
	if s.InstructorID != "" && s.InstructorID != c.instructors[instr].ID {
		return false
	}
	return s.Qualification == "" || lo.Contains(c.instructors[instr].Qualifications, s.Qualification)
}

// slotPreference returns the mean preference over the slot's units and
// whether the instructor is available for all of them.
func (c *Catalog) slotPreference(instr int, slot TimeSlot) (float64, bool) {
	a := c.avail[instr]
	if a.open == nil {
		return 0, true
	}
	pos, ok := c.dayPos[slot.Day]
	if !ok {
		return 0, false
	}
	var sum float64
	base := pos * c.grid.SlotsPerDay
	for u := slot.Start; u < slot.End(); u++ {
		if u < 0 || u >= c.grid.SlotsPerDay || !a.open[base+u] {
			return 0, false
		}
		sum += a.pref[base+u]
	}
	return sum / float64(slot.Duration), true
}

// loadOf is the load a section adds to the given instructor.
func (c *Catalog) loadOf(sec, instr int) int {
	if c.instructors[instr].LoadMode == LoadUnits {
		return c.sections[sec].Duration
	}
	return 1
}

func (c *Catalog) explainInfeasible(i int, sec Section) string {
	rooms := lo.CountBy(lo.Range(len(c.rooms)), func(room int) bool { return c.roomFits(i, room) })
	if rooms == 0 {
		return fmt.Sprintf("section %s: no room offers capacity %d, equipment %v and kind %v", sec.ID, c.need[i], sec.Equipment, c.roomKinds[i])
	}
	qualified := lo.CountBy(lo.Range(len(c.instructors)), func(instr int) bool { return c.instructorQualified(i, instr) })
	if qualified == 0 {
		return fmt.Sprintf("section %s: no instructor is qualified for %q", sec.ID, sec.Qualification)
	}
	return fmt.Sprintf("section %s: no qualified instructor is available for %d consecutive units within load limits", sec.ID, sec.Duration)
}

// buildOrder ranks sections most constrained first, then longest first,
// then by id.
func (c *Catalog) buildOrder() {
	c.order = lo.Range(len(c.sections))
	sort.SliceStable(c.order, func(a, b int) bool {
		i, j := c.order[a], c.order[b]
		if c.candidates[i].count != c.candidates[j].count {
			return c.candidates[i].count < c.candidates[j].count
		}
		if c.sections[i].Duration != c.sections[j].Duration {
			return c.sections[i].Duration > c.sections[j].Duration
		}
		return c.sections[i].ID < c.sections[j].ID
	})
}

// Grid returns the time-slot grid.
func (c *Catalog) Grid() Grid { return c.grid }

// Sections returns the sections ordered by id.
func (c *Catalog) Sections() []Section { return append([]Section(nil), c.sections...) }

// Rooms returns the rooms ordered by id.
func (c *Catalog) Rooms() []Room { return append([]Room(nil), c.rooms...) }

// Instructors returns the instructors ordered by id.
func (c *Catalog) Instructors() []Instructor { return append([]Instructor(nil), c.instructors...) }

// Cohorts returns the cohorts ordered by id with their resolved members.
func (c *Catalog) Cohorts() []Cohort {
	out := make([]Cohort, len(c.cohorts))
	for i, cohort := range c.cohorts {
		cohort.Sections = lo.Map(c.cohortMembers[i], func(sec int, _ int) string { return c.sections[sec].ID })
		out[i] = cohort
	}
	return out
}

// Section looks up a section by id.
func (c *Catalog) Section(id string) (Section, bool) {
	i, ok := c.sectionIndex[id]
	if !ok {
		return Section{}, false
	}
	return c.sections[i], true
}

// CandidateCount returns how many statically compatible candidates a section has.
func (c *Catalog) CandidateCount(id string) int {
	i, ok := c.sectionIndex[id]
	if !ok {
		return 0
	}
	return c.candidates[i].count
}

// PriorityOrder returns section ids in the order the greedy pass visits them.
func (c *Catalog) PriorityOrder() []string {
	return lo.Map(c.order, func(sec int, _ int) string { return c.sections[sec].ID })
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func normalizeTags(tags []string) []string {
	out := lo.Uniq(lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = normalizeTag(tag)
		return tag, tag != ""
	}))
	sort.Strings(out)
	return out
}
