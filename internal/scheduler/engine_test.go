package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func slot(day, start, duration int) TimeSlot {
	return TimeSlot{Day: day, Start: start, Duration: duration}
}

func loadLimitedCatalog(t *testing.T) *Catalog {
	return mustCatalog(t, Input{
		Grid:        mondayGrid(3),
		Rooms:       []Room{{ID: "R1", Capacity: 30}},
		Instructors: []Instructor{{ID: "I1", MaxLoad: 2}},
		Sections: []Section{
			{ID: "S1", Capacity: 10, Duration: 1},
			{ID: "S2", Capacity: 10, Duration: 1},
			{ID: "S3", Capacity: 10, Duration: 1},
		},
	})
}

func TestGreedyPlacesTwoSectionsInDifferentRooms(t *testing.T) {
	cat := mustCatalog(t, Input{
		Grid:  mondayGrid(1),
		Rooms: []Room{{ID: "R-large", Capacity: 30}, {ID: "R-small", Capacity: 20}},
		Instructors: []Instructor{
			{ID: "I1", Qualifications: []string{"math"}},
			{ID: "I2", Qualifications: []string{"math"}},
		},
		Sections: []Section{
			{ID: "S1", Capacity: 20, Duration: 1, Qualification: "math"},
			{ID: "S2", Capacity: 15, Duration: 1, Qualification: "math"},
		},
	})

	s, err := New(Config{}, zap.NewNop()).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)
	assert.Empty(t, Detect(s))
	assert.Equal(t, StatusComplete, s.Status())

	first, ok := s.Assignment("S1")
	require.True(t, ok)
	second, ok := s.Assignment("S2")
	require.True(t, ok)
	assert.Equal(t, first.Slot, second.Slot)
	// The tighter fit wins the utilization bonus.
	assert.Equal(t, "R-small", first.RoomID)
	assert.Equal(t, "R-large", second.RoomID)
	assert.NotEqual(t, first.InstructorID, second.InstructorID)
}

func TestGreedySingleInstructorSpreadsOverSlots(t *testing.T) {
	cat := mustCatalog(t, Input{
		Grid:        mondayGrid(2),
		Rooms:       []Room{{ID: "R-large", Capacity: 30}, {ID: "R-small", Capacity: 20}},
		Instructors: []Instructor{{ID: "I1", Qualifications: []string{"math"}}},
		Sections: []Section{
			{ID: "S1", Capacity: 20, Duration: 1, Qualification: "math"},
			{ID: "S2", Capacity: 15, Duration: 1, Qualification: "math"},
		},
	})

	s, err := New(Config{}, nil).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)
	assert.Empty(t, Detect(s))
	assert.Equal(t, 2, s.AssignedCount())

	first, _ := s.Assignment("S1")
	second, _ := s.Assignment("S2")
	assert.Equal(t, slot(1, 0, 1), first.Slot)
	assert.Equal(t, slot(1, 1, 1), second.Slot)
}

func TestGreedyNeverOverlapsSharedCohort(t *testing.T) {
	cat := mustCatalog(t, Input{
		Grid:        mondayGrid(1),
		Rooms:       []Room{{ID: "R1", Capacity: 30}, {ID: "R2", Capacity: 30}},
		Instructors: []Instructor{{ID: "I1"}, {ID: "I2"}},
		Cohorts:     []Cohort{{ID: "C1", Sections: []string{"S1", "S2"}}},
		Sections: []Section{
			{ID: "S1", Capacity: 20, Duration: 1},
			{ID: "S2", Capacity: 20, Duration: 1},
		},
	})

	engine := New(Config{}, nil)
	s, err := engine.GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, 1, s.AssignedCount())
	assert.Equal(t, []string{"S2"}, s.Unassigned())

	optimized, err := engine.OptimizeSchedule(context.Background(), cat, s, DefaultBudget)
	require.NoError(t, err)
	assert.Equal(t, 1, optimized.AssignedCount())
	for _, conflict := range Detect(optimized) {
		assert.NotEqual(t, CohortOverlap, conflict.Kind)
	}

	report := BuildReport(optimized)
	require.Len(t, report.UnassignedSections, 1)
	assert.Contains(t, report.UnassignedSections[0].Reasons, CohortOverlap)
}

func TestCheckReportsLoadExceeded(t *testing.T) {
	cat := loadLimitedCatalog(t)
	s, err := New(Config{}, nil).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)

	assert.Equal(t, 2, s.AssignedCount())
	assert.Equal(t, []string{"S3"}, s.Unassigned())
	assert.Equal(t, 2, s.InstructorLoad("I1"))

	set, err := Check(s, Assignment{SectionID: "S3", Slot: slot(1, 2, 1), RoomID: "R1", InstructorID: "I1"})
	require.NoError(t, err)
	assert.Equal(t, []ConflictKind{LoadExceeded}, set.Kinds())

	// Moving an already placed section does not count its own load twice.
	set, err = Check(s, Assignment{SectionID: "S1", Slot: slot(1, 2, 1), RoomID: "R1", InstructorID: "I1"})
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestCheckStaticAndDynamicViolations(t *testing.T) {
	cat := mustCatalog(t, Input{
		Grid:  mondayGrid(2),
		Rooms: []Room{{ID: "R-lab", Capacity: 20, Equipment: []string{"bench"}}, {ID: "R-small", Capacity: 10}},
		Instructors: []Instructor{
			{ID: "I-chem", Qualifications: []string{"chemistry"}, Availability: []Window{{Day: 1, Start: 0, Length: 2, Preference: 1}}},
			{ID: "I-hist", Qualifications: []string{"history"}, Availability: []Window{{Day: 1, Start: 0, Length: 1}}},
		},
		Cohorts: []Cohort{{ID: "C1", Sections: []string{"LAB", "LEC"}}},
		Sections: []Section{
			{ID: "LAB", Kind: KindLab, Capacity: 18, Duration: 1, Equipment: []string{"bench"}, Qualification: "chemistry"},
			{ID: "LEC", Capacity: 5, Duration: 1, Qualification: "chemistry"},
		},
	})
	s, err := cat.ScheduleFrom([]Assignment{{SectionID: "LAB", Slot: slot(1, 0, 1), RoomID: "R-lab", InstructorID: "I-chem"}})
	require.NoError(t, err)

	set, err := Check(s, Assignment{SectionID: "LAB", Slot: slot(1, 1, 1), RoomID: "R-small", InstructorID: "I-hist"})
	require.NoError(t, err)
	assert.Equal(t, []ConflictKind{CapacityExceeded, EquipmentMissing, QualificationMismatch, InstructorUnavailable}, set.Kinds())

	set, err = Check(s, Assignment{SectionID: "LEC", Slot: slot(1, 0, 1), RoomID: "R-lab", InstructorID: "I-chem"})
	require.NoError(t, err)
	assert.Equal(t, []ConflictKind{RoomDoubleBooked, InstructorDoubleBooked, CohortOverlap}, set.Kinds())
	assert.Equal(t, "{ROOM_DOUBLE_BOOKED,INSTRUCTOR_DOUBLE_BOOKED,COHORT_OVERLAP}", set.String())

	_, err = Check(s, Assignment{SectionID: "NOPE", RoomID: "R-lab", InstructorID: "I-chem"})
	assert.Error(t, err)
}

func TestGreedyPrefersInstructorPreference(t *testing.T) {
	cat := mustCatalog(t, Input{
		Grid:  Grid{Days: []int{1, 2}, SlotsPerDay: 4, SlotMinutes: 60, DayStartMinute: 8 * 60},
		Rooms: []Room{{ID: "R1", Capacity: 30}},
		Instructors: []Instructor{{ID: "I1", Availability: []Window{
			{Day: 1, Start: 0, Length: 4, Preference: 0.2},
			{Day: 2, Start: 2, Length: 2, Preference: 0.9},
		}}},
		Sections: []Section{{ID: "S1", Capacity: 30, Duration: 2}},
	})

	s, err := New(Config{}, nil).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)
	a, ok := s.Assignment("S1")
	require.True(t, ok)
	assert.Equal(t, slot(2, 2, 2), a.Slot)
}

func TestGreedyHonoursCancellation(t *testing.T) {
	cat := loadLimitedCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New(Config{}, nil).GenerateInitialSchedule(ctx, cat)
	require.NoError(t, err)
	assert.True(t, s.Cancelled())
	assert.Equal(t, 0, s.AssignedCount())
	assert.Len(t, s.Unassigned(), 3)
}

func TestGreedyRejectsNilCatalog(t *testing.T) {
	_, err := New(Config{}, nil).GenerateInitialSchedule(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilCatalog)
}

func wideCatalog(t *testing.T) *Catalog {
	t.Helper()
	in := Input{Grid: Grid{Days: []int{1, 2, 3, 4, 5}, SlotsPerDay: 10, SlotMinutes: 60, DayStartMinute: 8 * 60}}
	for i := 1; i <= 6; i++ {
		in.Rooms = append(in.Rooms, Room{ID: fmt.Sprintf("R%d", i), Capacity: 10 * (i + 1)})
	}
	for i := 1; i <= 4; i++ {
		in.Instructors = append(in.Instructors, Instructor{
			ID:           fmt.Sprintf("I%d", i),
			MaxLoad:      6,
			Availability: []Window{{Day: i, Start: 0, Length: 10, Preference: 1}, {Day: i%5 + 1, Start: 0, Length: 10, Preference: 0.5}, {Day: 5, Start: 0, Length: 10}},
		})
	}
	for i := 1; i <= 18; i++ {
		in.Sections = append(in.Sections, Section{
			ID:       fmt.Sprintf("S%02d", i),
			Capacity: 5 + (i%4)*8,
			Duration: 1 + i%2,
			Cohorts:  []string{fmt.Sprintf("C%d", i%3)},
		})
	}
	return mustCatalog(t, in)
}

func TestGreedyParallelScanMatchesSequential(t *testing.T) {
	cat := wideCatalog(t)

	sequential, err := New(Config{Workers: 1}, nil).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)
	parallel, err := New(Config{Workers: 4}, nil).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)

	assert.Equal(t, sequential.Assignments(), parallel.Assignments())
	assert.Empty(t, Detect(parallel))
}
