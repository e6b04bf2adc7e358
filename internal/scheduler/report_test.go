package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReportSummarisesPartialSchedule(t *testing.T) {
	cat := loadLimitedCatalog(t)
	s, err := New(Config{}, nil).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)

	report := BuildReport(s)
	assert.Equal(t, StatusPartial, report.Status)
	assert.Equal(t, 3, report.TotalSections)
	assert.Equal(t, 2, report.Assigned)
	assert.Equal(t, 1, report.Unassigned)
	assert.Equal(t, 2, report.Feasible)
	assert.Empty(t, report.Conflicts)
	assert.False(t, report.BudgetExceeded)

	require.Len(t, report.Assignments, 2)
	assert.Equal(t, "S1", report.Assignments[0].SectionID)
	assert.Equal(t, "MON 08:00-09:00", report.Assignments[0].Label)
	assert.Equal(t, "09:00", report.Assignments[1].StartTime)

	require.Len(t, report.UnassignedSections, 1)
	assert.Equal(t, "S3", report.UnassignedSections[0].SectionID)
	assert.Equal(t, []ConflictKind{RoomDoubleBooked, InstructorDoubleBooked, LoadExceeded}, report.UnassignedSections[0].Reasons)
	assert.Equal(t, 3, report.UnassignedSections[0].Candidates)

	require.Len(t, report.Rooms, 1)
	assert.InDelta(t, 66.67, report.Rooms[0].Utilization, 0.01)
	assert.InDelta(t, 1.0/3.0, report.Rooms[0].SeatFill, 1e-9)
	require.Len(t, report.Instructors, 1)
	assert.Equal(t, InstructorLoad{InstructorID: "I1", Sections: 2, Load: 2, MaxLoad: 2}, report.Instructors[0])

	assert.InDelta(t, 2.0/3.0, report.Quality.Utilization, 1e-9)
	assert.InDelta(t, 0, report.Quality.BalanceVariance, 1e-9)
	assert.InDelta(t, 2.0/3.0, report.Quality.Score, 1e-9)

	assert.Equal(t, 0, report.Summary.Total)
	assert.Equal(t, map[Severity]int{SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0}, report.Summary.BySeverity)
	assert.Equal(t, []string{
		RoomDoubleBooked.Suggestion(),
		InstructorDoubleBooked.Suggestion(),
		LoadExceeded.Suggestion(),
	}, report.Summary.Suggestions)
	assert.Empty(t, report.PreferenceViolations)
	assert.Nil(t, report.Improvement)

	payload, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"reasons":["ROOM_DOUBLE_BOOKED","INSTRUCTOR_DOUBLE_BOOKED","LOAD_EXCEEDED"]`)

	assert.NotContains(t, string(payload), `"improvement"`)

	var decoded Report
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, report.UnassignedSections, decoded.UnassignedSections)
	assert.Equal(t, report.Summary.Suggestions, decoded.Summary.Suggestions)
}

func TestBuildReportSummarisesConflicts(t *testing.T) {
	cat := mustCatalog(t, Input{
		Grid:        mondayGrid(2),
		Rooms:       []Room{{ID: "R1", Capacity: 30}, {ID: "R2", Capacity: 10}},
		Instructors: []Instructor{{ID: "I1"}, {ID: "I2"}},
		Sections: []Section{
			{ID: "S1", Capacity: 10, Duration: 1},
			{ID: "S2", Capacity: 10, Duration: 1},
			{ID: "S3", Capacity: 20, Duration: 1},
		},
	})
	s, err := cat.ScheduleFrom([]Assignment{
		{SectionID: "S1", Slot: slot(1, 0, 1), RoomID: "R1", InstructorID: "I1"},
		{SectionID: "S2", Slot: slot(1, 0, 1), RoomID: "R1", InstructorID: "I2"},
		{SectionID: "S3", Slot: slot(1, 1, 1), RoomID: "R2", InstructorID: "I1"},
	})
	require.NoError(t, err)

	summary := BuildReport(s).Summary
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, map[Severity]int{SeverityHigh: 1, SeverityMedium: 1, SeverityLow: 0}, summary.BySeverity)
	assert.Equal(t, map[ConflictKind]int{RoomDoubleBooked: 1, CapacityExceeded: 1}, summary.ByKind)
	assert.Equal(t, []EntityConflicts{{ID: "S1", Conflicts: 1}, {ID: "S2", Conflicts: 1}, {ID: "S3", Conflicts: 1}}, summary.Sections)
	assert.Equal(t, []EntityConflicts{{ID: "I1", Conflicts: 1}}, summary.Instructors)
	assert.Equal(t, []EntityConflicts{{ID: "R1", Conflicts: 1}, {ID: "R2", Conflicts: 1}}, summary.Rooms)
	assert.Equal(t, []string{RoomDoubleBooked.Suggestion(), CapacityExceeded.Suggestion()}, summary.Suggestions)

	payload, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"byKind":{"CAPACITY_EXCEEDED":1,"ROOM_DOUBLE_BOOKED":1}`)
}

func TestRankKeepsTopOffenders(t *testing.T) {
	ranked := rank(map[string]int{"a": 1, "b": 4, "c": 2, "d": 2, "e": 1, "f": 3, "g": 1})
	assert.Equal(t, []EntityConflicts{
		{ID: "b", Conflicts: 4}, {ID: "f", Conflicts: 3}, {ID: "c", Conflicts: 2}, {ID: "d", Conflicts: 2}, {ID: "a", Conflicts: 1},
	}, ranked)
}

func TestScheduleStatusNamesWhyItIsIncomplete(t *testing.T) {
	s := NewSchedule(loadLimitedCatalog(t))
	assert.Equal(t, StatusPartial, s.Status())
	s.budgetExceeded = true
	assert.Equal(t, StatusBudgetExceeded, s.Status())
	s.cancelled = true
	assert.Equal(t, StatusCancelled, s.Status())
	assert.Equal(t, StatusCancelled, BuildReport(s).Status)
}

func TestDetectReportsLoadAndStaticViolations(t *testing.T) {
	cat := loadLimitedCatalog(t)
	s, err := cat.ScheduleFrom([]Assignment{
		{SectionID: "S1", Slot: slot(1, 0, 1), RoomID: "R1", InstructorID: "I1"},
		{SectionID: "S2", Slot: slot(1, 1, 1), RoomID: "R1", InstructorID: "I1"},
		{SectionID: "S3", Slot: slot(1, 2, 1), RoomID: "R1", InstructorID: "I1"},
	})
	require.NoError(t, err)

	conflicts := Detect(s)
	require.Len(t, conflicts, 1)
	assert.Equal(t, LoadExceeded, conflicts[0].Kind)
	assert.Equal(t, SeverityLow, conflicts[0].Severity)
	assert.Equal(t, "I1", conflicts[0].InstructorID)
	assert.Equal(t, []string{"S1", "S2", "S3"}, conflicts[0].Sections)
	assert.Equal(t, 0, s.FeasibleCount())
	assert.Equal(t, StatusPartial, BuildReport(s).Status)
}

func TestConflictKindText(t *testing.T) {
	kind, ok := ParseConflictKind("cohort_overlap")
	require.True(t, ok)
	assert.Equal(t, CohortOverlap, kind)

	var decoded ConflictKind
	assert.Error(t, decoded.UnmarshalText([]byte("NOT_A_KIND")))
	assert.Equal(t, SeverityMedium, CapacityExceeded.Severity())
}
