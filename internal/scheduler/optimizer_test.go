package scheduler

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// displacementCatalog makes the greedy pass strand B: A grabs slot 0 because
// its instructor prefers it, but B's instructor can only teach in slot 0 and
// both share a cohort.
func displacementCatalog(t *testing.T) *Catalog {
	return mustCatalog(t, Input{
		Grid: mondayGrid(2),
		Rooms: []Room{
			{ID: "R1", Capacity: 30, Equipment: []string{"projector"}},
			{ID: "R2", Capacity: 30},
			{ID: "R3", Capacity: 30},
		},
		Instructors: []Instructor{
			{ID: "IA", Availability: []Window{{Day: 1, Start: 0, Length: 1, Preference: 1}, {Day: 1, Start: 1, Length: 1}}},
			{ID: "IB", Availability: []Window{{Day: 1, Start: 0, Length: 1}}},
		},
		Cohorts: []Cohort{{ID: "C1", Sections: []string{"A", "B"}}},
		Sections: []Section{
			{ID: "A", Capacity: 30, Duration: 1, Equipment: []string{"projector"}, InstructorID: "IA"},
			{ID: "B", Capacity: 30, Duration: 1, InstructorID: "IB"},
		},
	})
}

func TestOptimizeDisplacesBlockingSection(t *testing.T) {
	cat := displacementCatalog(t)
	engine := New(Config{}, nil)

	initial, err := engine.GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, initial.Unassigned())

	optimized, err := engine.OptimizeSchedule(context.Background(), cat, initial, DefaultBudget)
	require.NoError(t, err)

	assert.Empty(t, Detect(optimized))
	assert.Equal(t, StatusComplete, optimized.Status())
	a, _ := optimized.Assignment("A")
	b, _ := optimized.Assignment("B")
	assert.Equal(t, slot(1, 1, 1), a.Slot)
	assert.Equal(t, slot(1, 0, 1), b.Slot)

	stats := optimized.Stats()
	assert.Equal(t, 1, stats.Repaired)
	assert.Equal(t, 1, stats.Displaced)
	assert.True(t, stats.Converged)
	assert.False(t, optimized.BudgetExceeded())

	// The input schedule is left untouched.
	assert.Equal(t, []string{"B"}, initial.Unassigned())
}

func TestOptimizeStopsOnStepBudget(t *testing.T) {
	cat := displacementCatalog(t)
	engine := New(Config{}, nil)
	initial, err := engine.GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)

	budget := DefaultBudget
	budget.MaxSteps = 1
	optimized, err := engine.OptimizeSchedule(context.Background(), cat, initial, budget)
	require.NoError(t, err)

	assert.True(t, optimized.BudgetExceeded())
	assert.Equal(t, StatusBudgetExceeded, optimized.Status())
	assert.Equal(t, []string{"B"}, optimized.Unassigned())
	assert.Empty(t, Detect(optimized))
	assert.Equal(t, 1, BuildReport(optimized).Unassigned)
	assert.True(t, BuildReport(optimized).BudgetExceeded)
}

func TestOptimizeRepairsImportedConflicts(t *testing.T) {
	cat := mustCatalog(t, Input{
		Grid:        mondayGrid(2),
		Rooms:       []Room{{ID: "R1", Capacity: 30}},
		Instructors: []Instructor{{ID: "I1"}, {ID: "I2"}},
		Sections: []Section{
			{ID: "S1", Capacity: 10, Duration: 1},
			{ID: "S2", Capacity: 10, Duration: 1},
		},
	})
	imported, err := cat.ScheduleFrom([]Assignment{
		{SectionID: "S1", Slot: slot(1, 0, 1), RoomID: "R1", InstructorID: "I1"},
		{SectionID: "S2", Slot: slot(1, 0, 0), RoomID: "R1", InstructorID: "I2"},
	})
	require.NoError(t, err)
	conflicts := Detect(imported)
	require.Len(t, conflicts, 1)
	assert.Equal(t, RoomDoubleBooked, conflicts[0].Kind)
	assert.Equal(t, SeverityHigh, conflicts[0].Severity)
	assert.Equal(t, []string{"S1", "S2"}, conflicts[0].Sections)
	assert.Equal(t, 0, imported.FeasibleCount())

	optimized, err := New(Config{}, nil).OptimizeSchedule(context.Background(), cat, imported, DefaultBudget)
	require.NoError(t, err)
	assert.Empty(t, Detect(optimized))
	assert.Equal(t, 2, optimized.FeasibleCount())
	assert.Len(t, Detect(imported), 1)

	s1, _ := optimized.Assignment("S1")
	assert.Equal(t, slot(1, 1, 1), s1.Slot)
}

func TestScheduleFromRejectsUnknownReferences(t *testing.T) {
	cat := loadLimitedCatalog(t)
	_, err := cat.ScheduleFrom([]Assignment{
		{SectionID: "S1", Slot: slot(1, 0, 1), RoomID: "R9", InstructorID: "I1"},
		{SectionID: "S2", Slot: slot(1, 5, 1), RoomID: "R1", InstructorID: "I1"},
		{SectionID: "S3", Slot: slot(1, 0, 1), RoomID: "R1", InstructorID: "I1"},
		{SectionID: "S3", Slot: slot(1, 1, 1), RoomID: "R1", InstructorID: "I1"},
	})
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Len(t, inputErr.Issues, 3)
}

func TestOptimizeIsMonotonicAndStable(t *testing.T) {
	cat := wideCatalog(t)
	engine := New(Config{Weights: Weights{Preference: 1, Utilization: 0.5, Balance: 2}}, nil)

	initial, err := engine.GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)
	first, err := engine.OptimizeSchedule(context.Background(), cat, initial, DefaultBudget)
	require.NoError(t, err)
	second, err := engine.OptimizeSchedule(context.Background(), cat, first, DefaultBudget)
	require.NoError(t, err)

	assertNotWorse(t, initial, first)
	assertNotWorse(t, first, second)
	assert.GreaterOrEqual(t, second.AssignedCount(), first.AssignedCount())
	assert.Equal(t, first.FeasibleCount(), second.Stats().InputFeasible)
	assert.InDelta(t, first.Score(), second.Stats().InputScore, 1e-9)
	for _, run := range []*Schedule{first, second} {
		trace := run.Stats().ScoreTrace
		require.NotEmpty(t, trace)
		assert.True(t, sort.Float64sAreSorted(trace), "score trace must not decrease: %v", trace)
		assert.Empty(t, Detect(run))
	}
}

// assertNotWorse compares schedules by feasible count, then score.
func assertNotWorse(t *testing.T, before, after *Schedule) {
	t.Helper()
	require.GreaterOrEqual(t, after.FeasibleCount(), before.FeasibleCount())
	if after.FeasibleCount() == before.FeasibleCount() {
		assert.GreaterOrEqual(t, after.Score(), before.Score()-1e-9)
	}
}

func TestOptimizeTradesScoreForFeasibility(t *testing.T) {
	cat := mustCatalog(t, Input{
		Grid:  mondayGrid(2),
		Rooms: []Room{{ID: "R1", Capacity: 30}},
		Instructors: []Instructor{{ID: "I1", Availability: []Window{
			{Day: 1, Start: 0, Length: 1, Preference: 1},
			{Day: 1, Start: 1, Length: 1, Preference: -6},
		}}},
		Sections: []Section{
			{ID: "S1", Capacity: 10, Duration: 1},
			{ID: "S2", Capacity: 10, Duration: 1},
		},
	})
	imported, err := cat.ScheduleFrom([]Assignment{
		{SectionID: "S1", Slot: slot(1, 0, 1), RoomID: "R1", InstructorID: "I1"},
	})
	require.NoError(t, err)

	optimized, err := New(Config{}, nil).OptimizeSchedule(context.Background(), cat, imported, DefaultBudget)
	require.NoError(t, err)

	stats := optimized.Stats()
	assert.Equal(t, 1, stats.InputFeasible)
	assert.InDelta(t, 1+10.0/30.0, stats.InputScore, 1e-9)
	assert.Equal(t, 2, optimized.FeasibleCount())
	assert.InDelta(t, 1-6+20.0/30.0, optimized.Score(), 1e-9)
	assert.Less(t, optimized.Score(), stats.InputScore)
	require.NotEmpty(t, stats.ScoreTrace)
	assert.InDelta(t, optimized.Score(), stats.ScoreTrace[0], 1e-9)
	assertNotWorse(t, imported, optimized)

	report := BuildReport(optimized)
	require.NotNil(t, report.Improvement)
	assert.InDelta(t, stats.InputScore, report.Improvement.ScoreBefore, 1e-9)
	assert.InDelta(t, optimized.Score()-stats.InputScore, report.Improvement.ScoreDelta, 1e-9)
	assert.Equal(t, 1, report.Improvement.FeasibleGained)
	assert.Nil(t, BuildReport(imported).Improvement)

	require.Len(t, report.PreferenceViolations, 1)
	assert.Equal(t, PreferenceViolation{
		SectionID: "S2", InstructorID: "I1", Label: "MON 09:00-10:00", Preference: -6, Best: 1, Severity: SeverityLow,
	}, report.PreferenceViolations[0])
}

func TestOptimizeShuffleIsReproducible(t *testing.T) {
	cat := wideCatalog(t)
	engine := New(Config{Weights: Weights{Preference: 1, Balance: 3}}, nil)
	initial, err := engine.GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)

	budget := DefaultBudget
	budget.Shuffle = true
	budget.Seed = 42
	a, err := engine.OptimizeSchedule(context.Background(), cat, initial, budget)
	require.NoError(t, err)
	b, err := engine.OptimizeSchedule(context.Background(), cat, initial, budget)
	require.NoError(t, err)
	assert.Equal(t, a.Assignments(), b.Assignments())
	assert.Equal(t, a.Stats().ScoreTrace, b.Stats().ScoreTrace)
}

func TestOptimizeCancelledReturnsValidSchedule(t *testing.T) {
	cat := displacementCatalog(t)
	engine := New(Config{}, nil)
	initial, err := engine.GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	optimized, err := engine.OptimizeSchedule(ctx, cat, initial, DefaultBudget)
	require.NoError(t, err)
	assert.True(t, optimized.Cancelled())
	assert.Equal(t, StatusCancelled, optimized.Status())
	assert.Empty(t, Detect(optimized))
	assert.Equal(t, initial.FeasibleCount(), optimized.FeasibleCount())
	assert.True(t, BuildReport(optimized).Cancelled)
}

// countdownContext starts reporting cancellation once Err has been called
// more than n times.
type countdownContext struct {
	context.Context
	n int
}

func (c *countdownContext) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestOptimizeCancelledMidRunKeepsHardConstraints(t *testing.T) {
	engine := New(Config{}, nil)
	cases := []struct {
		name    string
		cat     *Catalog
		shuffle bool
		// reached reports whether the cancelled run got past the point the
		// case is meant to interrupt.
		reached func(Stats) bool
	}{
		{"inside displacement chain", displacementCatalog(t), false, func(st Stats) bool { return st.Steps >= 2 }},
		{"after work started", wideCatalog(t), false, func(st Stats) bool { return st.Steps > 0 || st.Iterations > 0 }},
		{"after shuffled work started", wideCatalog(t), true, func(st Stats) bool { return st.Steps > 0 || st.Iterations > 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			initial, err := engine.GenerateInitialSchedule(context.Background(), tc.cat)
			require.NoError(t, err)
			budget := DefaultBudget
			budget.Shuffle = tc.shuffle

			full, err := engine.OptimizeSchedule(context.Background(), tc.cat, initial, budget)
			require.NoError(t, err)

			interrupted := 0
			for n := 0; n <= 60; n++ {
				ctx := &countdownContext{Context: context.Background(), n: n}
				out, err := engine.OptimizeSchedule(ctx, tc.cat, initial, budget)
				require.NoError(t, err)
				assert.Empty(t, Detect(out), "cancel after %d checks", n)
				assert.GreaterOrEqual(t, out.FeasibleCount(), initial.FeasibleCount(), "cancel after %d checks", n)
				assert.True(t, sort.Float64sAreSorted(out.Stats().ScoreTrace), "cancel after %d checks", n)
				if !out.Cancelled() {
					assert.Equal(t, full.Assignments(), out.Assignments(), "uncancelled run after %d checks", n)
					continue
				}
				if out.Status() != StatusComplete {
					assert.Equal(t, StatusCancelled, BuildReport(out).Status)
				}
				if tc.reached(out.Stats()) {
					interrupted++
				}
			}
			assert.Positive(t, interrupted, "no cancellation landed mid-run")
		})
	}
}

func TestOptimizeRejectsForeignSchedule(t *testing.T) {
	engine := New(Config{}, nil)
	a := loadLimitedCatalog(t)
	b := loadLimitedCatalog(t)
	s, err := engine.GenerateInitialSchedule(context.Background(), a)
	require.NoError(t, err)

	_, err = engine.OptimizeSchedule(context.Background(), b, s, DefaultBudget)
	assert.ErrorIs(t, err, ErrCatalogMismatch)
}

func TestMoveDeltaMatchesRecomputedScore(t *testing.T) {
	cat := wideCatalog(t)
	s, err := New(Config{Weights: Weights{Preference: 1, Utilization: 1, Balance: 1}}, nil).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)

	checked := 0
	for _, sec := range cat.order[:5] {
		current, ok := s.placementOf(sec)
		if !ok {
			continue
		}
		cat.candidates[sec].each(func(c candidate) bool {
			if c == current || !checkDynamic(s, sec, c).Empty() {
				return true
			}
			before := s.Score()
			delta := s.moveDelta(sec, c)
			mark := s.mark()
			s.assign(sec, c)
			assert.InDelta(t, s.Score()-before, delta, 1e-9)
			s.rollback(mark)
			checked++
			return checked <= 40
		})
		if checked > 40 {
			return
		}
	}
	assert.Positive(t, checked)
}

func TestVerifyPanicsOnLostFeasibility(t *testing.T) {
	cat := loadLimitedCatalog(t)
	o := &optimizer{Engine: New(Config{}, nil), s: NewSchedule(cat)}
	assert.PanicsWithError(t, "scheduler invariant violated in optimize: feasible count dropped from 1 to 0", func() {
		o.verify(1, nil)
	})
}
