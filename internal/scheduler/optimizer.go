package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Budget bounds the optimizer.
type Budget struct {
	// MaxSteps caps placement attempts during repair.
	MaxSteps int `json:"maxSteps"`
	// MaxDepth bounds how many displacement levels one repair may chain.
	MaxDepth int `json:"maxDepth"`
	// MaxDisplaced caps the sections one displacement may evict.
	MaxDisplaced int `json:"maxDisplaced"`
	// Iterations caps section evaluations during hill climbing. A negative
	// value disables hill climbing.
	Iterations     int           `json:"iterations"`
	MinImprovement float64       `json:"minImprovement"`
	TimeLimit      time.Duration `json:"timeLimit"`
	Seed           int64         `json:"seed"`
	// Shuffle visits sections in seeded random order instead of round robin.
	Shuffle bool `json:"shuffle"`
}

// DefaultBudget is applied field by field wherever a Budget leaves zeros.
var DefaultBudget = Budget{
	MaxSteps:       20000,
	MaxDepth:       2,
	MaxDisplaced:   2,
	Iterations:     2000,
	MinImprovement: 1e-9,
	Seed:           1,
}

func (b Budget) withDefaults() Budget {
	if b.MaxSteps <= 0 {
		b.MaxSteps = DefaultBudget.MaxSteps
	}
	if b.MaxDepth == 0 {
		b.MaxDepth = DefaultBudget.MaxDepth
	}
	if b.MaxDisplaced == 0 {
		b.MaxDisplaced = DefaultBudget.MaxDisplaced
	}
	if b.Iterations == 0 {
		b.Iterations = DefaultBudget.Iterations
	}
	if b.MinImprovement <= 0 {
		b.MinImprovement = DefaultBudget.MinImprovement
	}
	if b.Seed == 0 {
		b.Seed = DefaultBudget.Seed
	}
	return b
}

type optimizer struct {
	*Engine
	ctx     context.Context
	s       *Schedule
	budget  Budget
	steps   int
	halted  bool
	spent   bool
	locked  []bool
	rank    []int
	visited int
}

// OptimizeSchedule repairs and then improves a copy of in. Feasibility comes
// first, then score. Repair places unassigned sections and resolves
// conflicted ones, evicting at most MaxDisplaced sections per level up to
// MaxDepth levels; placing another section may lower the score. Improvement
// is hill climbing that only accepts strictly better moves, so the score
// never drops after repair. The feasible count never drops and the
// conflicted set never grows. Stats records the input score and feasible
// count. When the step or time budget runs out the schedule is flagged
// BudgetExceeded; when ctx is cancelled it is flagged Cancelled. Both return
// the best schedule so far.
func (e *Engine) OptimizeSchedule(ctx context.Context, cat *Catalog, in *Schedule, budget Budget) (*Schedule, error) {
	if cat == nil {
		return nil, ErrNilCatalog
	}
	if in == nil {
		return nil, errors.New("schedule is required")
	}
	if in.cat != cat {
		return nil, ErrCatalogMismatch
	}
	budget = budget.withDefaults()
	started := time.Now()

	runCtx := ctx
	if budget.TimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, budget.TimeLimit)
		defer cancel()
	}

	s := in.Clone()
	s.weights = e.cfg.Weights
	s.budgetExceeded = false
	s.cancelled = false
	s.stats.ScoreTrace = nil
	s.stats.Converged = false

	feasibleBefore := s.FeasibleCount()
	conflictedBefore := s.conflicted()
	s.optimized = true
	s.input = s.Quality()
	s.stats.InputScore = s.input.Score
	s.stats.InputFeasible = feasibleBefore

	o := &optimizer{
		Engine: e,
		ctx:    runCtx,
		s:      s,
		budget: budget,
		locked: make([]bool, len(cat.sections)),
		rank:   make([]int, len(cat.sections)),
	}
	for pos, sec := range cat.order {
		o.rank[sec] = pos
	}

	o.repair()
	repairSteps := o.steps
	if !o.halted {
		o.improve()
	}
	s.stats.Steps += o.steps

	switch {
	case ctx.Err() != nil:
		s.cancelled = true
	case o.spent || runCtx.Err() != nil:
		s.budgetExceeded = true
	}

	o.verify(feasibleBefore, conflictedBefore)
	s.stats.Elapsed += time.Since(started)
	e.logger.Debug("optimizer finished",
		zap.Int("feasibleBefore", feasibleBefore),
		zap.Int("feasibleAfter", s.FeasibleCount()),
		zap.Int("repairSteps", repairSteps),
		zap.Int("moves", s.stats.Moves),
		zap.Bool("budgetExceeded", s.budgetExceeded),
		zap.Bool("cancelled", s.cancelled),
	)
	return s, nil
}

func (o *optimizer) interrupted() bool {
	if !o.halted && o.ctx.Err() != nil {
		o.halted = true
	}
	return o.halted
}

// step consumes one unit of the repair budget.
func (o *optimizer) step() bool {
	if o.interrupted() {
		return false
	}
	if o.steps >= o.budget.MaxSteps {
		o.spent = true
		o.halted = true
		return false
	}
	o.steps++
	return true
}

func (o *optimizer) byRank(list []int) {
	sort.SliceStable(list, func(i, j int) bool { return o.rank[list[i]] < o.rank[list[j]] })
}

// repair drains the worklist of unassigned then conflicted sections. A change
// is kept only if it raises the feasible count, or keeps it while shrinking
// the conflicted set; otherwise the journal rolls it back.
func (o *optimizer) repair() {
	s := o.s
	work := lo.Filter(lo.Range(len(s.places)), func(sec int, _ int) bool { return !s.places[sec].set })
	o.byRank(work)
	conflicted := s.conflicted()
	o.byRank(conflicted)
	work = append(work, conflicted...)
	queued := make([]bool, len(s.places))
	for _, sec := range work {
		queued[sec] = true
	}

	for len(work) > 0 {
		if o.interrupted() {
			return
		}
		sec := work[0]
		work = work[1:]
		queued[sec] = false

		if c, ok := s.placementOf(sec); ok && check(s, sec, c).Empty() {
			continue
		}
		feasible, conflictedCount := s.FeasibleCount(), len(s.conflicted())
		improved := func() bool {
			f := s.FeasibleCount()
			return f > feasible || (f == feasible && len(s.conflicted()) < conflictedCount)
		}

		mark := s.mark()
		s.unassign(sec)
		placed := o.place(sec, o.budget.MaxDepth, improved)
		if !improved() {
			s.rollback(mark)
			s.settle()
			continue
		}
		if placed {
			s.stats.Repaired++
		}
		for _, u := range s.journal[mark:] {
			if u.sec != sec && u.prev.set && !s.places[u.sec].set && !queued[u.sec] {
				work = append(work, u.sec)
				queued[u.sec] = true
			}
		}
		s.settle()
	}
}

type eviction struct {
	cand  candidate
	evict []int
	score float64
}

// place puts sec at its best feasible candidate, or evicts blocking sections
// and re-places them one level deeper. Nested levels succeed only when every
// evicted section found a new home. The top level passes accept and keeps a
// chain whenever accept approves it, even with evicted sections left over.
func (o *optimizer) place(sec, depth int, accept func() bool) bool {
	s := o.s
	if !o.step() {
		return false
	}
	if c, _, ok := o.best(s, sec, placeScore(s, sec)); ok {
		s.assign(sec, c)
		return true
	}
	if depth <= 0 || o.budget.MaxDisplaced <= 0 {
		return false
	}

	o.locked[sec] = true
	defer func() { o.locked[sec] = false }()
	for _, opt := range o.evictions(sec) {
		if !o.step() {
			return false
		}
		mark := s.mark()
		for _, victim := range opt.evict {
			s.unassign(victim)
		}
		if !checkDynamic(s, sec, opt.cand).Empty() {
			s.rollback(mark)
			continue
		}
		s.assign(sec, opt.cand)
		rehomed := true
		for _, victim := range opt.evict {
			if !o.place(victim, depth-1, nil) {
				rehomed = false
				if accept == nil || o.halted {
					break
				}
			}
		}
		if o.halted {
			s.rollback(mark)
			return false
		}
		if rehomed || (accept != nil && accept()) {
			s.stats.Displaced += len(opt.evict)
			return true
		}
		s.rollback(mark)
	}
	return false
}

// evictions lists candidate placements of sec that become feasible once at
// most MaxDisplaced unlocked sections are removed, fewest evictions first.
func (o *optimizer) evictions(sec int) []eviction {
	s := o.s
	var out []eviction
	s.cat.candidates[sec].each(func(c candidate) bool {
		evict := s.blockers(sec, c)
		if len(evict) > o.budget.MaxDisplaced || lo.SomeBy(evict, func(v int) bool { return o.locked[v] }) {
			return true
		}
		for _, extra := range o.relieveLoad(sec, c, evict) {
			out = append(out, eviction{cand: c, evict: extra, score: s.localScore(sec, c)})
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].evict) != len(out[j].evict) {
			return len(out[i].evict) < len(out[j].evict)
		}
		return out[i].score > out[j].score+scoreEpsilon
	})
	return out
}

// relieveLoad extends evict so the candidate's instructor stays within its
// maximum load. It returns one eviction set per way of doing so.
func (o *optimizer) relieveLoad(sec int, c candidate, evict []int) [][]int {
	s := o.s
	limit := s.cat.instructors[c.instr].MaxLoad
	if limit <= 0 {
		return [][]int{evict}
	}
	load := s.load[c.instr]
	for _, v := range evict {
		if p := s.places[v]; p.set && p.instr == c.instr {
			load -= s.cat.loadOf(v, c.instr)
		}
	}
	excess := load + s.cat.loadOf(sec, c.instr) - limit
	if excess <= 0 {
		return [][]int{evict}
	}
	if len(evict)+1 > o.budget.MaxDisplaced {
		return nil
	}
	var out [][]int
	for _, v := range s.byInstr[c.instr] {
		if v == sec || o.locked[v] || lo.Contains(evict, v) || s.cat.loadOf(v, c.instr) < excess {
			continue
		}
		out = append(out, append(append([]int(nil), evict...), v))
	}
	return out
}

// improve hill-climbs over feasible sections, moving each to its best
// alternative when that raises the total score by more than MinImprovement.
// It stops after a sweep without moves or when the iteration budget is spent.
func (o *optimizer) improve() {
	s := o.s
	if o.budget.Iterations < 0 {
		s.stats.Converged = true
		return
	}
	conflicted := s.conflicted()
	order := lo.Filter(append([]int(nil), s.cat.order...), func(sec int, _ int) bool {
		return s.places[sec].set && !lo.Contains(conflicted, sec)
	})
	rng := rand.New(rand.NewSource(o.budget.Seed))
	s.stats.ScoreTrace = append(s.stats.ScoreTrace, s.Score())

	for {
		if o.budget.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		moved := false
		for _, sec := range order {
			if o.visited >= o.budget.Iterations || o.interrupted() {
				return
			}
			o.visited++
			s.stats.Iterations++

			current, _ := s.placementOf(sec)
			c, delta, ok := o.best(s, sec, func(c candidate) (float64, bool) {
				if c == current || !checkDynamic(s, sec, c).Empty() {
					return 0, false
				}
				return s.moveDelta(sec, c), true
			})
			if !ok || delta <= o.budget.MinImprovement {
				continue
			}
			s.assign(sec, c)
			s.settle()
			s.stats.Moves++
			s.stats.ScoreTrace = append(s.stats.ScoreTrace, s.Score())
			moved = true
		}
		s.stats.Sweeps++
		if !moved {
			s.stats.Converged = true
			return
		}
	}
}

// verify panics when the run broke one of the optimizer guarantees.
func (o *optimizer) verify(feasibleBefore int, conflictedBefore []int) {
	s := o.s
	if after := s.FeasibleCount(); after < feasibleBefore {
		invariant("optimize", "feasible count dropped from %d to %d", feasibleBefore, after)
	}
	for _, sec := range s.conflicted() {
		if !lo.Contains(conflictedBefore, sec) {
			invariant("optimize", "section %s became conflicted", s.cat.sections[sec].ID)
		}
	}
	for i := 1; i < len(s.stats.ScoreTrace); i++ {
		if s.stats.ScoreTrace[i] < s.stats.ScoreTrace[i-1]-1e-6 {
			invariant("optimize", "score fell from %.6f to %.6f", s.stats.ScoreTrace[i-1], s.stats.ScoreTrace[i])
		}
	}
}
