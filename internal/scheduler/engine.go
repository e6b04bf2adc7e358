package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// parallelScanThreshold is the candidate count below which scanning stays on
// the calling goroutine.
const parallelScanThreshold = 512

const scoreEpsilon = 1e-9

// Config tunes an Engine.
type Config struct {
	Weights Weights
	// Workers > 1 splits each candidate scan across that many goroutines.
	Workers int
}

// Engine runs the greedy assigner and the backtracking optimizer. It holds no
// per-run state and is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs an Engine.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Weights.IsZero() {
		cfg.Weights = DefaultWeights
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Weights returns the quality weights the engine scores with.
func (e *Engine) Weights() Weights { return e.cfg.Weights }

// GenerateInitialSchedule places sections one at a time in priority order,
// each at its best feasible candidate. Sections without a feasible candidate
// stay unassigned; the pass itself never fails. Cancelling ctx stops between
// sections and returns what was placed so far.
func (e *Engine) GenerateInitialSchedule(ctx context.Context, cat *Catalog) (*Schedule, error) {
	if cat == nil {
		return nil, ErrNilCatalog
	}
	started := time.Now()
	s := newSchedule(cat, e.cfg.Weights)
	for _, sec := range cat.order {
		if ctx.Err() != nil {
			s.cancelled = true
			break
		}
		c, _, ok := e.best(s, sec, placeScore(s, sec))
		if !ok {
			continue
		}
		s.assign(sec, c)
		s.stats.Placed++
	}
	s.settle()

	if conflicts := Detect(s); len(conflicts) > 0 {
		invariant("greedy", "%d conflicts after placement, first: %s", len(conflicts), conflicts[0].Message)
	}
	s.stats.Elapsed = time.Since(started)
	e.logger.Debug("greedy pass finished",
		zap.Int("sections", len(cat.sections)),
		zap.Int("placed", s.stats.Placed),
		zap.Bool("cancelled", s.cancelled),
		zap.Duration("elapsed", s.stats.Elapsed),
	)
	return s, nil
}

// placeScore scores feasible candidates by preference and room fit.
func placeScore(s *Schedule, sec int) func(candidate) (float64, bool) {
	return func(c candidate) (float64, bool) {
		if !checkDynamic(s, sec, c).Empty() {
			return 0, false
		}
		return s.localScore(sec, c), true
	}
}

type scanResult struct {
	cand  candidate
	score float64
	ok    bool
}

// best returns the highest scoring candidate of sec. Candidates are visited in
// (slot, room id, instructor id) order and ties keep the earlier one, so the
// earliest slot and then the lowest room id win. The schedule must not be
// written while best runs.
func (e *Engine) best(s *Schedule, sec int, score func(candidate) (float64, bool)) (candidate, float64, bool) {
	space := &s.cat.candidates[sec]
	workers := e.cfg.Workers
	if workers > len(space.starts) {
		workers = len(space.starts)
	}
	if workers <= 1 || space.count < parallelScanThreshold {
		r := scanRange(space, 0, len(space.starts), score)
		return r.cand, r.score, r.ok
	}

	// Workers take contiguous runs of starts so merging in worker order keeps
	// the sequential tie-break.
	chunk := (len(space.starts) + workers - 1) / workers
	results := make([]scanResult, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		from := w * chunk
		to := from + chunk
		if to > len(space.starts) {
			to = len(space.starts)
		}
		if from >= to {
			break
		}
		wg.Add(1)
		go func(w, from, to int) {
			defer wg.Done()
			results[w] = scanRange(space, from, to, score)
		}(w, from, to)
	}
	wg.Wait()

	var merged scanResult
	for _, r := range results {
		if r.ok && (!merged.ok || r.score > merged.score+scoreEpsilon) {
			merged = r
		}
	}
	return merged.cand, merged.score, merged.ok
}

func scanRange(space *candidateSpace, from, to int, score func(candidate) (float64, bool)) scanResult {
	var best scanResult
	space.eachIn(from, to, func(c candidate) bool {
		value, ok := score(c)
		if ok && (!best.ok || value > best.score+scoreEpsilon) {
			best = scanResult{cand: c, score: value, ok: true}
		}
		return true
	})
	return best
}
