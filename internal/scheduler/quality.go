package scheduler

// Weights balance the soft-preference terms of the quality score.
type Weights struct {
	Preference  float64 `json:"preference" mapstructure:"preference"`
	Utilization float64 `json:"utilization" mapstructure:"utilization"`
	Balance     float64 `json:"balance" mapstructure:"balance"`
}

// DefaultWeights is used when a caller supplies no weights.
var DefaultWeights = Weights{Preference: 1, Utilization: 1, Balance: 0.5}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Quality breaks the score into its terms.
// Score = Preference*wP + Utilization*wU - BalanceVariance*wB.
type Quality struct {
	Score           float64 `json:"score"`
	Preference      float64 `json:"preference"`
	Utilization     float64 `json:"utilization"`
	BalanceVariance float64 `json:"balanceVariance"`
}

// Quality scores the current schedule from scratch.
func (s *Schedule) Quality() Quality {
	var q Quality
	for sec, p := range s.places {
		if !p.set {
			continue
		}
		c := candidate{slot: p.slot, room: p.room, instr: p.instr}
		q.Preference += s.cat.preference(sec, c)
		q.Utilization += s.cat.utilization(sec, c)
	}
	q.BalanceVariance = s.variance(s.loadSum, s.loadSq)
	q.Score = s.weights.Preference*q.Preference + s.weights.Utilization*q.Utilization - s.weights.Balance*q.BalanceVariance
	return q
}

// Score is shorthand for Quality().Score.
func (s *Schedule) Score() float64 {
	return s.Quality().Score
}

func (c *Catalog) preference(sec int, cand candidate) float64 {
	pref, _ := c.slotPreference(cand.instr, cand.slot)
	return pref
}

// utilization is the fraction of the room's seats the section fills.
func (c *Catalog) utilization(sec int, cand candidate) float64 {
	capacity := c.rooms[cand.room].Capacity
	if capacity <= 0 {
		return 1
	}
	return float64(c.need[sec]) / float64(capacity)
}

// localScore is the greedy placement score: preference plus tightness of fit.
func (s *Schedule) localScore(sec int, c candidate) float64 {
	return s.weights.Preference*s.cat.preference(sec, c) + s.weights.Utilization*s.cat.utilization(sec, c)
}

func (s *Schedule) variance(sum, sq int) float64 {
	n := float64(len(s.load))
	if n == 0 {
		return 0
	}
	mean := float64(sum) / n
	v := float64(sq)/n - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

// moveDelta is the change in total score if sec moved to c. It does not
// touch the schedule so it can run against a shared snapshot.
func (s *Schedule) moveDelta(sec int, c candidate) float64 {
	delta := s.localScore(sec, c)
	sum, sq := s.loadSum, s.loadSq
	shift := func(before, after int) {
		sum += after - before
		sq += after*after - before*before
	}
	cur := s.places[sec]
	switch {
	case !cur.set:
		shift(s.load[c.instr], s.load[c.instr]+s.cat.loadOf(sec, c.instr))
	case cur.instr == c.instr:
		delta -= s.localScore(sec, candidate{slot: cur.slot, room: cur.room, instr: cur.instr})
	default:
		delta -= s.localScore(sec, candidate{slot: cur.slot, room: cur.room, instr: cur.instr})
		shift(s.load[cur.instr], s.load[cur.instr]-s.cat.loadOf(sec, cur.instr))
		shift(s.load[c.instr], s.load[c.instr]+s.cat.loadOf(sec, c.instr))
	}
	return delta - s.weights.Balance*(s.variance(sum, sq)-s.variance(s.loadSum, s.loadSq))
}
