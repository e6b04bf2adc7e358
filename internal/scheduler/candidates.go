package scheduler

import (
	"fmt"

	"github.com/samber/lo"
)

// candidateSpace holds a section's static candidates in factored form: each
// start pairs with every compatible room and with the instructors available
// for that start. Combinations are enumerated on demand.
type candidateSpace struct {
	rooms  []int
	starts []startOption
	count  int
}

// startOption is a start slot and the instructors free for all of its units.
// Slices are shared between sections with the same duration and instructors
// and must not be modified.
type startOption struct {
	slot   TimeSlot
	instrs []int
}

// each calls fn for every candidate in (slot, room id, instructor id) order
// and stops early when fn returns false.
func (cs *candidateSpace) each(fn func(candidate) bool) bool {
	return cs.eachIn(0, len(cs.starts), fn)
}

// eachIn enumerates the candidates of starts[from:to].
func (cs *candidateSpace) eachIn(from, to int, fn func(candidate) bool) bool {
	for _, opt := range cs.starts[from:to] {
		for _, room := range cs.rooms {
			for _, instr := range opt.instrs {
				if !fn(candidate{slot: opt.slot, room: room, instr: instr}) {
					return false
				}
			}
		}
	}
	return true
}

func (c *Catalog) buildCandidates() {
	c.candidates = make([]candidateSpace, len(c.sections))
	shared := make(map[string][]startOption)
	for i, sec := range c.sections {
		rooms := lo.Filter(lo.Range(len(c.rooms)), func(room int, _ int) bool { return c.roomFits(i, room) })
		instrs := lo.Filter(lo.Range(len(c.instructors)), func(instr int, _ int) bool {
			limit := c.instructors[instr].MaxLoad
			return c.instructorQualified(i, instr) && (limit <= 0 || c.loadOf(i, instr) <= limit)
		})
		if len(rooms) == 0 || len(instrs) == 0 {
			continue
		}
		key := fmt.Sprint(sec.Duration, instrs)
		starts, ok := shared[key]
		if !ok {
			starts = c.availableStarts(sec.Duration, instrs)
			shared[key] = starts
		}
		c.candidates[i] = candidateSpace{
			rooms:  rooms,
			starts: starts,
			count:  len(rooms) * lo.SumBy(starts, func(opt startOption) int { return len(opt.instrs) }),
		}
	}
}

// availableStarts lists the starts of the given duration at which at least
// one of instrs is available, with those instructors in id order.
func (c *Catalog) availableStarts(duration int, instrs []int) []startOption {
	var out []startOption
	for _, slot := range c.grid.Starts(duration) {
		free := lo.Filter(instrs, func(instr int, _ int) bool {
			_, ok := c.slotPreference(instr, slot)
			return ok
		})
		if len(free) > 0 {
			out = append(out, startOption{slot: slot, instrs: free})
		}
	}
	return out
}
