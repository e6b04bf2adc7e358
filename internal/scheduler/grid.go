package scheduler

import (
	"fmt"
	"sort"
)

// Grid describes the finite weekly time-slot grid a run schedules against.
// Days use ISO numbering (Monday = 1). Start offsets and durations are counted
// in grid units of SlotMinutes each, beginning at DayStartMinute.
type Grid struct {
	Days           []int `json:"days"`
	SlotsPerDay    int   `json:"slotsPerDay"`
	SlotMinutes    int   `json:"slotMinutes"`
	DayStartMinute int   `json:"dayStartMinute"`
}

// DefaultSlotMinutes is the granularity used when a grid leaves it unset.
const DefaultSlotMinutes = 30

// TimeSlot is an immutable (day, start, duration) value on the grid.
type TimeSlot struct {
	Day      int `json:"day"`
	Start    int `json:"start"`
	Duration int `json:"duration"`
}

// End returns the first unit after the slot.
func (t TimeSlot) End() int {
	return t.Start + t.Duration
}

// Overlaps reports whether both slots share at least one unit on the same day.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	return t.Day == other.Day && t.Start < other.End() && other.Start < t.End()
}

// Before orders slots by day, start and duration.
func (t TimeSlot) Before(other TimeSlot) bool {
	if t.Day != other.Day {
		return t.Day < other.Day
	}
	if t.Start != other.Start {
		return t.Start < other.Start
	}
	return t.Duration < other.Duration
}

func (g Grid) normalized() Grid {
	days := make([]int, len(g.Days))
	copy(days, g.Days)
	sort.Ints(days)
	g.Days = days
	if g.SlotMinutes <= 0 {
		g.SlotMinutes = DefaultSlotMinutes
	}
	return g
}

func (g Grid) validate() []string {
	var issues []string
	if len(g.Days) == 0 {
		issues = append(issues, "grid must contain at least one day")
	}
	seen := make(map[int]bool, len(g.Days))
	for _, day := range g.Days {
		if day < 1 || day > 7 {
			issues = append(issues, fmt.Sprintf("grid day %d must be between 1 and 7", day))
		}
		if seen[day] {
			issues = append(issues, fmt.Sprintf("grid day %d listed twice", day))
		}
		seen[day] = true
	}
	if g.SlotsPerDay <= 0 {
		issues = append(issues, "grid slotsPerDay must be > 0")
	}
	if g.DayStartMinute < 0 || g.DayStartMinute+g.SlotsPerDay*g.SlotMinutes > 24*60 {
		issues = append(issues, "grid does not fit inside a single day")
	}
	return issues
}

// Contains reports whether the slot lies completely inside the grid.
func (g Grid) Contains(slot TimeSlot) bool {
	if slot.Duration <= 0 || slot.Start < 0 || slot.End() > g.SlotsPerDay {
		return false
	}
	for _, day := range g.Days {
		if day == slot.Day {
			return true
		}
	}
	return false
}

// Starts enumerates every slot of the given duration that fits the grid, in
// chronological order.
func (g Grid) Starts(duration int) []TimeSlot {
	if duration <= 0 || duration > g.SlotsPerDay {
		return nil
	}
	slots := make([]TimeSlot, 0, len(g.Days)*(g.SlotsPerDay-duration+1))
	for _, day := range g.Days {
		for start := 0; start+duration <= g.SlotsPerDay; start++ {
			slots = append(slots, TimeSlot{Day: day, Start: start, Duration: duration})
		}
	}
	return slots
}

// Units returns the number of schedulable units per week.
func (g Grid) Units() int {
	return len(g.Days) * g.SlotsPerDay
}

// Clock renders a unit offset as wall-clock time.
func (g Grid) Clock(unit int) string {
	minutes := g.DayStartMinute + unit*g.SlotMinutes
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Label renders a slot such as "MON 08:00-09:30".
func (g Grid) Label(slot TimeSlot) string {
	return fmt.Sprintf("%s %s-%s", DayName(slot.Day), g.Clock(slot.Start), g.Clock(slot.End()))
}

var dayNames = map[int]string{
	1: "MON",
	2: "TUE",
	3: "WED",
	4: "THU",
	5: "FRI",
	6: "SAT",
	7: "SUN",
}

// DayName returns the short name for an ISO weekday.
func DayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return fmt.Sprintf("D%d", day)
}

// ParseDay maps short or long weekday names and numerals to ISO weekdays.
// It returns 0 for unknown input.
func ParseDay(raw string) int {
	switch normalizeTag(raw) {
	case "1", "mon", "monday":
		return 1
	case "2", "tue", "tuesday":
		return 2
	case "3", "wed", "wednesday":
		return 3
	case "4", "thu", "thursday":
		return 4
	case "5", "fri", "friday":
		return 5
	case "6", "sat", "saturday":
		return 6
	case "7", "sun", "sunday":
		return 7
	}
	return 0
}
