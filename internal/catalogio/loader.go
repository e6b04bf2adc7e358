// Package catalogio reads scheduling catalogs from JSON or CSV files and
// writes schedule reports in the formats the CLI and exports use.
package catalogio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/noah-isme/classgrid-api/internal/scheduler"
)

// CSV file names looked up by LoadCSVDir. Availability and cohort files are
// optional.
const (
	GridFile         = "grid.csv"
	RoomsFile        = "rooms.csv"
	InstructorsFile  = "instructors.csv"
	AvailabilityFile = "availability.csv"
	SectionsFile     = "sections.csv"
	CohortsFile      = "cohorts.csv"
)

// listSeparator splits multi-valued CSV cells such as equipment lists.
const listSeparator = "|"

type gridRow struct {
	Days           string `csv:"days"`
	SlotsPerDay    int    `csv:"slots_per_day"`
	SlotMinutes    int    `csv:"slot_minutes"`
	DayStartMinute int    `csv:"day_start_minute"`
}

type roomRow struct {
	ID        string `csv:"id"`
	Capacity  int    `csv:"capacity"`
	Kind      string `csv:"kind"`
	Equipment string `csv:"equipment"`
}

type instructorRow struct {
	ID             string `csv:"id"`
	Qualifications string `csv:"qualifications"`
	MaxLoad        int    `csv:"max_load"`
	LoadMode       string `csv:"load_mode"`
}

type availabilityRow struct {
	InstructorID string  `csv:"instructor_id"`
	Day          string  `csv:"day"`
	Start        int     `csv:"start"`
	Length       int     `csv:"length"`
	Preference   float64 `csv:"preference"`
}

type sectionRow struct {
	ID            string `csv:"id"`
	Course        string `csv:"course"`
	Kind          string `csv:"kind"`
	Capacity      int    `csv:"capacity"`
	Duration      int    `csv:"duration"`
	Equipment     string `csv:"equipment"`
	Qualification string `csv:"qualification"`
	RoomKind      string `csv:"room_kind"`
	InstructorID  string `csv:"instructor_id"`
}

type cohortRow struct {
	ID       string `csv:"id"`
	Size     int    `csv:"size"`
	Sections string `csv:"sections"`
}

// LoadJSON decodes a catalog input. Unknown fields are rejected so typos do
// not silently drop constraints.
func LoadJSON(r io.Reader) (scheduler.Input, error) {
	var in scheduler.Input
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return scheduler.Input{}, fmt.Errorf("decode catalog: %w", err)
	}
	return in, nil
}

// LoadJSONFile opens path and decodes it with LoadJSON.
func LoadJSONFile(path string) (scheduler.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return scheduler.Input{}, err
	}
	defer f.Close()
	return LoadJSON(f)
}

// LoadCSVDir assembles a catalog input from the CSV files in dir.
func LoadCSVDir(dir string) (scheduler.Input, error) {
	var in scheduler.Input

	var grids []*gridRow
	if err := readCSV(dir, GridFile, true, &grids); err != nil {
		return in, err
	}
	if len(grids) != 1 {
		return in, fmt.Errorf("%s: expected exactly one row, got %d", GridFile, len(grids))
	}
	days, err := parseDays(grids[0].Days)
	if err != nil {
		return in, fmt.Errorf("%s: %w", GridFile, err)
	}
	in.Grid = scheduler.Grid{
		Days:           days,
		SlotsPerDay:    grids[0].SlotsPerDay,
		SlotMinutes:    grids[0].SlotMinutes,
		DayStartMinute: grids[0].DayStartMinute,
	}

	var rooms []*roomRow
	if err := readCSV(dir, RoomsFile, true, &rooms); err != nil {
		return in, err
	}
	in.Rooms = lo.Map(rooms, func(r *roomRow, _ int) scheduler.Room {
		return scheduler.Room{ID: r.ID, Capacity: r.Capacity, Kind: r.Kind, Equipment: splitList(r.Equipment)}
	})

	var instructors []*instructorRow
	if err := readCSV(dir, InstructorsFile, true, &instructors); err != nil {
		return in, err
	}
	var windows []*availabilityRow
	if err := readCSV(dir, AvailabilityFile, false, &windows); err != nil {
		return in, err
	}
	byInstructor := make(map[string][]scheduler.Window)
	for i, w := range windows {
		day := scheduler.ParseDay(w.Day)
		if day == 0 {
			return in, fmt.Errorf("%s row %d: unknown day %q", AvailabilityFile, i+2, w.Day)
		}
		byInstructor[w.InstructorID] = append(byInstructor[w.InstructorID], scheduler.Window{
			Day: day, Start: w.Start, Length: w.Length, Preference: w.Preference,
		})
	}
	known := make(map[string]bool, len(instructors))
	for _, r := range instructors {
		known[r.ID] = true
		in.Instructors = append(in.Instructors, scheduler.Instructor{
			ID:             r.ID,
			Qualifications: splitList(r.Qualifications),
			MaxLoad:        r.MaxLoad,
			LoadMode:       scheduler.LoadMode(strings.ToLower(strings.TrimSpace(r.LoadMode))),
			Availability:   byInstructor[r.ID],
		})
	}
	for id := range byInstructor {
		if !known[id] {
			return in, fmt.Errorf("%s: availability for unknown instructor %s", AvailabilityFile, id)
		}
	}

	var sections []*sectionRow
	if err := readCSV(dir, SectionsFile, true, &sections); err != nil {
		return in, err
	}
	in.Sections = lo.Map(sections, func(r *sectionRow, _ int) scheduler.Section {
		return scheduler.Section{
			ID:            r.ID,
			Course:        r.Course,
			Kind:          scheduler.CourseKind(r.Kind),
			Capacity:      r.Capacity,
			Duration:      r.Duration,
			Equipment:     splitList(r.Equipment),
			Qualification: r.Qualification,
			RoomKind:      r.RoomKind,
			InstructorID:  strings.TrimSpace(r.InstructorID),
		}
	})

	var cohorts []*cohortRow
	if err := readCSV(dir, CohortsFile, false, &cohorts); err != nil {
		return in, err
	}
	in.Cohorts = lo.Map(cohorts, func(r *cohortRow, _ int) scheduler.Cohort {
		return scheduler.Cohort{ID: r.ID, Size: r.Size, Sections: splitList(r.Sections)}
	})
	return in, nil
}

func readCSV(dir, name string, required bool, out interface{}) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, out); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) && !required {
			return nil
		}
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func parseDays(raw string) ([]int, error) {
	parts := splitList(raw)
	if len(parts) == 0 {
		return nil, errors.New("days are required")
	}
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		day := scheduler.ParseDay(p)
		if day == 0 {
			return nil, fmt.Errorf("unknown day %q", p)
		}
		days = append(days, day)
	}
	return days, nil
}

func splitList(raw string) []string {
	parts := lo.Map(strings.Split(raw, listSeparator), func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Compact(parts)
}
