package catalogio

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classgrid-api/internal/scheduler"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func sampleDir(t *testing.T) string {
	return writeFiles(t, map[string]string{
		GridFile:         "days,slots_per_day,slot_minutes,day_start_minute\nMON|wed,4,60,480\n",
		RoomsFile:        "id,capacity,kind,equipment\nR1,30,,projector|whiteboard\nLAB1,20,lab,microscope\n",
		InstructorsFile:  "id,qualifications,max_load,load_mode\nI1,math|physics,2,\nI2,biology,,UNITS\n",
		AvailabilityFile: "instructor_id,day,start,length,preference\nI1,Monday,0,4,1\nI1,3,0,2,0\n",
		SectionsFile: "id,course,kind,capacity,duration,equipment,qualification,room_kind,instructor_id\n" +
			"S1,MATH101,lecture,25,1,projector,math,,\n" +
			"S2,BIO110,lab,15,2,microscope,biology,lab,I2\n",
		CohortsFile: "id,size,sections\nC1,25,S1|S2\n",
	})
}

func TestLoadCSVDir(t *testing.T) {
	in, err := LoadCSVDir(sampleDir(t))
	require.NoError(t, err)

	assert.Equal(t, scheduler.Grid{Days: []int{1, 3}, SlotsPerDay: 4, SlotMinutes: 60, DayStartMinute: 480}, in.Grid)
	require.Len(t, in.Rooms, 2)
	assert.Equal(t, []string{"projector", "whiteboard"}, in.Rooms[0].Equipment)
	assert.Equal(t, "lab", in.Rooms[1].Kind)

	require.Len(t, in.Instructors, 2)
	assert.Equal(t, []string{"math", "physics"}, in.Instructors[0].Qualifications)
	assert.Equal(t, []scheduler.Window{{Day: 1, Start: 0, Length: 4, Preference: 1}, {Day: 3, Start: 0, Length: 2}}, in.Instructors[0].Availability)
	assert.Equal(t, scheduler.LoadUnits, in.Instructors[1].LoadMode)
	assert.Empty(t, in.Instructors[1].Availability)

	require.Len(t, in.Sections, 2)
	assert.Equal(t, "I2", in.Sections[1].InstructorID)
	assert.Equal(t, scheduler.CourseKind("lab"), in.Sections[1].Kind)
	require.Len(t, in.Cohorts, 1)
	assert.Equal(t, []string{"S1", "S2"}, in.Cohorts[0].Sections)

	_, err = scheduler.NewCatalog(in)
	require.NoError(t, err)
}

func TestLoadCSVDirOptionalFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		GridFile:        "days,slots_per_day,slot_minutes,day_start_minute\n1,2,50,540\n",
		RoomsFile:       "id,capacity,kind,equipment\nR1,30,,\n",
		InstructorsFile: "id,qualifications,max_load,load_mode\nI1,,,\n",
		SectionsFile:    "id,course,kind,capacity,duration,equipment,qualification,room_kind,instructor_id\nS1,,,10,1,,,,\n",
	})
	in, err := LoadCSVDir(dir)
	require.NoError(t, err)
	assert.Empty(t, in.Cohorts)
	assert.Empty(t, in.Instructors[0].Availability)
}

func TestLoadCSVDirErrors(t *testing.T) {
	dir := sampleDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, RoomsFile)))
	_, err := LoadCSVDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), RoomsFile)

	dir = sampleDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, GridFile), []byte("days,slots_per_day,slot_minutes,day_start_minute\nFUNDAY,4,60,480\n"), 0o644))
	_, err = LoadCSVDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FUNDAY")

	dir = sampleDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, AvailabilityFile), []byte("instructor_id,day,start,length,preference\nI9,1,0,1,0\n"), 0o644))
	_, err = LoadCSVDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown instructor I9")
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	in, err := LoadJSON(strings.NewReader(`{"grid":{"days":[1],"slotsPerDay":2,"slotMinutes":60},"rooms":[{"id":"R1","capacity":10}],"instructors":[{"id":"I1"}],"sections":[{"id":"S1","capacity":5,"duration":1}]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, in.Grid.SlotsPerDay)
	assert.Len(t, in.Sections, 1)

	_, err = LoadJSON(strings.NewReader(`{"grid":{},"roomz":[]}`))
	assert.Error(t, err)
}

func TestReportWriters(t *testing.T) {
	in, err := LoadCSVDir(sampleDir(t))
	require.NoError(t, err)
	cat, err := scheduler.NewCatalog(in)
	require.NoError(t, err)
	sched, err := scheduler.New(scheduler.Config{}, nil).GenerateInitialSchedule(context.Background(), cat)
	require.NoError(t, err)
	report := scheduler.BuildReport(sched)
	require.Equal(t, scheduler.StatusComplete, report.Status)

	var csvOut bytes.Buffer
	require.NoError(t, WriteReportCSV(&csvOut, report))
	records, err := csv.NewReader(&csvOut).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "section_id", records[0][3])
	assert.ElementsMatch(t, []string{"S1", "S2"}, []string{records[1][3], records[2][3]})

	var text bytes.Buffer
	require.NoError(t, WriteReportText(&text, report))
	assert.Contains(t, text.String(), "Status: complete (2/2 sections placed, 2 feasible)")
	assert.Contains(t, text.String(), "LAB1")

	var js bytes.Buffer
	require.NoError(t, WriteReportJSON(&js, report))
	assert.Contains(t, js.String(), `"status": "complete"`)

	ds := ReportDataset("Fall", report)
	assert.Len(t, ds.Rows, 2)
	assert.Len(t, ds.Rows[0], len(ds.Headers))
}

func TestSummaryLinesExplainUnassigned(t *testing.T) {
	report := scheduler.Report{
		Status: scheduler.StatusPartial,
		UnassignedSections: []scheduler.UnassignedSection{
			{SectionID: "S3", Reasons: []scheduler.ConflictKind{scheduler.RoomDoubleBooked}},
			{SectionID: "S4"},
		},
	}
	report.Summary.Suggestions = []string{scheduler.RoomDoubleBooked.Suggestion()}
	report.PreferenceViolations = []scheduler.PreferenceViolation{{SectionID: "S1"}}
	report.Improvement = &scheduler.Improvement{FeasibleBefore: 1, FeasibleAfter: 2, ScoreBefore: 1.5, ScoreAfter: 1.25, ScoreDelta: -0.25}

	lines := SummaryLines(report)
	assert.Contains(t, lines, "Unassigned S3: ROOM_DOUBLE_BOOKED")
	assert.Contains(t, lines, "Unassigned S4: not attempted")
	assert.Contains(t, lines, "Optimizer: feasible 1 -> 2, score 1.5000 -> 1.2500 (-0.2500)")
	assert.Contains(t, lines, "Preference misses: 1 sections below their instructor's best window")
	assert.Contains(t, lines, "Suggestion: "+scheduler.RoomDoubleBooked.Suggestion())

	var out bytes.Buffer
	require.NoError(t, WriteReportCSV(&out, report))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}
