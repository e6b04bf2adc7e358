package catalogio

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/noah-isme/classgrid-api/internal/scheduler"
	"github.com/noah-isme/classgrid-api/pkg/export"
)

// ReportRow is one placed section as written to CSV.
type ReportRow struct {
	Day          string `csv:"day"`
	Start        string `csv:"start"`
	End          string `csv:"end"`
	SectionID    string `csv:"section_id"`
	Course       string `csv:"course"`
	Kind         string `csv:"kind"`
	RoomID       string `csv:"room_id"`
	InstructorID string `csv:"instructor_id"`
	Cohorts      string `csv:"cohorts"`
	Preference   string `csv:"preference"`
}

// ReportRows flattens the assignments of a report in report order.
func ReportRows(r scheduler.Report) []*ReportRow {
	return lo.Map(r.Assignments, func(a scheduler.ReportAssignment, _ int) *ReportRow {
		return &ReportRow{
			Day:          a.DayName,
			Start:        a.StartTime,
			End:          a.EndTime,
			SectionID:    a.SectionID,
			Course:       a.Course,
			Kind:         string(a.Kind),
			RoomID:       a.RoomID,
			InstructorID: a.InstructorID,
			Cohorts:      strings.Join(a.Cohorts, listSeparator),
			Preference:   strconv.FormatFloat(a.Preference, 'f', 2, 64),
		}
	})
}

// SummaryLines describes the outcome of a run in a few human readable lines.
func SummaryLines(r scheduler.Report) []string {
	lines := []string{
		fmt.Sprintf("Status: %s (%d/%d sections placed, %d feasible)", r.Status, r.Assigned, r.TotalSections, r.Feasible),
		fmt.Sprintf("Score: %.4f (preference %.4f, utilization %.4f, balance variance %.4f)",
			r.Quality.Score, r.Quality.Preference, r.Quality.Utilization, r.Quality.BalanceVariance),
	}
	if imp := r.Improvement; imp != nil {
		lines = append(lines, fmt.Sprintf("Optimizer: feasible %d -> %d, score %.4f -> %.4f (%+.4f)",
			imp.FeasibleBefore, imp.FeasibleAfter, imp.ScoreBefore, imp.ScoreAfter, imp.ScoreDelta))
	}
	if r.BudgetExceeded {
		lines = append(lines, "Optimizer stopped on its budget")
	}
	if r.Cancelled {
		lines = append(lines, "Run was cancelled")
	}
	for _, u := range r.UnassignedSections {
		reasons := lo.Map(u.Reasons, func(k scheduler.ConflictKind, _ int) string { return k.String() })
		if len(reasons) == 0 {
			reasons = []string{"not attempted"}
		}
		lines = append(lines, fmt.Sprintf("Unassigned %s: %s", u.SectionID, strings.Join(reasons, ", ")))
	}
	for _, c := range r.Conflicts {
		lines = append(lines, fmt.Sprintf("Conflict %s [%s]: %s", c.Kind, c.Severity, c.Message))
	}
	if n := len(r.PreferenceViolations); n > 0 {
		lines = append(lines, fmt.Sprintf("Preference misses: %d sections below their instructor's best window", n))
	}
	for _, hint := range r.Summary.Suggestions {
		lines = append(lines, "Suggestion: "+hint)
	}
	return lines
}

// ReportDataset converts a report into a renderable export dataset.
func ReportDataset(title string, r scheduler.Report) export.Dataset {
	rows := ReportRows(r)
	return export.Dataset{
		Title:   title,
		Summary: SummaryLines(r),
		Headers: []string{"Day", "Start", "End", "Section", "Course", "Kind", "Room", "Instructor", "Cohorts", "Preference"},
		Rows: lo.Map(rows, func(row *ReportRow, _ int) []string {
			return []string{row.Day, row.Start, row.End, row.SectionID, row.Course, row.Kind, row.RoomID, row.InstructorID, row.Cohorts, row.Preference}
		}),
	}
}

// WriteReportCSV writes one CSV row per placed section.
func WriteReportCSV(w io.Writer, r scheduler.Report) error {
	rows := ReportRows(r)
	if len(rows) == 0 {
		_, err := io.WriteString(w, "day,start,end,section_id,course,kind,room_id,instructor_id,cohorts,preference\n")
		return err
	}
	return gocsv.Marshal(rows, w)
}

// WriteReportJSON writes the full report as indented JSON.
func WriteReportJSON(w io.Writer, r scheduler.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteReportText writes the summary followed by an aligned timetable and
// per-room and per-instructor usage.
func WriteReportText(w io.Writer, r scheduler.Report) error {
	for _, line := range SummaryLines(r) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SLOT\tSECTION\tCOURSE\tROOM\tINSTRUCTOR\tPREF")
	for _, a := range r.Assignments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n", a.Label, a.SectionID, a.Course, a.RoomID, a.InstructorID, a.Preference)
	}
	if len(r.Rooms) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ROOM\tSECTIONS\tUSED\tUTILIZATION")
		for _, room := range r.Rooms {
			fmt.Fprintf(tw, "%s\t%d\t%d/%d\t%.2f%%\n", room.RoomID, room.Sections, room.UsedUnits, room.TotalUnits, room.Utilization)
		}
	}
	if len(r.Instructors) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "INSTRUCTOR\tSECTIONS\tLOAD")
		for _, inst := range r.Instructors {
			limit := "-"
			if inst.MaxLoad > 0 {
				limit = strconv.Itoa(inst.MaxLoad)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d/%s\n", inst.InstructorID, inst.Sections, inst.Load, limit)
		}
	}
	return tw.Flush()
}
