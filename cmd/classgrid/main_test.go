package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classgrid-api/internal/scheduler"
)

const twoSectionCatalog = `{
  "grid": {"days": [1, 2], "slotsPerDay": 4, "slotMinutes": 60, "dayStartMinute": 480},
  "rooms": [{"id": "R1", "capacity": 40}],
  "instructors": [{"id": "I1", "qualifications": ["math"]}],
  "sections": [
    {"id": "S1", "course": "MATH101", "capacity": 30, "duration": 1, "qualification": "math"},
    {"id": "S2", "course": "MATH201", "capacity": 30, "duration": 2, "qualification": "math"}
  ]
}`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestGenerateJSON(t *testing.T) {
	path := writeCatalog(t, twoSectionCatalog)

	out, _, err := execute(t, "", "generate", "-i", path, "--format", "json", "--seed", "7", "--strict")
	require.NoError(t, err)

	var report scheduler.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, scheduler.StatusComplete, report.Status)
	assert.Equal(t, 2, report.Feasible)
	assert.Len(t, report.Assignments, 2)
}

func TestGenerateFromStdinToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.csv")

	_, stderr, err := execute(t, twoSectionCatalog, "generate", "-i", "-", "-f", "csv", "-o", target, "--optimize=false")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Status: complete")

	body, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(body), "\n"))
}

func TestGenerateStrictFailsOnPartial(t *testing.T) {
	catalog := strings.Replace(twoSectionCatalog, `"days": [1, 2], "slotsPerDay": 4`, `"days": [1], "slotsPerDay": 2`, 1)
	path := writeCatalog(t, catalog)

	out, _, err := execute(t, "", "generate", "-i", path, "--strict")
	require.Error(t, err)
	assert.ErrorIs(t, err, errIncomplete)
	assert.Contains(t, out, "Status: partial")
}

func TestGenerateRejectsBadFlags(t *testing.T) {
	path := writeCatalog(t, twoSectionCatalog)

	_, _, err := execute(t, "", "generate", "-i", path, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, _, err = execute(t, "", "generate", "-i", path, "--w-preference", "0", "--w-utilization", "0", "--w-balance", "0")
	assert.ErrorContains(t, err, "weight")

	_, _, err = execute(t, "", "generate")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	out, _, err := execute(t, "", "validate", "-i", writeCatalog(t, twoSectionCatalog), "--show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog ok: 1 rooms, 1 instructors, 2 sections, 0 cohorts")
	assert.Contains(t, out, "S2")

	bad := strings.Replace(twoSectionCatalog, `"id": "S2"`, `"id": "S1"`, 1)
	_, _, err = execute(t, "", "validate", "-i", writeCatalog(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid catalog")
	assert.Contains(t, err.Error(), "S1")
}
