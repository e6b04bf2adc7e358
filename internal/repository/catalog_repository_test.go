package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepositoryFindTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduling_terms WHERE id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "days", "slots_per_day", "slot_minutes", "day_start_minute", "updated_at"}).
			AddRow("term-1", "Fall", "{1,2,3}", 8, 60, 480, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduling_terms WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	term, err := repo.FindTerm(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, pq.Int64Array{1, 2, 3}, term.Days)
	assert.Equal(t, 8, term.SlotsPerDay)

	_, err = repo.FindTerm(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryListsEntities(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE term_id = $1 ORDER BY id")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "capacity", "kind", "equipment"}).
			AddRow("R1", "term-1", 30, "", "{projector,whiteboard}"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM instructors WHERE term_id = $1 ORDER BY id")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "name", "qualifications", "max_load", "load_mode", "availability"}).
			AddRow("I1", "term-1", "Ada", "{math}", 4, "sections", []byte(`[{"day":1,"start":0,"length":4,"preference":1}]`)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sections WHERE term_id = $1 ORDER BY id")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "course", "kind", "capacity", "duration", "equipment", "qualification", "room_kind", "instructor_id"}).
			AddRow("S1", "term-1", "MATH101", "lecture", 25, 2, "{}", "math", "", nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cohorts c LEFT JOIN cohort_members m ON m.cohort_id = c.id")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "size", "section_ids"}).
			AddRow("C1", "term-1", 25, "{S1}"))

	rooms, err := repo.ListRooms(ctx, "term-1")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"projector", "whiteboard"}, rooms[0].Equipment)

	instructors, err := repo.ListInstructors(ctx, "term-1")
	require.NoError(t, err)
	assert.Equal(t, 4, instructors[0].MaxLoad)
	assert.Contains(t, string(instructors[0].Availability), `"preference":1`)

	sections, err := repo.ListSections(ctx, "term-1")
	require.NoError(t, err)
	assert.Nil(t, sections[0].InstructorID)
	assert.Empty(t, sections[0].Equipment)

	cohorts, err := repo.ListCohorts(ctx, "term-1")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"S1"}, cohorts[0].SectionIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
