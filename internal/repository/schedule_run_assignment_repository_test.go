package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classgrid-api/internal/models"
)

func TestScheduleRunAssignmentRepositoryUpsertBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_run_assignments")).
		WithArgs(sqlmock.AnyArg(), "run-1", "S1", 1, 0, 2, "R1", "I1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_run_assignments")).
		WithArgs(sqlmock.AnyArg(), "run-1", "S2", 2, 3, 1, "R2", "I2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	items := []models.ScheduleRunAssignment{
		{RunID: "run-1", SectionID: "S1", DayOfWeek: 1, StartSlot: 0, Duration: 2, RoomID: "R1", InstructorID: "I1"},
		{RunID: "run-1", SectionID: "S2", DayOfWeek: 2, StartSlot: 3, Duration: 1, RoomID: "R2", InstructorID: "I2"},
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), nil, items))
	assert.NotEmpty(t, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunAssignmentRepositoryUpsertRequiresRun(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunAssignmentRepository(db)

	assert.NoError(t, repo.UpsertBatch(context.Background(), nil, nil))
	assert.Error(t, repo.UpsertBatch(context.Background(), nil, []models.ScheduleRunAssignment{{SectionID: "S1"}}))
}

func TestScheduleRunAssignmentRepositoryListByRun(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "run_id", "section_id", "day_of_week", "start_slot", "duration", "room_id", "instructor_id", "created_at"}).
		AddRow("a1", "run-1", "S1", 1, 0, 2, "R1", "I1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_run_assignments WHERE run_id = $1 ORDER BY day_of_week ASC, start_slot ASC, room_id ASC")).
		WithArgs("run-1").
		WillReturnRows(rows)

	items, err := repo.ListByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}
