package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classgrid-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRunRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schedule_runs WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_runs")).
		WithArgs(sqlmock.AnyArg(), "term-1", 3, string(models.ScheduleRunStatusDraft), 1.5, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.ScheduleRun{TermID: "term-1", Score: 1.5}
	require.NoError(t, repo.CreateVersioned(context.Background(), nil, run))
	assert.Equal(t, 3, run.Version)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, types.JSONText(`{}`), run.Meta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryCreateVersionedRequiresTerm(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunRepository(db)

	assert.Error(t, repo.CreateVersioned(context.Background(), nil, &models.ScheduleRun{}))
	assert.Error(t, repo.CreateVersioned(context.Background(), nil, nil))
}

func TestScheduleRunRepositoryListByTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunRepository(db)

	rows := sqlmock.NewRows([]string{"id", "term_id", "version", "status", "score", "meta", "created_at", "updated_at"}).
		AddRow("run-2", "term-1", 2, string(models.ScheduleRunStatusPublished), 2.25, []byte(`{}`), time.Now(), time.Now()).
		AddRow("run-1", "term-1", 1, string(models.ScheduleRunStatusArchived), 1.0, []byte(`{}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_runs WHERE term_id = $1 ORDER BY version DESC")).
		WithArgs("term-1").
		WillReturnRows(rows)

	list, err := repo.ListByTerm(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.ScheduleRunStatusPublished, list[0].Status)
	assert.Equal(t, 2.25, list[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "run-1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_runs SET status = $1, meta = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(string(models.ScheduleRunStatusPublished), types.JSONText(`{"published":true}`), sqlmock.AnyArg(), "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_runs SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(string(models.ScheduleRunStatusArchived), sqlmock.AnyArg(), "run-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), nil, "run-1", models.ScheduleRunStatusPublished, types.JSONText(`{"published":true}`)))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), nil, "run-2", models.ScheduleRunStatusArchived, nil), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryArchivePublished(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_runs SET status = $1, updated_at = $2 WHERE term_id = $3 AND status = $4 AND id <> $5")).
		WithArgs(string(models.ScheduleRunStatusArchived), sqlmock.AnyArg(), "term-1", string(models.ScheduleRunStatusPublished), "run-3").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ArchivePublished(context.Background(), nil, "term-1", "run-3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
