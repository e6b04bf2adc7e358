package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/classgrid-api/internal/models"
)

const scheduleRunColumns = `id, term_id, version, status, score, meta, created_at, updated_at`

// ScheduleRunRepository persists versioned schedule runs.
type ScheduleRunRepository struct {
	db *sqlx.DB
}

// NewScheduleRunRepository constructs repository.
func NewScheduleRunRepository(db *sqlx.DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

func (r *ScheduleRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a run with the next version number for its term.
// Pass the surrounding transaction so the version read and insert are atomic.
func (r *ScheduleRunRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.ScheduleRun) error {
	if run == nil {
		return fmt.Errorf("schedule run payload is nil")
	}
	if run.TermID == "" {
		return fmt.Errorf("term_id is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.ScheduleRunStatusDraft
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedule_runs WHERE term_id = $1`
	if err := sqlx.GetContext(ctx, target, &run.Version, nextVersionQuery, run.TermID); err != nil {
		return fmt.Errorf("compute next schedule run version: %w", err)
	}

	const insertQuery = `
INSERT INTO schedule_runs (id, term_id, version, status, score, meta, created_at, updated_at)
VALUES (:id, :term_id, :version, :status, :score, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, run); err != nil {
		return fmt.Errorf("insert schedule run: %w", err)
	}
	return nil
}

// ListByTerm returns every run of a term, newest version first.
func (r *ScheduleRunRepository) ListByTerm(ctx context.Context, termID string) ([]models.ScheduleRun, error) {
	query := `SELECT ` + scheduleRunColumns + ` FROM schedule_runs WHERE term_id = $1 ORDER BY version DESC`
	var runs []models.ScheduleRun
	if err := r.db.SelectContext(ctx, &runs, query, termID); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}

// FindByID loads a run by its identifier. Missing rows return sql.ErrNoRows.
func (r *ScheduleRunRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRun, error) {
	query := `SELECT ` + scheduleRunColumns + ` FROM schedule_runs WHERE id = $1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a run; its assignments cascade.
func (r *ScheduleRunRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedule_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule run: %w", err)
	}
	return expectAffected(result, "delete schedule run")
}

// UpdateStatus sets the status and, when meta is non-empty, replaces meta.
func (r *ScheduleRunRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleRunStatus, meta types.JSONText) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	query := `UPDATE schedule_runs SET status = $1, updated_at = $2 WHERE id = $3`
	args := []interface{}{status, now, id}
	if len(meta) > 0 {
		query = `UPDATE schedule_runs SET status = $1, meta = $2, updated_at = $3 WHERE id = $4`
		args = []interface{}{status, meta, now, id}
	}
	result, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update schedule run status: %w", err)
	}
	return expectAffected(result, "update schedule run status")
}

// ArchivePublished demotes every other published run of the term.
func (r *ScheduleRunRepository) ArchivePublished(ctx context.Context, exec sqlx.ExtContext, termID, keepID string) error {
	const query = `UPDATE schedule_runs SET status = $1, updated_at = $2 WHERE term_id = $3 AND status = $4 AND id <> $5`
	if _, err := r.exec(exec).ExecContext(ctx, query, models.ScheduleRunStatusArchived, time.Now().UTC(), termID, models.ScheduleRunStatusPublished, keepID); err != nil {
		return fmt.Errorf("archive published schedule runs: %w", err)
	}
	return nil
}

func expectAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
