package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classgrid-api/internal/models"
)

// ScheduleRunAssignmentRepository manages the placements of a run.
type ScheduleRunAssignmentRepository struct {
	db *sqlx.DB
}

// NewScheduleRunAssignmentRepository builds repository.
func NewScheduleRunAssignmentRepository(db *sqlx.DB) *ScheduleRunAssignmentRepository {
	return &ScheduleRunAssignmentRepository{db: db}
}

func (r *ScheduleRunAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// UpsertBatch writes assignments keyed by (run_id, section_id).
func (r *ScheduleRunAssignmentRepository) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, items []models.ScheduleRunAssignment) error {
	if len(items) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO schedule_run_assignments (id, run_id, section_id, day_of_week, start_slot, duration, room_id, instructor_id, created_at)
VALUES (:id, :run_id, :section_id, :day_of_week, :start_slot, :duration, :room_id, :instructor_id, :created_at)
ON CONFLICT (run_id, section_id) DO UPDATE
SET day_of_week = EXCLUDED.day_of_week,
    start_slot = EXCLUDED.start_slot,
    duration = EXCLUDED.duration,
    room_id = EXCLUDED.room_id,
    instructor_id = EXCLUDED.instructor_id`

	for i := range items {
		item := &items[i]
		if item.RunID == "" {
			return fmt.Errorf("assignment %s has no run_id", item.SectionID)
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, item); err != nil {
			return fmt.Errorf("upsert schedule run assignment %s: %w", item.SectionID, err)
		}
	}
	return nil
}

// ListByRun returns a run's assignments ordered by day, slot and room.
func (r *ScheduleRunAssignmentRepository) ListByRun(ctx context.Context, runID string) ([]models.ScheduleRunAssignment, error) {
	const query = `SELECT id, run_id, section_id, day_of_week, start_slot, duration, room_id, instructor_id, created_at
FROM schedule_run_assignments WHERE run_id = $1 ORDER BY day_of_week ASC, start_slot ASC, room_id ASC`
	var items []models.ScheduleRunAssignment
	if err := r.db.SelectContext(ctx, &items, query, runID); err != nil {
		return nil, fmt.Errorf("list schedule run assignments: %w", err)
	}
	return items, nil
}
