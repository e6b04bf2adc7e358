package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classgrid-api/internal/models"
)

// CatalogRepository reads the term-scoped scheduling catalog.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindTerm loads the grid definition of a term. Missing rows return sql.ErrNoRows.
func (r *CatalogRepository) FindTerm(ctx context.Context, termID string) (*models.SchedulingTerm, error) {
	const query = `SELECT id, name, days, slots_per_day, slot_minutes, day_start_minute, updated_at FROM scheduling_terms WHERE id = $1`
	var term models.SchedulingTerm
	if err := r.db.GetContext(ctx, &term, query, termID); err != nil {
		return nil, err
	}
	return &term, nil
}

// ListRooms returns the rooms bookable in a term.
func (r *CatalogRepository) ListRooms(ctx context.Context, termID string) ([]models.Room, error) {
	const query = `SELECT id, term_id, capacity, kind, equipment FROM rooms WHERE term_id = $1 ORDER BY id`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, termID); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListInstructors returns the instructors teaching in a term.
func (r *CatalogRepository) ListInstructors(ctx context.Context, termID string) ([]models.Instructor, error) {
	const query = `SELECT id, term_id, name, qualifications, max_load, load_mode, availability FROM instructors WHERE term_id = $1 ORDER BY id`
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, termID); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, nil
}

// ListSections returns the sections offered in a term.
func (r *CatalogRepository) ListSections(ctx context.Context, termID string) ([]models.Section, error) {
	const query = `SELECT id, term_id, course, kind, capacity, duration, equipment, qualification, room_kind, instructor_id
FROM sections WHERE term_id = $1 ORDER BY id`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, termID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListCohorts returns cohorts with their member sections aggregated.
func (r *CatalogRepository) ListCohorts(ctx context.Context, termID string) ([]models.Cohort, error) {
	const query = `SELECT c.id, c.term_id, c.size, COALESCE(array_agg(m.section_id ORDER BY m.section_id) FILTER (WHERE m.section_id IS NOT NULL), '{}') AS section_ids
FROM cohorts c LEFT JOIN cohort_members m ON m.cohort_id = c.id
WHERE c.term_id = $1 GROUP BY c.id, c.term_id, c.size ORDER BY c.id`
	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query, termID); err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	return cohorts, nil
}
