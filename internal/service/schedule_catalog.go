package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/noah-isme/classgrid-api/internal/models"
	"github.com/noah-isme/classgrid-api/internal/scheduler"
	appErrors "github.com/noah-isme/classgrid-api/pkg/errors"
)

type catalogReader interface {
	FindTerm(ctx context.Context, termID string) (*models.SchedulingTerm, error)
	ListRooms(ctx context.Context, termID string) ([]models.Room, error)
	ListInstructors(ctx context.Context, termID string) ([]models.Instructor, error)
	ListSections(ctx context.Context, termID string) ([]models.Section, error)
	ListCohorts(ctx context.Context, termID string) ([]models.Cohort, error)
}

// loadStoredCatalog assembles the engine input for a term from the catalog tables.
func loadStoredCatalog(ctx context.Context, repo catalogReader, termID string) (scheduler.Input, error) {
	if repo == nil {
		return scheduler.Input{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "no stored catalog available; send the catalog inline")
	}
	term, err := repo.FindTerm(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scheduler.Input{}, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	rooms, err := repo.ListRooms(ctx, termID)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	instructors, err := repo.ListInstructors(ctx, termID)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructors")
	}
	sections, err := repo.ListSections(ctx, termID)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	cohorts, err := repo.ListCohorts(ctx, termID)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohorts")
	}

	in := scheduler.Input{
		Grid: scheduler.Grid{
			Days:           lo.Map(term.Days, func(d int64, _ int) int { return int(d) }),
			SlotsPerDay:    term.SlotsPerDay,
			SlotMinutes:    term.SlotMinutes,
			DayStartMinute: term.DayStartMinute,
		},
		Rooms: lo.Map(rooms, func(r models.Room, _ int) scheduler.Room {
			return scheduler.Room{ID: r.ID, Capacity: r.Capacity, Equipment: r.Equipment, Kind: r.Kind}
		}),
		Sections: lo.Map(sections, func(s models.Section, _ int) scheduler.Section {
			return scheduler.Section{
				ID:            s.ID,
				Course:        s.Course,
				Kind:          scheduler.CourseKind(s.Kind),
				Capacity:      s.Capacity,
				Equipment:     s.Equipment,
				Duration:      s.Duration,
				Qualification: s.Qualification,
				RoomKind:      s.RoomKind,
				InstructorID:  lo.FromPtr(s.InstructorID),
			}
		}),
		Cohorts: lo.Map(cohorts, func(c models.Cohort, _ int) scheduler.Cohort {
			return scheduler.Cohort{ID: c.ID, Sections: c.SectionIDs, Size: c.Size}
		}),
	}
	for _, inst := range instructors {
		var windows []models.AvailabilityWindow
		if len(inst.Availability) > 0 {
			if err := json.Unmarshal(inst.Availability, &windows); err != nil {
				return scheduler.Input{}, appErrors.WithDetails(appErrors.ErrInvalidCatalog,
					fmt.Sprintf("instructor %s has malformed availability", inst.ID), []string{err.Error()})
			}
		}
		in.Instructors = append(in.Instructors, scheduler.Instructor{
			ID:             inst.ID,
			Qualifications: inst.Qualifications,
			MaxLoad:        inst.MaxLoad,
			LoadMode:       scheduler.LoadMode(inst.LoadMode),
			Availability: lo.Map(windows, func(w models.AvailabilityWindow, _ int) scheduler.Window {
				return scheduler.Window{Day: w.Day, Start: w.Start, Length: w.Length, Preference: w.Preference}
			}),
		})
	}
	return in, nil
}

// buildCatalog validates in and maps engine input errors onto ErrInvalidCatalog.
func buildCatalog(in scheduler.Input) (*scheduler.Catalog, error) {
	cat, err := scheduler.NewCatalog(in)
	if err == nil {
		return cat, nil
	}
	var inputErr *scheduler.InputError
	if errors.As(err, &inputErr) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidCatalog, inputErr.Error(), inputErr.Issues)
	}
	return nil, appErrors.Wrap(err, appErrors.ErrInvalidCatalog.Code, appErrors.ErrInvalidCatalog.Status, "failed to build catalog")
}
