package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-swap-api/internal/models"
)

// ClassRepository handles persistence for classes and their timetables.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class by its derived identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, school_code, grade, section, teacher_id, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListBySchool returns the classes of a school ordered by grade then section.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolCode string) ([]models.Class, error) {
	const query = `SELECT id, school_code, grade, section, teacher_id, created_at, updated_at
FROM classes WHERE school_code = $1
ORDER BY length(grade), grade, length(section), section`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, schoolCode); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// Create registers a class. ErrDuplicate is returned when the id already exists.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, school_code, grade, section, teacher_id, created_at, updated_at)
VALUES (:id, :school_code, :grade, :section, :teacher_id, :created_at, :updated_at)
ON CONFLICT (id) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create class: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check class insert rows: %w", err)
	}
	if rows == 0 {
		return ErrDuplicate
	}
	return nil
}

// GetTimetable returns the stored grid of a class.
func (r *ClassRepository) GetTimetable(ctx context.Context, classID string) (*models.ClassTimetable, error) {
	const query = `SELECT class_id, grid, updated_by, updated_at FROM class_timetables WHERE class_id = $1`
	var timetable models.ClassTimetable
	if err := r.db.GetContext(ctx, &timetable, query, classID); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// SaveTimetable replaces the grid of a class in a single upsert.
func (r *ClassRepository) SaveTimetable(ctx context.Context, timetable *models.ClassTimetable) error {
	timetable.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO class_timetables (class_id, grid, updated_by, updated_at)
VALUES (:class_id, :grid, :updated_by, :updated_at)
ON CONFLICT (class_id)
DO UPDATE SET grid = EXCLUDED.grid, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, timetable); err != nil {
		return fmt.Errorf("save class timetable: %w", err)
	}
	return nil
}
