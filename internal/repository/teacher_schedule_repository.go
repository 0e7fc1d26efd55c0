package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-swap-api/internal/models"
)

// TeacherScheduleRepository persists teacher directory rows and personal grids.
type TeacherScheduleRepository struct {
	db *sqlx.DB
}

// NewTeacherScheduleRepository constructs the repository.
func NewTeacherScheduleRepository(db *sqlx.DB) *TeacherScheduleRepository {
	return &TeacherScheduleRepository{db: db}
}

const upsertTeacherQuery = `INSERT INTO teachers (id, school_code, display_name, class_label, active, created_at, updated_at)
VALUES (:id, :school_code, :display_name, :class_label, TRUE, :created_at, :updated_at)
ON CONFLICT (id)
DO UPDATE SET school_code = EXCLUDED.school_code, display_name = EXCLUDED.display_name,
              class_label = EXCLUDED.class_label, active = TRUE, updated_at = EXCLUDED.updated_at`

const upsertScheduleQuery = `INSERT INTO teacher_schedules (teacher_id, grid, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (teacher_id)
DO UPDATE SET grid = EXCLUDED.grid, updated_at = EXCLUDED.updated_at`

// FindTeacher returns a directory row.
func (r *TeacherScheduleRepository) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, school_code, display_name, class_label, active, created_at, updated_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// UpsertTeacher refreshes the directory row from caller claims.
func (r *TeacherScheduleRepository) UpsertTeacher(ctx context.Context, teacher *models.Teacher) error {
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	teacher.Active = true
	if _, err := r.db.NamedExecContext(ctx, upsertTeacherQuery, teacher); err != nil {
		return fmt.Errorf("upsert teacher: %w", err)
	}
	return nil
}

// Get returns the grid of a teacher.
func (r *TeacherScheduleRepository) Get(ctx context.Context, teacherID string) (*models.TeacherSchedule, error) {
	const query = `SELECT teacher_id, grid, updated_at FROM teacher_schedules WHERE teacher_id = $1`
	var schedule models.TeacherSchedule
	if err := r.db.GetContext(ctx, &schedule, query, teacherID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Save replaces the grid of a teacher and refreshes the directory row in one transaction.
func (r *TeacherScheduleRepository) Save(ctx context.Context, teacher *models.Teacher, grid models.Grid) (*models.TeacherSchedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save schedule tx: %w", err)
	}
	schedule, err := r.writeSchedule(ctx, tx, teacher, grid)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save schedule tx: %w", err)
	}
	return schedule, nil
}

// Merge applies cell updates on top of the stored grid under a row lock.
func (r *TeacherScheduleRepository) Merge(ctx context.Context, teacher *models.Teacher, cells []models.CellUpdate) (*models.TeacherSchedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin merge schedule tx: %w", err)
	}
	var current models.Grid
	err = tx.GetContext(ctx, &current, `SELECT grid FROM teacher_schedules WHERE teacher_id = $1 FOR UPDATE`, teacher.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return nil, fmt.Errorf("lock teacher schedule: %w", err)
	}
	next, err := current.Apply(cells)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	schedule, err := r.writeSchedule(ctx, tx, teacher, next)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merge schedule tx: %w", err)
	}
	return schedule, nil
}

func (r *TeacherScheduleRepository) writeSchedule(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher, grid models.Grid) (*models.TeacherSchedule, error) {
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	if _, err := tx.NamedExecContext(ctx, upsertTeacherQuery, teacher); err != nil {
		return nil, fmt.Errorf("upsert teacher: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertScheduleQuery, teacher.ID, grid, now); err != nil {
		return nil, fmt.Errorf("upsert teacher schedule: %w", err)
	}
	return &models.TeacherSchedule{TeacherID: teacher.ID, Grid: grid, UpdatedAt: now}, nil
}

// ListSchoolSchedules returns every active teacher of a school with their grid, ordered by id.
// Teachers without a stored schedule carry a nil grid.
func (r *TeacherScheduleRepository) ListSchoolSchedules(ctx context.Context, schoolCode string) ([]models.SchoolSchedule, error) {
	const query = `SELECT t.id, t.school_code, t.display_name, t.class_label, t.active, t.created_at, t.updated_at, s.grid
FROM teachers t
LEFT JOIN teacher_schedules s ON s.teacher_id = t.id
WHERE t.school_code = $1 AND t.active = TRUE
ORDER BY t.id`
	var rows []models.SchoolSchedule
	if err := r.db.SelectContext(ctx, &rows, query, schoolCode); err != nil {
		return nil, fmt.Errorf("list school schedules: %w", err)
	}
	return rows, nil
}
