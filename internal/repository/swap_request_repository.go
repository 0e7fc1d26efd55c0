package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-swap-api/internal/models"
)

const swapRequestColumns = `id, school_code, requester_id, requester_name, requester_class_label, to_id, to_name,
       day, period, subject_label, note, status, accepter_id, accepter_name, created_at, matched_at`

// SwapRequestRepository persists swap requests. All statements are scoped by school code.
type SwapRequestRepository struct {
	db *sqlx.DB
}

// NewSwapRequestRepository constructs the repository.
func NewSwapRequestRepository(db *sqlx.DB) *SwapRequestRepository {
	return &SwapRequestRepository{db: db}
}

// Create inserts a new pending request.
func (r *SwapRequestRepository) Create(ctx context.Context, req *models.SwapRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = models.SwapStatusPending
	req.AccepterID = nil
	req.AccepterName = nil
	req.MatchedAt = nil
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO swap_requests
	(id, school_code, requester_id, requester_name, requester_class_label, to_id, to_name, day, period, subject_label, note, status, created_at)
	VALUES (:id, :school_code, :requester_id, :requester_name, :requester_class_label, :to_id, :to_name, :day, :period, :subject_label, :note, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create swap request: %w", err)
	}
	return nil
}

// GetByID fetches a request within a school.
func (r *SwapRequestRepository) GetByID(ctx context.Context, schoolCode, id string) (*models.SwapRequest, error) {
	query := `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE id = $1 AND school_code = $2`
	var req models.SwapRequest
	if err := r.db.GetContext(ctx, &req, query, id, schoolCode); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests of a school visible to the viewer, newest first.
func (r *SwapRequestRepository) List(ctx context.Context, schoolCode string, filter models.SwapFilter) ([]models.SwapRequest, error) {
	builder := strings.Builder{}
	args := []interface{}{schoolCode, filter.ViewerID}
	builder.WriteString(`SELECT ` + swapRequestColumns + ` FROM swap_requests`)

	conditions := []string{
		"school_code = $1",
		"(to_id IS NULL OR requester_id = $2 OR to_id = $2)",
	}
	switch filter.Scope {
	case models.SwapScopeMine:
		conditions = append(conditions, "requester_id = $2")
	case models.SwapScopeInbox:
		conditions = append(conditions, "to_id = $2")
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	builder.WriteString(" WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var reqs []models.SwapRequest
	if err := r.db.SelectContext(ctx, &reqs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	return reqs, nil
}

// AcceptParams carries the accepter stamp for a pending request.
type AcceptParams struct {
	SchoolCode   string
	ID           string
	AccepterID   string
	AccepterName string
	MatchedAt    time.Time
}

// Accept moves a request from pending to matched in one conditional write.
// sql.ErrNoRows means the row is gone or no longer pending.
func (r *SwapRequestRepository) Accept(ctx context.Context, params AcceptParams) (*models.SwapRequest, error) {
	query := fmt.Sprintf(`UPDATE swap_requests
SET status = '%s', accepter_id = $1, accepter_name = $2, matched_at = $3
WHERE id = $4 AND school_code = $5 AND status = '%s' AND requester_id <> $1
RETURNING `+swapRequestColumns, models.SwapStatusMatched, models.SwapStatusPending)
	var req models.SwapRequest
	err := r.db.GetContext(ctx, &req, query, params.AccepterID, params.AccepterName, params.MatchedAt, params.ID, params.SchoolCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("accept swap request: %w", err)
	}
	return &req, nil
}

// DeletePending removes a pending request owned by requesterID.
// sql.ErrNoRows means the row is gone, matched, or owned by someone else.
func (r *SwapRequestRepository) DeletePending(ctx context.Context, schoolCode, id, requesterID string) error {
	query := fmt.Sprintf(`DELETE FROM swap_requests WHERE id = $1 AND school_code = $2 AND requester_id = $3 AND status = '%s'`,
		models.SwapStatusPending)
	result, err := r.db.ExecContext(ctx, query, id, schoolCode, requesterID)
	if err != nil {
		return fmt.Errorf("delete swap request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check swap delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
