package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-swap-api/internal/dto"
	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/repository"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

type swapStore interface {
	Create(ctx context.Context, req *models.SwapRequest) error
	GetByID(ctx context.Context, schoolCode, id string) (*models.SwapRequest, error)
	List(ctx context.Context, schoolCode string, filter models.SwapFilter) ([]models.SwapRequest, error)
	Accept(ctx context.Context, params repository.AcceptParams) (*models.SwapRequest, error)
	DeletePending(ctx context.Context, schoolCode, id, requesterID string) error
}

type teacherLookup interface {
	FindTeacher(ctx context.Context, id string) (*models.Teacher, error)
}

type swapNotifier interface {
	SwapCreated(req *models.SwapRequest)
	SwapAccepted(req *models.SwapRequest)
}

// SwapService owns the lifecycle of swap requests within a school.
type SwapService struct {
	repo      swapStore
	teachers  teacherLookup
	notifier  swapNotifier
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSwapService constructs the registry.
func NewSwapService(repo swapStore, teachers teacherLookup, notifier swapNotifier, audit auditWriter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SwapService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapService{
		repo:      repo,
		teachers:  teachers,
		notifier:  notifier,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create posts a slot for swap. The subject label is a snapshot taken from the payload.
func (s *SwapService) Create(ctx context.Context, actor models.Actor, req dto.CreateSwapRequest) (*models.SwapRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid swap request payload")
	}
	day, ok := models.ParseDay(req.Day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, "day must be one of mon, tue, wed, thu, fri")
	}
	if !models.ValidPeriod(req.Period) {
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, "period must be between 1 and 7")
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, "cannot offer an empty slot")
	}

	swap := &models.SwapRequest{
		SchoolCode:          actor.SchoolCode,
		RequesterID:         actor.TeacherID,
		RequesterName:       actor.DisplayName,
		RequesterClassLabel: actor.ClassLabel,
		Day:                 day,
		Period:              req.Period,
		SubjectLabel:        subject,
		Note:                strings.TrimSpace(req.Note),
		CreatedAt:           s.now().UTC(),
	}

	if toID := strings.TrimSpace(req.ToID); toID != "" {
		if toID == actor.TeacherID {
			return nil, appErrors.WithEntity(appErrors.ErrValidation, toID, "cannot address a request to yourself")
		}
		target, err := s.teachers.FindTeacher(ctx, toID)
		if err != nil && !isNoRows(err) {
			return nil, storeError(err, "failed to load target teacher")
		}
		if err != nil || target.SchoolCode != actor.SchoolCode || !target.Active {
			return nil, appErrors.WithEntity(appErrors.ErrNotFound, toID, "target teacher not found")
		}
		swap.ToID = strPtr(target.ID)
		swap.ToName = strPtr(target.DisplayName)
	}

	if err := s.repo.Create(ctx, swap); err != nil {
		return nil, storeError(err, "failed to create swap request")
	}

	s.metrics.RecordSwapCreate(string(swap.Target().Kind))
	if s.notifier != nil {
		s.notifier.SwapCreated(swap)
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		SchoolCode: swap.SchoolCode,
		UserID:     strPtr(actor.TeacherID),
		Action:     models.AuditActionSwapCreate,
		Resource:   models.AuditResourceSwapRequest,
		ResourceID: strPtr(swap.ID),
		NewValues:  auditSnapshot(swap),
	})
	return swap, nil
}

// List returns requests of the caller's school visible to the caller, newest first.
func (s *SwapService) List(ctx context.Context, actor models.Actor, query dto.SwapQuery) ([]models.SwapRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid swap query")
	}
	filter := models.SwapFilter{
		Scope:    models.SwapScopeAll,
		ViewerID: actor.TeacherID,
		Limit:    query.Limit,
	}
	if query.Filter != "" {
		filter.Scope = models.SwapFilterScope(query.Filter)
	}
	if query.Status != "" {
		status := models.SwapStatus(query.Status)
		filter.Status = &status
	}
	reqs, err := s.repo.List(ctx, actor.SchoolCode, filter)
	if err != nil {
		return nil, storeError(err, "failed to list swap requests")
	}
	return reqs, nil
}

// Get returns one request. Direct requests are hidden from everyone but the two parties.
func (s *SwapService) Get(ctx context.Context, actor models.Actor, id string) (*models.SwapRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req, err := s.load(ctx, actor.SchoolCode, id)
	if err != nil {
		return nil, err
	}
	if !req.VisibleTo(actor.TeacherID) {
		return nil, appErrors.WithEntity(appErrors.ErrNotFound, id, "swap request not found")
	}
	return req, nil
}

// Delete removes a pending request owned by the caller. Like accept, a mutation by a third party
// reports its own error kind even for direct requests; only reads hide them.
func (s *SwapService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	req, err := s.load(ctx, actor.SchoolCode, id)
	if err != nil {
		return err
	}
	if req.RequesterID != actor.TeacherID {
		return appErrors.WithEntity(appErrors.ErrForbidden, id, "only the requester can delete this request")
	}
	if req.Status != models.SwapStatusPending {
		return appErrors.WithEntity(appErrors.ErrConflict, id, "matched requests cannot be deleted")
	}

	if err := s.repo.DeletePending(ctx, actor.SchoolCode, id, actor.TeacherID); err != nil {
		if !isNoRows(err) {
			return storeError(err, "failed to delete swap request")
		}
		// Lost a race with an accept or a concurrent delete.
		current, loadErr := s.load(ctx, actor.SchoolCode, id)
		if loadErr != nil {
			return loadErr
		}
		if current.Status == models.SwapStatusMatched {
			return appErrors.WithEntity(appErrors.ErrConflict, id, "matched requests cannot be deleted")
		}
		return appErrors.WithEntity(appErrors.ErrConflict, id, "swap request changed while deleting")
	}

	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		SchoolCode: actor.SchoolCode,
		UserID:     strPtr(actor.TeacherID),
		Action:     models.AuditActionSwapDelete,
		Resource:   models.AuditResourceSwapRequest,
		ResourceID: strPtr(id),
		OldValues:  auditSnapshot(req),
	})
	return nil
}

func (s *SwapService) load(ctx context.Context, schoolCode, id string) (*models.SwapRequest, error) {
	req, err := s.repo.GetByID(ctx, schoolCode, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.WithEntity(appErrors.ErrNotFound, id, "swap request not found")
		}
		return nil, storeError(err, "failed to load swap request")
	}
	return req, nil
}
