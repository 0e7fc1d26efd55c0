package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/repository"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

// MatchingService serialises competing accepts. The only write is a compare-and-swap
// on status = pending, so at most one accepter ever lands and no lock is held across calls.
type MatchingService struct {
	repo     swapStore
	notifier swapNotifier
	audit    auditWriter
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewMatchingService constructs the coordinator.
func NewMatchingService(repo swapStore, notifier swapNotifier, audit auditWriter, metrics *MetricsService, logger *zap.Logger) *MatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{repo: repo, notifier: notifier, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// Accept claims a pending request for the caller and returns the matched request.
func (s *MatchingService) Accept(ctx context.Context, actor models.Actor, id string) (*models.SwapRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req, err := s.accept(ctx, actor, id)
	s.metrics.RecordSwapAccept(acceptOutcome(err))
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.SwapAccepted(req)
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		SchoolCode: actor.SchoolCode,
		UserID:     strPtr(actor.TeacherID),
		Action:     models.AuditActionSwapAccept,
		Resource:   models.AuditResourceSwapRequest,
		ResourceID: strPtr(req.ID),
		OldValues:  auditSnapshot(map[string]string{"status": string(models.SwapStatusPending)}),
		NewValues:  auditSnapshot(req),
	})
	s.logger.Info("swap request matched",
		zap.String("request_id", req.ID),
		zap.String("school_code", req.SchoolCode),
		zap.String("requester_id", req.RequesterID),
		zap.String("accepter_id", actor.TeacherID))
	return req, nil
}

func (s *MatchingService) accept(ctx context.Context, actor models.Actor, id string) (*models.SwapRequest, error) {
	req, err := s.load(ctx, actor.SchoolCode, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID == actor.TeacherID {
		return nil, appErrors.WithEntity(appErrors.ErrSelfAcceptNotAllowed, id, "")
	}
	if req.IsDirect() && *req.ToID != actor.TeacherID {
		return nil, appErrors.WithEntity(appErrors.ErrTargetMismatch, id, "")
	}
	if req.Status == models.SwapStatusMatched {
		return nil, appErrors.WithEntity(appErrors.ErrAlreadyMatched, id, "")
	}

	matched, err := s.repo.Accept(ctx, repository.AcceptParams{
		SchoolCode:   actor.SchoolCode,
		ID:           id,
		AccepterID:   actor.TeacherID,
		AccepterName: actor.DisplayName,
		MatchedAt:    s.now().UTC(),
	})
	if err == nil {
		return matched, nil
	}
	if !isNoRows(err) {
		return nil, storeError(err, "failed to accept swap request")
	}
	// The conditional write lost: either another accept landed or the requester deleted it.
	if _, loadErr := s.load(ctx, actor.SchoolCode, id); loadErr != nil {
		return nil, loadErr
	}
	return nil, appErrors.WithEntity(appErrors.ErrAlreadyMatched, id, "")
}

func (s *MatchingService) load(ctx context.Context, schoolCode, id string) (*models.SwapRequest, error) {
	req, err := s.repo.GetByID(ctx, schoolCode, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.WithEntity(appErrors.ErrNotFound, id, "swap request not found")
		}
		return nil, storeError(err, "failed to load swap request")
	}
	return req, nil
}

func acceptOutcome(err error) string {
	switch {
	case err == nil:
		return AcceptOutcomeMatched
	case errors.Is(err, appErrors.ErrAlreadyMatched):
		return AcceptOutcomeAlreadyMatched
	case errors.Is(err, appErrors.ErrNotFound):
		return AcceptOutcomeNotFound
	case errors.Is(err, appErrors.ErrSelfAcceptNotAllowed), errors.Is(err, appErrors.ErrTargetMismatch):
		return AcceptOutcomeRejected
	default:
		return AcceptOutcomeError
	}
}
