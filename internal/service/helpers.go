package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/repository"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// storeError classifies a repository failure as retryable or internal.
func storeError(err error, message string) *appErrors.Error {
	if repository.IsUnavailable(err) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func validationError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// emitAudit writes an audit entry and only logs failures.
func emitAudit(ctx context.Context, writer auditWriter, logger *zap.Logger, log *models.AuditLog) {
	if writer == nil || log == nil {
		return
	}
	if err := writer.Create(ctx, log); err != nil {
		logger.Warn("failed to persist audit log",
			zap.String("action", log.Action),
			zap.String("resource", log.Resource),
			zap.Error(err))
	}
}

func auditSnapshot(v interface{}) []byte {
	if v == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}

func strPtr(v string) *string {
	return &v
}

func requireActor(actor models.Actor) error {
	if actor.TeacherID == "" || actor.SchoolCode == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "caller identity is incomplete")
	}
	return nil
}
