package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-swap-api/internal/middleware"
	"github.com/noah-isme/sma-swap-api/internal/models"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
	"github.com/noah-isme/sma-swap-api/pkg/response"
)

// actorFromContext writes a 401 and returns false when the request carries no identity.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func bindError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
