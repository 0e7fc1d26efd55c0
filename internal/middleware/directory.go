package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-swap-api/internal/models"
)

type directoryToucher interface {
	Touch(ctx context.Context, actor models.Actor)
}

// Directory records every authenticated teacher in the school directory.
func Directory(directory directoryToucher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, ok := CurrentActor(c); ok && directory != nil {
			directory.Touch(c.Request.Context(), actor)
		}
		c.Next()
	}
}
