package middleware

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/pageza/recipe-catalog/backend/pkg/errors"
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Code      apperrors.ErrorCode `json:"code"`
	Message   string              `json:"message"`
	Details   string              `json:"details,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// RespondError aborts the request with err rendered as an ErrorResponse
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	writeError(c, err)
}

func writeError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	c.AbortWithStatusJSON(appErr.StatusCode(), ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: requestid.Get(c),
	})
}

// ErrorHandler renders errors attached by handlers that did not write a response
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, c.Errors.Last().Err)
	}
}

// Recovery turns a panic into an INTERNAL_ERROR reply
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
		)
		RespondError(c, apperrors.NewInternalError("internal server error"))
	})
}
