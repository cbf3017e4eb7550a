package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/pageza/recipe-catalog/backend/internal/middleware"
	"github.com/pageza/recipe-catalog/backend/internal/service"
	apperrors "github.com/pageza/recipe-catalog/backend/pkg/errors"
)

// toAppError maps service sentinels onto the public error taxonomy
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, service.ErrNotFound):
		return apperrors.New(apperrors.CodeNotFound, "entry not found", "").WithCause(err)
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrEmptyTokenName):
		return apperrors.NewValidationError("token", err.Error()).WithCause(err)
	case errors.Is(err, service.ErrGenerationUnavailable):
		return apperrors.New(apperrors.CodeGenerationUnavailable, "generation is unavailable", "").WithCause(err)
	case errors.Is(err, service.ErrMalformedPayload):
		return apperrors.New(apperrors.CodeMalformedPayload, "upstream payload was malformed", "").WithCause(err)
	case errors.Is(err, service.ErrPersistence):
		return apperrors.New(apperrors.CodePersistenceFailure, "failed to persist entry", "").WithCause(err)
	}
	return apperrors.NewInternalError("internal server error").WithCause(err)
}

func respondError(c *gin.Context, err error) {
	middleware.RespondError(c, toAppError(err))
}

// bindingError converts a bind failure into a VALIDATION_FAILED error naming the first bad field
func bindingError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		msg := fmt.Sprintf("%s failed on %s", field, fe.Tag())
		if fe.Tag() == "required" {
			msg = fmt.Sprintf("%s is required", field)
		}
		return apperrors.NewValidationError(field, msg).WithCause(err)
	}
	return apperrors.NewBadRequestError("invalid request body").WithCause(err)
}
