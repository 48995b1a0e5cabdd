package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// StatusFor maps error kinds to HTTP status codes.
func StatusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the error envelope for err. Unclassified errors are
// logged and reported with a generic message.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusFor(err)
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		Fail(w, status, ValidationMessage(verrs))
	case status == http.StatusInternalServerError:
		if logger != nil {
			logger.Error("request failed", slog.Any("error", err))
		}
		Fail(w, status, shared.UserSafeMessage(err))
	default:
		Fail(w, status, err.Error())
	}
}

// ValidationMessage flattens validator errors into one readable line.
func ValidationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
