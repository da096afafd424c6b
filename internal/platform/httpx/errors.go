// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrNotAuthenticated):
		Problem(w, http.StatusForbidden, "Not Authenticated", "You need to be logged in to perform this action")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "Invalid credentials")
	case errors.Is(err, shared.ErrUploadFailed):
		Problem(w, http.StatusInternalServerError, "Upload Failed", err.Error())
	case errors.As(err, &verrs):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", validationDetail(verrs))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func validationDetail(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed on "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
