package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/taskdesk/internal/errors"
)

// WriteAppError maps err to a status code and JSON error body. Unclassified errors are
// logged and reported as a generic 500 without their details.
func WriteAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		writeInternal(w, r, logger, err)
		return
	}

	p := ErrorParams{Err: errors.New(appErr.Message), Fields: appErr.Fields}
	switch appErr.Code {
	case apperrors.ErrCodeValidation:
		p.Code, p.ErrCode = http.StatusUnprocessableEntity, "validation_failed"
		if p.Fields == nil && appErr.Field != "" {
			p.Fields = map[string]string{appErr.Field: appErr.Message}
		}
	case apperrors.ErrCodeUnauthorized:
		p.Code, p.ErrCode = http.StatusUnauthorized, "authentication_required"
	case apperrors.ErrCodeForbidden:
		p.Code, p.ErrCode = http.StatusForbidden, "forbidden"
	case apperrors.ErrCodeConflict:
		p.Code, p.ErrCode = http.StatusConflict, "conflict"
	case apperrors.ErrCodeNotFound:
		p.Code, p.ErrCode = http.StatusNotFound, "not_found"
	case apperrors.ErrCodeTimeout:
		p.Code, p.ErrCode = http.StatusGatewayTimeout, "timeout"
	default:
		writeInternal(w, r, logger, err)
		return
	}
	WriteError(w, p)
}

func writeInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	WriteError(w, ErrorParams{
		Code:    http.StatusInternalServerError,
		ErrCode: "internal",
		Err:     errors.New("internal server error"),
	})
}
