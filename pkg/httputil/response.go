package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/logger"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/validator"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the success envelope: {status:"success", data?, message?}.
type Response struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Status    string            `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes {status:"success", data}.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Status: StatusSuccess, Data: data})
}

// WriteMessage writes {status:"success", message}.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Status: StatusSuccess, Message: message})
}

// WriteError maps err onto the error envelope. AppErrors keep their own
// code and message; everything else becomes a generic 500 that is logged
// with the request-scoped logger (or fallback when none is mounted).
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	requestID := logger.RequestIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeValidation(w, valErr, requestID)
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(r, err, fallback)
		}
		WriteJSON(w, appErr.Status, ErrorResponse{
			Status:    StatusError,
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code, message := "INTERNAL_ERROR", "an internal error occurred"
	switch status {
	case http.StatusNotFound:
		code, message = "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		code, message = "CONFLICT", "resource already exists"
	case http.StatusBadRequest:
		code, message = "INVALID_INPUT", err.Error()
	case http.StatusUnauthorized:
		code, message = "UNAUTHORIZED", "unauthorized"
	case http.StatusTooManyRequests:
		code, message = "TOO_MANY_REQUESTS", "too many requests"
	default:
		logInternal(r, err, fallback)
	}

	WriteJSON(w, status, ErrorResponse{
		Status:    StatusError,
		Code:      code,
		Message:   message,
		RequestID: requestID,
	})
}

func logInternal(r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// WriteValidationError writes a 400. Validator failures carry per-field
// messages, anything else (typically a JSON decode error) becomes INVALID_INPUT.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.RequestIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeValidation(w, valErr, requestID)
		return
	}

	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Status:    StatusError,
		Code:      "INVALID_INPUT",
		Message:   "invalid request body",
		RequestID: requestID,
	})
}

func writeValidation(w http.ResponseWriter, valErr *validator.ValidationError, requestID string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Status:    StatusError,
		Code:      "VALIDATION_ERROR",
		Message:   "request validation failed",
		Fields:    valErr.Fields(),
		RequestID: requestID,
	})
}

// ParseID parses a positive int64 path parameter. On failure it writes a
// 400 and returns false so the caller can return early.
func ParseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Status:    StatusError,
			Code:      "INVALID_PARAMETER",
			Message:   "invalid id: " + param,
			RequestID: logger.RequestIDFromContext(r.Context()),
		})
		return 0, false
	}
	return id, true
}
