package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	customError "github.com/gimmyalex/lending-engine/pkg/errors"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	resp := Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
	}

	write(w, statusCode, resp)
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := Response{
		Success:   false,
		Message:   message,
		Timestamp: time.Now(),
	}

	if err != nil {
		resp.Error = err.Error()
	}

	write(w, statusCode, resp)
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusBadRequest, message, err)
}

// NotFound sends a 404 not found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, nil)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusInternalServerError, message, err)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message, nil)
}

// BusinessError maps a service error onto the HTTP status implied by its
// error code and sends it. Unknown errors become 500s with a generic
// message so internals do not leak.
func BusinessError(w http.ResponseWriter, err error) {
	var busErr *customError.BusinessError
	if !errors.As(err, &busErr) {
		slog.Error("unhandled service error", "error", err)
		InternalServerError(w, "internal server error", nil)
		return
	}

	resp := Response{
		Success:   false,
		Message:   busErr.Message,
		Code:      busErr.Code,
		Timestamp: time.Now(),
	}

	write(w, statusFor(busErr.Code), resp)
}

func statusFor(code string) int {
	switch code {
	case customError.ErrCodeLoanNotFound, customError.ErrCodeCardNotFound:
		return http.StatusNotFound
	case customError.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case customError.ErrCodeCurrencyMismatch,
		customError.ErrCodeAlreadyRepaid,
		customError.ErrCodeNothingOutstanding,
		customError.ErrCodeCardDisabled:
		return http.StatusUnprocessableEntity
	case customError.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encoding JSON response failed", "error", err)
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *responseRecorder) WriteHeader(statusCode int) {
	rec.statusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}
