package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/extract"
	"github.com/joseph-ayodele/order-intake/internal/services/order"
)

const (
	msgRequestError    = "Request error"
	msgValidationError = "Validation error. Please check your request data."
	msgNotFound        = "The requested resource was not found."
	msgInternal        = "Internal server error"

	detailUnreadable     = "Error reading PDF file. Please ensure the file is not corrupted."
	detailOCRUnavailable = "This PDF has no extractable text and OCR support is not installed on the server. Upload a text-based PDF or enable OCR."
	detailFieldsNotFound = "Could not extract patient name and date of birth from PDF. " +
		"Please ensure the PDF contains readable text with 'Patient Name' and 'Date of Birth' fields."
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any, message string) {
	writeJSON(w, status, errorBody{Detail: detail, Message: message})
}

func validationFailed(w http.ResponseWriter, messages ...string) {
	writeDetail(w, http.StatusUnprocessableEntity, messages, msgValidationError)
}

// writeError maps an error from the service layer to a status and body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := s.logger.With("method", r.Method, "path", r.URL.Path, "request_id", common.RequestIDFromContext(r.Context()))

	var invalid *errInvalidBody
	if errors.As(err, &invalid) {
		logger.Warn("validation error", "errors", invalid.messages)
		validationFailed(w, invalid.messages...)
		return
	}
	if v, ok := common.AsValidationErrors(err); ok {
		logger.Warn("validation error", "errors", v.Messages())
		validationFailed(w, v.Messages()...)
		return
	}

	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		writeDetail(w, http.StatusRequestEntityTooLarge, "File too large", msgRequestError)
		return
	case errors.Is(err, extract.ErrUnreadableDocument):
		writeDetail(w, http.StatusBadRequest, detailUnreadable, msgRequestError)
		return
	case errors.Is(err, extract.ErrOCRUnavailable):
		writeDetail(w, http.StatusUnprocessableEntity, detailOCRUnavailable, msgRequestError)
		return
	case errors.Is(err, extract.ErrFieldsNotFound):
		writeDetail(w, http.StatusBadRequest, detailFieldsNotFound, msgRequestError)
		return
	case errors.Is(err, order.ErrExtractionTimeout):
		writeDetail(w, http.StatusGatewayTimeout, "PDF extraction timed out", msgRequestError)
		return
	}

	status := 0
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		status = http.StatusForbidden
	}
	if status != 0 {
		detail, ok := common.UserMessage(err)
		if !ok {
			detail = err.Error()
		}
		writeDetail(w, status, detail, msgRequestError)
		return
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("request cancelled by client")
		writeDetail(w, http.StatusRequestTimeout, "Request cancelled", msgRequestError)
		return
	}

	logger.Error("unhandled error", "error", err)
	if errors.Is(err, common.ErrDatabase) {
		writeDetail(w, http.StatusInternalServerError, "A database error occurred. Please try again later.", msgInternal)
		return
	}
	detail := err.Error()
	if s.production {
		detail = "An internal server error occurred. Please try again later."
	}
	writeDetail(w, http.StatusInternalServerError, detail, msgInternal)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusNotFound, "Endpoint not found: "+r.URL.Path, msgNotFound)
}

// recoverer turns a handler panic into a 500.
func recoverer(logger *slog.Logger, production bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic in handler", "method", r.Method, "path", r.URL.Path, "panic", rec)
				detail := "An internal server error occurred. Please try again later."
				if !production {
					if e, ok := rec.(error); ok {
						detail = e.Error()
					}
				}
				writeDetail(w, http.StatusInternalServerError, detail, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
