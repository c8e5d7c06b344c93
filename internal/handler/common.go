package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"points-ledger/internal/errors"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

// WriteError writes appErr in the standard error envelope. Details of internal
// errors stay in the logs.
func WriteError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if appErr.Code == errors.InternalError {
		errResponse.Details = ""
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// respondError maps any error to a response, logging the ones clients cannot fix.
func respondError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	appErr := errors.As(err)
	if appErr.Code == errors.InternalError {
		logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	WriteError(w, appErr)
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown fields
// and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *errors.AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.NewAppError(errors.InvalidInput, "request body too large")
		}
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}

	if err := dec.Decode(&struct{}{}); !stderrors.Is(err, io.EOF) {
		return errors.NewAppError(errors.InvalidInput, "request body must contain a single JSON object")
	}
	return nil
}
