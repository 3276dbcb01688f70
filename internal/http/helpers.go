package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/storage"
)

var (
	errMalformedBody = errors.New("malformed JSON body")
	errBodyTooLarge  = errors.New("request body too large")
	errInvalidID     = errors.New("invalid bill id")
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBill reads one JSON bill from a size-limited body. A malformed date
// is reported as a validation failure of the date field.
func decodeBill(w http.ResponseWriter, r *http.Request) (core.BillInput, error) {
	var in core.BillInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return in, errBodyTooLarge
		case errors.Is(err, core.ErrInvalidDate):
			return in, &core.ValidationError{Field: "date", Err: err}
		default:
			return in, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
	}
	if _, err := dec.Token(); err != io.EOF {
		return in, fmt.Errorf("%w: trailing data after object", errMalformedBody)
	}
	return in, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return id, nil
}

// classify maps an error to its HTTP status and log error type.
func classify(err error) (int, string) {
	var verr *core.ValidationError
	var serr *storage.StorageError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, log.ErrorTypeValidation
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, log.ErrorTypeValidation
	case errors.Is(err, errMalformedBody), errors.Is(err, errInvalidID):
		return http.StatusBadRequest, log.ErrorTypeValidation
	case errors.As(err, &serr):
		return http.StatusInternalServerError, log.ErrorTypeDatabase
	default:
		return http.StatusInternalServerError, log.ErrorTypeInternal
	}
}
