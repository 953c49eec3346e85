package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"truckwatch/backend/services/telematics-service/internal/models"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps validation failures to 400 and everything else to 500.
// It reports whether the error was an internal one.
func writeServiceError(w http.ResponseWriter, err error) bool {
	if errors.Is(err, models.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
	return true
}

// decodeJSON decodes an optional JSON body; an empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return models.NewValidationError("body", "invalid json")
	}
	return nil
}
