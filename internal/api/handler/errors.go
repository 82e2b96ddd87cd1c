package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/tapearn/internal/api/apierr"
	"github.com/mcoot/tapearn/internal/model"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// decode reads a JSON request body into v
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return false
	}
	return true
}

// requirePlayerID rejects a request that names no player
func requirePlayerID(w http.ResponseWriter, id model.PlayerID) bool {
	if id == "" {
		WriteError(w, NewInvalidRequestError("telegramId is required"))
		return false
	}
	return true
}
