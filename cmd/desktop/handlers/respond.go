// Package handlers provides the sidecar's REST handlers. The desktop UI
// calls them for every inventory operation and for sync status.
package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/logging"
)

// statusFor maps an error code onto the HTTP status the UI sees.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrInvalid, apperrors.ErrValidation, apperrors.ErrInvalidAction:
		return http.StatusBadRequest
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrInsufficientStock, apperrors.ErrSyncInProgress:
		return http.StatusConflict
	case apperrors.ErrConnectivity, apperrors.ErrSyncTimeout, apperrors.ErrQueueFull:
		return http.StatusServiceUnavailable
	case apperrors.ErrRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError renders err as {"code": ..., "message": ...}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)
	message := apperrors.MessageOf(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithCode("request failed", string(code), err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeJSON(w, status, map[string]interface{}{
		"code":    code,
		"message": message,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
