package handlers

import (
	"encoding/json"
	"net/http"

	"life-agent/internal/auth"
	"life-agent/internal/logger"
)

// ErrorResponse is the JSON body for all error replies
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Error encoding response")
	}
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, ErrorResponse{Error: message})
}

// requireUserID resolves the authenticated user or writes a 401.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		sendError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return userID, true
}
