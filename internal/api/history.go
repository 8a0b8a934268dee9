package api

import (
	"net/http"
	"strconv"
	"time"
)

const defaultHistoryLimit = 20

type historyTurn struct {
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	SQLQuery  string    `json:"sql_query,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func handleListHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history store is not configured", false, nil)
		return
	}

	principal, err := principalFromRequest(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnauthorized, "PRINCIPAL_REQUIRED", err.Error(), false, nil)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}

	turns, err := deps.History.ListByPrincipal(r.Context(), principal.ID, limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to load history", true, nil)
		return
	}

	payload := make([]historyTurn, 0, len(turns))
	for _, turn := range turns {
		payload = append(payload, historyTurn{
			SessionID: turn.SessionID,
			Question:  turn.Question,
			Response:  turn.Answer,
			SQLQuery:  turn.SQLQuery,
			CreatedAt: turn.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": payload, "count": len(payload)})
}

func handleDeleteHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history store is not configured", false, nil)
		return
	}

	principal, err := principalFromRequest(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnauthorized, "PRINCIPAL_REQUIRED", err.Error(), false, nil)
		return
	}

	removed, err := deps.History.Purge(r.Context(), principal.ID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to delete history", true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": removed})
}
