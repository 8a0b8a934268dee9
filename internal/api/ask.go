package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/rbac"
)

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type askResponse struct {
	Question  string  `json:"question"`
	Response  string  `json:"response"`
	SQLQuery  *string `json:"sql_query"`
	SessionID string  `json:"session_id"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Runner == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "pipeline is not configured", false, nil)
		return
	}

	principal, err := principalFromRequest(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnauthorized, "PRINCIPAL_REQUIRED", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	sessionID := strings.TrimSpace(request.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	outcome := deps.Runner.Run(r.Context(), pipeline.Request{
		SessionID: sessionID,
		Principal: principal,
		Question:  request.Question,
	})

	response := askResponse{
		Question:  request.Question,
		Response:  outcome.Answer,
		SessionID: sessionID,
	}
	if !outcome.Rejected && outcome.SQLQuery != "" {
		response.SQLQuery = &outcome.SQLQuery
	}
	writeJSON(w, http.StatusOK, response)
}

// principalFromRequest prefers the authenticated identity; when auth is not
// required it falls back to caller-supplied headers, which is only suitable
// behind a trusted gateway.
func principalFromRequest(r *http.Request) (rbac.Principal, error) {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		if strings.TrimSpace(identity.PrincipalID) != "" {
			return identity.Principal(), nil
		}
	}

	principalID := strings.TrimSpace(r.Header.Get("X-Principal-ID"))
	if principalID == "" {
		return rbac.Principal{}, fmt.Errorf("principal context is required")
	}

	role := rbac.Role(strings.TrimSpace(r.Header.Get("X-Principal-Role")))
	if role == "" {
		role = rbac.RoleStandard
	}
	if role != rbac.RoleStandard && role != rbac.RoleAdmin {
		return rbac.Principal{}, fmt.Errorf("unknown principal role %q", role)
	}

	resources := make([]string, 0)
	for _, resource := range strings.Split(r.Header.Get("X-Principal-Resources"), ",") {
		resource = strings.ToLower(strings.TrimSpace(resource))
		if resource != "" {
			resources = append(resources, resource)
		}
	}

	return rbac.Principal{ID: principalID, Role: role, Resources: resources}, nil
}
