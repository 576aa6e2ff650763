package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func (a *API) handleUpdateJobID(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := workspaceIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing workspace ID")
		return
	}

	var req struct {
		SessionID string          `json:"sessionId"`
		JobID     json.RawMessage `json:"jobId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Job ids arrive as strings or numbers depending on the game client.
	jobID := strings.Trim(strings.TrimSpace(string(req.JobID)), `"`)
	if req.SessionID == "" || jobID == "" || jobID == "null" {
		respondError(w, http.StatusBadRequest, "Missing sessionId or jobId")
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing sessionId or jobId")
		return
	}

	sess, err := a.svc.SetJobID(r.Context(), workspaceID, sessionID, jobID)
	if err != nil {
		a.respondServiceError(w, r, err)
		return
	}

	if key, ok := keyFromContext(r.Context()); ok {
		a.log.Debug().
			Str("key", key.Name).
			Str("session_id", sessionID.String()).
			Str("job_id", jobID).
			Msg("job id updated")
	}

	respondSuccess(w, http.StatusOK, map[string]any{"session": jobIDViewOf(sess)})
}
