package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleHostSessions lists today's sessions hosted by one user: the "what am
// I running today" view consumed by external schedulers.
func (a *API) handleHostSessions(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := workspaceIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing workspace ID")
		return
	}
	hostUserID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing workspace ID or userID")
		return
	}

	resolved, err := a.svc.HostSessionsToday(r.Context(), workspaceID, hostUserID)
	if err != nil {
		a.respondServiceError(w, r, err)
		return
	}

	sessions := make([]sessionView, 0, len(resolved))
	for _, res := range resolved {
		sessions = append(sessions, sessionViewOf(res))
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}
