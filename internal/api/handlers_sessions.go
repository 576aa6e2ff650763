package api

import (
	"encoding/json"
	"net/http"

	"orbitd/internal/session"
)

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := workspaceIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing workspace ID")
		return
	}
	sessionID, err := sessionIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing session ID")
		return
	}

	resolved, err := a.svc.Get(r.Context(), workspaceID, sessionID)
	if err != nil {
		a.respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{"session": sessionViewOf(resolved)})
}

type participantReq struct {
	UserID json.RawMessage `json:"userId"`
	RoleID *string         `json:"roleId"`
	Slot   json.RawMessage `json:"slot"`
}

// toInput converts a wire participant to the reconciler's shape. Fields that
// fail to parse stay nil so the best-effort policy drops the entry rather
// than failing the batch.
func (p participantReq) toInput() session.ParticipantInput {
	userID, _ := parseFlexID(p.UserID)
	slot, _ := parseFlexInt(p.Slot)
	return session.ParticipantInput{UserID: userID, RoleID: p.RoleID, Slot: slot}
}

func (a *API) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := workspaceIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing workspace ID")
		return
	}
	sessionID, err := sessionIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing session ID")
		return
	}

	var req struct {
		Date         *string           `json:"date"`
		HostUserID   json.RawMessage   `json:"hostUserId"`
		Participants *[]participantReq `json:"participants"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var in session.UpdateInput

	if req.Date != nil {
		parsed, err := parseDate(*req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		in.Date = &parsed
	}

	if len(req.HostUserID) > 0 {
		in.SetHost = true
		hostID, err := parseFlexID(req.HostUserID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid hostUserId")
			return
		}
		in.HostUserID = hostID
	}

	if req.Participants != nil {
		in.SetParticipants = true
		in.Participants = make([]session.ParticipantInput, 0, len(*req.Participants))
		for _, p := range *req.Participants {
			in.Participants = append(in.Participants, p.toInput())
		}
	}

	resolved, err := a.svc.Update(r.Context(), workspaceID, sessionID, in)
	if err != nil {
		a.respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{"session": sessionViewOf(resolved)})
}

func (a *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := workspaceIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing workspace ID")
		return
	}
	sessionID, err := sessionIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing session ID")
		return
	}

	if err := a.svc.Delete(r.Context(), workspaceID, sessionID); err != nil {
		a.respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{"message": "Session deleted successfully"})
}
