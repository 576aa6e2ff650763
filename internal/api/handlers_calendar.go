package api

import (
	"net/http"
)

func (a *API) handleCalendar(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := workspaceIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing workspace ID")
		return
	}

	q := r.URL.Query()
	startRaw := q.Get("startDate")
	endRaw := q.Get("endDate")
	if startRaw == "" || endRaw == "" {
		respondError(w, http.StatusBadRequest, "Start date and end date are required")
		return
	}

	start, err := parseDate(startRaw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid start date")
		return
	}
	end, err := parseDate(endRaw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid end date")
		return
	}

	result, err := a.svc.Calendar(r.Context(), workspaceID, start, end, q.Get("category"))
	if err != nil {
		a.respondServiceError(w, r, err)
		return
	}

	sessions := make([]sessionView, 0, len(result.Sessions))
	for _, resolved := range result.Sessions {
		sessions = append(sessions, sessionViewOf(resolved))
	}

	byDate := make(map[string][]sessionView, len(result.ByDate))
	for key, group := range result.ByDate {
		views := make([]sessionView, 0, len(group))
		for _, resolved := range group {
			views = append(views, sessionViewOf(resolved))
		}
		byDate[key] = views
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"sessions":       sessions,
		"sessionsByDate": byDate,
		"dateRange": map[string]string{
			"startDate": startRaw,
			"endDate":   endRaw,
		},
		"total": len(sessions),
	})
}
