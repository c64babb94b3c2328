package api

import (
	"encoding/json"
	"net/http"

	"github.com/lildude/fitdash/internal/goals"
)

func nonNil(gs []goals.Goal) []goals.Goal {
	if gs == nil {
		return []goals.Goal{}
	}
	return gs
}

func (h *Handler) listGoals(w http.ResponseWriter, r *http.Request) {
	gs, err := h.goals.List(r.Context())
	if err != nil {
		h.goalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(gs))
}

func (h *Handler) addGoal(w http.ResponseWriter, r *http.Request) {
	var in goals.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid goal body")
		return
	}
	g, err := h.goals.Add(r.Context(), in)
	if err != nil {
		h.goalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, g)
}

func (h *Handler) updateGoal(w http.ResponseWriter, r *http.Request) {
	var p goals.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid goal body")
		return
	}
	g, err := h.goals.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.goalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

func (h *Handler) deleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.goals.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.goalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) achieveGoal(w http.ResponseWriter, r *http.Request) {
	g, err := h.goals.MarkAchieved(r.Context(), r.PathValue("id"))
	if err != nil {
		h.goalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

// trackGoals recomputes goal progress from every held activity.
func (h *Handler) trackGoals(w http.ResponseWriter, r *http.Request) {
	gs, err := h.goals.Track(r.Context(), h.sessions.Activities())
	if err != nil {
		h.goalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(gs))
}
