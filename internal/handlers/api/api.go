// Package api implements the read-only dashboard queries and the goal
// endpoints as JSON handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lildude/fitdash/internal/activity"
	"github.com/lildude/fitdash/internal/goals"
	"github.com/lildude/fitdash/internal/metrics"
	"github.com/lildude/fitdash/internal/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// Handler serves the dashboard API.
type Handler struct {
	sessions *session.Set
	goals    *goals.Store
	log      logrus.FieldLogger
	age      int
	lang     language.Tag
}

// New returns a Handler. age is the athlete age used for heart rate zones
// when a request does not give one and lang is the default label language.
func New(sessions *session.Set, g *goals.Store, log logrus.FieldLogger, age int, lang language.Tag) *Handler {
	return &Handler{sessions: sessions, goals: g, log: log, age: age, lang: lang}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("POST /api/refresh/{provider}", h.refresh)
	mux.HandleFunc("GET /api/activities", h.activities)
	mux.HandleFunc("GET /api/activities/{id}", h.activityDetail)
	mux.HandleFunc("GET /api/categories", h.categories)
	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("GET /api/overview", h.overview)
	mux.HandleFunc("GET /api/monthly", h.monthly)
	mux.HandleFunc("GET /api/daily", h.daily)
	mux.HandleFunc("GET /api/weekly", h.weekly)
	mux.HandleFunc("GET /api/progress", h.progress)
	mux.HandleFunc("GET /api/zones", h.zones)
	mux.HandleFunc("GET /api/zones/{id}", h.zoneAnalysis)
	mux.HandleFunc("GET /api/goals", h.listGoals)
	mux.HandleFunc("POST /api/goals", h.addGoal)
	mux.HandleFunc("POST /api/goals/track", h.trackGoals)
	mux.HandleFunc("PATCH /api/goals/{id}", h.updateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", h.deleteGoal)
	mux.HandleFunc("POST /api/goals/{id}/achieve", h.achieveGoal)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("encoding response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// language picks the label language from the lang query parameter, then
// Accept-Language, then the configured default.
func (h *Handler) language(r *http.Request) language.Tag {
	if v := r.URL.Query().Get("lang"); v != "" {
		return activity.MatchLanguage(v)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		return activity.MatchLanguage(v)
	}
	return h.lang
}

// selected returns the held activities narrowed by the optional provider
// and category query parameters.
func (h *Handler) selected(w http.ResponseWriter, r *http.Request) ([]activity.Activity, bool) {
	q := r.URL.Query()

	acts := h.sessions.Activities()
	if p := q.Get("provider"); p != "" {
		s, ok := h.sessions.Get(p)
		if !ok {
			h.writeError(w, http.StatusNotFound, "unknown provider")
			return nil, false
		}
		acts = s.Activities()
	}

	if v := q.Get("category"); v != "" {
		c, ok := activity.ParseCategory(v)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "unknown category")
			return nil, false
		}
		acts = activity.Filter(acts, c)
	}
	return acts, true
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.sessions.Snapshots(),
		"language":  h.language(r).String(),
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(r.PathValue("provider"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown provider")
		return
	}
	if s.State() != session.Connected {
		h.writeError(w, http.StatusConflict, "provider not connected")
		return
	}

	var err error
	if v := r.URL.Query().Get("category"); v != "" {
		c, ok := activity.ParseCategory(v)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		err = s.RefreshCategory(r.Context(), c)
	} else {
		err = s.RefreshActivities(r.Context())
	}
	if err != nil {
		h.log.WithError(err).WithField("provider", s.Name()).Error("refreshing activities")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, s.Snapshot())
}

// activityView is an activity with its derived display fields.
type activityView struct {
	activity.Activity
	DisplayType  string  `json:"displayType"`
	DistanceKm   float64 `json:"distanceKm"`
	SpeedKmh     float64 `json:"speedKmh"`
	PaceMinPerKm float64 `json:"paceMinPerKm"`
	Duration     string  `json:"duration"`
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.selected(w, r)
	if !ok {
		return
	}

	lang := h.language(r)
	out := make([]activityView, len(acts))
	for i := range acts {
		out[i] = viewOf(&acts[i], lang)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func viewOf(a *activity.Activity, lang language.Tag) activityView {
	return activityView{
		Activity:     *a,
		DisplayType:  activity.DisplayName(a.Type, lang),
		DistanceKm:   metrics.Km(a),
		SpeedKmh:     metrics.SpeedKmh(a),
		PaceMinPerKm: metrics.PaceMinPerKm(a),
		Duration:     metrics.FormatDuration(a.MovingTime),
	}
}

// lookup resolves the {id} path value to a held activity, writing the
// error response when it cannot.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (activity.Activity, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid activity id")
		return activity.Activity{}, false
	}
	a, err := h.sessions.Activity(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "activity not found")
		return activity.Activity{}, false
	}
	return a, true
}

func (h *Handler) activityDetail(w http.ResponseWriter, r *http.Request) {
	a, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(&a, h.language(r)))
}

type categoryView struct {
	Category activity.Category `json:"category"`
	Types    []string          `json:"types"`
}

// categories lists the provider types that make up each category, for
// finer-grained filtering in the UI.
func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	out := make([]categoryView, 0, len(activity.Categories))
	for _, c := range activity.Categories {
		types := activity.TypesIn(c)
		if types == nil {
			types = []string{}
		}
		out = append(out, categoryView{Category: c, Types: types})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.selected(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("category") != "" {
		h.writeJSON(w, http.StatusOK, metrics.Stats(acts))
		return
	}

	groups := activity.GroupByCategory(acts)
	out := make(map[activity.Category]metrics.CategoryStats, len(activity.Categories))
	for _, c := range activity.Categories {
		out[c] = metrics.Stats(groups[c])
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.selected(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, metrics.Summarize(acts))
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.selected(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, metrics.MonthlyAggregate(acts, h.language(r)))
}

type dailyView struct {
	Month string                `json:"month"`
	Label string                `json:"label"`
	Days  []metrics.PeriodStats `json:"days"`
}

// daily aggregates the month given as YYYY-MM, defaulting to the most
// recent month with activities.
func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.selected(w, r)
	if !ok {
		return
	}

	var month metrics.MonthKey
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := metrics.ParseMonthKey(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = m
	} else {
		months := metrics.Months(acts)
		if len(months) == 0 {
			h.writeJSON(w, http.StatusOK, dailyView{Days: []metrics.PeriodStats{}})
			return
		}
		month = months[0]
	}

	lang := h.language(r)
	h.writeJSON(w, http.StatusOK, dailyView{
		Month: month.String(),
		Label: month.Label(lang),
		Days:  metrics.DailyAggregate(acts, month, lang),
	})
}

func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.selected(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, metrics.WeeklyAggregate(acts))
}

// progress defaults to cycling activities.
func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("category") == "" {
		q := r.URL.Query()
		q.Set("category", string(activity.Cycling))
		r.URL.RawQuery = q.Encode()
	}
	acts, ok := h.selected(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, metrics.ProgressOf(acts))
}

func (h *Handler) athleteAge(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("age")
	if v == "" {
		return h.age, true
	}
	age, err := strconv.Atoi(v)
	if err != nil || age <= 0 || age >= 120 {
		h.writeError(w, http.StatusBadRequest, "age must be a whole number between 1 and 119")
		return 0, false
	}
	return age, true
}

func (h *Handler) zones(w http.ResponseWriter, r *http.Request) {
	age, ok := h.athleteAge(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, metrics.TrainingZones(age))
}

type zoneAnalysisView struct {
	metrics.TrainingZoneAnalysis
	Zone          int  `json:"zone"`
	Zone2Training bool `json:"zone2Training"`
}

// zoneAnalysis uses the detailed activity when the held summary has no
// heart rate.
func (h *Handler) zoneAnalysis(w http.ResponseWriter, r *http.Request) {
	age, ok := h.athleteAge(w, r)
	if !ok {
		return
	}
	a, ok := h.lookup(w, r)
	if !ok {
		return
	}

	zones := metrics.TrainingZones(age)
	analysis := metrics.AnalyzeTrainingZones(&a, zones)
	h.writeJSON(w, http.StatusOK, zoneAnalysisView{
		TrainingZoneAnalysis: analysis,
		Zone:                 zones.ZoneFor(a.AverageHeartrate),
		Zone2Training:        metrics.IsZone2Training(analysis),
	})
}

// goalError maps a goal store error to a response.
func (h *Handler) goalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, goals.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, goals.ErrInvalid):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).Error("goal store failed")
		h.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
