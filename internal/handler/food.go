package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/purrfect/internal/foodlog"
	"github.com/dukerupert/purrfect/internal/middleware"
	"github.com/dukerupert/purrfect/internal/websocket"
)

type FoodHandler struct {
	broadcaster
	engine *foodlog.Engine
	now    func() time.Time
	logger *slog.Logger
}

func NewFoodHandler(engine *foodlog.Engine, hub *websocket.Hub, now func() time.Time, logger *slog.Logger) *FoodHandler {
	if now == nil {
		now = time.Now
	}
	return &FoodHandler{
		broadcaster: broadcaster{hub: hub},
		engine:      engine,
		now:         now,
		logger:      logger,
	}
}

func (h *FoodHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, "error", err, "request_id", middleware.RequestID(r.Context()))
	}
	writeError(w, status, msg)
}

// day resolves a date from the request. Empty and "today" mean the local day.
func (h *FoodHandler) day(s string) string {
	if s == "" || s == "today" {
		return foodlog.Day(h.now())
	}
	return s
}

type homeResponse struct {
	Today          string   `json:"today"`
	TodayCount     int      `json:"today_count"`
	WeekCount      int      `json:"week_count"`
	WeekFoods      []string `json:"week_foods"`
	CarbStreakDays int      `json:"carb_streak_days"`
}

// Home returns the dashboard numbers.
func (h *FoodHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now()
	today := foodlog.Day(now)

	count, err := h.engine.CountForDay(ctx, today)
	if err != nil {
		h.fail(w, r, "count today", err)
		return
	}
	week, err := h.engine.ListUniqueLast7Days(ctx, today)
	if err != nil {
		h.fail(w, r, "list week", err)
		return
	}
	streak, err := h.engine.CarbStreakDays(ctx, now)
	if err != nil {
		h.fail(w, r, "carb streak", err)
		return
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Today:          today,
		TodayCount:     count,
		WeekCount:      len(week),
		WeekFoods:      week,
		CarbStreakDays: streak,
	})
}

type entriesResponse struct {
	Date  string   `json:"date"`
	Foods []string `json:"foods"`
}

func (h *FoodHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	date := h.day(r.PathValue("date"))
	foods, err := h.engine.EntriesForDay(r.Context(), date)
	if err != nil {
		h.fail(w, r, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entriesResponse{Date: date, Foods: foods})
}

func (h *FoodHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Food string `json:"food"`
		Date string `json:"date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	date := h.day(req.Date)
	food := strings.TrimSpace(req.Food)

	added, err := h.engine.AddEntry(r.Context(), date, food)
	if err != nil {
		h.fail(w, r, "add entry", err)
		return
	}
	foods, err := h.engine.EntriesForDay(r.Context(), date)
	if err != nil {
		h.fail(w, r, "list entries", err)
		return
	}

	if !added {
		writeJSON(w, http.StatusOK, map[string]any{
			"added":   false,
			"message": "item added already",
			"date":    date,
			"foods":   foods,
		})
		return
	}

	h.broadcast(websocket.NewMessage("food_entry", "added", date, map[string]any{"food": food}))
	writeJSON(w, http.StatusCreated, map[string]any{
		"added":   true,
		"message": food + " added for " + date,
		"date":    date,
		"foods":   foods,
	})
}

func (h *FoodHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	date := h.day(r.PathValue("date"))
	food := r.PathValue("food")

	deleted, err := h.engine.DeleteEntry(r.Context(), date, food)
	if err != nil {
		h.fail(w, r, "delete entry", err)
		return
	}
	foods, err := h.engine.EntriesForDay(r.Context(), date)
	if err != nil {
		h.fail(w, r, "list entries", err)
		return
	}
	if deleted {
		h.broadcast(websocket.NewMessage("food_entry", "deleted", date, map[string]any{"food": food}))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"date":    date,
		"foods":   foods,
	})
}

type categoryResponse struct {
	foodlog.CategoryInfo
	Foods []string `json:"foods"`
}

func (h *FoodHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.engine.Catalog(r.Context())
	if err != nil {
		h.fail(w, r, "load catalog", err)
		return
	}
	out := make([]categoryResponse, 0, len(foodlog.Categories))
	for _, info := range foodlog.Categories {
		foods := catalog.Foods(info.Key)
		if foods == nil {
			foods = []string{}
		}
		out = append(out, categoryResponse{CategoryInfo: info, Foods: foods})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FoodHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	cat, ok := foodlog.ParseCategory(r.PathValue("key"))
	if !ok {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	foods, err := h.engine.FavoritesForCategory(r.Context(), cat)
	if err != nil {
		h.fail(w, r, "favorites", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": cat, "foods": foods})
}

func (h *FoodHandler) ListFoods(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.engine.Catalog(r.Context())
	if err != nil {
		h.fail(w, r, "load catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"foods":      catalog.Names(),
		"categories": catalog.ReverseIndex(),
	})
}

func (h *FoodHandler) SearchFoods(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := h.engine.SearchFoods(r.Context(), query)
	if err != nil {
		h.fail(w, r, "search foods", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

func (h *FoodHandler) CreateFood(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Name     string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	cat := foodlog.Category(req.Category)

	if err := h.engine.AddCustomFood(r.Context(), cat, name); err != nil {
		h.fail(w, r, "add custom food", err)
		return
	}
	h.broadcast(websocket.NewMessage("food", "created", "", map[string]any{"name": name, "category": cat}))
	writeJSON(w, http.StatusCreated, map[string]any{"name": name, "category": cat})
}

type streakResponse struct {
	CarbStreakDays int        `json:"carb_streak_days"`
	LastLapse      *time.Time `json:"last_lapse,omitempty"`
}

func (h *FoodHandler) streak(w http.ResponseWriter, r *http.Request, status int) {
	ctx := r.Context()
	days, err := h.engine.CarbStreakDays(ctx, h.now())
	if err != nil {
		h.fail(w, r, "carb streak", err)
		return
	}
	resp := streakResponse{CarbStreakDays: days}
	last, ok, err := h.engine.LastCarbLapse(ctx)
	if err != nil {
		h.fail(w, r, "last carb lapse", err)
		return
	}
	if ok {
		resp.LastLapse = &last
	}
	writeJSON(w, status, resp)
}

func (h *FoodHandler) CarbStreak(w http.ResponseWriter, r *http.Request) {
	h.streak(w, r, http.StatusOK)
}

func (h *FoodHandler) RecordCarbLapse(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if err := h.engine.RecordCarbLapse(r.Context(), now); err != nil {
		h.fail(w, r, "record carb lapse", err)
		return
	}
	h.broadcast(websocket.NewMessage("carb_lapse", "recorded", foodlog.Day(now), nil))
	h.streak(w, r, http.StatusCreated)
}
