package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/robertfedus/natours/apperror"
	"github.com/robertfedus/natours/middleware"
	"github.com/robertfedus/natours/models"
	"github.com/robertfedus/natours/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TourStore is the storage surface the tour handlers need; *store.DB
// implements it.
type TourStore interface {
	ListTours(ctx context.Context, q store.ListQuery, includeSecret bool) ([]models.Tour, error)
	TourByID(ctx context.Context, id primitive.ObjectID, includeSecret bool) (*models.Tour, error)
	CreateTour(ctx context.Context, tour *models.Tour) (*models.Tour, error)
	UpdateTour(ctx context.Context, id primitive.ObjectID, update *models.TourUpdate, includeSecret bool) (*models.Tour, error)
	DeleteTour(ctx context.Context, id primitive.ObjectID, includeSecret bool) error
	TourStats(ctx context.Context, includeSecret bool) ([]store.TourStat, error)
	MonthlyPlan(ctx context.Context, year int, includeSecret bool) ([]store.MonthlyPlanEntry, error)
}

type ToursHandler struct {
	Store TourStore
}

func (h *ToursHandler) List(w http.ResponseWriter, r *http.Request) {
	q := store.ParseListQuery(r.URL.Query())
	tours, err := h.Store.ListTours(r.Context(), q, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, len(tours), map[string]interface{}{"tours": tours})
}

// TopCheap is the preset alias for the five best-rated, cheapest tours.
func (h *ToursHandler) TopCheap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	r.URL.RawQuery = q.Encode()
	h.List(w, r)
}

func (h *ToursHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := tourID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	tour, err := h.Store.TourByID(r.Context(), id, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"tour": tour})
}

func (h *ToursHandler) Create(w http.ResponseWriter, r *http.Request) {
	var tour models.Tour
	if err := json.NewDecoder(r.Body).Decode(&tour); err != nil {
		respondError(w, apperror.Validation("", "Invalid JSON payload"))
		return
	}
	created, err := h.Store.CreateTour(r.Context(), &tour)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]interface{}{"tour": created})
}

func (h *ToursHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := tourID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var update models.TourUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, apperror.Validation("", "Invalid JSON payload"))
		return
	}
	tour, err := h.Store.UpdateTour(r.Context(), id, &update, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"tour": tour})
}

func (h *ToursHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := tourID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Store.DeleteTour(r.Context(), id, middleware.IsAdmin(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ToursHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.TourStats(r.Context(), middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

func (h *ToursHandler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		respondError(w, apperror.Validation("year", "Please provide a valid year"))
		return
	}
	plan, err := h.Store.MonthlyPlan(r.Context(), year, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"plan": plan})
}

func tourID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("id", "Invalid tour ID")
	}
	return id, nil
}
