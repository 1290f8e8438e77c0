package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/mzanotto/funkostore/internal/cache"
	"github.com/mzanotto/funkostore/internal/model"
	"github.com/mzanotto/funkostore/internal/notify"
	"github.com/mzanotto/funkostore/internal/store"
)

// CategoriesHandler handles category CRUD endpoints.
type CategoriesHandler struct {
	DB    *sql.DB
	Cache *cache.Cache
	Relay *notify.Relay
}

type categoryRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.Cache.Get("categories:all"); ok {
		jsonResponse(w, http.StatusOK, cached)
		return
	}

	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}

	h.Cache.Set("categories:all", categories)
	jsonResponse(w, http.StatusOK, categories)
}

// Get handles GET /api/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if cached, ok := h.Cache.Get("categories:id:" + id); ok {
		jsonResponse(w, http.StatusOK, cached)
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}

	h.Cache.Set("categories:id:"+id, category)
	jsonResponse(w, http.StatusOK, category)
}

// Create handles POST /api/categories. Duplicate names (case-insensitive,
// trimmed) are rejected.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	existing, err := store.GetCategoryByName(r.Context(), h.DB, req.Name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, "category name already exists")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	h.Cache.DeletePrefix("categories:")
	h.Relay.Publish(notify.EntityCategories, notify.KindCreated, category)
	jsonResponse(w, http.StatusCreated, category)
}

// Update handles PUT /api/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}

	existing, err := store.GetCategoryByName(r.Context(), h.DB, req.Name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil && existing.ID != id {
		jsonError(w, http.StatusConflict, "category name already exists")
		return
	}

	if err := store.UpdateCategory(r.Context(), h.DB, id, req.Name); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	updated, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.Cache.DeletePrefix("categories:")
	h.Relay.Publish(notify.EntityCategories, notify.KindUpdated, updated)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/categories/{id}: a hard delete that detaches
// the category's funkos.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}

	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	// Funkos were detached, so their cached variants are stale too.
	h.Cache.DeletePrefix("categories:")
	h.Cache.DeletePrefix("funkos:")
	h.Relay.Publish(notify.EntityCategories, notify.KindDeleted, category)
	w.WriteHeader(http.StatusNoContent)
}

// SoftDelete handles PATCH /api/categories/{id}/soft.
func (h *CategoriesHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}

	if err := store.SoftDeleteCategory(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	deleted, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.Cache.DeletePrefix("categories:")
	h.Relay.Publish(notify.EntityCategories, notify.KindDeleted, deleted)
	jsonResponse(w, http.StatusOK, deleted)
}
