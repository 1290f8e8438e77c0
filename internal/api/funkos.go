package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mzanotto/funkostore/internal/cache"
	"github.com/mzanotto/funkostore/internal/imaging"
	"github.com/mzanotto/funkostore/internal/model"
	"github.com/mzanotto/funkostore/internal/notify"
	"github.com/mzanotto/funkostore/internal/storage"
	"github.com/mzanotto/funkostore/internal/store"
)

// maxUploadSize caps funko image uploads.
const maxUploadSize = 10 << 20

// FunkosHandler handles funko CRUD and image upload endpoints.
type FunkosHandler struct {
	DB    *sql.DB
	Cache *cache.Cache
	Relay *notify.Relay
	Files *storage.Store
}

type funkoRequest struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	CategoryID string          `json:"category_id"`
}

// validate checks the request fields and resolves the category reference.
// Returns the category id pointer to store, or an error message.
func (req *funkoRequest) validate(r *http.Request, db *sql.DB) (*string, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, "name required"
	}
	if req.Price.IsNegative() {
		return nil, "price must not be negative"
	}
	if req.Quantity < 0 {
		return nil, "quantity must not be negative"
	}
	if req.CategoryID == "" {
		return nil, ""
	}

	category, err := store.GetCategory(r.Context(), db, req.CategoryID)
	if err != nil {
		return nil, "internal error"
	}
	if category == nil || category.IsDeleted {
		return nil, "category does not exist"
	}
	return &category.ID, ""
}

// List handles GET /api/funkos with an optional category filter.
func (h *FunkosHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("category")
	key := "funkos:list:cat=" + categoryID

	if cached, ok := h.Cache.Get(key); ok {
		jsonResponse(w, http.StatusOK, cached)
		return
	}

	funkos, err := store.ListFunkos(r.Context(), h.DB, categoryID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list funkos")
		return
	}
	if funkos == nil {
		funkos = []model.Funko{}
	}

	h.Cache.Set(key, funkos)
	jsonResponse(w, http.StatusOK, funkos)
}

// Get handles GET /api/funkos/{id}.
func (h *FunkosHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid funko id")
		return
	}

	key := "funkos:id:" + r.PathValue("id")
	if cached, ok := h.Cache.Get(key); ok {
		jsonResponse(w, http.StatusOK, cached)
		return
	}

	funko, err := store.GetFunko(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get funko")
		return
	}
	if funko == nil || funko.IsDeleted {
		jsonError(w, http.StatusNotFound, "funko not found")
		return
	}

	h.Cache.Set(key, funko)
	jsonResponse(w, http.StatusOK, funko)
}

// Create handles POST /api/funkos.
func (h *FunkosHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req funkoRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	categoryID, msg := req.validate(r, h.DB)
	if msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	funko, err := store.CreateFunko(r.Context(), h.DB, req.Name, req.Price, req.Quantity, categoryID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create funko")
		return
	}

	h.Cache.DeletePrefix("funkos:")
	h.Relay.Publish(notify.EntityFunkos, notify.KindCreated, funko)
	jsonResponse(w, http.StatusCreated, funko)
}

// Update handles PUT /api/funkos/{id}.
func (h *FunkosHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid funko id")
		return
	}

	var req funkoRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	categoryID, msg := req.validate(r, h.DB)
	if msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	funko, err := store.GetFunko(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if funko == nil || funko.IsDeleted {
		jsonError(w, http.StatusNotFound, "funko not found")
		return
	}

	if err := store.UpdateFunko(r.Context(), h.DB, id, req.Name, req.Price, req.Quantity, categoryID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update funko")
		return
	}

	updated, err := store.GetFunko(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.Cache.DeletePrefix("funkos:")
	h.Relay.Publish(notify.EntityFunkos, notify.KindUpdated, updated)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/funkos/{id} (soft delete, matching the store
// frontend's expectations: the funko stays resolvable for old orders).
func (h *FunkosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid funko id")
		return
	}

	funko, err := store.GetFunko(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if funko == nil || funko.IsDeleted {
		jsonError(w, http.StatusNotFound, "funko not found")
		return
	}

	if err := store.SoftDeleteFunko(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete funko")
		return
	}

	h.Cache.DeletePrefix("funkos:")
	h.Relay.Publish(notify.EntityFunkos, notify.KindDeleted, funko)
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles PUT /api/funkos/{id}/image. The upload is validated
// and downscaled, stored under a generated filename, and the previous file
// is removed unless it was the placeholder.
func (h *FunkosHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid funko id")
		return
	}

	funko, err := store.GetFunko(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if funko == nil || funko.IsDeleted {
		jsonError(w, http.StatusNotFound, "funko not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	data, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	filename, err := h.Files.Save(data, imaging.Extension())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	if err := store.SetFunkoImage(r.Context(), h.DB, id, filename); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update funko image")
		return
	}

	// Best-effort cleanup of the replaced file.
	if funko.Image != model.DefaultImage {
		_ = h.Files.Remove(funko.Image)
	}

	updated, err := store.GetFunko(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.Cache.DeletePrefix("funkos:")
	h.Relay.Publish(notify.EntityFunkos, notify.KindUpdated, updated)
	jsonResponse(w, http.StatusOK, updated)
}
