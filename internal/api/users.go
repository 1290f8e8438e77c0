package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mzanotto/funkostore/internal/cache"
	"github.com/mzanotto/funkostore/internal/model"
	"github.com/mzanotto/funkostore/internal/orders"
	"github.com/mzanotto/funkostore/internal/store"
)

// UsersHandler handles admin user management and the self-service
// /api/users/me endpoints, including a user's own orders.
type UsersHandler struct {
	DB    *sql.DB
	Cache *cache.Cache
}

type createUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil || user.IsDeleted {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Create handles POST /api/users: admin account creation with an explicit
// role set.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		jsonError(w, http.StatusBadRequest, "username, email and a password of at least 8 characters required")
		return
	}
	if !model.ValidRoles(req.Roles) {
		jsonError(w, http.StatusBadRequest, "roles must be a subset of: admin, user")
		return
	}

	if existing, err := store.GetUserByUsername(r.Context(), h.DB, req.Username); err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	} else if existing != nil {
		jsonError(w, http.StatusConflict, "username already exists")
		return
	}
	if existing, err := store.GetUserByEmail(r.Context(), h.DB, req.Email); err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	} else if existing != nil {
		jsonError(w, http.StatusConflict, "email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, req.Email, string(hash), req.Roles)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	jsonResponse(w, http.StatusCreated, user)
}

// Delete handles DELETE /api/users/{id}. Users with orders are soft-deleted
// so their order history stays resolvable; users without orders are removed
// outright.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || user.IsDeleted {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	hasOrders, err := store.CustomerHasOrders(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if hasOrders {
		err = store.SoftDeleteUser(r.Context(), h.DB, id)
	} else {
		err = store.DeleteUser(r.Context(), h.DB, id)
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || user.IsDeleted {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// MyOrders handles GET /api/users/me/orders.
func (h *UsersHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	list, err := store.ListOrdersByCustomer(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if list == nil {
		list = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// MyOrder handles GET /api/users/me/orders/{id}. Accessing someone else's
// order is forbidden, not hidden.
func (h *UsersHandler) MyOrder(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := parseOrderID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.CustomerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "order belongs to another user")
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// CreateMyOrder handles POST /api/users/me/orders. The customer id is
// always the caller, regardless of the request body.
func (h *UsersHandler) CreateMyOrder(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CustomerID = claims.UserID
	if msg := req.validate(r, h.DB); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := orders.Create(r.Context(), h.DB, req.toOrder())
	if err != nil {
		workflowError(w, err)
		return
	}

	h.Cache.DeletePrefix("orders:")
	h.Cache.DeletePrefix("funkos:")
	jsonResponse(w, http.StatusCreated, created)
}

// UpdateMyOrder handles PUT /api/users/me/orders/{id}.
func (h *UsersHandler) UpdateMyOrder(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := parseOrderID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	existing, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}
	if existing.CustomerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "order belongs to another user")
		return
	}

	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CustomerID = claims.UserID
	if msg := req.validate(r, h.DB); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := orders.Update(r.Context(), h.DB, id, req.toOrder())
	if err != nil {
		workflowError(w, err)
		return
	}

	h.Cache.DeletePrefix("orders:")
	h.Cache.DeletePrefix("funkos:")
	jsonResponse(w, http.StatusOK, updated)
}

// DeleteMyOrder handles DELETE /api/users/me/orders/{id}.
func (h *UsersHandler) DeleteMyOrder(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := parseOrderID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	existing, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}
	if existing.CustomerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "order belongs to another user")
		return
	}

	if err := orders.Remove(r.Context(), h.DB, id); err != nil {
		workflowError(w, err)
		return
	}

	h.Cache.DeletePrefix("orders:")
	h.Cache.DeletePrefix("funkos:")
	w.WriteHeader(http.StatusNoContent)
}
