package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mzanotto/funkostore/internal/cache"
	"github.com/mzanotto/funkostore/internal/model"
	"github.com/mzanotto/funkostore/internal/orders"
	"github.com/mzanotto/funkostore/internal/store"
)

// OrdersHandler handles the admin order endpoints.
type OrdersHandler struct {
	DB    *sql.DB
	Cache *cache.Cache
}

type orderLineRequest struct {
	FunkoID  int64           `json:"funko_id"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type orderRequest struct {
	CustomerID int64              `json:"customer_id"`
	Customer   model.Customer     `json:"customer"`
	Lines      []orderLineRequest `json:"lines"`
}

// toOrder builds the workflow input. Derived fields (line totals, order
// totals) are left zero for the workflow to fill in.
func (req *orderRequest) toOrder() *model.Order {
	o := &model.Order{
		CustomerID: req.CustomerID,
		Customer:   req.Customer,
	}
	for _, line := range req.Lines {
		o.Lines = append(o.Lines, model.OrderLine{
			FunkoID:  line.FunkoID,
			Price:    line.Price,
			Quantity: line.Quantity,
		})
	}
	return o
}

// validate checks request fields the workflow does not cover, including
// that the customer account exists.
func (req *orderRequest) validate(r *http.Request, db *sql.DB) string {
	if req.CustomerID <= 0 {
		return "customer_id required"
	}
	if strings.TrimSpace(req.Customer.FullName) == "" || strings.TrimSpace(req.Customer.Email) == "" {
		return "customer full_name and email required"
	}
	for _, line := range req.Lines {
		if line.Quantity < 0 {
			return "line quantity must not be negative"
		}
	}

	user, err := store.GetUser(r.Context(), db, req.CustomerID)
	if err != nil {
		return "internal error"
	}
	if user == nil || user.IsDeleted {
		return "customer does not exist"
	}
	return ""
}

// parseOrderID parses an ObjectID path value.
func parseOrderID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	return id, err == nil
}

// workflowError maps workflow failures to HTTP statuses.
func workflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrNoLines),
		errors.Is(err, orders.ErrUnknownFunko),
		errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrPriceMismatch):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// List handles GET /api/orders with pagination. sort is restricted to
// {id, customer_id} and order to {asc, desc}.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}
	sortBy := q.Get("sort")
	if sortBy == "" {
		sortBy = "id"
	}
	direction := q.Get("order")
	if direction == "" {
		direction = "asc"
	}
	if !store.OrderSortFields[sortBy] {
		jsonError(w, http.StatusBadRequest, "sort must be one of: id, customer_id")
		return
	}
	if !store.OrderSortOrders[direction] {
		jsonError(w, http.StatusBadRequest, "order must be one of: asc, desc")
		return
	}

	key := "orders:page:" + strconv.Itoa(page) + ":" + strconv.Itoa(limit) + ":" + sortBy + ":" + direction
	if cached, ok := h.Cache.Get(key); ok {
		jsonResponse(w, http.StatusOK, cached)
		return
	}

	result, err := store.ListOrders(r.Context(), h.DB, page, limit, sortBy, direction)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	h.Cache.Set(key, result)
	jsonResponse(w, http.StatusOK, result)
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	key := "orders:id:" + id.Hex()
	if cached, ok := h.Cache.Get(key); ok {
		jsonResponse(w, http.StatusOK, cached)
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

	h.Cache.Set(key, order)
	jsonResponse(w, http.StatusOK, order)
}

// Create handles POST /api/orders.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
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

// Update handles PUT /api/orders/{id}.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
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

// Delete handles DELETE /api/orders/{id}.
func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
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
