package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mzanotto/funkostore/internal/model"
)

// Order sort allow-lists for pagination. Anything else is rejected at the
// API boundary.
var (
	OrderSortFields = map[string]bool{"id": true, "customer_id": true}
	OrderSortOrders = map[string]bool{"asc": true, "desc": true}
)

// OrderPage is one page of orders plus pagination metadata.
type OrderPage struct {
	Items      []model.Order `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}

// CreateOrder persists an order document. The caller assigns the ObjectID
// and derived totals before saving.
func CreateOrder(ctx context.Context, db *sql.DB, o *model.Order) (*model.Order, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encoding order: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		o.ID.Hex(), o.CustomerID, string(doc), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	return GetOrder(ctx, db, o.ID)
}

// GetOrder returns an order by ID.
func GetOrder(ctx context.Context, db *sql.DB, id primitive.ObjectID) (*model.Order, error) {
	var doc string
	err := db.QueryRowContext(ctx,
		`SELECT doc FROM orders WHERE id = ?`, id.Hex(),
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	return decodeOrder(doc)
}

// ListOrders returns a page of orders. sortBy and direction must already be
// validated against the allow-lists.
func ListOrders(ctx context.Context, db *sql.DB, page, limit int, sortBy, direction string) (*OrderPage, error) {
	if !OrderSortFields[sortBy] || !OrderSortOrders[direction] {
		return nil, fmt.Errorf("invalid sort: %s %s", sortBy, direction)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	// sortBy and direction come from fixed allow-lists, safe to interpolate.
	query := fmt.Sprintf(
		`SELECT doc FROM orders ORDER BY %s %s LIMIT ? OFFSET ?`,
		sortBy, direction,
	)
	rows, err := db.QueryContext(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	items := []model.Order{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		o, err := decodeOrder(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	return &OrderPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// ListOrdersByCustomer returns all orders belonging to a customer.
func ListOrdersByCustomer(ctx context.Context, db *sql.DB, customerID int64) ([]model.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT doc FROM orders WHERE customer_id = ? ORDER BY created_at`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing orders by customer: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		o, err := decodeOrder(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// CustomerHasOrders reports whether any order references the customer.
func CustomerHasOrders(ctx context.Context, db *sql.DB, customerID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_id = ?`, customerID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("counting customer orders: %w", err)
	}
	return count > 0, nil
}

// UpdateOrder replaces an order document in place.
func UpdateOrder(ctx context.Context, db *sql.DB, o *model.Order) (*model.Order, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encoding order: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE orders SET customer_id = ?, doc = ?, updated_at = ? WHERE id = ?`,
		o.CustomerID, string(doc), o.UpdatedAt, o.ID.Hex(),
	)
	if err != nil {
		return nil, fmt.Errorf("updating order: %w", err)
	}

	return GetOrder(ctx, db, o.ID)
}

// DeleteOrder removes an order document.
func DeleteOrder(ctx context.Context, db *sql.DB, id primitive.ObjectID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id.Hex())
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}
	return nil
}

func decodeOrder(doc string) (*model.Order, error) {
	o := &model.Order{}
	if err := json.Unmarshal([]byte(doc), o); err != nil {
		return nil, fmt.Errorf("decoding order: %w", err)
	}
	return o, nil
}
