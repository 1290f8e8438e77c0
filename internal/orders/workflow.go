// Package orders implements the order lifecycle and the stock reservation
// workflow that keeps funko quantities consistent with the set of active
// orders.
//
// Reserve and Release walk line items in array order and persist each funko
// as they go. There is no cross-line rollback and no cross-store
// transaction: a failure partway through leaves earlier lines applied, and
// concurrent mutations of the same funko race with last-write-wins
// semantics. Both gaps are inherited behavior, kept on purpose; see the
// tests that characterize them before changing anything here.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mzanotto/funkostore/internal/model"
	"github.com/mzanotto/funkostore/internal/store"
)

// Workflow failures. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrNotFound          = errors.New("order not found")
	ErrNoLines           = errors.New("order has no line items")
	ErrUnknownFunko      = errors.New("funko does not exist")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPriceMismatch     = errors.New("line price does not match funko price")
)

// Validate checks every line item against the catalog without mutating
// anything: the funko must exist, stock must cover the requested quantity,
// and the line price must equal the funko's current price exactly.
//
// A line with quantity 0 is exempt from the stock check (but not the price
// check). That asymmetry is inherited behavior and must stay.
func Validate(ctx context.Context, db *sql.DB, o *model.Order) error {
	if len(o.Lines) == 0 {
		return ErrNoLines
	}

	for _, line := range o.Lines {
		funko, err := store.GetFunko(ctx, db, line.FunkoID)
		if err != nil {
			return err
		}
		if funko == nil {
			return fmt.Errorf("funko %d: %w", line.FunkoID, ErrUnknownFunko)
		}
		if funko.Quantity < line.Quantity && line.Quantity > 0 {
			return fmt.Errorf("funko %d has %d in stock, %d requested: %w",
				funko.ID, funko.Quantity, line.Quantity, ErrInsufficientStock)
		}
		if !funko.Price.Equal(line.Price) {
			return fmt.Errorf("funko %d costs %s, line says %s: %w",
				funko.ID, funko.Price, line.Price, ErrPriceMismatch)
		}
	}
	return nil
}

// Reserve decrements stock for every line item and fills in the derived
// fields: each line's total, then the order's total amount and item count.
// Must only be called after Validate has succeeded. A funko vanishing
// mid-list aborts the loop with earlier lines already decremented.
func Reserve(ctx context.Context, db *sql.DB, o *model.Order) error {
	if len(o.Lines) == 0 {
		return ErrNoLines
	}

	total := decimal.Zero
	totalItems := 0
	for i := range o.Lines {
		line := &o.Lines[i]
		funko, err := store.GetFunko(ctx, db, line.FunkoID)
		if err != nil {
			return err
		}
		if funko == nil {
			return fmt.Errorf("funko %d: %w", line.FunkoID, ErrUnknownFunko)
		}

		if err := store.UpdateFunkoQuantity(ctx, db, funko.ID, funko.Quantity-line.Quantity); err != nil {
			return err
		}

		line.Total = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(line.Total)
		totalItems += line.Quantity
	}

	o.Total = total
	o.TotalItems = totalItems
	return nil
}

// Release returns reserved stock to the pool, incrementing each line's
// funko by the line quantity. Same partial-failure behavior as Reserve.
func Release(ctx context.Context, db *sql.DB, o *model.Order) error {
	for _, line := range o.Lines {
		funko, err := store.GetFunko(ctx, db, line.FunkoID)
		if err != nil {
			return err
		}
		if funko == nil {
			return fmt.Errorf("funko %d: %w", line.FunkoID, ErrUnknownFunko)
		}
		if err := store.UpdateFunkoQuantity(ctx, db, funko.ID, funko.Quantity+line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Create validates the order, reserves stock, and persists the document.
func Create(ctx context.Context, db *sql.DB, o *model.Order) (*model.Order, error) {
	slog.Info("creating order", "customer", o.CustomerID, "lines", len(o.Lines))

	if err := Validate(ctx, db, o); err != nil {
		return nil, err
	}
	if err := Reserve(ctx, db, o); err != nil {
		return nil, err
	}

	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	return store.CreateOrder(ctx, db, o)
}

// Update replaces an existing order. The old reservation is released before
// the replacement is validated, so a validation failure leaves the old
// stock already returned and the stored order unchanged; callers must not
// blindly retry.
func Update(ctx context.Context, db *sql.DB, id primitive.ObjectID, o *model.Order) (*model.Order, error) {
	slog.Info("updating order", "id", id.Hex())

	existing, err := store.GetOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}

	if err := Release(ctx, db, existing); err != nil {
		return nil, err
	}
	if err := Validate(ctx, db, o); err != nil {
		return nil, err
	}
	if err := Reserve(ctx, db, o); err != nil {
		return nil, err
	}

	o.ID = id
	o.CreatedAt = existing.CreatedAt
	o.UpdatedAt = time.Now().UTC()

	return store.UpdateOrder(ctx, db, o)
}

// Remove releases an order's reserved stock and deletes the document.
func Remove(ctx context.Context, db *sql.DB, id primitive.ObjectID) error {
	slog.Info("removing order", "id", id.Hex())

	existing, err := store.GetOrder(ctx, db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}

	if err := Release(ctx, db, existing); err != nil {
		return err
	}
	return store.DeleteOrder(ctx, db, id)
}
