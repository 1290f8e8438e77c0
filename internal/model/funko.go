package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultImage is the placeholder used until a real image is uploaded.
const DefaultImage = "https://via.placeholder.com/150"

// Funko is a catalog product. Quantity is the on-hand stock and is
// decremented/incremented by the order reservation workflow.
type Funko struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Image      string          `json:"image"`
	CategoryID *string         `json:"category_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	IsDeleted  bool            `json:"is_deleted"`
}
