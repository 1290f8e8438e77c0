package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is the delivery address embedded in an order.
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// Customer is the customer snapshot embedded in an order.
type Customer struct {
	FullName string  `json:"full_name"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Address  Address `json:"address"`
}

// OrderLine is one line of an order. Price is the unit price agreed at
// order time and must match the funko's current price when the order is
// validated. Total is derived (quantity × price) when stock is reserved.
type OrderLine struct {
	FunkoID  int64           `json:"funko_id"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// Order is stored as a JSON document. TotalItems and Total are derived by
// the reservation workflow and never trusted from client input.
type Order struct {
	ID         primitive.ObjectID `json:"id"`
	CustomerID int64              `json:"customer_id"`
	Customer   Customer           `json:"customer"`
	Lines      []OrderLine        `json:"lines"`
	TotalItems int                `json:"total_items"`
	Total      decimal.Decimal    `json:"total"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	IsDeleted  bool               `json:"is_deleted"`
}
