package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one persisted checkout: line items, price snapshot and payment
// state. Mutated only by the payment confirmation after creation.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user"`
	Items           []Item          `json:"orderItems"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethods"`
	ItemsPrice      decimal.Decimal `json:"price"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	TaxPrice        decimal.Decimal `json:"taxPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`

	// Version backs the compare-and-swap on payment updates. Storage
	// concern only, never serialized.
	Version int64 `json:"-"`
}

// Item is a line item: product reference plus the price snapshot taken at
// checkout, so later catalog edits don't rewrite order history.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentResult captures the gateway confirmation payload. Field names
// follow the gateway wire format.
type PaymentResult struct {
	TransactionID string `json:"id"`
	Status        string `json:"status"`
	UpdateTime    string `json:"update_time"`
	PayerEmail    string `json:"email_address"`
}

// Owner is the display profile joined onto an order at read time.
type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Detail is the single-order read shape: the order plus its owner's display
// profile. The join is read-only and never mutates either entity.
type Detail struct {
	Order
	User *Owner `json:"userDetails,omitempty"`
}
