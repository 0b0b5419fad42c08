package order

import "github.com/shopspring/decimal"

// CreateItem is one cart line in a checkout request. The client may echo a
// unit price for display, but the service reprices from the catalog.
// swagger:model CreateItem
type CreateItem struct {
	ProductID string          `json:"productId" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity  int             `json:"quantity"  example:"2"`
	UnitPrice decimal.Decimal `json:"unitPrice" example:"50.00"`
}

// CreateRequest is the checkout payload.
// swagger:model CreateRequest
type CreateRequest struct {
	Items           []CreateItem    `json:"orderItems"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethods" example:"paypal"`
	ItemsPrice      decimal.Decimal `json:"price"         example:"100.00"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice" example:"10.00"`
	TaxPrice        decimal.Decimal `json:"taxPrice"      example:"5.00"`
	TotalPrice      decimal.Decimal `json:"totalPrice"    example:"115.00"`
}

// Confirmation is the gateway payload posted back after a capture.
// swagger:model Confirmation
type Confirmation struct {
	TransactionID string `json:"id"          example:"8XY12345AB678901C"`
	Status        string `json:"status"      example:"COMPLETED"`
	CreateTime    string `json:"create_time" example:"2024-05-01T10:30:00Z"`
	Payer         struct {
		EmailAddress string `json:"email_address" example:"buyer@example.com"`
	} `json:"payer"`
}
