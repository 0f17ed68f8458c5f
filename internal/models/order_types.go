package models

import "time"

// Payment statuses recorded against an order. The engine never moves money;
// an external oracle reports one of these and we store it.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Address is a structured postal/contact record. It is stored as a JSON
// column on the orders table (snapshot at order time, like prices).
type Address struct {
	FullName     string `json:"fullName" binding:"required"`
	AddressLine1 string `json:"addressLine1" binding:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state" binding:"required"`
	Postcode     string `json:"postcode" binding:"required"`
	PhoneNumber  string `json:"phoneNumber" binding:"required"`
}

// Order is the model for the 'orders' table. One order is always scoped to
// a single seller; a mixed cart is split into one order per seller at
// creation time.
type Order struct {
	ID          int64  `json:"id" db:"id"`
	OrderNumber string `json:"orderNumber" db:"order_number"`
	BuyerID     int64  `json:"buyerId" db:"buyer_id"`
	SellerID    int64  `json:"sellerId" db:"seller_id"`
	Status      string `json:"status" db:"status"`

	Subtotal        float64 `json:"subtotal" db:"subtotal"`
	BillingAddress  Address `json:"billingAddress" db:"-"`
	ShippingAddress Address `json:"shippingAddress" db:"-"`

	PaymentMethod   string  `json:"paymentMethod" db:"payment_method"`
	PaymentAmount   float64 `json:"paymentAmount" db:"payment_amount"`
	PaymentCurrency string  `json:"paymentCurrency" db:"payment_currency"`
	PaymentStatus   string  `json:"paymentStatus" db:"payment_status"`

	CancellationReason *string `json:"cancellationReason,omitempty" db:"cancellation_reason"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (populated manually)
	Items []OrderItem `json:"items,omitempty" db:"-"`
}

// OrderItem is the model for the 'order_items' table. UnitPrice is the
// catalog price captured at order time and is never re-read afterwards.
type OrderItem struct {
	ID            int64     `json:"id" db:"id"`
	OrderID       int64     `json:"orderId" db:"order_id"`
	CatalogItemID int64     `json:"catalogItemId" db:"catalog_item_id"`
	ItemType      string    `json:"itemType" db:"item_type"`
	Quantity      int       `json:"quantity" db:"quantity"`
	UnitPrice     float64   `json:"unitPrice" db:"unit_price"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
