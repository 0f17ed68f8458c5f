package models

import "time"

// Seller verification statuses. A buyer may only order from an 'active'
// seller; every other status keeps the seller non-transactable.
const (
	SellerStatusPending   = "pending"
	SellerStatusActive    = "active"
	SellerStatusRejected  = "rejected"
	SellerStatusSuspended = "suspended"
)

// Seller is the model for the 'sellers' table.
type Seller struct {
	ID           int64  `json:"id" db:"id"`
	UserID       int64  `json:"userId" db:"user_id"`
	BusinessName string `json:"businessName" db:"business_name"`
	BusinessSlug string `json:"businessSlug" db:"business_slug"`
	Category     string `json:"category" db:"category"`
	Status       string `json:"status" db:"status"`
	IsVerified   bool   `json:"isVerified" db:"is_verified"`

	ServiceNumber *string `json:"serviceNumber,omitempty" db:"service_number"`
	AddressLine1  *string `json:"addressLine1,omitempty" db:"address_line1"`
	City          *string `json:"city,omitempty" db:"city"`
	State         *string `json:"state,omitempty" db:"state"`
	Postcode      *string `json:"postcode,omitempty" db:"postcode"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// SellerDocument is the model for the 'seller_documents' table.
// FileURL is an opaque pointer into the blob store.
type SellerDocument struct {
	ID        int64     `json:"id" db:"id"`
	SellerID  int64     `json:"sellerId" db:"seller_id"`
	DocType   string    `json:"docType" db:"doc_type"`
	FileURL   string    `json:"fileUrl" db:"file_url"`
	Status    string    `json:"status" db:"status"` // pending | verified | rejected
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
