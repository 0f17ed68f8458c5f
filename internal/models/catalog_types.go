package models

import "time"

// Catalog item lifecycle. Only 'approved' items may appear on an order line.
const (
	CatalogStatusDraft    = "draft"
	CatalogStatusPending  = "pending"
	CatalogStatusApproved = "approved"
	CatalogStatusRejected = "rejected"
)

const (
	ItemTypeProduct = "product"
	ItemTypeService = "service"
)

// CatalogItem is the model for the 'catalog_items' table.
// Services carry no stock; StockQuantity is only meaningful for products.
type CatalogItem struct {
	ID            int64   `json:"id" db:"id"`
	SellerID      int64   `json:"sellerId" db:"seller_id"`
	Name          string  `json:"name" db:"name"`
	Slug          string  `json:"slug" db:"slug"`
	Description   string  `json:"description" db:"description"`
	ItemType      string  `json:"itemType" db:"item_type"`
	Price         float64 `json:"price" db:"price"`
	StockQuantity int     `json:"stockQuantity" db:"stock_quantity"`
	Status        string  `json:"status" db:"status"`

	RejectionReason *string `json:"rejectionReason,omitempty" db:"rejection_reason"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
