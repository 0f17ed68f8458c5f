package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/esmmarket/esmmarket-golang/internal/approvals"
	"github.com/esmmarket/esmmarket-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

//
// --- Catalog Handlers (Seller-Only) ---
//

// CreateCatalogItemInput defines the JSON input for creating a listing.
type CreateCatalogItemInput struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	ItemType      string  `json:"itemType" binding:"required,oneof=product service"`
	Price         float64 `json:"price" binding:"required,gt=0"`
	StockQuantity int     `json:"stockQuantity" binding:"gte=0"`
}

// CreateCatalogItem is the handler for POST /v1/seller/catalog
// New items start as 'draft'; they only reach buyers after a submit + admin
// approval cycle.
func (h *Handlers) CreateCatalogItem(c *gin.Context) {
	p, _ := principal(c)

	var input CreateCatalogItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sellerID, err := h.sellerIDForUser(h.DB, p.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve seller profile"})
		return
	}

	// Services carry no stock; force the column to zero so a stray value
	// can never make a service look stock-limited.
	stock := input.StockQuantity
	if input.ItemType == models.ItemTypeService {
		stock = 0
	}

	now := time.Now()
	query := `
		INSERT INTO catalog_items
		(seller_id, name, slug, description, item_type, price, stock_quantity, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'draft', ?, ?)`

	result, err := h.DB.Exec(query, sellerID, input.Name, slug.Make(input.Name), input.Description,
		input.ItemType, input.Price, stock, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create catalog item"})
		return
	}
	itemID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"message": "Catalog item created as draft",
		"itemId":  itemID,
	})
}

// GetMyCatalogItems is the handler for GET /v1/seller/catalog
func (h *Handlers) GetMyCatalogItems(c *gin.Context) {
	p, _ := principal(c)

	sellerID, err := h.sellerIDForUser(h.DB, p.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve seller profile"})
		return
	}

	query := `
		SELECT id, seller_id, name, slug, description, item_type, price, stock_quantity,
		       status, rejection_reason, created_at, updated_at
		FROM catalog_items
		WHERE seller_id = ?
		ORDER BY created_at DESC`

	rows, err := h.DB.Query(query, sellerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	var items []*models.CatalogItem
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(
			&item.ID, &item.SellerID, &item.Name, &item.Slug, &item.Description, &item.ItemType,
			&item.Price, &item.StockQuantity, &item.Status, &item.RejectionReason,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan catalog item"})
			return
		}
		items = append(items, &item)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating catalog rows"})
		return
	}

	if items == nil {
		items = []*models.CatalogItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UpdateCatalogItemInput: all fields optional, only provided ones change.
type UpdateCatalogItemInput struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price" binding:"omitempty,gt=0"`
	StockQuantity *int     `json:"stockQuantity" binding:"omitempty,gte=0"`
}

// UpdateCatalogItem is the handler for PUT /v1/seller/catalog/:id
// Sellers may only edit items that are still 'draft' or 'pending'; an
// approved listing must go through a fresh submission to change.
func (h *Handlers) UpdateCatalogItem(c *gin.Context) {
	p, _ := principal(c)
	itemID := c.Param("id")

	var input UpdateCatalogItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sellerID, err := h.sellerIDForUser(h.DB, p.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
		return
	}

	var item models.CatalogItem
	query := "SELECT id, name, description, price, stock_quantity, status FROM catalog_items WHERE id = ? AND seller_id = ?"
	err = h.DB.QueryRow(query, itemID, sellerID).Scan(
		&item.ID, &item.Name, &item.Description, &item.Price, &item.StockQuantity, &item.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Catalog item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch catalog item"})
		return
	}

	if item.Status != models.CatalogStatusDraft && item.Status != models.CatalogStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft or pending items can be edited"})
		return
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Price != nil {
		item.Price = *input.Price
	}
	if input.StockQuantity != nil {
		item.StockQuantity = *input.StockQuantity
	}

	updateQuery := `
		UPDATE catalog_items
		SET name = ?, slug = ?, description = ?, price = ?, stock_quantity = ?, updated_at = ?
		WHERE id = ? AND seller_id = ? AND status IN ('draft', 'pending')`
	result, err := h.DB.Exec(updateQuery, item.Name, slug.Make(item.Name), item.Description,
		item.Price, item.StockQuantity, time.Now(), itemID, sellerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update catalog item"})
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		// Status moved between our read and the write (e.g. an admin
		// approved it mid-edit).
		c.JSON(http.StatusConflict, gin.H{"error": "Catalog item changed concurrently, please retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Catalog item updated successfully"})
}

// SubmitCatalogItem is the handler for POST /v1/seller/catalog/:id/submit
// It flips a draft to 'pending' and queues a product_listing approval
// request in the same transaction.
func (h *Handlers) SubmitCatalogItem(c *gin.Context) {
	p, _ := principal(c)
	itemID := c.Param("id")

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	sellerID, err := h.sellerIDForUser(tx, p.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
		return
	}

	var item models.CatalogItem
	query := "SELECT id, name, item_type, price, status FROM catalog_items WHERE id = ? AND seller_id = ? FOR UPDATE"
	err = tx.QueryRow(query, itemID, sellerID).Scan(&item.ID, &item.Name, &item.ItemType, &item.Price, &item.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Catalog item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch catalog item"})
		return
	}

	// Rejected items may be corrected and resubmitted; that creates a new
	// approval request rather than reviving the decided one.
	if item.Status != models.CatalogStatusDraft && item.Status != models.CatalogStatusRejected {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft or rejected items can be submitted for listing"})
		return
	}

	now := time.Now()
	result, err := tx.Exec(
		"UPDATE catalog_items SET status = 'pending', rejection_reason = NULL, updated_at = ? WHERE id = ? AND status = ?",
		now, item.ID, item.Status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit catalog item"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Catalog item changed concurrently, please retry"})
		return
	}

	details, _ := json.Marshal(approvals.ProductListingDetails{
		Name:     item.Name,
		ItemType: item.ItemType,
		Price:    item.Price,
	})
	if err := h.addApprovalRequest(tx, approvals.TypeProductListing, p.UserID, item.ID, details, now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue listing for approval"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Catalog item submitted for approval"})
}

// DeleteCatalogItem is the handler for DELETE /v1/seller/catalog/:id
// Only drafts can be deleted; anything that entered the approval pipeline
// stays on record.
func (h *Handlers) DeleteCatalogItem(c *gin.Context) {
	p, _ := principal(c)
	itemID := c.Param("id")

	sellerID, err := h.sellerIDForUser(h.DB, p.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
		return
	}

	query := "DELETE FROM catalog_items WHERE id = ? AND seller_id = ? AND status = 'draft'"
	result, err := h.DB.Exec(query, itemID, sellerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete catalog item"})
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catalog item not found, not yours, or no longer a draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Catalog item deleted successfully"})
}
