package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// --- Buyer Dashboard Stats ---
//

type BuyerStats struct {
	ActiveOrders    int     `json:"activeOrders"` // pending/confirmed/processing
	ShippedOrders   int     `json:"shippedOrders"`
	DeliveredOrders int     `json:"deliveredOrders"`
	TotalSpent      float64 `json:"totalSpent"` // delivered orders only
}

// GetBuyerStats returns KPI data for the buyer dashboard
// GET /v1/buyer/dashboard-stats
func (h *Handlers) GetBuyerStats(c *gin.Context) {
	p, _ := principal(c)

	stats := BuyerStats{}

	err := h.DB.QueryRow(
		"SELECT COUNT(*) FROM orders WHERE buyer_id = ? AND status IN ('pending', 'confirmed', 'processing')",
		p.UserID).Scan(&stats.ActiveOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count active orders"})
		return
	}

	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM orders WHERE buyer_id = ? AND status = 'shipped'", p.UserID).Scan(&stats.ShippedOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count shipped orders"})
		return
	}

	err = h.DB.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(subtotal), 0) FROM orders WHERE buyer_id = ? AND status = 'delivered'",
		p.UserID).Scan(&stats.DeliveredOrders, &stats.TotalSpent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count delivered orders"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

//
// --- Seller Dashboard Stats ---
//

type SellerStats struct {
	LiveListings    int     `json:"liveListings"`
	UnderReview     int     `json:"underReview"`
	OrdersToFulfil  int     `json:"ordersToFulfil"` // pending/confirmed/processing
	DeliveredSales  float64 `json:"deliveredSales"`
	PendingDocument int     `json:"pendingDocuments"`
}

// GetSellerStats returns KPI data for the seller dashboard
// GET /v1/seller/dashboard-stats
func (h *Handlers) GetSellerStats(c *gin.Context) {
	p, _ := principal(c)

	sellerID, err := h.sellerIDForUser(h.DB, p.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
		return
	}

	stats := SellerStats{}

	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM catalog_items WHERE seller_id = ? AND status = 'approved'", sellerID).Scan(&stats.LiveListings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count live listings"})
		return
	}

	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM catalog_items WHERE seller_id = ? AND status = 'pending'", sellerID).Scan(&stats.UnderReview)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count listings under review"})
		return
	}

	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM orders WHERE seller_id = ? AND status IN ('pending', 'confirmed', 'processing')",
		sellerID).Scan(&stats.OrdersToFulfil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders to fulfil"})
		return
	}

	err = h.DB.QueryRow(
		"SELECT COALESCE(SUM(subtotal), 0) FROM orders WHERE seller_id = ? AND status = 'delivered'",
		sellerID).Scan(&stats.DeliveredSales)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sum delivered sales"})
		return
	}

	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM seller_documents WHERE seller_id = ? AND status = 'pending'", sellerID).Scan(&stats.PendingDocument)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending documents"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

//
// --- Admin Dashboard Stats ---
//

type AdminStats struct {
	PendingApprovals map[string]int `json:"pendingApprovals"`
	OrdersByStatus   map[string]int `json:"ordersByStatus"`
	ActiveSellers    int            `json:"activeSellers"`
	TotalUsers       int            `json:"totalUsers"`
}

// GetAdminStats returns KPI data for the admin dashboard
// GET /v1/admin/dashboard-stats
func (h *Handlers) GetAdminStats(c *gin.Context) {
	stats := AdminStats{
		PendingApprovals: map[string]int{},
		OrdersByStatus:   map[string]int{},
	}

	rows, err := h.DB.Query("SELECT type, COUNT(*) FROM approval_requests WHERE status = 'pending' GROUP BY type")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending approvals"})
		return
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan approval counts"})
			return
		}
		stats.PendingApprovals[t] = count
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating approval counts"})
		return
	}

	orderRows, err := h.DB.Query("SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}
	defer orderRows.Close()
	for orderRows.Next() {
		var s string
		var count int
		if err := orderRows.Scan(&s, &count); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order counts"})
			return
		}
		stats.OrdersByStatus[s] = count
	}
	if err = orderRows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating order counts"})
		return
	}

	err = h.DB.QueryRow("SELECT COUNT(*) FROM sellers WHERE status = 'active'").Scan(&stats.ActiveSellers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count active sellers"})
		return
	}

	err = h.DB.QueryRow("SELECT COUNT(*) FROM users WHERE status = 'active'").Scan(&stats.TotalUsers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
