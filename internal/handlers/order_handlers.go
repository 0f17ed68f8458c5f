package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/esmmarket/esmmarket-golang/internal/middleware"
	"github.com/esmmarket/esmmarket-golang/internal/models"
	"github.com/esmmarket/esmmarket-golang/internal/orders"
	"github.com/gin-gonic/gin"
)

//
// --- Order Engine ---
//

// OrderLineInput is one requested line in a checkout.
type OrderLineInput struct {
	CatalogItemID int64 `json:"catalogItemId" binding:"required"`
	Quantity      int   `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderInput is the body for POST /v1/orders. Lines may span several
// sellers; the engine splits them into one order per seller.
type CreateOrderInput struct {
	Items           []OrderLineInput `json:"items" binding:"required,min=1,dive"`
	BillingAddress  models.Address   `json:"billingAddress" binding:"required"`
	ShippingAddress models.Address   `json:"shippingAddress" binding:"required"`
	PaymentMethod   string           `json:"paymentMethod" binding:"required,oneof=card netbanking upi cod"`
}

// checkoutLine is a validated line with its catalog snapshot.
type checkoutLine struct {
	CatalogItemID int64
	SellerID      int64
	SellerUserID  int64
	ItemType      string
	Quantity      int
	UnitPrice     float64 // catalog price captured at this instant
}

// CreateOrder is the handler for POST /v1/orders (buyer only).
// The whole checkout runs inside one transaction: every stock reservation is
// a conditional decrement, and if any line loses the race the entire cart
// fails and nothing is reserved.
func (h *Handlers) CreateOrder(c *gin.Context) {
	p, _ := principal(c)

	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seen := make(map[int64]bool, len(input.Items))
	for _, line := range input.Items {
		if seen[line.CatalogItemID] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Duplicate line for catalog item %d", line.CatalogItemID)})
			return
		}
		seen[line.CatalogItemID] = true
	}

	tx, err := h.DB.BeginTx(c, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 1. --- Validate every line against the catalog and reserve stock ---
	lineQuery := `
		SELECT ci.id, ci.seller_id, ci.item_type, ci.price, ci.stock_quantity, ci.status,
		       s.status, s.user_id
		FROM catalog_items ci
		JOIN sellers s ON ci.seller_id = s.id
		WHERE ci.id = ?
		FOR UPDATE`

	// Conditional decrement: quantity can never go below zero, even if a
	// concurrent checkout slipped past the row lock.
	reserveQuery := `
		UPDATE catalog_items
		SET stock_quantity = stock_quantity - ?
		WHERE id = ? AND item_type = 'product' AND stock_quantity >= ?`

	var lines []checkoutLine
	for _, in := range input.Items {
		var line checkoutLine
		var itemStatus, sellerStatus string
		var stock int
		err := tx.QueryRow(lineQuery, in.CatalogItemID).Scan(
			&line.CatalogItemID, &line.SellerID, &line.ItemType, &line.UnitPrice, &stock, &itemStatus,
			&sellerStatus, &line.SellerUserID,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Catalog item %d not found", in.CatalogItemID)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch catalog item"})
			return
		}

		if sellerStatus != models.SellerStatusActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Seller for catalog item %d is not active", in.CatalogItemID)})
			return
		}
		if itemStatus != models.CatalogStatusApproved {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Catalog item %d is not approved for sale", in.CatalogItemID)})
			return
		}

		line.Quantity = in.Quantity

		if line.ItemType == models.ItemTypeProduct {
			if stock < in.Quantity {
				c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Not enough stock for catalog item %d", in.CatalogItemID)})
				return
			}
			result, err := tx.Exec(reserveQuery, in.Quantity, in.CatalogItemID, in.Quantity)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reserve stock"})
				return
			}
			if n, _ := result.RowsAffected(); n == 0 {
				// Lost the race; the deferred rollback releases every
				// reservation made so far.
				c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Not enough stock for catalog item %d", in.CatalogItemID)})
				return
			}
		}

		lines = append(lines, line)
	}

	// 2. --- Split lines per seller, preserving cart order ---
	bySeller := make(map[int64][]checkoutLine)
	var sellerOrder []int64
	sellerUser := make(map[int64]int64)
	for _, line := range lines {
		if _, ok := bySeller[line.SellerID]; !ok {
			sellerOrder = append(sellerOrder, line.SellerID)
			sellerUser[line.SellerID] = line.SellerUserID
		}
		bySeller[line.SellerID] = append(bySeller[line.SellerID], line)
	}

	billingJSON, err := json.Marshal(input.BillingAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode billing address"})
		return
	}
	shippingJSON, err := json.Marshal(input.ShippingAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode shipping address"})
		return
	}

	// 3. --- Persist one order per seller ---
	now := time.Now()
	orderQuery := `
		INSERT INTO orders
		(order_number, buyer_id, seller_id, status, subtotal,
		 billing_address, shipping_address,
		 payment_method, payment_amount, payment_currency, payment_status,
		 created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?, ?, ?, ?, 'INR', 'pending', ?, ?)`
	itemQuery := `
		INSERT INTO order_items (order_id, catalog_item_id, item_type, quantity, unit_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	type createdOrder struct {
		OrderID     int64   `json:"orderId"`
		OrderNumber string  `json:"orderNumber"`
		SellerID    int64   `json:"sellerId"`
		Subtotal    float64 `json:"subtotal"`
		Status      string  `json:"status"`
	}
	var created []createdOrder

	for _, sellerID := range sellerOrder {
		sellerLines := bySeller[sellerID]

		var subtotal float64
		for _, line := range sellerLines {
			subtotal += line.UnitPrice * float64(line.Quantity)
		}

		orderNumber := orders.NewOrderNumber(now)
		result, err := tx.Exec(orderQuery,
			orderNumber, p.UserID, sellerID, subtotal,
			billingJSON, shippingJSON,
			input.PaymentMethod, subtotal, now, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
			return
		}
		orderID, err := result.LastInsertId()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new order ID"})
			return
		}

		for _, line := range sellerLines {
			if _, err := tx.Exec(itemQuery, orderID, line.CatalogItemID, line.ItemType, line.Quantity, line.UnitPrice, now); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save order item"})
				return
			}
		}

		message := fmt.Sprintf("New order %s received (%d item(s), ₹%.2f)", orderNumber, len(sellerLines), subtotal)
		if err := h.AddNotification(tx, sellerUser[sellerID], message, fmt.Sprintf("/orders/%d", orderID)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify seller"})
			return
		}

		created = append(created, createdOrder{
			OrderID:     orderID,
			OrderNumber: orderNumber,
			SellerID:    sellerID,
			Subtotal:    subtotal,
			Status:      string(orders.StatusPending),
		})
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit final transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("Checkout complete: %d order(s) created", len(created)),
		"orders":  created,
	})
}

//
// --- Order Retrieval ---
//

const orderColumns = `id, order_number, buyer_id, seller_id, status, subtotal,
	billing_address, shipping_address,
	payment_method, payment_amount, payment_currency, payment_status,
	cancellation_reason, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var o models.Order
	var billing, shipping []byte
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.BuyerID, &o.SellerID, &o.Status, &o.Subtotal,
		&billing, &shipping,
		&o.PaymentMethod, &o.PaymentAmount, &o.PaymentCurrency, &o.PaymentStatus,
		&o.CancellationReason, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
			return nil, fmt.Errorf("decode billing address for order %d: %w", o.ID, err)
		}
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("decode shipping address for order %d: %w", o.ID, err)
		}
	}
	return &o, nil
}

// GetMyOrders is the handler for GET /v1/orders/me
// Buyers see the orders they placed; sellers see the orders scoped to their
// shop. Admins use the search endpoint instead.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	p, _ := principal(c)

	var query string
	var arg int64

	switch p.Role {
	case models.RoleBuyer:
		query = "SELECT " + orderColumns + " FROM orders WHERE buyer_id = ? ORDER BY created_at DESC"
		arg = p.UserID
	case models.RoleSeller:
		sellerID, err := h.sellerIDForUser(h.DB, p.UserID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
			return
		}
		query = "SELECT " + orderColumns + " FROM orders WHERE seller_id = ? ORDER BY created_at DESC"
		arg = sellerID
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Use the order search endpoint"})
		return
	}

	rows, err := h.DB.Query(query, arg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orderList := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orderList = append(orderList, o)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating order rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orderList})
}

// GetOrder is the handler for GET /v1/orders/:id
// Visible to the order's buyer, the order's seller, and admins; 403 for
// everyone else (including other buyers/sellers guessing IDs).
func (h *Handlers) GetOrder(c *gin.Context) {
	p, _ := principal(c)
	orderID := c.Param("id")

	o, err := scanOrder(h.DB.QueryRow("SELECT "+orderColumns+" FROM orders WHERE id = ?", orderID))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if _, err := h.actorFor(h.DB, p, o); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not related to this order"})
		return
	}

	items, err := h.loadOrderItems(h.DB, o.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order items"})
		return
	}
	o.Items = items

	c.JSON(http.StatusOK, gin.H{"order": o})
}

// SearchOrders is the handler for GET /v1/orders/search
// Query params: status, min_amount, max_amount, order_number, from, to.
// Buyers and sellers are always scoped to their own orders; admins search
// the whole book.
func (h *Handlers) SearchOrders(c *gin.Context) {
	p, _ := principal(c)

	var queryBuilder strings.Builder
	var args []interface{}

	queryBuilder.WriteString("SELECT " + orderColumns + " FROM orders WHERE 1=1")

	switch p.Role {
	case models.RoleBuyer:
		queryBuilder.WriteString(" AND buyer_id = ?")
		args = append(args, p.UserID)
	case models.RoleSeller:
		sellerID, err := h.sellerIDForUser(h.DB, p.UserID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
			return
		}
		queryBuilder.WriteString(" AND seller_id = ?")
		args = append(args, sellerID)
	case models.RoleAdmin:
		// unscoped
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	if status := c.Query("status"); status != "" {
		if _, err := orders.ParseStatus(status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		queryBuilder.WriteString(" AND status = ?")
		args = append(args, status)
	}
	if orderNumber := c.Query("order_number"); orderNumber != "" {
		queryBuilder.WriteString(" AND order_number = ?")
		args = append(args, orderNumber)
	}
	if minAmount := c.Query("min_amount"); minAmount != "" {
		queryBuilder.WriteString(" AND subtotal >= ?")
		args = append(args, minAmount)
	}
	if maxAmount := c.Query("max_amount"); maxAmount != "" {
		queryBuilder.WriteString(" AND subtotal <= ?")
		args = append(args, maxAmount)
	}
	if from := c.Query("from"); from != "" {
		queryBuilder.WriteString(" AND created_at >= ?")
		args = append(args, from)
	}
	if to := c.Query("to"); to != "" {
		queryBuilder.WriteString(" AND created_at <= ?")
		args = append(args, to)
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC LIMIT 100")

	rows, err := h.DB.Query(queryBuilder.String(), args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	orderList := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orderList = append(orderList, o)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating order rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orderList})
}

//
// --- Status Transitions ---
//

// UpdateOrderStatusInput is the body for PATCH /v1/orders/:id/status
type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// UpdateOrderStatus is the handler for PATCH /v1/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := orders.ParseStatus(input.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if target == orders.StatusCancelled && input.Note == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A note (cancellation reason) is required when cancelling"})
		return
	}

	h.transitionOrder(c, target, input.Note)
}

// CancelOrderInput is the body for POST /v1/orders/:id/cancel
type CancelOrderInput struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelOrder is the handler for POST /v1/orders/:id/cancel
// Convenience wrapper over the status transition that insists on a reason.
func (h *Handlers) CancelOrder(c *gin.Context) {
	var input CancelOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.transitionOrder(c, orders.StatusCancelled, input.Reason)
}

// transitionOrder performs one guarded status move. The write is a CAS on
// the order's current status: if another actor moved the order between our
// read and our write, the update matches zero rows and the caller gets a
// 409 instead of silently overwriting.
func (h *Handlers) transitionOrder(c *gin.Context, target orders.Status, note string) {
	p, _ := principal(c)
	orderID := c.Param("id")

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var o models.Order
	query := "SELECT id, order_number, buyer_id, seller_id, status, payment_status FROM orders WHERE id = ? FOR UPDATE"
	err = tx.QueryRow(query, orderID).Scan(&o.ID, &o.OrderNumber, &o.BuyerID, &o.SellerID, &o.Status, &o.PaymentStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	// Ownership check comes before the transition table: an unrelated
	// caller learns nothing about which moves exist.
	actor, err := h.actorFor(tx, p, &o)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not related to this order"})
		return
	}

	from := orders.Status(o.Status)
	if err := orders.Authorize(from, target, actor); err != nil {
		switch {
		case errors.Is(err, orders.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, orders.ErrActorNotAllowed):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to authorize transition"})
		}
		return
	}

	now := time.Now()
	var result sql.Result
	if target == orders.StatusCancelled {
		result, err = tx.Exec(
			"UPDATE orders SET status = ?, cancellation_reason = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(target), note, now, o.ID, o.Status)
	} else {
		result, err = tx.Exec(
			"UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(target), now, o.ID, o.Status)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Order status changed concurrently, please re-read and retry"})
		return
	}

	// Cancellation releases the reserved stock for every product line.
	// Payment reconciliation stays with the payment subsystem: if the
	// payment had completed, the caller is expected to trigger a refund.
	if target == orders.StatusCancelled {
		if err := h.restoreOrderStock(tx, o.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restore stock"})
			return
		}
	}

	// Tell the other party what happened.
	notifyUserID, err := h.counterpartyUserID(tx, p, &o, actor)
	if err == nil && notifyUserID != 0 {
		message := fmt.Sprintf("Order %s is now %s", o.OrderNumber, target)
		if target == orders.StatusCancelled {
			message = fmt.Sprintf("Order %s was cancelled: %s", o.OrderNumber, note)
		}
		if err := h.AddNotification(tx, notifyUserID, message, fmt.Sprintf("/orders/%d", o.ID)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Order %s moved to %s", o.OrderNumber, target),
		"status":  string(target),
	})
}

//
// --- Payment Oracle ---
//

// UpdatePaymentStatusInput is the body for PATCH /v1/orders/:id/payment
type UpdatePaymentStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending completed failed refunded"`
}

// UpdateOrderPayment is the handler for PATCH /v1/orders/:id/payment
// (admin only). It records the external payment oracle's verdict; the
// engine itself never captures or refunds money.
func (h *Handlers) UpdateOrderPayment(c *gin.Context) {
	orderID := c.Param("id")

	var input UpdatePaymentStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec("UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?",
		input.Status, time.Now(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment status"})
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment status recorded"})
}

//
// --- Helpers ---
//

// actorFor resolves the caller's relationship to an order, or errors when
// the caller is unrelated.
func (h *Handlers) actorFor(q queryer, p middleware.Principal, o *models.Order) (orders.Actor, error) {
	switch p.Role {
	case models.RoleAdmin:
		return orders.ActorAdmin, nil
	case models.RoleBuyer:
		if o.BuyerID == p.UserID {
			return orders.ActorBuyer, nil
		}
	case models.RoleSeller:
		sellerID, err := h.sellerIDForUser(q, p.UserID)
		if err == nil && sellerID == o.SellerID {
			return orders.ActorSeller, nil
		}
	}
	return "", fmt.Errorf("user %d is not related to order %d", p.UserID, o.ID)
}

// counterpartyUserID returns the user to notify about a transition: the
// seller's user when the buyer (or an admin) acted, the buyer otherwise.
func (h *Handlers) counterpartyUserID(q queryer, p middleware.Principal, o *models.Order, actor orders.Actor) (int64, error) {
	if actor == orders.ActorSeller {
		return o.BuyerID, nil
	}
	var sellerUserID int64
	err := q.QueryRow("SELECT user_id FROM sellers WHERE id = ?", o.SellerID).Scan(&sellerUserID)
	return sellerUserID, err
}

func (h *Handlers) loadOrderItems(q queryer, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.Query(`
		SELECT id, order_id, catalog_item_id, item_type, quantity, unit_price, created_at
		FROM order_items
		WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.CatalogItemID, &item.ItemType, &item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// restoreOrderStock is the inverse of checkout's reservation: it adds the
// ordered quantities back for every product line. Services have no stock to
// restore.
func (h *Handlers) restoreOrderStock(q queryer, orderID int64) error {
	rows, err := q.Query(
		"SELECT catalog_item_id, quantity FROM order_items WHERE order_id = ? AND item_type = 'product'", orderID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type restock struct {
		itemID   int64
		quantity int
	}
	var restocks []restock
	for rows.Next() {
		var r restock
		if err := rows.Scan(&r.itemID, &r.quantity); err != nil {
			return err
		}
		restocks = append(restocks, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range restocks {
		if _, err := q.Exec("UPDATE catalog_items SET stock_quantity = stock_quantity + ? WHERE id = ?", r.quantity, r.itemID); err != nil {
			return err
		}
	}
	return nil
}
