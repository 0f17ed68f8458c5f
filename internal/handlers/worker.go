package handlers

import (
	"log"
	"time"
)

// paymentWindow is how long a pending order may wait for its payment before
// the reaper releases the reserved stock back to the catalog.
const paymentWindow = 48 * time.Hour

// ProcessOverdueOrders is run periodically from main. It auto-cancels orders
// that are still 'pending' with an unpaid payment past the payment window,
// restoring their reserved stock. Each order is handled in its own
// transaction with the same CAS discipline as a manual cancel, so a buyer
// paying at the same moment wins or loses cleanly, never halfway.
func (h *Handlers) ProcessOverdueOrders() {
	cutoff := time.Now().Add(-paymentWindow)

	rows, err := h.DB.Query(
		"SELECT id FROM orders WHERE status = 'pending' AND payment_status = 'pending' AND created_at < ?",
		cutoff)
	if err != nil {
		log.Printf("overdue worker: failed to list overdue orders: %v", err)
		return
	}
	defer rows.Close()

	var overdue []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			log.Printf("overdue worker: failed to scan order id: %v", err)
			return
		}
		overdue = append(overdue, id)
	}
	if err := rows.Err(); err != nil {
		log.Printf("overdue worker: error iterating overdue orders: %v", err)
		return
	}

	for _, orderID := range overdue {
		if err := h.expireOrder(orderID); err != nil {
			log.Printf("overdue worker: failed to expire order %d: %v", orderID, err)
		}
	}

	if len(overdue) > 0 {
		log.Printf("overdue worker: processed %d overdue order(s)", len(overdue))
	}
}

func (h *Handlers) expireOrder(orderID int64) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var buyerID int64
	var orderNumber string
	now := time.Now()

	err = tx.QueryRow("SELECT buyer_id, order_number FROM orders WHERE id = ? FOR UPDATE", orderID).
		Scan(&buyerID, &orderNumber)
	if err != nil {
		return err
	}

	result, err := tx.Exec(
		"UPDATE orders SET status = 'cancelled', cancellation_reason = 'payment window expired', updated_at = ? WHERE id = ? AND status = 'pending'",
		now, orderID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Someone moved the order between the listing query and the lock;
		// nothing to do.
		return nil
	}

	if err := h.restoreOrderStock(tx, orderID); err != nil {
		return err
	}

	message := "Order " + orderNumber + " was cancelled: payment window expired"
	if err := h.AddNotification(tx, buyerID, message, ""); err != nil {
		return err
	}

	return tx.Commit()
}
