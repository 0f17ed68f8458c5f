package handlers

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/esmmarket/esmmarket-golang/internal/middleware"
	"github.com/esmmarket/esmmarket-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// newTestRouter wires the order routes behind a fake auth middleware that
// injects the given principal, so tests exercise the real handlers without
// minting tokens.
func newTestRouter(h *Handlers, p middleware.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("principal", p)
	})
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	return r
}

func newMock(t *testing.T) (*Handlers, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	return &Handlers{DB: db}, mock, func() { db.Close() }
}

const checkoutBody = `{
	"items": [{"catalogItemId": 10, "quantity": 3}],
	"billingAddress": {"fullName": "Asha Rao", "addressLine1": "12 MG Road", "city": "Pune", "state": "MH", "postcode": "411001", "phoneNumber": "9800000000"},
	"shippingAddress": {"fullName": "Asha Rao", "addressLine1": "12 MG Road", "city": "Pune", "state": "MH", "postcode": "411001", "phoneNumber": "9800000000"},
	"paymentMethod": "upi"
}`

func lineColumns() []string {
	return []string{"id", "seller_id", "item_type", "price", "stock_quantity", "status", "s_status", "s_user_id"}
}

func TestCreateOrderCapturesPriceAndReservesStock(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog_items ci")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(lineColumns()).
			AddRow(10, 4, "product", 250.0, 5, "approved", "active", 77))
	mock.ExpectExec(regexp.QuoteMeta("SET stock_quantity = stock_quantity - ?")).
		WithArgs(3, int64(10), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Subtotal and payment amount are the snapshot price times quantity.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(sqlmock.AnyArg(), int64(22), int64(4), 750.0,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "upi", 750.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(55), int64(10), "product", 3, 250.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(77), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(checkoutBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"subtotal":750`) {
		t.Errorf("response should carry the snapshot subtotal: %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateOrderInsufficientStockAbortsEverything(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	// 2 in stock, 3 requested: the line check fails before any write.
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog_items ci")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(lineColumns()).
			AddRow(10, 4, "product", 250.0, 2, "approved", "active", 77))
	mock.ExpectRollback()

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(checkoutBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateOrderLostRaceOnConditionalDecrement(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog_items ci")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(lineColumns()).
			AddRow(10, 4, "product", 250.0, 5, "approved", "active", 77))
	// The conditional decrement matches zero rows: a concurrent checkout won.
	mock.ExpectExec(regexp.QuoteMeta("SET stock_quantity = stock_quantity - ?")).
		WithArgs(3, int64(10), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(checkoutBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateOrderRejectsUnapprovedItem(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog_items ci")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(lineColumns()).
			AddRow(10, 4, "product", 250.0, 5, "pending", "active", 77))
	mock.ExpectRollback()

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(checkoutBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
	}
}

func TestCreateOrderRejectsInactiveSeller(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog_items ci")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(lineColumns()).
			AddRow(10, 4, "product", 250.0, 5, "approved", "suspended", 77))
	mock.ExpectRollback()

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(checkoutBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
	}
}

func orderRow(id, buyerID, sellerID int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_number", "buyer_id", "seller_id", "status", "payment_status"}).
		AddRow(id, "ESM-20260831-AAAA1111", buyerID, sellerID, status, "pending")
}

func fullOrderRow(id, buyerID, sellerID int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "order_number", "buyer_id", "seller_id", "status", "subtotal",
		"billing_address", "shipping_address",
		"payment_method", "payment_amount", "payment_currency", "payment_status",
		"cancellation_reason", "created_at", "updated_at",
	}).AddRow(id, "ESM-20260831-AAAA1111", buyerID, sellerID, status, 750.0,
		[]byte(`{}`), []byte(`{}`), "upi", 750.0, "INR", "pending", nil, now, now)
}

func TestGetOrderHiddenFromUnrelatedCallers(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ?")).
		WithArgs("5").
		WillReturnRows(fullOrderRow(5, 22, 4, "pending"))

	// A buyer who did not place this order gets a 403, not the order.
	r := newTestRouter(h, middleware.Principal{UserID: 999, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodGet, "/orders/5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", w.Code, w.Body.String())
	}
}

func TestGetOrderCorruptAddressColumnIsAnError(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ?")).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_number", "buyer_id", "seller_id", "status", "subtotal",
			"billing_address", "shipping_address",
			"payment_method", "payment_amount", "payment_currency", "payment_status",
			"cancellation_reason", "created_at", "updated_at",
		}).AddRow(5, "ESM-20260831-AAAA1111", 22, 4, "pending", 750.0,
			[]byte(`{not json`), []byte(`{}`), "upi", 750.0, "INR", "pending", nil, now, now))

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodGet, "/orders/5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// A corrupt row must surface as an error, never as a zero-valued address.
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500; body = %s", w.Code, w.Body.String())
	}
}

func TestUpdateOrderStatusSellerConfirms(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs("5").
		WillReturnRows(orderRow(5, 22, 4, "pending"))
	// seller profile lookup for ownership
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM sellers WHERE user_id = ?")).
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?")).
		WithArgs("confirmed", sqlmock.AnyArg(), int64(5), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(22), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r := newTestRouter(h, middleware.Principal{UserID: 77, Role: models.RoleSeller})
	req := httptest.NewRequest(http.MethodPatch, "/orders/5/status", strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateOrderStatusBuyerCannotConfirm(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs("5").
		WillReturnRows(orderRow(5, 22, 4, "pending"))
	mock.ExpectRollback()

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPatch, "/orders/5/status", strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", w.Code, w.Body.String())
	}
}

func TestUpdateOrderStatusUnrelatedUserForbidden(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs("5").
		WillReturnRows(orderRow(5, 22, 4, "pending"))
	mock.ExpectRollback()

	// A different buyer guessing order IDs.
	r := newTestRouter(h, middleware.Principal{UserID: 999, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPatch, "/orders/5/status", strings.NewReader(`{"status":"cancelled","note":"mine now"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", w.Code, w.Body.String())
	}
}

func TestUpdateOrderStatusIllegalTransition(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs("5").
		WillReturnRows(orderRow(5, 22, 4, "delivered"))
	mock.ExpectRollback()

	r := newTestRouter(h, middleware.Principal{UserID: 1, Role: models.RoleAdmin})
	req := httptest.NewRequest(http.MethodPatch, "/orders/5/status", strings.NewReader(`{"status":"pending"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", w.Code, w.Body.String())
	}
}

func TestUpdateOrderStatusLostCASRace(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs("5").
		WillReturnRows(orderRow(5, 22, 4, "pending"))
	// The CAS write sees a stale status: another actor got there first.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?")).
		WithArgs("confirmed", sqlmock.AnyArg(), int64(5), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	r := newTestRouter(h, middleware.Principal{UserID: 1, Role: models.RoleAdmin})
	req := httptest.NewRequest(http.MethodPatch, "/orders/5/status", strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCancelOrderRestoresStockAndRecordsReason(t *testing.T) {
	h, mock, closeFn := newMock(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs("5").
		WillReturnRows(orderRow(5, 22, 4, "processing"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, cancellation_reason = ?")).
		WithArgs("cancelled", "changed mind", sqlmock.AnyArg(), int64(5), "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_id = ? AND item_type = 'product'")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"catalog_item_id", "quantity"}).AddRow(10, 3))
	mock.ExpectExec(regexp.QuoteMeta("SET stock_quantity = stock_quantity + ?")).
		WithArgs(3, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// buyer cancelled, so the seller's user gets the notification
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM sellers WHERE id = ?")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(77))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(77), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPost, "/orders/5/cancel", strings.NewReader(`{"reason":"changed mind"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCancelOrderRequiresReason(t *testing.T) {
	h, _, closeFn := newMock(t)
	defer closeFn()

	r := newTestRouter(h, middleware.Principal{UserID: 22, Role: models.RoleBuyer})
	req := httptest.NewRequest(http.MethodPost, "/orders/5/cancel", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
	}
}
