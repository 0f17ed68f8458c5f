package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/esmmarket/esmmarket-golang/internal/auth"
	"github.com/gin-gonic/gin"
)

func newAuthRouter(t *testing.T, db interface{ Close() error }, mw ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/whoami", func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"userId": p.UserID, "role": p.Role})
	})
	return r
}

func TestAuthMiddlewareRejectsMissingAndMalformedHeaders(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	r := newAuthRouter(t, db, AuthMiddleware(db))

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", tc.name, w.Code)
		}
	}
}

func TestAuthMiddlewareResolvesPrincipal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	token, err := auth.GenerateToken(7, "buyer")
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery("SELECT role, status FROM users WHERE id = ?").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"role", "status"}).AddRow("buyer", "active"))

	r := newAuthRouter(t, db, AuthMiddleware(db))
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAuthMiddlewareBlocksSuspendedAccounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	token, err := auth.GenerateToken(9, "seller")
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery("SELECT role, status FROM users WHERE id = ?").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"role", "status"}).AddRow("seller", "suspended"))

	r := newAuthRouter(t, db, AuthMiddleware(db))
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("principal", Principal{UserID: 1, Role: "buyer"})
	})
	r.GET("/admin-only", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/buyer-or-seller", RequireRole("buyer", "seller"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin-only", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("buyer on admin-only route: status = %d, want 403", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/buyer-or-seller", nil))
	if w.Code != http.StatusOK {
		t.Errorf("buyer on buyer-or-seller route: status = %d, want 200", w.Code)
	}
}
