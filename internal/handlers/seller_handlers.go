package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/esmmarket/esmmarket-golang/internal/approvals"
	"github.com/esmmarket/esmmarket-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

//
// --- Seller Onboarding & Documents ---
//

// RegisterSellerInput holds account plus business fields for onboarding.
type RegisterSellerInput struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`

	BusinessName  string `json:"businessName" binding:"required"`
	Category      string `json:"category" binding:"required"`
	ServiceNumber string `json:"serviceNumber"`
	AddressLine1  string `json:"addressLine1"`
	City          string `json:"city"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
}

// RegisterSeller is the handler for POST /v1/register/seller
// It creates the user account, the seller profile (status 'pending') and the
// seller_registration approval request in a single transaction. The account
// can log in straight away but cannot transact until an admin approves the
// profile.
func (h *Handlers) RegisterSeller(c *gin.Context) {
	var input RegisterSellerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	now := time.Now()

	// 1. User account
	userQuery := `
		INSERT INTO users (role, status, email, password_hash, full_name, phone_number, created_at, updated_at)
		VALUES (?, 'active', ?, ?, ?, ?, ?, ?)`
	result, err := tx.Exec(userQuery, models.RoleSeller, strings.ToLower(input.Email), password.Hash, input.FullName, input.PhoneNumber, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new user ID"})
		return
	}

	// 2. Seller profile (pending until approved)
	sellerQuery := `
		INSERT INTO sellers
		(user_id, business_name, business_slug, category, status, is_verified,
		 service_number, address_line1, city, state, postcode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`
	result, err = tx.Exec(sellerQuery,
		userID, input.BusinessName, slug.Make(input.BusinessName), input.Category, models.SellerStatusPending,
		nullable(input.ServiceNumber), nullable(input.AddressLine1), nullable(input.City),
		nullable(input.State), nullable(input.Postcode), now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create seller profile"})
		return
	}
	sellerID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new seller ID"})
		return
	}

	// 3. Approval request for the admin queue
	details, _ := json.Marshal(approvals.SellerRegistrationDetails{
		BusinessName: input.BusinessName,
		Category:     input.Category,
	})
	if err := h.addApprovalRequest(tx, approvals.TypeSellerRegistration, userID, sellerID, details, now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue registration for approval"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Seller registered successfully, pending verification.",
		"userId":   userID,
		"sellerId": sellerID,
	})
}

// GetMySellerProfile is the handler for GET /v1/seller/profile
func (h *Handlers) GetMySellerProfile(c *gin.Context) {
	p, _ := principal(c)

	var s models.Seller
	query := `
		SELECT id, user_id, business_name, business_slug, category, status, is_verified,
		       service_number, address_line1, city, state, postcode, created_at, updated_at
		FROM sellers
		WHERE user_id = ?`
	err := h.DB.QueryRow(query, p.UserID).Scan(
		&s.ID, &s.UserID, &s.BusinessName, &s.BusinessSlug, &s.Category, &s.Status, &s.IsVerified,
		&s.ServiceNumber, &s.AddressLine1, &s.City, &s.State, &s.Postcode, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch seller profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"seller": s})
}

// SubmitDocumentInput is one document pointer into the opaque blob store.
type SubmitDocumentInput struct {
	DocType string `json:"docType" binding:"required"`
	FileURL string `json:"fileUrl" binding:"required,url"`
}

// SubmitDocumentsInput is the body for POST /v1/seller/documents
type SubmitDocumentsInput struct {
	Documents []SubmitDocumentInput `json:"documents" binding:"required,min=1,dive"`
}

// SubmitSellerDocuments is the handler for POST /v1/seller/documents
// Each document gets its own row and its own document_verification approval
// request, so an admin can verify or reject them independently.
func (h *Handlers) SubmitSellerDocuments(c *gin.Context) {
	p, _ := principal(c)

	var input SubmitDocumentsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	sellerID, err := h.sellerIDForUser(tx, p.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Seller profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve seller profile"})
		return
	}

	now := time.Now()
	docQuery := `
		INSERT INTO seller_documents (seller_id, doc_type, file_url, status, created_at)
		VALUES (?, ?, ?, 'pending', ?)`

	var docIDs []int64
	for _, doc := range input.Documents {
		result, err := tx.Exec(docQuery, sellerID, doc.DocType, doc.FileURL, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save document"})
			return
		}
		docID, err := result.LastInsertId()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new document ID"})
			return
		}

		details, _ := json.Marshal(approvals.DocumentVerificationDetails{
			DocType: doc.DocType,
			FileURL: doc.FileURL,
		})
		if err := h.addApprovalRequest(tx, approvals.TypeDocumentVerification, p.UserID, docID, details, now); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue document for verification"})
			return
		}
		docIDs = append(docIDs, docID)
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     fmt.Sprintf("%d document(s) submitted for verification", len(docIDs)),
		"documentIds": docIDs,
	})
}

// queryer lets helpers run on either the pool or an open transaction.
type queryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// sellerIDForUser resolves the seller profile ID for a seller-role user.
func (h *Handlers) sellerIDForUser(q queryer, userID int64) (int64, error) {
	var sellerID int64
	err := q.QueryRow("SELECT id FROM sellers WHERE user_id = ?", userID).Scan(&sellerID)
	return sellerID, err
}

// addApprovalRequest inserts a pending approval request inside the caller's
// transaction, so the request and the entity it references commit together.
func (h *Handlers) addApprovalRequest(q queryer, t approvals.Type, requesterID, subjectID int64, details []byte, now time.Time) error {
	query := `
		INSERT INTO approval_requests (type, requester_id, subject_id, details, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', ?, ?)`
	if _, err := q.Exec(query, string(t), requesterID, subjectID, details, now, now); err != nil {
		return fmt.Errorf("failed to add approval request: %w", err)
	}
	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
