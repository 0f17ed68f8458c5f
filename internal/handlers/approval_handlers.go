package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/esmmarket/esmmarket-golang/internal/approvals"
	"github.com/esmmarket/esmmarket-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Admin: Approval Queue Handlers ---
//

// ListPendingApprovals is the handler for GET /v1/admin/approvals
// Query params: type (one of the three kinds), search (case-insensitive
// match on requester name / business name), page, page_size.
// Only pending requests are ever listed; decided ones are history.
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var filters strings.Builder
	var args []interface{}

	filters.WriteString(" WHERE ar.status = 'pending'")

	if t := c.Query("type"); t != "" {
		parsed, err := approvals.ParseType(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filters.WriteString(" AND ar.type = ?")
		args = append(args, string(parsed))
	}
	if search := c.Query("search"); search != "" {
		filters.WriteString(" AND (LOWER(u.full_name) LIKE ? OR LOWER(s.business_name) LIKE ?)")
		term := "%" + strings.ToLower(search) + "%"
		args = append(args, term, term)
	}

	joins := `
		FROM approval_requests ar
		JOIN users u ON ar.requester_id = u.id
		LEFT JOIN sellers s ON s.user_id = ar.requester_id`

	// 1. --- Count for pagination ---
	var totalItems int
	countQuery := "SELECT COUNT(*)" + joins + filters.String()
	if err := h.DB.QueryRow(countQuery, args...).Scan(&totalItems); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count approval requests"})
		return
	}

	// 2. --- Page query. Oldest first: the queue is reviewed FIFO. ---
	listQuery := `
		SELECT ar.id, ar.type, ar.requester_id, ar.subject_id, ar.details, ar.status,
		       ar.created_at, ar.updated_at,
		       u.full_name, COALESCE(s.business_name, '')` +
		joins + filters.String() +
		" ORDER BY ar.created_at ASC LIMIT ? OFFSET ?"
	pageArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)

	rows, err := h.DB.Query(listQuery, pageArgs...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	requests := []*models.ApprovalRequest{}
	for rows.Next() {
		var req models.ApprovalRequest
		var details []byte
		if err := rows.Scan(
			&req.ID, &req.Type, &req.RequesterID, &req.SubjectID, &details, &req.Status,
			&req.CreatedAt, &req.UpdatedAt,
			&req.RequesterName, &req.BusinessName,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan approval request"})
			return
		}
		req.Details = details
		requests = append(requests, &req)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating approval rows"})
		return
	}

	totalPages := (totalItems + pageSize - 1) / pageSize
	c.JSON(http.StatusOK, gin.H{
		"items": requests,
		"pagination": gin.H{
			"page":       page,
			"pageSize":   pageSize,
			"totalItems": totalItems,
			"totalPages": totalPages,
		},
	})
}

// GetApprovalStats is the handler for GET /v1/admin/approvals/stats
// A pure read-side aggregation of the current pending set, grouped by type.
func (h *Handlers) GetApprovalStats(c *gin.Context) {
	rows, err := h.DB.Query(
		"SELECT type, COUNT(*) FROM approval_requests WHERE status = 'pending' GROUP BY type")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate approval stats"})
		return
	}
	defer rows.Close()

	byType := map[string]int{}
	for _, t := range approvals.All {
		byType[string(t)] = 0
	}

	total := 0
	for rows.Next() {
		var t string
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan stats row"})
			return
		}
		byType[t] = count
		total += count
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating stats rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalPending": total,
		"byType":       byType,
	})
}

// ApproveRequest is the handler for POST /v1/admin/approvals/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	h.decideRequest(c, models.ApprovalApproved, "")
}

// RejectRequestInput defines the JSON for rejecting an approval request.
type RejectRequestInput struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectRequest is the handler for POST /v1/admin/approvals/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	var input RejectRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.decideRequest(c, models.ApprovalRejected, input.Reason)
}

// decideRequest applies a terminal decision to a pending approval request.
// The status write is a CAS keyed on 'pending', so two racing admins cannot
// both decide: the loser gets AlreadyDecided. Approval side effects run in
// the same transaction as the decision, so the queue and the mutated entity
// can never disagree.
func (h *Handlers) decideRequest(c *gin.Context, decision string, note string) {
	p, _ := principal(c)
	requestID := c.Param("id")

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 1. --- Lock the request and check it is still pending ---
	var req models.ApprovalRequest
	query := "SELECT id, type, requester_id, subject_id, status FROM approval_requests WHERE id = ? FOR UPDATE"
	err = tx.QueryRow(query, requestID).Scan(&req.ID, &req.Type, &req.RequesterID, &req.SubjectID, &req.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Approval request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch approval request"})
		return
	}

	if req.Status != models.ApprovalPending {
		c.JSON(http.StatusConflict, gin.H{"error": approvals.ErrAlreadyDecided.Error()})
		return
	}

	reqType, err := approvals.ParseType(req.Type)
	if err != nil {
		// A row with a type we do not know is corrupt data, not user error.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Approval request has an unknown type"})
		return
	}

	// 2. --- CAS the decision in ---
	now := time.Now()
	result, err := tx.Exec(
		"UPDATE approval_requests SET status = ?, decision_note = ?, decided_by = ?, updated_at = ? WHERE id = ? AND status = 'pending'",
		decision, nullable(note), p.UserID, now, req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record decision"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": approvals.ErrAlreadyDecided.Error()})
		return
	}

	// 3. --- Decision side effects, per type, same transaction ---
	// Approval flips the subject live; rejection marks it 'rejected' so its
	// owner can correct and resubmit, which opens a new request. The entity
	// is non-transactable either way until a later approval.
	if decision == models.ApprovalApproved {
		err = h.applyApproval(tx, reqType, req.SubjectID, now)
	} else {
		err = h.applyRejection(tx, reqType, req.SubjectID, note, now)
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	// 4. --- Notify the requester ---
	var message string
	if decision == models.ApprovalApproved {
		message = fmt.Sprintf("Your %s request has been approved.", strings.ReplaceAll(req.Type, "_", " "))
	} else {
		message = fmt.Sprintf("Your %s request was rejected. Reason: %s", strings.ReplaceAll(req.Type, "_", " "), note)
	}
	if err := h.AddNotification(tx, req.RequesterID, message, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	// 5. --- Return the decided request ---
	req.Status = decision
	req.DecidedBy = &p.UserID
	if note != "" {
		req.DecisionNote = &note
	}
	req.UpdatedAt = now
	c.JSON(http.StatusOK, gin.H{"request": &req})
}

// applyApproval dispatches the type-specific side effect of an approval.
// The switch is exhaustive over approvals.All; decideRequest has already
// validated the type.
func (h *Handlers) applyApproval(tx *sql.Tx, t approvals.Type, subjectID int64, now time.Time) error {
	switch t {
	case approvals.TypeSellerRegistration:
		result, err := tx.Exec(
			"UPDATE sellers SET status = 'active', is_verified = 1, updated_at = ? WHERE id = ?",
			now, subjectID)
		if err != nil {
			return fmt.Errorf("failed to activate seller: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("seller %d no longer exists", subjectID)
		}

	case approvals.TypeProductListing:
		result, err := tx.Exec(
			"UPDATE catalog_items SET status = 'approved', rejection_reason = NULL, updated_at = ? WHERE id = ? AND status = 'pending'",
			now, subjectID)
		if err != nil {
			return fmt.Errorf("failed to approve catalog item: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("catalog item %d is no longer pending", subjectID)
		}

	case approvals.TypeDocumentVerification:
		result, err := tx.Exec(
			"UPDATE seller_documents SET status = 'verified' WHERE id = ?", subjectID)
		if err != nil {
			return fmt.Errorf("failed to verify document: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("document %d no longer exists", subjectID)
		}

	default:
		return fmt.Errorf("no side effect registered for approval type %q", t)
	}
	return nil
}

// applyRejection is the reject-side counterpart of applyApproval: it stamps
// the subject entity 'rejected' so the decision is visible on the entity
// itself and, for catalog items, the seller can edit and resubmit.
func (h *Handlers) applyRejection(tx *sql.Tx, t approvals.Type, subjectID int64, reason string, now time.Time) error {
	switch t {
	case approvals.TypeSellerRegistration:
		result, err := tx.Exec(
			"UPDATE sellers SET status = 'rejected', updated_at = ? WHERE id = ?",
			now, subjectID)
		if err != nil {
			return fmt.Errorf("failed to reject seller: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("seller %d no longer exists", subjectID)
		}

	case approvals.TypeProductListing:
		result, err := tx.Exec(
			"UPDATE catalog_items SET status = 'rejected', rejection_reason = ?, updated_at = ? WHERE id = ? AND status = 'pending'",
			reason, now, subjectID)
		if err != nil {
			return fmt.Errorf("failed to reject catalog item: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("catalog item %d is no longer pending", subjectID)
		}

	case approvals.TypeDocumentVerification:
		result, err := tx.Exec(
			"UPDATE seller_documents SET status = 'rejected' WHERE id = ?", subjectID)
		if err != nil {
			return fmt.Errorf("failed to reject document: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("document %d no longer exists", subjectID)
		}

	default:
		return fmt.Errorf("no side effect registered for approval type %q", t)
	}
	return nil
}
