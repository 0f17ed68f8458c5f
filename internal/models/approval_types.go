package models

import (
	"encoding/json"
	"time"
)

// Approval request statuses. Once a request leaves 'pending' it is terminal;
// a corrected resubmission is a brand new request.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// ApprovalRequest is the model for the 'approval_requests' table.
// Details is a tagged-union payload decoded by internal/approvals according
// to Type; SubjectID points at the seller, catalog item, or document the
// decision will mutate.
type ApprovalRequest struct {
	ID          int64           `json:"id" db:"id"`
	Type        string          `json:"type" db:"type"`
	RequesterID int64           `json:"requesterId" db:"requester_id"`
	SubjectID   int64           `json:"subjectId" db:"subject_id"`
	Details     json.RawMessage `json:"details" db:"details"`
	Status      string          `json:"status" db:"status"`

	DecisionNote *string `json:"decisionNote,omitempty" db:"decision_note"`
	DecidedBy    *int64  `json:"decidedBy,omitempty" db:"decided_by"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (populated manually for admin listings)
	RequesterName string `json:"requesterName,omitempty" db:"-"`
	BusinessName  string `json:"businessName,omitempty" db:"-"`
}
