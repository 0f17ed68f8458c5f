// Package approvals defines the approval request kinds and their typed
// payloads. Each kind carries its own payload shape so the approve/reject
// dispatch can be checked exhaustively instead of poking at an untyped blob.
package approvals

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type enumerates what an approval request is asking for.
type Type string

const (
	TypeSellerRegistration   Type = "seller_registration"
	TypeProductListing       Type = "product_listing"
	TypeDocumentVerification Type = "document_verification"
)

// All lists every known approval type (used by stats and filters).
var All = []Type{TypeSellerRegistration, TypeProductListing, TypeDocumentVerification}

var (
	ErrUnknownType = errors.New("unknown approval type")
	// ErrAlreadyDecided: the request has left 'pending'; decisions are
	// terminal and a resubmission must be a new request.
	ErrAlreadyDecided = errors.New("approval request already decided")
)

// ParseType validates a type string from the outside world.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeSellerRegistration, TypeProductListing, TypeDocumentVerification:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// SellerRegistrationDetails is the payload for seller onboarding requests.
type SellerRegistrationDetails struct {
	BusinessName string `json:"businessName"`
	Category     string `json:"category"`
}

// ProductListingDetails is the payload for listing publication requests.
type ProductListingDetails struct {
	Name     string  `json:"name"`
	ItemType string  `json:"itemType"`
	Price    float64 `json:"price"`
}

// DocumentVerificationDetails is the payload for document checks.
type DocumentVerificationDetails struct {
	DocType string `json:"docType"`
	FileURL string `json:"fileUrl"`
}

// Payload is the decoded tagged union; exactly one field is non-nil,
// matching the request's Type.
type Payload struct {
	SellerRegistration   *SellerRegistrationDetails
	ProductListing       *ProductListingDetails
	DocumentVerification *DocumentVerificationDetails
}

// DecodePayload decodes a raw details column according to the request type.
func DecodePayload(t Type, raw []byte) (Payload, error) {
	var p Payload
	switch t {
	case TypeSellerRegistration:
		p.SellerRegistration = &SellerRegistrationDetails{}
		if err := json.Unmarshal(raw, p.SellerRegistration); err != nil {
			return Payload{}, fmt.Errorf("decode seller_registration details: %w", err)
		}
	case TypeProductListing:
		p.ProductListing = &ProductListingDetails{}
		if err := json.Unmarshal(raw, p.ProductListing); err != nil {
			return Payload{}, fmt.Errorf("decode product_listing details: %w", err)
		}
	case TypeDocumentVerification:
		p.DocumentVerification = &DocumentVerificationDetails{}
		if err := json.Unmarshal(raw, p.DocumentVerification); err != nil {
			return Payload{}, fmt.Errorf("decode document_verification details: %w", err)
		}
	default:
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return p, nil
}
