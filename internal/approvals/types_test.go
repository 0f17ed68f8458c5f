package approvals

import (
	"errors"
	"testing"
)

func TestParseType(t *testing.T) {
	for _, s := range []string{"seller_registration", "product_listing", "document_verification"} {
		got, err := ParseType(s)
		if err != nil {
			t.Fatalf("ParseType(%q) returned error: %v", s, err)
		}
		if string(got) != s {
			t.Fatalf("ParseType(%q) = %q", s, got)
		}
	}

	for _, s := range []string{"", "service_listing", "SELLER_REGISTRATION"} {
		if _, err := ParseType(s); !errors.Is(err, ErrUnknownType) {
			t.Fatalf("ParseType(%q): want ErrUnknownType", s)
		}
	}
}

func TestDecodePayloadMatchesType(t *testing.T) {
	p, err := DecodePayload(TypeSellerRegistration, []byte(`{"businessName":"Fauji Traders","category":"handicrafts"}`))
	if err != nil {
		t.Fatalf("decode seller_registration: %v", err)
	}
	if p.SellerRegistration == nil || p.ProductListing != nil || p.DocumentVerification != nil {
		t.Fatal("seller_registration payload should populate exactly one variant")
	}
	if p.SellerRegistration.BusinessName != "Fauji Traders" {
		t.Fatalf("businessName = %q", p.SellerRegistration.BusinessName)
	}

	p, err = DecodePayload(TypeProductListing, []byte(`{"name":"Trekking Pole","itemType":"product","price":499.0}`))
	if err != nil {
		t.Fatalf("decode product_listing: %v", err)
	}
	if p.ProductListing == nil || p.ProductListing.Price != 499.0 {
		t.Fatalf("product_listing payload not decoded: %+v", p.ProductListing)
	}

	p, err = DecodePayload(TypeDocumentVerification, []byte(`{"docType":"discharge_book","fileUrl":"blob://abc"}`))
	if err != nil {
		t.Fatalf("decode document_verification: %v", err)
	}
	if p.DocumentVerification == nil || p.DocumentVerification.DocType != "discharge_book" {
		t.Fatalf("document_verification payload not decoded: %+v", p.DocumentVerification)
	}
}

func TestDecodePayloadRejectsUnknownTypeAndBadJSON(t *testing.T) {
	if _, err := DecodePayload(Type("wallet_topup"), []byte(`{}`)); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
	if _, err := DecodePayload(TypeProductListing, []byte(`{not json`)); err == nil {
		t.Fatal("malformed details should fail to decode")
	}
}
