package domain

import (
	"encoding/base64"
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestSessionRecord_EncodeDecode_Canonical(t *testing.T) {
	rec := &SessionRecord{
		CustomerID: "cust_7",
		Shop:       "focus-store.myshopify.com",
		AuthType:   AuthTypeAppProxy,
		Timestamp:  time.Now().Unix(),
	}

	value, err := rec.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeSessionRecord(value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CustomerID != rec.CustomerID || got.AuthType != rec.AuthType {
		t.Errorf("decoded %+v, want %+v", got, rec)
	}
}

// Legacy deployments wrote the cookie in two other formats; both must keep
// decoding.
func TestDecodeSessionRecord_LegacyFormats(t *testing.T) {
	raw := `{"customerId":"cust_7","shop":"s.myshopify.com","authType":"app_proxy"}`

	cases := []struct {
		name  string
		value string
	}{
		{"raw json", raw},
		{"url-encoded json", url.QueryEscape(raw)},
		{"base64 json", base64.StdEncoding.EncodeToString([]byte(raw))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := DecodeSessionRecord(tc.value)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if rec.CustomerID != "cust_7" {
				t.Errorf("customerId = %q, want cust_7", rec.CustomerID)
			}
		})
	}
}

func TestDecodeSessionRecord_Garbage(t *testing.T) {
	for _, value := range []string{"", "%%%", "not json at all", "{}"} {
		if _, err := DecodeSessionRecord(value); !errors.Is(err, ErrNoSession) {
			t.Errorf("value %q: expected ErrNoSession, got %v", value, err)
		}
	}
}

func TestSessionRecord_SubscriberID_PrefersToken(t *testing.T) {
	now := time.Now()
	tok := &SessionToken{
		Shop:         "s.myshopify.com",
		SubscriberID: "cust_from_token",
		IssuedAt:     now.Unix(),
		TTL:          3600,
		Signature:    testSignature,
	}

	rec := &SessionRecord{Token: tok.Encode(), CustomerID: "cust_direct"}
	if got := rec.SubscriberID(); got != "cust_from_token" {
		t.Errorf("SubscriberID = %q, want cust_from_token", got)
	}

	rec = &SessionRecord{CustomerID: "cust_direct"}
	if got := rec.SubscriberID(); got != "cust_direct" {
		t.Errorf("SubscriberID = %q, want cust_direct", got)
	}

	// A corrupt nested token falls through to the direct id.
	rec = &SessionRecord{Token: "garbage", CustomerID: "cust_direct"}
	if got := rec.SubscriberID(); got != "cust_direct" {
		t.Errorf("SubscriberID = %q, want cust_direct", got)
	}
}
