package domain

import "testing"

func TestExtractSubscriberID_Precedence(t *testing.T) {
	record := &SessionRecord{CustomerID: "cust_cookie"}
	cookie, _ := record.Encode()

	cases := []struct {
		name   string
		params EntryParams
		cookie string
		allow  bool
		want   string
	}{
		{"url param wins over cookie", EntryParams{SubscriberID: "cust_url"}, cookie, false, "cust_url"},
		{"platform customer param", EntryParams{LoggedInCustomerID: "cust_proxy"}, cookie, false, "cust_proxy"},
		{"cookie direct id", EntryParams{}, cookie, false, "cust_cookie"},
		{"override honored when allowed", EntryParams{TestCustomerID: "cust_test"}, "", true, "cust_test"},
		{"override ignored in production", EntryParams{TestCustomerID: "cust_test"}, "", false, ""},
		{"nothing available", EntryParams{}, "", true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractSubscriberID(tc.params, tc.cookie, tc.allow); got != tc.want {
				t.Errorf("ExtractSubscriberID = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractSubscriberID_TokenBeatsDirectField(t *testing.T) {
	tok := &SessionToken{
		Shop:         "journey.myshopify.com",
		SubscriberID: "cust_from_token",
		IssuedAt:     100,
		TTL:          3600,
		Signature:    testSignature,
	}
	record := &SessionRecord{Token: tok.Encode(), CustomerID: "cust_direct"}
	cookie, _ := record.Encode()

	if got := ExtractSubscriberID(EntryParams{}, cookie, false); got != "cust_from_token" {
		t.Errorf("ExtractSubscriberID = %q, want cust_from_token", got)
	}
}

func TestDecideEntryPath(t *testing.T) {
	cases := []struct {
		name   string
		params EntryParams
		want   AuthState
	}{
		{"full sso set", EntryParams{Token: "tok", Shop: "s.myshopify.com", SubscriberID: "cust_1"}, AuthSSO},
		{"hmac with shop", EntryParams{HMAC: "sig", Shop: "s.myshopify.com"}, AuthAppProxy},
		{"sso set beats hmac", EntryParams{Token: "tok", Shop: "s.myshopify.com", SubscriberID: "cust_1", HMAC: "sig"}, AuthSSO},
		{"token without subscriber falls through", EntryParams{Token: "tok", Shop: "s.myshopify.com"}, AuthExistingSession},
		{"bare request", EntryParams{}, AuthExistingSession},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecideEntryPath(tc.params); got != tc.want {
				t.Errorf("DecideEntryPath = %q, want %q", got, tc.want)
			}
		})
	}
}
