package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"time"
)

// SessionCookieName is the browser cookie holding the serialized SessionRecord.
const SessionCookieName = "stj_session"

// SessionCookieMaxAge is how long a session record stays valid in the browser.
const SessionCookieMaxAge = 24 * time.Hour

// AuthType distinguishes the two handoff mechanisms the storefront supports.
type AuthType string

const (
	AuthTypeSSO      AuthType = "sso"
	AuthTypeAppProxy AuthType = "app_proxy"
)

var ErrNoSession = errors.New("no active session")

// SessionRecord is the browser-persisted session. Exactly one record is live
// per browser. Two shapes exist on the wire: the SSO shape carries the raw
// token plus the profile-completion flag; the app-proxy shape carries the
// customer id and shop directly.
type SessionRecord struct {
	// SSO shape.
	Token           string `json:"token,omitempty"`
	ProfileComplete bool   `json:"profileComplete,omitempty"`

	// App-proxy shape.
	CustomerID string   `json:"customerId,omitempty"`
	Shop       string   `json:"shop,omitempty"`
	AuthType   AuthType `json:"authType,omitempty"`
	Timestamp  int64    `json:"timestamp,omitempty"`
}

// Encode serializes the record to the canonical cookie value: URL-encoded
// JSON. Writers must always serialize the full record, never patch fields.
func (r *SessionRecord) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(b)), nil
}

// sessionDecoder is one strategy for reading a stored cookie value. Three
// historical encodings are in the wild (URL-encoded JSON, raw JSON,
// base64-then-JSON); decoding tries each in order and accepts the first that
// parses. New writes always use the canonical URL-encoded form — the extra
// decoders are legacy compatibility, do not fold them away.
type sessionDecoder func(value string) (*SessionRecord, error)

var sessionDecoders = []sessionDecoder{
	decodeURLEncodedJSON,
	decodeRawJSON,
	decodeBase64JSON,
}

// DecodeSessionRecord parses a cookie value in any of the supported formats.
// Returns ErrNoSession when no decoder accepts the value.
func DecodeSessionRecord(value string) (*SessionRecord, error) {
	for _, decode := range sessionDecoders {
		if rec, err := decode(value); err == nil {
			return rec, nil
		}
	}
	return nil, ErrNoSession
}

func decodeURLEncodedJSON(value string) (*SessionRecord, error) {
	unescaped, err := url.QueryUnescape(value)
	if err != nil {
		return nil, err
	}
	return parseRecordJSON(unescaped)
}

func decodeRawJSON(value string) (*SessionRecord, error) {
	return parseRecordJSON(value)
}

func decodeBase64JSON(value string) (*SessionRecord, error) {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	return parseRecordJSON(string(decoded))
}

func parseRecordJSON(s string) (*SessionRecord, error) {
	var rec SessionRecord
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, err
	}
	if rec.Token == "" && rec.CustomerID == "" {
		return nil, ErrNoSession
	}
	return &rec, nil
}

// SubscriberID extracts the stable subscriber identifier held by this record:
// a nested token is re-decoded and its subscriber field preferred over a
// directly stored customer id. Returns "" when the record holds neither.
func (r *SessionRecord) SubscriberID() string {
	if r.Token != "" {
		if tok, err := DecodeSessionToken(r.Token); err == nil && tok.SubscriberID != "" {
			return tok.SubscriberID
		}
	}
	return r.CustomerID
}
