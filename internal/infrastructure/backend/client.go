// Package backend implements the HTTP client for the external serverless
// backend that owns identity, device storage and recording transcription.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/api/metrics"
	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

const (
	defaultTimeout  = 30 * time.Second
	serviceTokenTTL = 5 * time.Minute
)

// Client is the HTTP implementation of ports.BackendClient. Every request
// carries a short-lived HS256 service token.
type Client struct {
	baseURL   string
	jwtSecret string
	http      *http.Client
	log       zerolog.Logger
}

func NewClient(baseURL, jwtSecret string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		jwtSecret: jwtSecret,
		http:      &http.Client{Timeout: defaultTimeout},
		log:       log,
	}
}

// apiError is the backend's error envelope.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) serviceToken() (string, error) {
	claims := jwt.MapClaims{
		"iss": "dashboard-service",
		"exp": time.Now().Add(serviceTokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(c.jwtSecret))
}

// do executes one request and decodes the JSON response into out (when out is
// non-nil). Non-2xx responses become errors carrying the backend's message.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}

	token, err := c.serviceToken()
	if err != nil {
		return fmt.Errorf("%s: sign service token: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestDuration.WithLabelValues(operation, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()
	metrics.BackendRequestDuration.WithLabelValues(operation, statusClass(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(operation, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

func (c *Client) decodeError(operation string, resp *http.Response) error {
	var ae apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&ae)

	// Recognizable statuses map to domain sentinels so callers can branch.
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", operation, domain.ErrDeviceNotFound)
	case resp.StatusCode == http.StatusConflict && ae.Code == "username_taken":
		return fmt.Errorf("%s: %w", operation, domain.ErrUsernameTaken)
	}

	if ae.Error != "" {
		return fmt.Errorf("%s: backend said %q (status %d)", operation, ae.Error, resp.StatusCode)
	}
	return fmt.Errorf("%s: backend returned status %d", operation, resp.StatusCode)
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}

func (c *Client) postJSON(ctx context.Context, operation, path string, payload, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", operation, err)
	}
	return c.do(ctx, operation, http.MethodPost, path, nil, bytes.NewReader(b), "application/json", out)
}

// --- ports.BackendClient ---

func (c *Client) VerifyAppProxyHMAC(ctx context.Context, shop, customerID, hmac string) (*ports.HMACVerification, error) {
	var resp struct {
		Valid       bool   `json:"valid"`
		RedirectURL string `json:"redirect_url"`
	}
	err := c.postJSON(ctx, "verify_hmac", "/v1/auth/verify-proxy", map[string]string{
		"shop":        shop,
		"customer_id": customerID,
		"hmac":        hmac,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &ports.HMACVerification{Valid: resp.Valid, RedirectURL: resp.RedirectURL}, nil
}

func (c *Client) FetchFlowDescriptor(ctx context.Context, flowID string) (*domain.FlowDescriptor, error) {
	var descriptor domain.FlowDescriptor
	err := c.do(ctx, "fetch_descriptor", http.MethodGet, "/v1/flows/"+url.PathEscape(flowID), nil, nil, "", &descriptor)
	if err != nil {
		return nil, err
	}
	return &descriptor, nil
}

func (c *Client) StorePin(ctx context.Context, profileID, pincode string) error {
	return c.postJSON(ctx, "store_pin", "/v1/pins", map[string]string{
		"profile_id": profileID,
		"pincode":    pincode,
	}, nil)
}

func (c *Client) ListDevices(ctx context.Context, subscriberID string) ([]domain.Device, error) {
	var resp struct {
		Devices []domain.Device `json:"devices"`
	}
	query := url.Values{"customer_id": {subscriberID}}
	if err := c.do(ctx, "list_devices", http.MethodGet, "/v1/devices", query, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

func (c *Client) UpsertDevice(ctx context.Context, subscriberID string, device *domain.Device) error {
	return c.postJSON(ctx, "upsert_device", "/v1/devices", map[string]any{
		"customer_id": subscriberID,
		"device":      device,
	}, nil)
}

func (c *Client) RemoveDevice(ctx context.Context, subscriberID, deviceID string) error {
	query := url.Values{"customer_id": {subscriberID}}
	return c.do(ctx, "remove_device", http.MethodDelete, "/v1/devices/"+url.PathEscape(deviceID), query, nil, "", nil)
}

func (c *Client) UnlockDevice(ctx context.Context, subscriberID, deviceID string, durationMinutes int) error {
	return c.postJSON(ctx, "unlock_device", "/v1/devices/"+url.PathEscape(deviceID)+"/unlock", map[string]any{
		"customer_id":      subscriberID,
		"duration_minutes": durationMinutes,
	}, nil)
}

func (c *Client) FindDevice(ctx context.Context, subscriberID, deviceID string) (*domain.Device, error) {
	var device domain.Device
	query := url.Values{"customer_id": {subscriberID}}
	err := c.do(ctx, "find_device", http.MethodGet, "/v1/devices/"+url.PathEscape(deviceID), query, nil, "", &device)
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (c *Client) GenerateAudioGuide(ctx context.Context, subscriberID, pincode string) (*ports.AudioGuide, error) {
	var resp struct {
		AudioURL string `json:"audio_url"`
		Pincode  string `json:"pincode"`
	}
	err := c.postJSON(ctx, "generate_audio_guide", "/v1/audio-guides", map[string]string{
		"customer_id": subscriberID,
		"pincode":     pincode,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &ports.AudioGuide{AudioURL: resp.AudioURL, Pincode: resp.Pincode}, nil
}

// ValidateSurrender uploads the recording as multipart form data. The upload
// is buffered; recordings are capped upstream by the HTTP layer.
func (c *Client) ValidateSurrender(ctx context.Context, subscriberID, deviceID string, recording io.Reader, filename string) (*ports.SurrenderVerdict, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("customer_id", subscriberID); err != nil {
		return nil, fmt.Errorf("validate_surrender: %w", err)
	}
	if err := w.WriteField("device_id", deviceID); err != nil {
		return nil, fmt.Errorf("validate_surrender: %w", err)
	}
	part, err := w.CreateFormFile("recording", filename)
	if err != nil {
		return nil, fmt.Errorf("validate_surrender: %w", err)
	}
	if _, err := io.Copy(part, recording); err != nil {
		return nil, fmt.Errorf("validate_surrender: read recording: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("validate_surrender: %w", err)
	}

	var resp struct {
		Approved  bool   `json:"approved"`
		UnlockPin string `json:"unlock_pin"`
		Feedback  string `json:"feedback"`
	}
	err = c.do(ctx, "validate_surrender", http.MethodPost, "/v1/surrenders", nil, &buf, w.FormDataContentType(), &resp)
	if err != nil {
		return nil, err
	}
	return &ports.SurrenderVerdict{Approved: resp.Approved, UnlockPin: resp.UnlockPin, Feedback: resp.Feedback}, nil
}

func (c *Client) FetchMilestoneLadder(ctx context.Context, gender string) ([]domain.MilestoneTier, error) {
	var resp struct {
		Tiers []domain.MilestoneTier `json:"tiers"`
	}
	query := url.Values{}
	if gender != "" {
		query.Set("gene", gender)
	}
	if err := c.do(ctx, "fetch_ladder", http.MethodGet, "/v1/milestones", query, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Tiers, nil
}

func (c *Client) FetchPercentile(ctx context.Context, subscriberID string) (float64, error) {
	var resp struct {
		Percentile float64 `json:"percentile"`
	}
	query := url.Values{"customer_id": {subscriberID}}
	if err := c.do(ctx, "fetch_percentile", http.MethodGet, "/v1/percentile", query, nil, "", &resp); err != nil {
		return 0, err
	}
	return resp.Percentile, nil
}

func (c *Client) FetchProfile(ctx context.Context, subscriberID string) (*ports.ProfileData, error) {
	var resp struct {
		Username string `json:"username"`
		Gender   string `json:"gender"`
		Gene     string `json:"gene"`
		Phone    string `json:"phone"`
		Complete bool   `json:"profile_complete"`
	}
	query := url.Values{"customer_id": {subscriberID}}
	if err := c.do(ctx, "fetch_profile", http.MethodGet, "/v1/profile", query, nil, "", &resp); err != nil {
		return nil, err
	}
	return &ports.ProfileData{
		Username: resp.Username,
		Gender:   resp.Gender,
		Gene:     resp.Gene,
		Phone:    resp.Phone,
		Complete: resp.Complete,
	}, nil
}

func (c *Client) UpdateProfile(ctx context.Context, subscriberID string, profile *ports.ProfileData) error {
	return c.postJSON(ctx, "update_profile", "/v1/profile", map[string]any{
		"customer_id":      subscriberID,
		"username":         profile.Username,
		"gender":           profile.Gender,
		"phone":            profile.Phone,
		"profile_complete": profile.Complete,
	}, nil)
}

func (c *Client) CheckUsername(ctx context.Context, username string) (*ports.UsernameStatus, error) {
	var resp struct {
		Available bool `json:"available"`
	}
	query := url.Values{"username": {username}}
	if err := c.do(ctx, "check_username", http.MethodGet, "/v1/usernames/check", query, nil, "", &resp); err != nil {
		return nil, err
	}
	return &ports.UsernameStatus{Available: resp.Available}, nil
}

func (c *Client) EvaluateCommitment(ctx context.Context, subscriberID, statement string) (*ports.CommitmentVerdict, error) {
	var resp struct {
		Approved bool   `json:"approved"`
		Feedback string `json:"feedback"`
	}
	err := c.postJSON(ctx, "evaluate_commitment", "/v1/commitments/evaluate", map[string]string{
		"customer_id": subscriberID,
		"statement":   statement,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &ports.CommitmentVerdict{Approved: resp.Approved, Feedback: resp.Feedback}, nil
}

func (c *Client) SendWhatsAppCode(ctx context.Context, subscriberID, phone string) error {
	return c.postJSON(ctx, "whatsapp_send_code", "/v1/whatsapp/codes", map[string]string{
		"customer_id": subscriberID,
		"phone":       phone,
	}, nil)
}

func (c *Client) VerifyWhatsAppCode(ctx context.Context, subscriberID, phone, code string) (bool, error) {
	var resp struct {
		Verified bool `json:"verified"`
	}
	err := c.postJSON(ctx, "whatsapp_verify_code", "/v1/whatsapp/codes/verify", map[string]string{
		"customer_id": subscriberID,
		"phone":       phone,
		"code":        code,
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Verified, nil
}

func (c *Client) UpdateNotificationSettings(ctx context.Context, subscriberID string, settings *ports.NotificationSettings) error {
	return c.postJSON(ctx, "update_notification_settings", "/v1/notifications/settings", map[string]any{
		"customer_id":      subscriberID,
		"whatsapp_enabled": settings.WhatsAppEnabled,
		"email_enabled":    settings.EmailEnabled,
	}, nil)
}

func (c *Client) FetchActivityLog(ctx context.Context, subscriberID string) ([]ports.ActivityEntry, error) {
	var resp struct {
		Entries []struct {
			DeviceID  string `json:"device_id"`
			Action    string `json:"action"`
			Timestamp string `json:"timestamp"`
		} `json:"entries"`
	}
	query := url.Values{"customer_id": {subscriberID}}
	if err := c.do(ctx, "fetch_activity", http.MethodGet, "/v1/activity", query, nil, "", &resp); err != nil {
		return nil, err
	}

	entries := make([]ports.ActivityEntry, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		ts, err := strconv.ParseInt(e.Timestamp, 10, 64)
		if err != nil {
			// The backend mixes epoch strings and RFC3339 in old rows.
			if t, perr := time.Parse(time.RFC3339, e.Timestamp); perr == nil {
				ts = t.Unix()
			}
		}
		entries = append(entries, ports.ActivityEntry{DeviceID: e.DeviceID, Action: e.Action, Timestamp: ts})
	}
	return entries, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriberID, reason string) error {
	return c.postJSON(ctx, "cancel_subscription", "/v1/subscription/cancel", map[string]string{
		"customer_id": subscriberID,
		"reason":      reason,
	}, nil)
}
