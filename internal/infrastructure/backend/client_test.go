package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

const testSecret = "backend-test-secret"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, testSecret, zerolog.Nop())
}

func TestClient_SignsServiceToken(t *testing.T) {
	var issuer string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return []byte(testSecret), nil
		})
		if err == nil {
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				issuer, _ = claims["iss"].(string)
			}
		}
		w.Write([]byte(`{"devices":[]}`))
	})

	if _, err := client.ListDevices(context.Background(), "cust_1"); err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if issuer != "dashboard-service" {
		t.Errorf("expected a verifiable service token with iss=dashboard-service, got %q", issuer)
	}
}

func TestClient_NotFoundBecomesSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such device"}`, http.StatusNotFound)
	})

	_, err := client.FindDevice(context.Background(), "cust_1", "dev_missing")
	if !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestClient_UsernameConflictBecomesSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"username already taken","code":"username_taken"}`))
	})

	err := client.UpdateProfile(context.Background(), "cust_1", &ports.ProfileData{
		Username: "dopamine_monk",
		Complete: true,
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestClient_BackendMessageSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"transcription offline"}`))
	})

	err := client.StorePin(context.Background(), "prof_1", "1234")
	if err == nil || !strings.Contains(err.Error(), "transcription offline") {
		t.Errorf("expected the backend message in the error, got %v", err)
	}
}

func TestClient_ValidateSurrenderUploadsMultipart(t *testing.T) {
	var (
		gotCustomer string
		gotDevice   string
		gotFilename string
		gotBody     string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotCustomer = r.FormValue("customer_id")
		gotDevice = r.FormValue("device_id")
		file, header, err := r.FormFile("recording")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		b, _ := io.ReadAll(file)
		gotBody = string(b)
		w.Write([]byte(`{"approved":true,"unlock_pin":"8421","feedback":"well said"}`))
	})

	verdict, err := client.ValidateSurrender(context.Background(), "cust_1", "dev_1",
		strings.NewReader("audio-bytes"), "surrender.webm")
	if err != nil {
		t.Fatalf("ValidateSurrender failed: %v", err)
	}
	if gotCustomer != "cust_1" || gotDevice != "dev_1" {
		t.Errorf("form fields = (%q, %q), want (cust_1, dev_1)", gotCustomer, gotDevice)
	}
	if gotFilename != "surrender.webm" || gotBody != "audio-bytes" {
		t.Errorf("recording part = (%q, %q), want the uploaded file", gotFilename, gotBody)
	}
	if !verdict.Approved || verdict.UnlockPin != "8421" || verdict.Feedback != "well said" {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
}

func TestClient_ActivityLogParsesMixedTimestamps(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries":[
			{"device_id":"dev_1","action":"locked","timestamp":"1756700000"},
			{"device_id":"dev_2","action":"unlocked","timestamp":"2026-08-30T12:00:00Z"}
		]}`))
	})

	entries, err := client.FetchActivityLog(context.Background(), "cust_1")
	if err != nil {
		t.Fatalf("FetchActivityLog failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Timestamp != 1756700000 {
		t.Errorf("epoch-string timestamp = %d, want 1756700000", entries[0].Timestamp)
	}
	if entries[1].Timestamp != 1788091200 {
		t.Errorf("RFC3339 timestamp = %d, want 1788091200", entries[1].Timestamp)
	}
}

func TestClient_VerifyWhatsAppCode(t *testing.T) {
	var gotPath, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{"verified":true}`))
	})

	verified, err := client.VerifyWhatsAppCode(context.Background(), "cust_1", "+4791234567", "482913")
	if err != nil {
		t.Fatalf("VerifyWhatsAppCode failed: %v", err)
	}
	if gotPath != "/v1/whatsapp/codes/verify" {
		t.Errorf("path = %q, want /v1/whatsapp/codes/verify", gotPath)
	}
	for _, want := range []string{`"customer_id":"cust_1"`, `"phone":"+4791234567"`, `"code":"482913"`} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("request body %s missing %s", gotBody, want)
		}
	}
	if !verified {
		t.Error("expected the backend verdict to come through as verified")
	}
}
