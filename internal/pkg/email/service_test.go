package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendTicketEmailRetriesServerErrors(t *testing.T) {
	var hits int32
	var payload sendGridRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := NewService(SendGridConfig{APIKey: "key", BaseURL: srv.URL, FromEmail: "tickets@ticketbox.test"},
		Options{Attempts: 3, Delay: time.Millisecond})

	err := svc.SendTicketEmail(context.Background(), "buyer@example.com", "Ada", []TicketLine{
		{TicketID: 1, EventName: "Spring Gala", TicketType: "General", Price: "50.00", Hash: "abc", QRCode: "data:image/png;base64,AAAA"},
	}, "ORD-1-ABCD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
	if payload.Subject != "Your tickets for order ORD-1-ABCD" {
		t.Fatalf("unexpected subject %q", payload.Subject)
	}
	html := payload.Content[len(payload.Content)-1].Value
	if !strings.Contains(html, `src="data:image/png;base64,AAAA"`) {
		t.Fatalf("expected QR data URI in body, got %s", html)
	}
}

func TestSendTicketEmailDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewService(SendGridConfig{APIKey: "key", BaseURL: srv.URL}, Options{Attempts: 3, Delay: time.Millisecond})

	err := svc.SendTicketEmail(context.Background(), "buyer@example.com", "Ada", nil, "ORD-1-ABCD")

	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected a single attempt, got %d", hits)
	}
}
