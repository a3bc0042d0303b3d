package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestTranslatePostsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/translate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "hello" || req.TargetLanguage != "Spanish" {
			t.Errorf("unexpected request body: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: " hola "})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(2*time.Second))
	got, err := c.Translate(context.Background(), "hello", "Spanish")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hola" {
		t.Fatalf("expected trimmed translation, got %q", got)
	}
}

func TestTranslateRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: "bonjour"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(2*time.Second), WithRetry(2))
	got, err := c.Translate(context.Background(), "hello", "French")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "bonjour" {
		t.Fatalf("unexpected translation %q", got)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestTranslateDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(2*time.Second), WithRetry(3))
	_, err := c.Translate(context.Background(), "hello", "German")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status=400") {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}
