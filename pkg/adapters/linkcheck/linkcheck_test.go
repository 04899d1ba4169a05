package linkcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

func TestRemoteCheckerSendsCredentialAndPayload(t *testing.T) {
	var gotAuth string
	var gotBody checkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://dest.example.com","linkId":"l1","broken":true,"status":404}`))
	}))
	defer srv.Close()

	c := NewRemoteChecker(srv.URL, "service-key", time.Second)
	result, raw, err := c.Check(context.Background(), "https://dest.example.com", "l1")
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.URL != "https://dest.example.com" || gotBody.LinkID != "l1" {
		t.Errorf("unexpected payload %+v", gotBody)
	}
	if !result.Broken || result.Status != 404 {
		t.Errorf("unexpected result %+v", result)
	}
	if string(raw) != `{"url":"https://dest.example.com","linkId":"l1","broken":true,"status":404}` {
		t.Errorf("raw body not passed through: %s", raw)
	}
}

func TestRemoteCheckerNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := NewRemoteChecker(srv.URL, "k", time.Second).Check(context.Background(), "https://x", "l1")
	var failed *domain.CheckFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected CheckFailedError, got %v", err)
	}
	if failed.Status != http.StatusBadGateway || failed.Details != "boom\n" {
		t.Errorf("unexpected failure %+v", failed)
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/redirect":
			http.Redirect(w, r, "/ok", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProberWithClient(srv.Client())
	tests := []struct {
		path   string
		broken bool
		status int
	}{
		{"/ok", false, 200},
		{"/redirect", false, 200},
		{"/missing", true, 404},
	}
	for _, tt := range tests {
		got := p.Probe(context.Background(), srv.URL+tt.path, "l1")
		if got.Broken != tt.broken || got.Status != tt.status {
			t.Errorf("%s: got broken=%v status=%d", tt.path, got.Broken, got.Status)
		}
	}

	srv.Close()
	if got := p.Probe(context.Background(), srv.URL+"/ok", "l1"); !got.Broken || got.Error == "" {
		t.Errorf("closed server should be broken with error, got %+v", got)
	}
}
