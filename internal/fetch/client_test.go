package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsURL(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/game.pgn": true,
		"http://example.com/game.pgn":  true,
		"game.pgn":                     false,
		"/tmp/game.pgn":                false,
		"ftp://example.com/game.pgn":   false,
	}
	for in, want := range cases {
		if got := IsURL(in); got != want {
			t.Fatalf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPGNDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[Event \"x\"]\n\n1. e4 *\n"))
	}))
	defer srv.Close()

	out, err := NewClient().PGN(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("PGN: %v", err)
	}
	if !strings.Contains(out, "1. e4 *") {
		t.Fatalf("unexpected body: %q", out)
	}
}

func TestPGNRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("1. e4 *"))
	}))
	defer srv.Close()

	out, err := NewClient(WithRetry(3)).PGN(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("PGN after retries: %v", err)
	}
	if out != "1. e4 *" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("retry behavior wrong: body=%q calls=%d", out, calls)
	}
}

func TestPGNNoRetryOnNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewClient(WithRetry(3)).PGN(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error for 404")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("404 must not be retried: %d calls", calls)
	}
}

func TestPGNEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("   \n"))
	}))
	defer srv.Close()

	if _, err := NewClient(WithTimeout(2 * time.Second)).PGN(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error for empty body")
	}
}
