package huggingface

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
)

func TestParseSourceID(t *testing.T) {
	owner, repo, number, err := parseSourceID("hf/o/r/discussion/3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "o" || repo != "r" || number != 3 {
		t.Fatalf("got (%s, %s, %d)", owner, repo, number)
	}
}

func TestListThreadsPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("p") == "0" {
			w.Write([]byte(`{"discussions":[{"num":1,"title":"first","author":{"name":"alice"}}]}`))
			return
		}
		w.Write([]byte(`{"discussions":[]}`))
	}))
	defer srv.Close()

	c := New("", srv.URL)
	threads, cursor, err := c.ListThreads(t.Context(), "o/r", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(threads) != 1 || threads[0].Title != "first" {
		t.Fatalf("got %+v", threads)
	}
	if cursor != "1" {
		t.Fatalf("expected next cursor 1, got %s", cursor)
	}

	threads, cursor, err = c.ListThreads(t.Context(), "o/r", cursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(threads) != 0 || cursor != "" {
		t.Fatalf("expected exhausted page, got %d threads cursor=%q", len(threads), cursor)
	}
}

func TestFetchThreadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("", srv.URL)
	_, err := c.FetchThread(t.Context(), domain.SourceID("hf/o/r/discussion/1"))
	var nf *errs.NotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
