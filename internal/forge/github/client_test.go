package github

import (
	"errors"
	"net/http"
	"testing"

	ghapi "github.com/google/go-github/v60/github"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
)

func TestParseSourceID(t *testing.T) {
	owner, repo, kind, number, err := parseSourceID("github/o/r/issue/7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "o" || repo != "r" || kind != domain.KindIssue || number != 7 {
		t.Fatalf("got (%s, %s, %s, %d)", owner, repo, kind, number)
	}
}

func TestParseSourceIDRejectsOtherForge(t *testing.T) {
	if _, _, _, _, err := parseSourceID("hf/o/r/issue/7"); err == nil {
		t.Fatal("expected error for non-github source id")
	}
}

func TestSplitRepositoryID(t *testing.T) {
	owner, repo, err := splitRepositoryID("acme/widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "acme" || repo != "widgets" {
		t.Fatalf("got (%s, %s)", owner, repo)
	}
}

func TestSplitRepositoryIDRejectsMalformed(t *testing.T) {
	if _, _, err := splitRepositoryID("acme"); err == nil {
		t.Fatal("expected error for repository id missing a slash")
	}
}

func TestClassifyErrorMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		target error
	}{
		{http.StatusNotFound, &errs.NotFound{}},
		{http.StatusTooManyRequests, &errs.Retryable{}},
		{http.StatusInternalServerError, &errs.Retryable{}},
		{http.StatusForbidden, &errs.Permanent{}},
	}
	for _, tc := range cases {
		resp := &ghapi.Response{Response: &http.Response{StatusCode: tc.status}}
		err := classifyError("op", resp, errors.New("boom"))
		if err == nil {
			t.Fatalf("status %d: expected an error", tc.status)
		}
		switch tc.target.(type) {
		case *errs.NotFound:
			var e *errs.NotFound
			if !errors.As(err, &e) {
				t.Fatalf("status %d: expected NotFound, got %T", tc.status, err)
			}
		case *errs.Retryable:
			var e *errs.Retryable
			if !errors.As(err, &e) {
				t.Fatalf("status %d: expected Retryable, got %T", tc.status, err)
			}
		case *errs.Permanent:
			var e *errs.Permanent
			if !errors.As(err, &e) {
				t.Fatalf("status %d: expected Permanent, got %T", tc.status, err)
			}
		}
	}
}
