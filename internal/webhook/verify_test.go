package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/simili-bot/issuebot/internal/core/errs"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyGitHubAccepts(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	sig := "sha256=" + sign("s3cret", body)
	if err := VerifyGitHub("s3cret", body, sig); err != nil {
		t.Fatalf("expected valid signature to pass, got %v", err)
	}
}

func TestVerifyGitHubRejectsMismatch(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	err := VerifyGitHub("s3cret", body, "sha256="+sign("wrong", body))
	var sigErr *errs.Signature
	if err == nil {
		t.Fatal("expected signature rejection")
	}
	if !asSignature(err, &sigErr) {
		t.Fatalf("expected *errs.Signature, got %T", err)
	}
}

func TestVerifyGitHubRejectsMissingHeader(t *testing.T) {
	if err := VerifyGitHub("s3cret", []byte("{}"), ""); err == nil {
		t.Fatal("expected rejection for missing header")
	}
}

func TestVerifyHuggingFaceAccepts(t *testing.T) {
	body := []byte(`{"event":{"action":"create"}}`)
	if err := VerifyHuggingFace("hfsecret", body, sign("hfsecret", body)); err != nil {
		t.Fatalf("expected valid signature to pass, got %v", err)
	}
}

func asSignature(err error, target **errs.Signature) bool {
	if s, ok := err.(*errs.Signature); ok {
		*target = s
		return true
	}
	return false
}
