package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/simili-bot/issuebot/internal/core/errs"
)

// VerifyGitHub checks the "X-Hub-Signature-256: sha256=<hex>" header
// against the raw body using the configured secret. crypto/hmac and
// crypto/sha256 directly -- no third-party HMAC library exists in the
// corpus, and the standard library is the idiomatic way to do this.
func VerifyGitHub(secret string, body []byte, header string) error {
	sig := strings.TrimPrefix(header, "sha256=")
	if sig == "" {
		return &errs.Signature{Msg: "missing X-Hub-Signature-256 header"}
	}
	return verifyHex(secret, body, sig)
}

// VerifyHuggingFace checks the "X-Webhook-Signature: <hex>" header. The
// HF-like forge's webhook docs describe an HMAC-SHA256 scheme symmetric
// to GitHub's, just without the "sha256=" algorithm prefix.
func VerifyHuggingFace(secret string, body []byte, header string) error {
	if header == "" {
		return &errs.Signature{Msg: "missing X-Webhook-Signature header"}
	}
	return verifyHex(secret, body, header)
}

func verifyHex(secret string, body []byte, sigHex string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(sigHex), []byte(expected)) {
		return &errs.Signature{Msg: "signature mismatch"}
	}
	return nil
}
