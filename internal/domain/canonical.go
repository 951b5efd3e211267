package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CanonicalText builds the deterministic text embedded for a thread: the
// title and body, followed by each non-bot comment's body in creation
// order. Bot-authored comments must already be filtered out of `comments`
// by the caller (see IsBotAuthor) -- this function does not re-check.
func CanonicalText(title, body string, commentBodies []string) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	sb.WriteString(body)
	sb.WriteString("\n\n")
	for i, c := range commentBodies {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(c)
	}
	return sb.String()
}

// ContentHash returns the hex-encoded sha256 of a canonical text, used to
// decide whether a backfill re-embed is a no-op (same hash, skip the
// embedding call and the write).
func ContentHash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
