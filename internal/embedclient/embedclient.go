// Package embedclient wraps a remote embedding model: turn a text blob
// into a fixed-dimension vector, truncating oversized input rather than
// rejecting it.
package embedclient

import "context"

// Embedder is the contract the Reducer and Job Engine depend on.
type Embedder interface {
	// Embed truncates text to the configured max input size, then calls
	// the remote model. Failures are retryable (*errs.Retryable).
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the vector width this Embedder produces, used
	// at startup to assert against model.embeddings_size (a mismatch is
	// a fatal configuration error).
	Dimensions() int
}

// Truncate cuts text to at most maxChars runes rather than rejecting
// oversized input outright.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
