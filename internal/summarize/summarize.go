// Package summarize wraps a remote chat-completion model to turn a
// thread's text into a short description and a set of tags.
package summarize

import "context"

// Summary is a thread's generated description and tag set.
type Summary struct {
	Description string
	Tags        []string
}

// Summarizer is the contract the Suggestion Path depends on. Any error
// degrades gracefully: the caller posts the suggestion without a summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*Summary, error)
}
