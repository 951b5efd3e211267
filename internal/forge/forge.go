// Package forge defines the abstract contract shared by every upstream
// code-hosting service the bot talks to (GitHub, HuggingFace): fetch a
// thread, page through its comments, and post a reply.
package forge

import (
	"context"

	"github.com/simili-bot/issuebot/internal/domain"
)

// Client is the capability set every forge integration implements,
// interchangeable behind a shared interface so the Reducer and Job
// Engine are forge-agnostic. A tagged variant at the webhook router picks the
// concrete client from event origin.
type Client interface {
	// FetchThread fetches a thread's current metadata and body. A 404
	// from the underlying forge is surfaced as *errs.NotFound so the
	// caller can downgrade to a delete mutation.
	FetchThread(ctx context.Context, sourceID domain.SourceID) (*domain.Thread, error)

	// ListComments returns one page of comments plus the cursor for the
	// next page (empty string when exhausted).
	ListComments(ctx context.Context, sourceID domain.SourceID, cursor string) ([]domain.Comment, string, error)

	// ListThreads pages through every open and closed thread of a
	// repository (issue_indexation's backfill source), returning the
	// cursor for the next page (empty string when exhausted).
	ListThreads(ctx context.Context, repositoryID string, cursor string) ([]domain.Thread, string, error)

	// PostReply posts a reply to the thread. Callers must only invoke
	// this when the forge's comments_enabled is true; otherwise route
	// to the Slack sink instead.
	PostReply(ctx context.Context, sourceID domain.SourceID, text string) error
}
