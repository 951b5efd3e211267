// Package reducer maps a classified webhook Event to the Store mutations
// and Suggestion Path trigger it implies, dispatching on event kind
// rather than running a fixed linear step list.
package reducer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/embedclient"
	"github.com/simili-bot/issuebot/internal/forge"
	"github.com/simili-bot/issuebot/internal/store"
	"github.com/simili-bot/issuebot/internal/webhook"
)

// SuggestionPath is the narrow contract the Reducer needs to trigger a
// similarity search after a successful ThreadOpened; internal/suggest.Path
// satisfies this.
type SuggestionPath interface {
	Suggest(ctx context.Context, thread domain.Thread, queryVector []float32) error
}

// Reducer dispatches each event kind to its Store mutation(s) and, for a
// newly opened thread, triggers the Suggestion Path.
type Reducer struct {
	Store     store.Store
	Embedder  embedclient.Embedder
	Forges    map[domain.Forge]forge.Client
	Suggest   SuggestionPath
	BotLogins []string
	Logger    *zap.Logger
}

// Reduce implements webhook.Reducer.
func (r *Reducer) Reduce(ctx context.Context, event webhook.Event) error {
	switch event.Kind {
	case webhook.ThreadOpened:
		return r.reduceThreadOpened(ctx, event)
	case webhook.ThreadEdited:
		return r.reduceThreadEdited(ctx, event)
	case webhook.ThreadDeleted:
		return r.Store.DeleteThread(ctx, event.SourceID)
	case webhook.CommentCreated:
		return r.reduceCommentCreated(ctx, event)
	case webhook.CommentEdited:
		return r.reduceCommentEdited(ctx, event)
	case webhook.CommentDeleted:
		return r.Store.DeleteComment(ctx, event.SourceID)
	default:
		return nil // Unsupported: no-op
	}
}

// rule 1: fetch author bot-marker from payload; if bot, drop. Else embed
// title+body, upsert thread, then trigger the Suggestion Path.
func (r *Reducer) reduceThreadOpened(ctx context.Context, event webhook.Event) error {
	thread := event.Thread
	if domain.IsBotAuthor(thread.AuthorLogin, thread.Body, r.BotLogins) {
		return &errs.Permanent{Op: "ThreadOpened", Err: fmt.Errorf("dropped: bot-authored thread %s", thread.SourceID)}
	}

	if _, err := r.Store.UpsertThread(ctx, thread); err != nil {
		return err
	}

	canonical := domain.CanonicalText(thread.Title, thread.Body, nil)
	vector, err := r.Embedder.Embed(ctx, canonical)
	if err != nil {
		r.Logger.Warn("suggestion path skipped: embed failed", zap.String("source_id", string(thread.SourceID)), zap.Error(err))
		return nil
	}

	// Fire-and-forget, detached from the request context so a slow
	// suggestion post never blocks the webhook's ack.
	go func() {
		bgCtx := context.Background()
		if err := r.Suggest.Suggest(bgCtx, thread, vector); err != nil {
			r.Logger.Warn("suggestion path failed", zap.String("source_id", string(thread.SourceID)), zap.Error(err))
		}
	}()

	return nil
}

// rule 2: read existing thread by source_id; if absent, treat as
// ThreadOpened. UpsertThread's ON CONFLICT upsert already covers both
// cases in one call, and recomputes canonical text + embedding from the
// comments visible inside its own transaction.
func (r *Reducer) reduceThreadEdited(ctx context.Context, event webhook.Event) error {
	thread := event.Thread
	if thread.SourceID == "" {
		thread.SourceID = event.SourceID
	}
	_, err := r.Store.UpsertThread(ctx, thread)
	return err
}

// rule 4: if author_is_bot, drop. Else fetch parent (create-if-missing
// via fetch_thread), insert comment, recompute parent canonical +
// embedding in same transaction (handled inside Store.UpsertComment).
func (r *Reducer) reduceCommentCreated(ctx context.Context, event webhook.Event) error {
	if event.AuthorIsBot {
		return &errs.Permanent{Op: "CommentCreated", Err: fmt.Errorf("dropped: bot-authored comment %s", event.Comment.SourceID)}
	}

	err := r.Store.UpsertComment(ctx, event.Comment, event.ParentSource)
	if errors.Is(err, store.ErrThreadNotIndexed) {
		if fetchErr := r.createMissingParent(ctx, event.ParentSource); fetchErr != nil {
			return fetchErr
		}
		err = r.Store.UpsertComment(ctx, event.Comment, event.ParentSource)
	}
	return err
}

// rule 5: if bot, drop. Update body; if parent canonical changes,
// recompute embedding (handled inside Store.UpsertComment).
func (r *Reducer) reduceCommentEdited(ctx context.Context, event webhook.Event) error {
	if event.AuthorIsBot {
		return &errs.Permanent{Op: "CommentEdited", Err: fmt.Errorf("dropped: bot-authored comment %s", event.SourceID)}
	}

	comment := domain.Comment{SourceID: event.SourceID, Body: event.NewBody}
	return r.Store.UpsertComment(ctx, comment, event.ParentSource)
}

// createMissingParent fetches the parent thread from its forge and
// upserts it, so a comment webhook that races ahead of its thread's
// indexation never loses the comment.
func (r *Reducer) createMissingParent(ctx context.Context, parentSource domain.SourceID) error {
	f, ok := r.Forges[forgeOf(parentSource)]
	if !ok {
		return &errs.Permanent{Op: "createMissingParent", Err: fmt.Errorf("no forge client for %s", parentSource)}
	}

	thread, err := f.FetchThread(ctx, parentSource)
	if err != nil {
		return err
	}
	_, err = r.Store.UpsertThread(ctx, *thread)
	return err
}

func forgeOf(sourceID domain.SourceID) domain.Forge {
	if i := strings.IndexByte(string(sourceID), '/'); i >= 0 {
		return domain.Forge(sourceID[:i])
	}
	return ""
}

var _ webhook.Reducer = (*Reducer)(nil)
