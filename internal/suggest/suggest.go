// Package suggest implements the Suggestion Path: given a newly opened
// thread's query vector, find its nearest neighbors, filter by score
// floor and result count, optionally summarize the new thread, render a
// reply, and post it back to the forge or -- when that forge's comments
// are disabled -- to a Slack fallback channel.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/core/config"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/forge"
	"github.com/simili-bot/issuebot/internal/slacksink"
	"github.com/simili-bot/issuebot/internal/store"
	"github.com/simili-bot/issuebot/internal/summarize"
)

// Path implements reducer.SuggestionPath.
type Path struct {
	Store      store.Store
	Summarizer summarize.Summarizer // optional; nil degrades to no summary
	Forges     map[domain.Forge]forge.Client
	ForgeAPI   map[domain.Forge]config.ForgeAPIConfig
	Slack      slacksink.Sink // optional fallback for forges with comments disabled
	Message    config.MessageConfig
	Cfg        config.SuggestConfig
	Logger     *zap.Logger
}

// Suggest runs the full path for one newly opened thread. Errors here are
// always logged and swallowed by the Reducer's fire-and-forget caller, so
// this only returns an error for the caller's own benefit (tests, metrics).
func (p *Path) Suggest(ctx context.Context, thread domain.Thread, queryVector []float32) error {
	results, err := p.Store.Nearest(ctx, queryVector, p.Cfg.MaxResults, thread.SourceID)
	if err != nil {
		return fmt.Errorf("nearest: %w", err)
	}

	kept := filterByScoreFloor(results, p.Cfg.ScoreFloor, p.Cfg.MaxResults)
	if len(kept) < p.Cfg.MinResults {
		return nil
	}

	var summary *summarize.Summary
	if p.Summarizer != nil {
		canonical := domain.CanonicalText(thread.Title, thread.Body, nil)
		summary, err = p.Summarizer.Summarize(ctx, canonical)
		if err != nil {
			p.Logger.Warn("suggestion summary failed, posting without one",
				zap.String("source_id", string(thread.SourceID)), zap.Error(err))
			summary = nil
		}
	}

	return p.post(ctx, thread, p.render(kept, summary))
}

// filterByScoreFloor drops any result below threshold and caps the kept
// set at max, preserving the Store's descending-score order.
func filterByScoreFloor(results []store.NearestResult, threshold float32, max int) []store.NearestResult {
	kept := make([]store.NearestResult, 0, len(results))
	for _, r := range results {
		if r.Score < threshold {
			continue
		}
		kept = append(kept, r)
		if len(kept) == max {
			break
		}
	}
	return kept
}

// render composes the reply: configured pre-amble, an optional generated
// summary of the new thread, a bulleted list of neighbors, then the
// configured closing text.
func (p *Path) render(results []store.NearestResult, summary *summarize.Summary) string {
	var b strings.Builder

	if p.Message.Pre != "" {
		b.WriteString(p.Message.Pre)
		b.WriteString("\n\n")
	}

	if summary != nil && summary.Description != "" {
		b.WriteString(summary.Description)
		if len(summary.Tags) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(summary.Tags, ", "))
		}
		b.WriteString("\n\n")
	}

	for _, r := range results {
		fmt.Fprintf(&b, "- [%s](%s) (%.0f%% similar)\n", r.Thread.Title, r.Thread.HTMLURL, r.Score*100)
	}

	if p.Message.Post != "" {
		b.WriteString("\n")
		b.WriteString(p.Message.Post)
	}

	b.WriteString("\n\n")
	b.WriteString(domain.BotSentinel)

	return strings.TrimSpace(b.String())
}

// post routes the rendered message to the originating forge when it
// allows replies, otherwise to the Slack fallback sink.
func (p *Path) post(ctx context.Context, thread domain.Thread, text string) error {
	if api, ok := p.ForgeAPI[thread.Source]; ok && api.CommentsEnabled {
		client, ok := p.Forges[thread.Source]
		if !ok {
			return fmt.Errorf("no forge client configured for %s", thread.Source)
		}
		return client.PostReply(ctx, thread.SourceID, text)
	}

	if p.Slack == nil {
		return fmt.Errorf("comments disabled for %s and no slack fallback configured", thread.Source)
	}
	return p.Slack.Post(ctx, text)
}
