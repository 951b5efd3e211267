package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/forge"
)

// tickIndexation pages through one page of a repository's threads via the
// owning forge's ListThreads, upserting each thread and its full comment
// set directly through the Store -- bypassing the Reducer's ThreadOpened
// Suggestion Path trigger, since a backfill sweep must not post a
// suggestion reply against every pre-existing issue.
func (e *Engine) tickIndexation(ctx context.Context, job *domain.Job) (domain.TickResult, error) {
	forgeTag, owner, repo, err := splitJobRepositoryID(job.RepositoryID)
	if err != nil {
		return domain.TickDone, &errs.Permanent{Op: "tickIndexation", Err: err}
	}
	client, ok := e.Forges[forgeTag]
	if !ok {
		return domain.TickDone, &errs.Permanent{Op: "tickIndexation", Err: fmt.Errorf("no forge client configured for %q", forgeTag)}
	}

	var progress domain.IndexationProgress
	if len(job.Data) > 0 {
		if err := json.Unmarshal(job.Data, &progress); err != nil {
			return domain.TickDone, &errs.Permanent{Op: "tickIndexation", Err: err}
		}
	}

	threads, nextCursor, err := client.ListThreads(ctx, domain.RepositoryID(owner, repo), progress.NextCursor)
	if err != nil {
		return domain.TickContinue, err
	}

	for _, thread := range threads {
		if domain.IsBotAuthor(thread.AuthorLogin, thread.Body, e.BotLogins) {
			continue // anti-self-index: never index the bot's own threads
		}
		if _, err := e.Store.UpsertThread(ctx, thread); err != nil {
			return domain.TickContinue, err
		}
		if err := e.indexComments(ctx, client, thread.SourceID); err != nil {
			return domain.TickContinue, err
		}
	}

	progress.NextCursor = nextCursor
	progress.PagesDone++
	data, err := json.Marshal(progress)
	if err != nil {
		return domain.TickDone, &errs.Permanent{Op: "tickIndexation", Err: err}
	}
	if err := e.Store.UpdateJobProgress(ctx, job.ID, data); err != nil {
		return domain.TickContinue, err
	}
	job.Data = data

	if nextCursor == "" {
		return domain.TickDone, nil
	}
	return domain.TickContinue, nil
}

// indexComments pages through every comment of a thread, stamping bot
// authorship before upsert so the Store's canonical-text recompute
// excludes it (anti-self-index).
func (e *Engine) indexComments(ctx context.Context, client forge.Client, threadSourceID domain.SourceID) error {
	cursor := ""
	for {
		comments, next, err := client.ListComments(ctx, threadSourceID, cursor)
		if err != nil {
			return err
		}
		for _, c := range comments {
			c.IsBot = domain.IsBotAuthor(c.AuthorLogin, c.Body, e.BotLogins)
			if err := e.Store.UpsertComment(ctx, c, threadSourceID); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}

// splitJobRepositoryID parses the "{forge}/{owner}/{repo}" key
// issue_indexation jobs are enqueued under -- distinct from
// domain.RepositoryID's bare "{owner}/{repo}" used on thread rows, since a
// job must know which forge client owns it.
func splitJobRepositoryID(s string) (forgeTag domain.Forge, owner, repo string, err error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid job repository id %q, want forge/owner/repo", s)
	}
	return domain.Forge(parts[0]), parts[1], parts[2], nil
}

// JobRepositoryID builds the forge-qualified key issue_indexation jobs are
// enqueued and deduplicated under.
func JobRepositoryID(forgeTag domain.Forge, owner, repo string) string {
	return fmt.Sprintf("%s/%s/%s", forgeTag, owner, repo)
}
