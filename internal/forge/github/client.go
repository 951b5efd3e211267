// Package github implements forge.Client against the GitHub REST API via
// google/go-github, adapted from this codebase's original GitHub
// integration (same client shape, generalized from issue-only calls to
// the issue/PR-shaped Thread the Reducer works with).
package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	ghapi "github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/forge"
)

// Client implements forge.Client against GitHub.
type Client struct {
	api        *ghapi.Client
	resilience *forge.Resilience
}

// New creates a GitHub forge client authenticated with a bearer token. An
// empty token yields an unauthenticated client (read-only, low rate
// limit) -- useful for tests against public repos.
func New(token string) *Client {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &Client{
		api:        ghapi.NewClient(hc),
		resilience: forge.NewResilience("github", 5, 10),
	}
}

// parseSourceID expects "github/{owner}/{repo}/{kind}/{number}".
func parseSourceID(sourceID domain.SourceID) (owner, repo string, kind domain.ThreadKind, number int, err error) {
	parts := strings.Split(string(sourceID), "/")
	if len(parts) != 5 || parts[0] != string(domain.ForgeGitHub) {
		return "", "", "", 0, fmt.Errorf("invalid github source id: %s", sourceID)
	}
	n, convErr := strconv.Atoi(parts[4])
	if convErr != nil {
		return "", "", "", 0, fmt.Errorf("invalid issue number in source id %s: %w", sourceID, convErr)
	}
	return parts[1], parts[2], domain.ThreadKind(parts[3]), n, nil
}

func classifyError(op string, resp *ghapi.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return &errs.NotFound{SourceID: op}
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			return &errs.Retryable{Op: op, Err: err}
		case resp.StatusCode >= 400:
			return &errs.Permanent{Op: op, Err: err}
		}
	}
	return &errs.Retryable{Op: op, Err: err}
}

// FetchThread fetches an issue or pull request's current metadata+body.
func (c *Client) FetchThread(ctx context.Context, sourceID domain.SourceID) (*domain.Thread, error) {
	owner, repo, kind, number, err := parseSourceID(sourceID)
	if err != nil {
		return nil, &errs.Permanent{Op: "FetchThread", Err: err}
	}

	var thread *domain.Thread
	runErr := c.resilience.Do(ctx, func(ctx context.Context) error {
		issue, resp, apiErr := c.api.Issues.Get(ctx, owner, repo, number)
		if apiErr != nil {
			return classifyError("FetchThread", resp, apiErr)
		}
		thread = &domain.Thread{
			SourceID:      sourceID,
			Source:        domain.ForgeGitHub,
			Title:         issue.GetTitle(),
			Body:          issue.GetBody(),
			IsPullRequest: issue.IsPullRequest() || kind == domain.KindPullReq,
			Number:        number,
			HTMLURL:       issue.GetHTMLURL(),
			APIURL:        issue.GetURL(),
			AuthorLogin:   issue.GetUser().GetLogin(),
			RepositoryID:  domain.RepositoryID(owner, repo),
		}
		return nil
	})
	if runErr != nil {
		return nil, runErr
	}
	return thread, nil
}

// ListComments returns one page of comments. cursor is the page number
// (as a string) to fetch next, empty meaning "start from page 1".
func (c *Client) ListComments(ctx context.Context, sourceID domain.SourceID, cursor string) ([]domain.Comment, string, error) {
	owner, repo, _, number, err := parseSourceID(sourceID)
	if err != nil {
		return nil, "", &errs.Permanent{Op: "ListComments", Err: err}
	}

	page := 1
	if cursor != "" {
		page, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", &errs.Permanent{Op: "ListComments", Err: fmt.Errorf("invalid cursor %q: %w", cursor, err)}
		}
	}

	var comments []domain.Comment
	var nextCursor string
	runErr := c.resilience.Do(ctx, func(ctx context.Context) error {
		opts := &ghapi.IssueListCommentsOptions{ListOptions: ghapi.ListOptions{Page: page, PerPage: 100}}
		ghComments, resp, apiErr := c.api.Issues.ListComments(ctx, owner, repo, number, opts)
		if apiErr != nil {
			return classifyError("ListComments", resp, apiErr)
		}
		comments = make([]domain.Comment, len(ghComments))
		for i, gc := range ghComments {
			comments[i] = domain.Comment{
				SourceID:    domain.CommentSourceID(sourceID, gc.GetID()),
				Body:        gc.GetBody(),
				AuthorLogin: gc.GetUser().GetLogin(),
				URL:         gc.GetHTMLURL(),
			}
		}
		if resp.NextPage != 0 {
			nextCursor = strconv.Itoa(resp.NextPage)
		}
		return nil
	})
	if runErr != nil {
		return nil, "", runErr
	}
	return comments, nextCursor, nil
}

// PostReply posts a comment on the issue/PR.
func (c *Client) PostReply(ctx context.Context, sourceID domain.SourceID, text string) error {
	owner, repo, _, number, err := parseSourceID(sourceID)
	if err != nil {
		return &errs.Permanent{Op: "PostReply", Err: err}
	}

	return c.resilience.Do(ctx, func(ctx context.Context) error {
		_, resp, apiErr := c.api.Issues.CreateComment(ctx, owner, repo, number, &ghapi.IssueComment{Body: ghapi.String(text)})
		if apiErr != nil {
			return classifyError("PostReply", resp, apiErr)
		}
		return nil
	})
}

// ListThreads pages through every issue and pull request of a repository
// (GitHub's Issues.ListByRepo returns both, discriminated by
// PullRequestLinks), backing the issue_indexation job's backfill sweep.
// cursor is the page number, empty meaning "start from page 1".
func (c *Client) ListThreads(ctx context.Context, repositoryID string, cursor string) ([]domain.Thread, string, error) {
	owner, repo, err := splitRepositoryID(repositoryID)
	if err != nil {
		return nil, "", &errs.Permanent{Op: "ListThreads", Err: err}
	}

	page := 1
	if cursor != "" {
		page, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", &errs.Permanent{Op: "ListThreads", Err: fmt.Errorf("invalid cursor %q: %w", cursor, err)}
		}
	}

	var threads []domain.Thread
	var nextCursor string
	runErr := c.resilience.Do(ctx, func(ctx context.Context) error {
		opts := &ghapi.IssueListByRepoOptions{
			State:       "all",
			ListOptions: ghapi.ListOptions{Page: page, PerPage: 100},
		}
		issues, resp, apiErr := c.api.Issues.ListByRepo(ctx, owner, repo, opts)
		if apiErr != nil {
			return classifyError("ListThreads", resp, apiErr)
		}
		threads = make([]domain.Thread, len(issues))
		for i, issue := range issues {
			kind := domain.KindIssue
			if issue.IsPullRequest() {
				kind = domain.KindPullReq
			}
			number := issue.GetNumber()
			threads[i] = domain.Thread{
				SourceID:      domain.ThreadSourceID(domain.ForgeGitHub, owner, repo, kind, number),
				Source:        domain.ForgeGitHub,
				Title:         issue.GetTitle(),
				Body:          issue.GetBody(),
				IsPullRequest: kind == domain.KindPullReq,
				Number:        number,
				HTMLURL:       issue.GetHTMLURL(),
				APIURL:        issue.GetURL(),
				AuthorLogin:   issue.GetUser().GetLogin(),
				RepositoryID:  domain.RepositoryID(owner, repo),
			}
		}
		if resp.NextPage != 0 {
			nextCursor = strconv.Itoa(resp.NextPage)
		}
		return nil
	})
	if runErr != nil {
		return nil, "", runErr
	}
	return threads, nextCursor, nil
}

func splitRepositoryID(repositoryID string) (owner, repo string, err error) {
	parts := strings.SplitN(repositoryID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository id: %s", repositoryID)
	}
	return parts[0], parts[1], nil
}

var _ forge.Client = (*Client)(nil)
