// Package huggingface implements forge.Client against a HuggingFace
// Hub-hosted discussion API. No HF SDK exists anywhere in the example
// corpus this codebase draws on, so this client is a documented
// standard-library exception (net/http) rather than a fabricated import
// -- see DESIGN.md.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/forge"
)

// Client implements forge.Client against the HF Hub discussion API.
type Client struct {
	baseURL    string
	token      string
	http       *http.Client
	resilience *forge.Resilience
}

// New creates a HuggingFace forge client. baseURL defaults to the public
// Hub API when empty.
func New(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://huggingface.co/api"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		http:       &http.Client{Timeout: 15 * time.Second},
		resilience: forge.NewResilience("huggingface", 5, 10),
	}
}

// parseSourceID expects "hf/{owner}/{repo}/{kind}/{number}".
func parseSourceID(sourceID domain.SourceID) (owner, repo string, number int, err error) {
	parts := strings.Split(string(sourceID), "/")
	if len(parts) != 5 || parts[0] != string(domain.ForgeHuggingFace) {
		return "", "", 0, fmt.Errorf("invalid hf source id: %s", sourceID)
	}
	n, convErr := strconv.Atoi(parts[4])
	if convErr != nil {
		return "", "", 0, fmt.Errorf("invalid discussion number in source id %s: %w", sourceID, convErr)
	}
	return parts[1], parts[2], n, nil
}

type discussionResponse struct {
	Title  string `json:"title"`
	Status string `json:"status"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
	Events []struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	} `json:"events"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &errs.Permanent{Op: "doJSON", Err: err}
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &errs.Permanent{Op: "doJSON", Err: err}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &errs.Retryable{Op: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &errs.NotFound{SourceID: path}
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return &errs.Retryable{Op: path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return &errs.Permanent{Op: path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.Retryable{Op: path, Err: err}
	}
	return nil
}

// FetchThread fetches a discussion's current metadata and opening body.
func (c *Client) FetchThread(ctx context.Context, sourceID domain.SourceID) (*domain.Thread, error) {
	owner, repo, number, err := parseSourceID(sourceID)
	if err != nil {
		return nil, &errs.Permanent{Op: "FetchThread", Err: err}
	}

	path := fmt.Sprintf("/models/%s/%s/discussions/%d", owner, repo, number)
	var resp discussionResponse
	runErr := c.resilience.Do(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	})
	if runErr != nil {
		return nil, runErr
	}

	body := ""
	if len(resp.Events) > 0 {
		body = resp.Events[0].Content
	}

	return &domain.Thread{
		SourceID:     sourceID,
		Source:       domain.ForgeHuggingFace,
		Title:        resp.Title,
		Body:         body,
		Number:       number,
		HTMLURL:      fmt.Sprintf("https://huggingface.co/%s/%s/discussions/%d", owner, repo, number),
		AuthorLogin:  resp.Author.Name,
		RepositoryID: domain.RepositoryID(owner, repo),
	}, nil
}

// ListComments returns one page of discussion comments. HF discussions
// are small enough that the whole event list is one page; cursor is
// always empty on return.
func (c *Client) ListComments(ctx context.Context, sourceID domain.SourceID, cursor string) ([]domain.Comment, string, error) {
	owner, repo, number, err := parseSourceID(sourceID)
	if err != nil {
		return nil, "", &errs.Permanent{Op: "ListComments", Err: err}
	}
	if cursor != "" {
		return nil, "", nil // already exhausted
	}

	path := fmt.Sprintf("/models/%s/%s/discussions/%d", owner, repo, number)
	var resp discussionResponse
	runErr := c.resilience.Do(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	})
	if runErr != nil {
		return nil, "", runErr
	}

	var comments []domain.Comment
	for i, ev := range resp.Events {
		if i == 0 || ev.Type != "comment" {
			continue // events[0] is the opening post, already the Thread body
		}
		comments = append(comments, domain.Comment{
			SourceID: domain.CommentSourceID(sourceID, int64(i)),
			Body:     ev.Content,
		})
	}
	return comments, "", nil
}

// PostReply posts a comment on the discussion.
func (c *Client) PostReply(ctx context.Context, sourceID domain.SourceID, text string) error {
	owner, repo, number, err := parseSourceID(sourceID)
	if err != nil {
		return &errs.Permanent{Op: "PostReply", Err: err}
	}

	path := fmt.Sprintf("/models/%s/%s/discussions/%d/comment", owner, repo, number)
	return c.resilience.Do(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, map[string]string{"comment": text}, nil)
	})
}

type discussionListResponse struct {
	Discussions []struct {
		Num    int    `json:"num"`
		Title  string `json:"title"`
		Status string `json:"status"`
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"discussions"`
}

// ListThreads pages through every discussion of a repository (the
// issue_indexation job's backfill source), using the page-number query
// param the Hub discussion-listing endpoint accepts. cursor is the page
// number, empty meaning "start from page 1"; an empty result page ends
// iteration.
func (c *Client) ListThreads(ctx context.Context, repositoryID string, cursor string) ([]domain.Thread, string, error) {
	owner, repo, err := splitRepositoryID(repositoryID)
	if err != nil {
		return nil, "", &errs.Permanent{Op: "ListThreads", Err: err}
	}

	page := 0
	if cursor != "" {
		page, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", &errs.Permanent{Op: "ListThreads", Err: fmt.Errorf("invalid cursor %q: %w", cursor, err)}
		}
	}

	path := fmt.Sprintf("/models/%s/%s/discussions?p=%d", owner, repo, page)
	var resp discussionListResponse
	runErr := c.resilience.Do(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	})
	if runErr != nil {
		return nil, "", runErr
	}

	if len(resp.Discussions) == 0 {
		return nil, "", nil
	}

	threads := make([]domain.Thread, len(resp.Discussions))
	for i, d := range resp.Discussions {
		threads[i] = domain.Thread{
			SourceID:     domain.ThreadSourceID(domain.ForgeHuggingFace, owner, repo, domain.KindDiscussion, d.Num),
			Source:       domain.ForgeHuggingFace,
			Title:        d.Title,
			Number:       d.Num,
			HTMLURL:      fmt.Sprintf("https://huggingface.co/%s/%s/discussions/%d", owner, repo, d.Num),
			AuthorLogin:  d.Author.Name,
			RepositoryID: domain.RepositoryID(owner, repo),
		}
	}
	return threads, strconv.Itoa(page + 1), nil
}

func splitRepositoryID(repositoryID string) (owner, repo string, err error) {
	parts := strings.SplitN(repositoryID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository id: %s", repositoryID)
	}
	return parts[0], parts[1], nil
}

var _ forge.Client = (*Client)(nil)
