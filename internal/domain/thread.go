// Package domain holds the core data model shared by every layer of the
// bot: the Store, the Reducer, the Forge clients, and the Suggestion Path.
package domain

import "time"

// SourceID is the globally unique key of a Thread or Comment:
// "{forge}/{owner}/{repo}/{kind}/{number}" for threads,
// with an extra "/comment/{id}" suffix for comments.
type SourceID string

// Forge tags a thread/comment's origin.
type Forge string

const (
	ForgeGitHub      Forge = "github"
	ForgeHuggingFace Forge = "hf"
)

// ThreadKind distinguishes issues, pull requests, and discussions.
type ThreadKind string

const (
	KindIssue      ThreadKind = "issue"
	KindPullReq    ThreadKind = "pr"
	KindDiscussion ThreadKind = "discussion"
)

// Thread is one row per issue/PR/discussion.
type Thread struct {
	ID             int64
	SourceID       SourceID
	Source         Forge
	Title          string
	Body           string
	IsPullRequest  bool
	Number         int
	HTMLURL        string
	APIURL         string
	AuthorLogin    string
	RepositoryID   string // "{owner}/{repo}", used for job dedup
	QdrantPointID  string // deterministic UUIDv5(source_id), joins Store halves
	ContentHash    string // sha256 of canonical text, decides no-op re-embeds
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Comment is one row per comment/review/review-comment on a Thread.
type Comment struct {
	ID          int64
	SourceID    SourceID
	ThreadID    int64
	Body        string
	AuthorLogin string
	URL         string
	IsBot       bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
