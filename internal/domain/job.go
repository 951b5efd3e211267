package domain

import "time"

// JobType enumerates the two kinds of background work the Job Engine runs.
type JobType string

const (
	JobIssueIndexation        JobType = "issue_indexation"
	JobEmbeddingsRegeneration JobType = "embeddings_regeneration"
)

// Job is a persisted unit of long-running background work, singleton per
// key: at most one issue_indexation per RepositoryID, at most one
// embeddings_regeneration globally.
type Job struct {
	ID           int64
	JobType      JobType
	RepositoryID string // empty for embeddings_regeneration
	Data         []byte // opaque progress blob (JSON): next cursor, etc.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TickResult is the three-way outcome of one Job Engine tick: Continue,
// Done, or Fail-retry.
type TickResult int

const (
	TickContinue TickResult = iota
	TickDone
	TickFailRetry
)

// IndexationProgress is the Data payload for an issue_indexation job.
type IndexationProgress struct {
	NextCursor string `json:"next_cursor"`
	PagesDone  int    `json:"pages_done"`
}

// RegenerationProgress is the Data payload for an embeddings_regeneration job.
type RegenerationProgress struct {
	LastThreadID int64 `json:"last_thread_id"`
	Processed    int   `json:"processed"`
}
