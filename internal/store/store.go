// Package store implements transactional persistence as a Postgres-backed
// relational half (threads, comments, jobs) composed with a Qdrant-backed
// vector half (embeddings + cosine k-NN), joined by a deterministic
// per-thread point id.
package store

import (
	"context"

	"github.com/simili-bot/issuebot/internal/domain"
)

// NearestResult pairs a thread with its cosine similarity score.
type NearestResult struct {
	Thread domain.Thread
	Score  float32
}

// Store is the single contract the Reducer, Job Engine, and Suggestion
// Path depend on.
type Store interface {
	// UpsertThread inserts or updates a thread by SourceID, recomputing
	// its embedding from fields.Title/fields.Body + stored comments in
	// the same transaction, and returns the thread's internal id.
	UpsertThread(ctx context.Context, fields domain.Thread) (int64, error)

	// UpsertComment inserts or updates a comment (by SourceID) under the
	// thread identified by parentSourceID, then recomputes the parent's
	// canonical text and embedding in the same transaction. If the
	// parent thread does not exist, ErrThreadNotIndexed is returned so
	// the caller can create-if-missing via Forge.FetchThread.
	UpsertComment(ctx context.Context, fields domain.Comment, parentSourceID domain.SourceID) error

	// DeleteThread removes a thread and cascades its comments.
	DeleteThread(ctx context.Context, sourceID domain.SourceID) error

	// DeleteComment removes a comment and triggers a canonical-text/
	// embedding refresh of its parent thread.
	DeleteComment(ctx context.Context, sourceID domain.SourceID) error

	// Nearest runs cosine k-NN over the vector index, filtering out the
	// excluded source id and any bot-authored thread.
	Nearest(ctx context.Context, vector []float32, k int, exclude domain.SourceID) ([]NearestResult, error)

	// ClaimJob atomically claims (row-locks) the next unclaimed job of
	// the given type, or returns nil if none exists.
	ClaimJob(ctx context.Context, jobType domain.JobType) (*domain.Job, error)

	// UpdateJobProgress persists a job's opaque progress blob.
	UpdateJobProgress(ctx context.Context, id int64, data []byte) error

	// DeleteJob drops a job row (called on Done).
	DeleteJob(ctx context.Context, id int64) error

	// EnqueueJob inserts a job, deduplicated by the type's uniqueness
	// constraint; if one already exists it is returned unchanged.
	EnqueueJob(ctx context.Context, jobType domain.JobType, repositoryID string) (*domain.Job, error)

	// GetJob reads a job row by id without claiming it, for the CLI's
	// jobs-watch progress display. Returns nil, nil if the job has
	// already completed and been deleted.
	GetJob(ctx context.Context, id int64) (*domain.Job, error)

	// ThreadsAfter streams threads in ascending internal-id order
	// starting after afterID, the embeddings_regeneration job's keyset
	// cursor over the full thread table.
	ThreadsAfter(ctx context.Context, afterID int64, limit int) ([]domain.Thread, error)

	// ReembedThread recomputes and re-upserts a thread's embedding
	// unconditionally, bypassing the content-hash no-op shortcut that
	// UpsertThread/UpsertComment use -- embeddings_regeneration must
	// rebuild every vector against the newly configured model even when
	// the canonical text itself hasn't changed.
	ReembedThread(ctx context.Context, sourceID domain.SourceID) error

	// Ping verifies the Postgres connection is reachable, for the
	// server's /health endpoint.
	Ping(ctx context.Context) error

	// Close releases all underlying connections (Postgres pool + Qdrant
	// gRPC connection).
	Close()
}
