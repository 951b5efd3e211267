package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/embedclient"
)

// uniqueViolation is Postgres's SQLSTATE for a unique-constraint
// violation, swallowed and retried as an update path.
const uniqueViolation = "23505"

// ErrThreadNotIndexed is returned by UpsertComment when the parent thread
// does not exist yet; the caller should fetch_thread and retry.
var ErrThreadNotIndexed = errors.New("parent thread not indexed")

// PGStore composes a Postgres relational store (threads/comments/jobs,
// transactional, row-locked) with a Qdrant vector index, joined by a
// deterministic per-thread point id -- see DESIGN.md's Open Question
// resolution for why this split instead of a single backend.
type PGStore struct {
	pool      *pgxpool.Pool
	vec       vectorIndex
	embedder  embedclient.Embedder
	botLogins []string
}

// Config bundles the dependencies New needs to build a PGStore.
type Config struct {
	ConnString     string
	MaxConnections int32
	QdrantURL      string
	QdrantAPIKey   string
	QdrantCollection string
	Embedder       embedclient.Embedder
	BotLogins      []string
}

// New connects to Postgres and Qdrant and ensures the vector collection
// exists at the configured dimension.
func New(ctx context.Context, cfg Config) (*PGStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	vec, err := newQdrantIndex(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := vec.EnsureCollection(ctx, cfg.Embedder.Dimensions()); err != nil {
		pool.Close()
		vec.Close()
		return nil, err
	}

	return &PGStore{pool: pool, vec: vec, embedder: cfg.Embedder, botLogins: cfg.BotLogins}, nil
}

// Close releases the Postgres pool and the Qdrant gRPC connection.
func (s *PGStore) Close() {
	s.pool.Close()
	_ = s.vec.Close()
}

// Ping verifies the Postgres connection is reachable.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func pointIDFor(sourceID domain.SourceID) string {
	return uuid.NewMD5(uuid.NameSpaceURL, []byte(sourceID)).String()
}

// UpsertThread inserts or updates a thread by SourceID, recomputing the
// canonical text and embedding inside the same transaction so a thread
// row never persists with an embedding derived from a prior text
// version.
func (s *PGStore) UpsertThread(ctx context.Context, fields domain.Thread) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, &errs.Retryable{Op: "UpsertThread", Err: err}
	}
	defer tx.Rollback(ctx)

	pointID := pointIDFor(fields.SourceID)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO threads (source_id, source, title, body, is_pull_request, number, html_url, api_url, author_login, repository_id, qdrant_point_id, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '', now(), now())
		ON CONFLICT (source_id) DO UPDATE SET
			title = EXCLUDED.title, body = EXCLUDED.body, html_url = EXCLUDED.html_url,
			api_url = EXCLUDED.api_url, author_login = EXCLUDED.author_login, updated_at = now()
		RETURNING id
	`, fields.SourceID, fields.Source, fields.Title, fields.Body, fields.IsPullRequest, fields.Number,
		fields.HTMLURL, fields.APIURL, fields.AuthorLogin, fields.RepositoryID, pointID).Scan(&id)
	if err != nil {
		return 0, classifyPGError("UpsertThread", err)
	}

	if err := s.recomputeEmbedding(ctx, tx, id, pointID, fields.Title, fields.Body); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &errs.Retryable{Op: "UpsertThread", Err: err}
	}
	return id, nil
}

// recomputeEmbedding re-reads non-bot comments for threadID, recomputes
// canonical text, and -- only if the content hash changed -- calls the
// embedder and upserts the vector. Must run inside the caller's tx so the
// row lock covers the whole read-modify-write.
func (s *PGStore) recomputeEmbedding(ctx context.Context, tx pgx.Tx, threadID int64, pointID, title, body string) error {
	rows, err := tx.Query(ctx, `
		SELECT body FROM comments WHERE thread_id = $1 AND is_bot = false ORDER BY created_at ASC
	`, threadID)
	if err != nil {
		return &errs.Retryable{Op: "recomputeEmbedding", Err: err}
	}
	var bodies []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			rows.Close()
			return &errs.Retryable{Op: "recomputeEmbedding", Err: err}
		}
		bodies = append(bodies, b)
	}
	rows.Close()

	canonical := domain.CanonicalText(title, body, bodies)
	hash := domain.ContentHash(canonical)

	var storedHash string
	if err := tx.QueryRow(ctx, `SELECT content_hash FROM threads WHERE id = $1`, threadID).Scan(&storedHash); err != nil {
		return &errs.Retryable{Op: "recomputeEmbedding", Err: err}
	}
	if storedHash == hash {
		return nil // canonical text unchanged, skip the embed call and write
	}

	vector, err := s.embedder.Embed(ctx, canonical)
	if err != nil {
		return err
	}
	if err := s.vec.Upsert(ctx, pointID, ToHalfVector(vector)); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE threads SET content_hash = $1, updated_at = now() WHERE id = $2`, hash, threadID); err != nil {
		return &errs.Retryable{Op: "recomputeEmbedding", Err: err}
	}
	return nil
}

// UpsertComment inserts or updates a comment under parentSourceID and
// recomputes the parent's embedding in the same transaction.
func (s *PGStore) UpsertComment(ctx context.Context, fields domain.Comment, parentSourceID domain.SourceID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &errs.Retryable{Op: "UpsertComment", Err: err}
	}
	defer tx.Rollback(ctx)

	var threadID int64
	var title, body, pointID string
	err = tx.QueryRow(ctx, `
		SELECT id, title, body, qdrant_point_id FROM threads WHERE source_id = $1 FOR UPDATE
	`, parentSourceID).Scan(&threadID, &title, &body, &pointID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrThreadNotIndexed
		}
		return &errs.Retryable{Op: "UpsertComment", Err: err}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO comments (source_id, thread_id, body, author_login, url, is_bot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (source_id) DO UPDATE SET body = EXCLUDED.body, is_bot = EXCLUDED.is_bot, updated_at = now()
	`, fields.SourceID, threadID, fields.Body, fields.AuthorLogin, fields.URL, fields.IsBot)
	if err != nil {
		return classifyPGError("UpsertComment", err)
	}

	if err := s.recomputeEmbedding(ctx, tx, threadID, pointID, title, body); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &errs.Retryable{Op: "UpsertComment", Err: err}
	}
	return nil
}

// DeleteThread removes a thread (comments cascade via FK) and its vector.
func (s *PGStore) DeleteThread(ctx context.Context, sourceID domain.SourceID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &errs.Retryable{Op: "DeleteThread", Err: err}
	}
	defer tx.Rollback(ctx)

	var pointID string
	err = tx.QueryRow(ctx, `DELETE FROM threads WHERE source_id = $1 RETURNING qdrant_point_id`, sourceID).Scan(&pointID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil // already gone, delete is idempotent
		}
		return &errs.Retryable{Op: "DeleteThread", Err: err}
	}

	if err := s.vec.Delete(ctx, pointID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &errs.Retryable{Op: "DeleteThread", Err: err}
	}
	return nil
}

// DeleteComment removes a comment and refreshes its parent's embedding.
func (s *PGStore) DeleteComment(ctx context.Context, sourceID domain.SourceID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &errs.Retryable{Op: "DeleteComment", Err: err}
	}
	defer tx.Rollback(ctx)

	var threadID int64
	err = tx.QueryRow(ctx, `DELETE FROM comments WHERE source_id = $1 RETURNING thread_id`, sourceID).Scan(&threadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return &errs.Retryable{Op: "DeleteComment", Err: err}
	}

	var title, body, pointID string
	err = tx.QueryRow(ctx, `SELECT title, body, qdrant_point_id FROM threads WHERE id = $1 FOR UPDATE`, threadID).Scan(&title, &body, &pointID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tx.Commit(ctx) // parent already gone
		}
		return &errs.Retryable{Op: "DeleteComment", Err: err}
	}

	if err := s.recomputeEmbedding(ctx, tx, threadID, pointID, title, body); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &errs.Retryable{Op: "DeleteComment", Err: err}
	}
	return nil
}

// Nearest runs cosine k-NN against the vector index and hydrates the
// matching thread rows, filtering the excluded source id and bot threads.
func (s *PGStore) Nearest(ctx context.Context, vector []float32, k int, exclude domain.SourceID) ([]NearestResult, error) {
	hits, err := s.vec.Search(ctx, ToHalfVector(vector), k+5) // fetch a buffer to survive filtering
	if err != nil {
		return nil, err
	}

	results := make([]NearestResult, 0, k)
	for _, hit := range hits {
		if len(results) >= k {
			break
		}
		var t domain.Thread
		err := s.pool.QueryRow(ctx, `
			SELECT source_id, source, title, body, is_pull_request, number, html_url, api_url, author_login, repository_id, created_at, updated_at
			FROM threads WHERE qdrant_point_id = $1
		`, hit.PointID).Scan(&t.SourceID, &t.Source, &t.Title, &t.Body, &t.IsPullRequest, &t.Number,
			&t.HTMLURL, &t.APIURL, &t.AuthorLogin, &t.RepositoryID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			continue // point exists in Qdrant but the thread row is gone (race with delete); skip
		}
		if t.SourceID == exclude {
			continue
		}
		if domain.IsBotAuthor(t.AuthorLogin, t.Body, s.botLogins) {
			continue
		}
		results = append(results, NearestResult{Thread: t, Score: hit.Score})
	}
	return results, nil
}

// ClaimJob returns the oldest job of the given type, or nil if none
// exists. The Job Engine runs exactly one worker goroutine per job kind,
// so no cross-process lease is needed -- the row-level lock used by
// UpsertThread/UpsertComment is what actually serializes concurrent
// webhook and backfill writes to the same thread.
func (s *PGStore) ClaimJob(ctx context.Context, jobType domain.JobType) (*domain.Job, error) {
	var j domain.Job
	var repoID *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, job_type, repository_id, data, created_at, updated_at
		FROM jobs WHERE job_type = $1 ORDER BY created_at ASC LIMIT 1
	`, jobType).Scan(&j.ID, &j.JobType, &repoID, &j.Data, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &errs.Retryable{Op: "ClaimJob", Err: err}
	}
	if repoID != nil {
		j.RepositoryID = *repoID
	}
	return &j, nil
}

// UpdateJobProgress persists a job's opaque progress blob.
func (s *PGStore) UpdateJobProgress(ctx context.Context, id int64, data []byte) error {
	_, err := s.pool.Exec(ctx, `UPDATE jobs SET data = $1, updated_at = now() WHERE id = $2`, data, id)
	if err != nil {
		return &errs.Retryable{Op: "UpdateJobProgress", Err: err}
	}
	return nil
}

// DeleteJob drops a job row.
func (s *PGStore) DeleteJob(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return &errs.Retryable{Op: "DeleteJob", Err: err}
	}
	return nil
}

// EnqueueJob inserts a job, deduplicated by the type's uniqueness
// constraint (a partial unique index on job_type for
// embeddings_regeneration, a unique (job_type, repository_id) for
// issue_indexation). If one already exists, it is returned unchanged.
func (s *PGStore) EnqueueJob(ctx context.Context, jobType domain.JobType, repositoryID string) (*domain.Job, error) {
	var repoIDArg interface{}
	if repositoryID != "" {
		repoIDArg = repositoryID
	}

	var j domain.Job
	var repoID *string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO jobs (job_type, repository_id, data, created_at, updated_at)
		VALUES ($1, $2, '{}', now(), now())
		ON CONFLICT DO NOTHING
		RETURNING id, job_type, repository_id, data, created_at, updated_at
	`, jobType, repoIDArg).Scan(&j.ID, &j.JobType, &repoID, &j.Data, &j.CreatedAt, &j.UpdatedAt)
	if err == nil {
		if repoID != nil {
			j.RepositoryID = *repoID
		}
		return &j, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, &errs.Retryable{Op: "EnqueueJob", Err: err}
	}

	// Conflict: a job already exists for this key, fetch and return it.
	query := `SELECT id, job_type, repository_id, data, created_at, updated_at FROM jobs WHERE job_type = $1`
	args := []interface{}{jobType}
	if repositoryID != "" {
		query += ` AND repository_id = $2`
		args = append(args, repositoryID)
	}
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&j.ID, &j.JobType, &repoID, &j.Data, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, &errs.Retryable{Op: "EnqueueJob", Err: err}
	}
	if repoID != nil {
		j.RepositoryID = *repoID
	}
	return &j, nil
}

// GetJob reads a job row by id without locking it, for the CLI's
// jobs-watch progress display.
func (s *PGStore) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	var j domain.Job
	var repoID *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, job_type, repository_id, data, created_at, updated_at FROM jobs WHERE id = $1
	`, id).Scan(&j.ID, &j.JobType, &repoID, &j.Data, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &errs.Retryable{Op: "GetJob", Err: err}
	}
	if repoID != nil {
		j.RepositoryID = *repoID
	}
	return &j, nil
}

// ThreadsAfter streams threads in ascending id order, the keyset cursor
// embeddings_regeneration pages through (RegenerationProgress.LastThreadID).
func (s *PGStore) ThreadsAfter(ctx context.Context, afterID int64, limit int) ([]domain.Thread, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, source, title, body, is_pull_request, number, html_url, api_url, author_login, repository_id, created_at, updated_at
		FROM threads WHERE id > $1 ORDER BY id ASC LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, &errs.Retryable{Op: "ThreadsAfter", Err: err}
	}
	defer rows.Close()

	var threads []domain.Thread
	for rows.Next() {
		var t domain.Thread
		if err := rows.Scan(&t.ID, &t.SourceID, &t.Source, &t.Title, &t.Body, &t.IsPullRequest, &t.Number,
			&t.HTMLURL, &t.APIURL, &t.AuthorLogin, &t.RepositoryID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, &errs.Retryable{Op: "ThreadsAfter", Err: err}
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.Retryable{Op: "ThreadsAfter", Err: err}
	}
	return threads, nil
}

// ReembedThread forces a recompute of a thread's embedding, ignoring the
// content-hash shortcut recomputeEmbedding otherwise uses to skip
// unchanged text.
func (s *PGStore) ReembedThread(ctx context.Context, sourceID domain.SourceID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &errs.Retryable{Op: "ReembedThread", Err: err}
	}
	defer tx.Rollback(ctx)

	var threadID int64
	var title, body, pointID string
	err = tx.QueryRow(ctx, `
		SELECT id, title, body, qdrant_point_id FROM threads WHERE source_id = $1 FOR UPDATE
	`, sourceID).Scan(&threadID, &title, &body, &pointID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil // thread deleted since ThreadsAfter was paged
		}
		return &errs.Retryable{Op: "ReembedThread", Err: err}
	}

	if _, err := tx.Exec(ctx, `UPDATE threads SET content_hash = '' WHERE id = $1`, threadID); err != nil {
		return &errs.Retryable{Op: "ReembedThread", Err: err}
	}
	if err := s.recomputeEmbedding(ctx, tx, threadID, pointID, title, body); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &errs.Retryable{Op: "ReembedThread", Err: err}
	}
	return nil
}

func classifyPGError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &errs.Conflict{Msg: op + ": " + pgErr.ConstraintName}
	}
	return &errs.Retryable{Op: op, Err: err}
}

var _ Store = (*PGStore)(nil)
