// Package jobs implements the Job Engine: two dedicated worker
// goroutines, one per job kind, each looping claim -> tick -> persist
// progress -> repeat until Done, with a jittered capped backoff between
// claim attempts when the queue is empty.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/embedclient"
	"github.com/simili-bot/issuebot/internal/forge"
	"github.com/simili-bot/issuebot/internal/store"
)

// Config tunes the Engine's polling and retry behavior.
type Config struct {
	PollInterval   time.Duration // how long an idle worker sleeps between ClaimJob attempts
	MaxRetries     uint64        // tick-level retry attempts before a job is dropped as poisoned
	RetryBase      time.Duration // base backoff between retried ticks
	RegenBatchSize int           // threads fetched per embeddings_regeneration tick
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.RegenBatchSize <= 0 {
		c.RegenBatchSize = 50
	}
	return c
}

// Engine runs the two job kinds, each on its own worker loop, sharing the
// Store's row-level locking with the Reducer so a live webhook mutation
// for a thread the backfill hasn't reached yet simply wins.
type Engine struct {
	Store     store.Store
	Forges    map[domain.Forge]forge.Client
	Embedder  embedclient.Embedder
	BotLogins []string
	Cfg       Config
	Logger    *zap.Logger
}

// Run starts both worker loops and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	cfg := e.Cfg.withDefaults()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); e.runWorker(ctx, domain.JobIssueIndexation, cfg) }()
	go func() { defer wg.Done(); e.runWorker(ctx, domain.JobEmbeddingsRegeneration, cfg) }()
	wg.Wait()

	return ctx.Err()
}

// runWorker is the claim loop for a single job kind: claim, drain to
// completion, repeat; sleeps between empty claims so an idle Engine
// doesn't hot-loop against the Store.
func (e *Engine) runWorker(ctx context.Context, jobType domain.JobType, cfg Config) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := e.Store.ClaimJob(ctx, jobType)
		if err != nil {
			e.Logger.Error("claim job failed", zap.String("job_type", string(jobType)), zap.Error(err))
			if sleepCtx(ctx, cfg.PollInterval) != nil {
				return
			}
			continue
		}
		if job == nil {
			if sleepCtx(ctx, cfg.PollInterval) != nil {
				return
			}
			continue
		}

		e.drain(ctx, job, cfg)
	}
}

// drain re-ticks a claimed job until it reports Done or a tick exhausts
// its retries, persisting progress after every successful tick.
func (e *Engine) drain(ctx context.Context, job *domain.Job, cfg Config) {
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := e.tickWithRetry(ctx, job, cfg)
		if err != nil {
			e.Logger.Error("job dropped: tick exhausted retries",
				zap.Int64("job_id", job.ID), zap.String("job_type", string(job.JobType)), zap.Error(err))
			if derr := e.Store.DeleteJob(ctx, job.ID); derr != nil {
				e.Logger.Error("failed to delete poisoned job", zap.Int64("job_id", job.ID), zap.Error(derr))
			}
			return
		}
		if result == domain.TickDone {
			if derr := e.Store.DeleteJob(ctx, job.ID); derr != nil {
				e.Logger.Error("failed to delete completed job", zap.Int64("job_id", job.ID), zap.Error(derr))
			}
			return
		}
	}
}

// tickWithRetry runs one tick, retrying with jittered capped exponential
// backoff while the failure is *errs.Retryable; a *errs.Permanent (or any
// other error) short-circuits the retry loop immediately.
func (e *Engine) tickWithRetry(ctx context.Context, job *domain.Job, cfg Config) (domain.TickResult, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackoff(cfg.RetryBase), cfg.MaxRetries), ctx)

	var result domain.TickResult
	err := backoff.Retry(func() error {
		r, tickErr := e.tick(ctx, job)
		if tickErr == nil {
			result = r
			return nil
		}

		var retryable *errs.Retryable
		if errors.As(tickErr, &retryable) {
			e.Logger.Warn("job tick failed, retrying", zap.Int64("job_id", job.ID), zap.Error(tickErr))
			return tickErr
		}
		return backoff.Permanent(tickErr)
	}, policy)

	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return domain.TickContinue, perm.Err
		}
		return domain.TickContinue, err
	}
	return result, nil
}

func newBackoff(base time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = 30 * time.Second
	return b
}

// tick dispatches to the job-kind-specific executor, which advances one
// unit of work and returns either Continue with updated progress data or
// Done.
func (e *Engine) tick(ctx context.Context, job *domain.Job) (domain.TickResult, error) {
	switch job.JobType {
	case domain.JobIssueIndexation:
		return e.tickIndexation(ctx, job)
	case domain.JobEmbeddingsRegeneration:
		return e.tickRegeneration(ctx, job)
	default:
		return domain.TickDone, &errs.Permanent{Op: "tick", Err: fmt.Errorf("unknown job type %q", job.JobType)}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
