package jobs

import (
	"context"
	"encoding/json"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
)

// tickRegeneration streams one batch of threads (ordered by internal id)
// past the cursor in RegenerationProgress.LastThreadID and force-recomputes
// each one's embedding, for when the configured model's dimensionality
// changes and every vector must be rebuilt regardless of whether the
// canonical text itself changed.
func (e *Engine) tickRegeneration(ctx context.Context, job *domain.Job) (domain.TickResult, error) {
	var progress domain.RegenerationProgress
	if len(job.Data) > 0 {
		if err := json.Unmarshal(job.Data, &progress); err != nil {
			return domain.TickDone, &errs.Permanent{Op: "tickRegeneration", Err: err}
		}
	}

	batchSize := e.Cfg.withDefaults().RegenBatchSize
	threads, err := e.Store.ThreadsAfter(ctx, progress.LastThreadID, batchSize)
	if err != nil {
		return domain.TickContinue, err
	}
	if len(threads) == 0 {
		return domain.TickDone, nil
	}

	for _, thread := range threads {
		if err := e.Store.ReembedThread(ctx, thread.SourceID); err != nil {
			return domain.TickContinue, err
		}
		progress.LastThreadID = thread.ID
		progress.Processed++
	}

	data, err := json.Marshal(progress)
	if err != nil {
		return domain.TickDone, &errs.Permanent{Op: "tickRegeneration", Err: err}
	}
	if err := e.Store.UpdateJobProgress(ctx, job.ID, data); err != nil {
		return domain.TickContinue, err
	}
	job.Data = data

	if len(threads) < batchSize {
		return domain.TickDone, nil
	}
	return domain.TickContinue, nil
}
