package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
)

// Reducer is the narrow contract the webhook handler needs: apply a
// classified Event and acknowledge that persistence has been planned.
// internal/reducer.Reducer satisfies this.
type Reducer interface {
	Reduce(ctx context.Context, event Event) error
}

// JobEnqueuer is the narrow contract the webhook handler needs to fall
// back to a full re-index when the Reducer can't finish inline within
// ackDeadline. internal/store.Store satisfies this.
type JobEnqueuer interface {
	EnqueueJob(ctx context.Context, jobType domain.JobType, repositoryID string) (*domain.Job, error)
}

// enqueueTimeout bounds the fallback EnqueueJob call itself, independent
// of the already-expired ackDeadline context.
const enqueueTimeout = 2 * time.Second

// ackDeadline bounds how long a webhook handler waits on the Reducer
// before the request itself must return; past this deadline the handler
// falls back to enqueuing an indexation job instead of finishing the
// full ingestion inline.
const ackDeadline = 3 * time.Second

// Handler wires HMAC verification + Event classification + the Reducer
// onto gin routes.
type Handler struct {
	GithubSecret      string
	HuggingFaceSecret string
	BotLogins         []string
	Reducer           Reducer
	Jobs              JobEnqueuer
	Logger            *zap.Logger
}

// Register mounts /webhook/github and /webhook/hf on r.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/webhook/github", h.handleGitHub)
	r.POST("/webhook/hf", h.handleHuggingFace)
}

func (h *Handler) handleGitHub(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 5<<20))
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read body")
		return
	}

	if err := VerifyGitHub(h.GithubSecret, body, c.GetHeader("X-Hub-Signature-256")); err != nil {
		h.Logger.Warn("github webhook signature rejected", zap.Error(err))
		c.String(http.StatusBadRequest, "bad signature")
		return
	}

	event, err := ClassifyGitHub(c.GetHeader("X-GitHub-Event"), body, h.BotLogins)
	if err != nil {
		h.Logger.Warn("github webhook payload rejected", zap.Error(err))
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	h.dispatch(c, event)
}

func (h *Handler) handleHuggingFace(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 5<<20))
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read body")
		return
	}

	if err := VerifyHuggingFace(h.HuggingFaceSecret, body, c.GetHeader("X-Webhook-Signature")); err != nil {
		h.Logger.Warn("hf webhook signature rejected", zap.Error(err))
		c.String(http.StatusBadRequest, "bad signature")
		return
	}

	event, err := ClassifyHuggingFace(body, h.BotLogins)
	if err != nil {
		h.Logger.Warn("hf webhook payload rejected", zap.Error(err))
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	h.dispatch(c, event)
}

func (h *Handler) dispatch(c *gin.Context, event Event) {
	if event.Kind == Unsupported {
		c.Status(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ackDeadline)
	defer cancel()

	if err := h.Reducer.Reduce(ctx, event); err != nil {
		var permanent *errs.Permanent
		if errors.As(err, &permanent) {
			h.Logger.Warn("reducer dropped event", zap.Error(err))
			c.Status(http.StatusOK) // bot-authored or otherwise not our event to index
			return
		}

		if errors.Is(err, context.DeadlineExceeded) {
			h.fallbackToIndexationJob(c, event)
			return
		}

		h.Logger.Error("reducer failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "store failure")
		return
	}

	c.Status(http.StatusAccepted)
}

// fallbackToIndexationJob enqueues a repository-wide issue_indexation job
// when the Reducer couldn't finish inline within ackDeadline, so the
// thread still gets indexed on the next backfill pass instead of being
// silently dropped.
func (h *Handler) fallbackToIndexationJob(c *gin.Context, event Event) {
	repositoryID := repositoryIDFor(event)
	if repositoryID == "" || h.Jobs == nil {
		h.Logger.Error("reducer timed out with no repository to fall back on")
		c.String(http.StatusInternalServerError, "store failure")
		return
	}

	enqueueCtx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	if _, err := h.Jobs.EnqueueJob(enqueueCtx, domain.JobIssueIndexation, repositoryID); err != nil {
		h.Logger.Error("failed to enqueue fallback indexation job", zap.String("repository_id", repositoryID), zap.Error(err))
		c.String(http.StatusInternalServerError, "store failure")
		return
	}

	h.Logger.Warn("reducer timed out, enqueued fallback indexation job", zap.String("repository_id", repositoryID))
	c.Status(http.StatusAccepted)
}

func repositoryIDFor(event Event) string {
	if event.Thread.RepositoryID != "" {
		return event.Thread.RepositoryID
	}
	if event.ParentSource != "" {
		return domain.RepositoryIDFromSourceID(event.ParentSource)
	}
	return domain.RepositoryIDFromSourceID(event.SourceID)
}
