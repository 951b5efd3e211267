// Package server wires the HTTP surface: the webhook routes, the
// bearer-authenticated manual indexation trigger, and a health check,
// mounted on gin-gonic/gin. Metrics are served separately on their own
// port so a scraper outage can't back up the webhook path.
package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/jobs"
	"github.com/simili-bot/issuebot/internal/metrics"
	"github.com/simili-bot/issuebot/internal/webhook"
)

// Store is the narrow contract the server needs beyond what the webhook
// Handler already depends on: enqueue a backfill job and answer a
// liveness ping.
type Store interface {
	EnqueueJob(ctx context.Context, jobType domain.JobType, repositoryID string) (*domain.Job, error)
	Ping(ctx context.Context) error
}

// Server bundles the webhook Handler onto a gin.Engine plus the
// auth-gated manual indexation endpoint and health check.
type Server struct {
	Webhook   *webhook.Handler
	Store     Store
	AuthToken string
	Metrics   *metrics.Registry
	Logger    *zap.Logger
}

// Engine builds the gin.Engine serving webhooks, /index, and /health.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.Metrics != nil {
		r.Use(s.recordWebhookMetrics)
	}

	s.Webhook.Register(r)
	r.POST("/index/:owner/:repo", s.requireAuthToken, s.handleIndex)
	r.GET("/health", s.handleHealth)

	return r
}

// recordWebhookMetrics counts every /webhook/* request by forge and
// response status, independent of the Reducer's own per-event outcome
// (bot-dropped vs. applied) which only the Reducer can see.
func (s *Server) recordWebhookMetrics(c *gin.Context) {
	c.Next()

	switch c.FullPath() {
	case "/webhook/github":
		s.Metrics.WebhookEvents.WithLabelValues(string(domain.ForgeGitHub), "webhook", strconv.Itoa(c.Writer.Status())).Inc()
	case "/webhook/hf":
		s.Metrics.WebhookEvents.WithLabelValues(string(domain.ForgeHuggingFace), "webhook", strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// requireAuthToken guards /index with a constant-time bearer check
// against server.auth_token.
func (s *Server) requireAuthToken(c *gin.Context) {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	token := header[len(prefix):]
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.AuthToken)) != 1 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Next()
}

// handleIndex enqueues (or finds the existing) issue_indexation job for
// owner/repo on the forge named by the optional ?forge= query parameter
// (defaults to github), returning 202 with the job id either way (spec
// §6's dedup-by-unique-index example).
func (s *Server) handleIndex(c *gin.Context) {
	owner, repo := c.Param("owner"), c.Param("repo")

	forgeTag := domain.Forge(c.DefaultQuery("forge", string(domain.ForgeGitHub)))
	repositoryID := jobs.JobRepositoryID(forgeTag, owner, repo)

	job, err := s.Store.EnqueueJob(c.Request.Context(), domain.JobIssueIndexation, repositoryID)
	if err != nil {
		s.Logger.Error("failed to enqueue indexation job", zap.String("repository_id", repositoryID), zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

// handleHealth reports 200 only when the store's Postgres connection is
// reachable.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.Store.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusServiceUnavailable, "store unreachable")
		return
	}
	c.String(http.StatusOK, "ok")
}
