// Command issuebotd is the issue bot's server daemon: it serves the
// webhook/index/health HTTP surface, a separate Prometheus metrics
// listener, and runs the Job Engine's two background workers, all until
// SIGINT/SIGTERM, then shuts down gracefully.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/core/config"
	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/embedclient"
	"github.com/simili-bot/issuebot/internal/forge"
	"github.com/simili-bot/issuebot/internal/forge/github"
	"github.com/simili-bot/issuebot/internal/forge/huggingface"
	"github.com/simili-bot/issuebot/internal/jobs"
	"github.com/simili-bot/issuebot/internal/metrics"
	"github.com/simili-bot/issuebot/internal/obslog"
	"github.com/simili-bot/issuebot/internal/reducer"
	"github.com/simili-bot/issuebot/internal/server"
	"github.com/simili-bot/issuebot/internal/slacksink"
	"github.com/simili-bot/issuebot/internal/store"
	"github.com/simili-bot/issuebot/internal/suggest"
	"github.com/simili-bot/issuebot/internal/summarize"
	"github.com/simili-bot/issuebot/internal/webhook"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		exitConfig(&errs.Configuration{Msg: "load config", Err: err})
	}
	if err := cfg.Validate(); err != nil {
		exitConfig(&errs.Configuration{Msg: "validate config", Err: err})
	}

	logger, err := obslog.New(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(cfg.Database.ConnectionString); err != nil {
		fatal(logger, "failed to run migrations", err)
	}

	embedder, err := embedclient.NewGeminiEmbedder(ctx, cfg.EmbeddingAPI.AuthToken, cfg.Model.ID, cfg.Model.EmbeddingsSize, cfg.Model.MaxInputSize)
	if err != nil {
		fatal(logger, "failed to build embedder", err)
	}
	defer embedder.Close()

	st, err := store.New(ctx, store.Config{
		ConnString:       cfg.Database.ConnectionString,
		MaxConnections:   cfg.Database.MaxConnections,
		QdrantURL:        cfg.Qdrant.URL,
		QdrantAPIKey:     cfg.Qdrant.APIKey,
		QdrantCollection: cfg.Qdrant.Collection,
		Embedder:         embedder,
		BotLogins:        cfg.BotLogins,
	})
	if err != nil {
		fatal(logger, "failed to build store", err)
	}
	defer st.Close()

	forges := map[domain.Forge]forge.Client{
		domain.ForgeGitHub:      github.New(cfg.GithubAPI.AuthToken),
		domain.ForgeHuggingFace: huggingface.New(cfg.HuggingfaceAPI.AuthToken, ""),
	}
	forgeAPI := map[domain.Forge]config.ForgeAPIConfig{
		domain.ForgeGitHub:      cfg.GithubAPI,
		domain.ForgeHuggingFace: cfg.HuggingfaceAPI,
	}

	var summarizer summarize.Summarizer
	if cfg.SummarizationAPI.AuthToken != "" {
		s, err := summarize.NewGeminiSummarizer(ctx, cfg.SummarizationAPI.AuthToken, cfg.SummarizationAPI.Model, cfg.SummarizationAPI.SystemPrompt)
		if err != nil {
			logger.Fatal("failed to build summarizer", zap.Error(err))
		}
		summarizer = s
	}

	var slack slacksink.Sink
	if cfg.Slack.AuthToken != "" && cfg.Slack.Channel != "" {
		slack = slacksink.New(cfg.Slack.AuthToken, cfg.Slack.Channel)
	}

	suggestPath := &suggest.Path{
		Store:      st,
		Summarizer: summarizer,
		Forges:     forges,
		ForgeAPI:   forgeAPI,
		Slack:      slack,
		Message:    cfg.MessageConfig,
		Cfg:        cfg.Suggest,
		Logger:     logger,
	}

	red := &reducer.Reducer{
		Store:     st,
		Embedder:  embedder,
		Forges:    forges,
		Suggest:   suggestPath,
		BotLogins: cfg.BotLogins,
		Logger:    logger,
	}

	webhookHandler := &webhook.Handler{
		GithubSecret:      cfg.GithubAPI.WebhookSecret,
		HuggingFaceSecret: cfg.HuggingfaceAPI.WebhookSecret,
		BotLogins:         cfg.BotLogins,
		Reducer:           red,
		Jobs:              st,
		Logger:            logger,
	}

	metricsReg := metrics.New()

	srv := &server.Server{
		Webhook:   webhookHandler,
		Store:     st,
		AuthToken: cfg.AuthToken,
		Metrics:   metricsReg,
		Logger:    logger,
	}

	engine := &jobs.Engine{
		Store:     st,
		Forges:    forges,
		Embedder:  embedder,
		BotLogins: cfg.BotLogins,
		Logger:    logger,
	}
	jobsCtx, jobsCancel := context.WithCancel(ctx)
	defer jobsCancel()
	go func() {
		if err := engine.Run(jobsCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("job engine stopped", zap.Error(err))
		}
	}()

	httpServer := &http.Server{Addr: addr(cfg.Server.IP, cfg.Server.Port), Handler: srv.Engine()}
	metricsServer := &http.Server{Addr: addr(cfg.Server.IP, cfg.Server.MetricsPort), Handler: metricsReg.Handler()}

	go func() {
		logger.Info("serving webhook/index/health", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("serving metrics", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobsCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func addr(ip string, port int) string {
	if ip == "" {
		ip = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", ip, port)
}

// exitConfig reports a configuration error before the logger exists and
// exits 2, distinguishing startup misconfiguration from a runtime crash.
func exitConfig(err error) {
	log.Printf("%v", err)
	os.Exit(2)
}

// fatal logs err and exits: 2 for a configuration error, 1 otherwise.
func fatal(logger *zap.Logger, msg string, err error) {
	var cfgErr *errs.Configuration
	if errors.As(err, &cfgErr) {
		logger.Error(msg, zap.Error(err))
		os.Exit(2)
	}
	logger.Fatal(msg, zap.Error(err))
}
