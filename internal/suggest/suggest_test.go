package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/core/config"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/forge"
	"github.com/simili-bot/issuebot/internal/store"
	"github.com/simili-bot/issuebot/internal/summarize"
)

type fakeNearestStore struct {
	store.Store
	results []store.NearestResult
	err     error
}

func (f *fakeNearestStore) Nearest(ctx context.Context, vector []float32, k int, exclude domain.SourceID) ([]store.NearestResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

type fakeSummarizer struct {
	summary *summarize.Summary
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (*summarize.Summary, error) {
	return f.summary, f.err
}

type fakeSuggestForge struct {
	forge.Client
	posted []string
	err    error
}

func (f *fakeSuggestForge) PostReply(ctx context.Context, sourceID domain.SourceID, text string) error {
	if f.err != nil {
		return f.err
	}
	f.posted = append(f.posted, text)
	return nil
}

type fakeSlack struct {
	posted []string
	err    error
}

func (f *fakeSlack) Post(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.posted = append(f.posted, text)
	return nil
}

func neighbor(title string, score float32) store.NearestResult {
	return store.NearestResult{
		Thread: domain.Thread{Title: title, HTMLURL: "https://example.com/" + title},
		Score:  score,
	}
}

func testCfg() config.SuggestConfig {
	return config.SuggestConfig{ScoreFloor: 0.75, MinResults: 3, MaxResults: 5}
}

func TestSuggestPostsToForgeWhenCommentsEnabled(t *testing.T) {
	gh := &fakeSuggestForge{}
	path := &Path{
		Store: &fakeNearestStore{results: []store.NearestResult{
			neighbor("a", 0.95), neighbor("b", 0.90), neighbor("c", 0.80),
		}},
		Forges:   map[domain.Forge]forge.Client{domain.ForgeGitHub: gh},
		ForgeAPI: map[domain.Forge]config.ForgeAPIConfig{domain.ForgeGitHub: {CommentsEnabled: true}},
		Message:  config.MessageConfig{Pre: "Found related threads:", Post: "-- issuebot"},
		Cfg:      testCfg(),
		Logger:   zap.NewNop(),
	}

	thread := domain.Thread{SourceID: "github/acme/widgets/issue/1", Source: domain.ForgeGitHub, Title: "new thread"}
	if err := path.Suggest(context.Background(), thread, []float32{0.1, 0.2}); err != nil {
		t.Fatalf("Suggest() error: %v", err)
	}
	if len(gh.posted) != 1 {
		t.Fatalf("expected one post to the forge, got %d", len(gh.posted))
	}
	if !containsAll(gh.posted[0], "Found related threads:", "-- issuebot", "a", "b", "c", domain.BotSentinel) {
		t.Errorf("unexpected rendered message: %q", gh.posted[0])
	}
}

func TestSuggestFallsBackToSlackWhenCommentsDisabled(t *testing.T) {
	slack := &fakeSlack{}
	gh := &fakeSuggestForge{}
	path := &Path{
		Store: &fakeNearestStore{results: []store.NearestResult{
			neighbor("a", 0.95), neighbor("b", 0.90), neighbor("c", 0.80),
		}},
		Forges:   map[domain.Forge]forge.Client{domain.ForgeGitHub: gh},
		ForgeAPI: map[domain.Forge]config.ForgeAPIConfig{domain.ForgeGitHub: {CommentsEnabled: false}},
		Slack:    slack,
		Cfg:      testCfg(),
		Logger:   zap.NewNop(),
	}

	thread := domain.Thread{SourceID: "github/acme/widgets/issue/1", Source: domain.ForgeGitHub}
	if err := path.Suggest(context.Background(), thread, []float32{0.1}); err != nil {
		t.Fatalf("Suggest() error: %v", err)
	}
	if len(slack.posted) != 1 {
		t.Fatalf("expected one slack post, got %d", len(slack.posted))
	}
	if len(gh.posted) != 0 {
		t.Errorf("expected no forge post, got %d", len(gh.posted))
	}
}

func TestSuggestSkipsWhenFewerThanMinResultsSurviveFloor(t *testing.T) {
	gh := &fakeSuggestForge{}
	path := &Path{
		Store: &fakeNearestStore{results: []store.NearestResult{
			neighbor("a", 0.95), neighbor("b", 0.60),
		}},
		Forges:   map[domain.Forge]forge.Client{domain.ForgeGitHub: gh},
		ForgeAPI: map[domain.Forge]config.ForgeAPIConfig{domain.ForgeGitHub: {CommentsEnabled: true}},
		Cfg:      testCfg(),
		Logger:   zap.NewNop(),
	}

	thread := domain.Thread{SourceID: "github/acme/widgets/issue/1", Source: domain.ForgeGitHub}
	if err := path.Suggest(context.Background(), thread, []float32{0.1}); err != nil {
		t.Fatalf("Suggest() error: %v", err)
	}
	if len(gh.posted) != 0 {
		t.Errorf("expected no post below MinResults, got %d", len(gh.posted))
	}
}

func TestSuggestDegradesGracefullyWhenSummarizerFails(t *testing.T) {
	gh := &fakeSuggestForge{}
	path := &Path{
		Store: &fakeNearestStore{results: []store.NearestResult{
			neighbor("a", 0.95), neighbor("b", 0.90), neighbor("c", 0.80),
		}},
		Summarizer: &fakeSummarizer{err: errors.New("model unavailable")},
		Forges:     map[domain.Forge]forge.Client{domain.ForgeGitHub: gh},
		ForgeAPI:   map[domain.Forge]config.ForgeAPIConfig{domain.ForgeGitHub: {CommentsEnabled: true}},
		Cfg:        testCfg(),
		Logger:     zap.NewNop(),
	}

	thread := domain.Thread{SourceID: "github/acme/widgets/issue/1", Source: domain.ForgeGitHub, Title: "t", Body: "b"}
	if err := path.Suggest(context.Background(), thread, []float32{0.1}); err != nil {
		t.Fatalf("Suggest() error: %v", err)
	}
	if len(gh.posted) != 1 {
		t.Fatalf("expected post to still happen despite summarizer failure, got %d", len(gh.posted))
	}
}

func TestSuggestPropagatesNearestError(t *testing.T) {
	path := &Path{
		Store:  &fakeNearestStore{err: errors.New("qdrant unreachable")},
		Cfg:    testCfg(),
		Logger: zap.NewNop(),
	}

	thread := domain.Thread{SourceID: "github/acme/widgets/issue/1", Source: domain.ForgeGitHub}
	if err := path.Suggest(context.Background(), thread, []float32{0.1}); err == nil {
		t.Fatal("expected Nearest error to propagate")
	}
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
