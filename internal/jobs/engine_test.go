package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/forge"
	"github.com/simili-bot/issuebot/internal/store"
)

type fakeJobStore struct {
	store.Store
	threads       map[domain.SourceID]domain.Thread
	comments      []domain.Comment
	reembedded    []domain.SourceID
	jobData       []byte
	deletedJobIDs []int64
	threadRows    []domain.Thread
}

func (f *fakeJobStore) UpsertThread(ctx context.Context, fields domain.Thread) (int64, error) {
	if f.threads == nil {
		f.threads = map[domain.SourceID]domain.Thread{}
	}
	f.threads[fields.SourceID] = fields
	return 1, nil
}

func (f *fakeJobStore) UpsertComment(ctx context.Context, fields domain.Comment, parent domain.SourceID) error {
	f.comments = append(f.comments, fields)
	return nil
}

func (f *fakeJobStore) UpdateJobProgress(ctx context.Context, id int64, data []byte) error {
	f.jobData = data
	return nil
}

func (f *fakeJobStore) DeleteJob(ctx context.Context, id int64) error {
	f.deletedJobIDs = append(f.deletedJobIDs, id)
	return nil
}

func (f *fakeJobStore) ThreadsAfter(ctx context.Context, afterID int64, limit int) ([]domain.Thread, error) {
	var page []domain.Thread
	for _, t := range f.threadRows {
		if t.ID > afterID {
			page = append(page, t)
		}
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (f *fakeJobStore) ReembedThread(ctx context.Context, sourceID domain.SourceID) error {
	f.reembedded = append(f.reembedded, sourceID)
	return nil
}

type fakeJobsForge struct {
	forge.Client
	threads []domain.Thread
}

func (f fakeJobsForge) ListThreads(ctx context.Context, repositoryID string, cursor string) ([]domain.Thread, string, error) {
	if cursor != "" {
		return nil, "", nil
	}
	return f.threads, "", nil
}

func (f fakeJobsForge) ListComments(ctx context.Context, sourceID domain.SourceID, cursor string) ([]domain.Comment, string, error) {
	return nil, "", nil
}

func newTestEngine(s *fakeJobStore, f forge.Client) *Engine {
	return &Engine{
		Store:  s,
		Forges: map[domain.Forge]forge.Client{domain.ForgeGitHub: f},
		Logger: zap.NewNop(),
	}
}

func TestTickIndexationSinglePageCompletes(t *testing.T) {
	thread := domain.Thread{
		SourceID:    domain.ThreadSourceID(domain.ForgeGitHub, "acme", "widgets", domain.KindIssue, 1),
		Title:       "bug",
		AuthorLogin: "alice",
	}
	s := &fakeJobStore{}
	e := newTestEngine(s, fakeJobsForge{threads: []domain.Thread{thread}})

	job := &domain.Job{ID: 1, JobType: domain.JobIssueIndexation, RepositoryID: JobRepositoryID(domain.ForgeGitHub, "acme", "widgets")}
	result, err := e.tickIndexation(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != domain.TickDone {
		t.Fatalf("expected TickDone, got %v", result)
	}
	if _, ok := s.threads[thread.SourceID]; !ok {
		t.Fatal("expected thread to be upserted")
	}
}

func TestTickIndexationDropsBotAuthoredThread(t *testing.T) {
	thread := domain.Thread{
		SourceID:    domain.ThreadSourceID(domain.ForgeGitHub, "acme", "widgets", domain.KindIssue, 1),
		AuthorLogin: "dependabot[bot]",
	}
	s := &fakeJobStore{}
	e := newTestEngine(s, fakeJobsForge{threads: []domain.Thread{thread}})

	job := &domain.Job{ID: 1, JobType: domain.JobIssueIndexation, RepositoryID: JobRepositoryID(domain.ForgeGitHub, "acme", "widgets")}
	if _, err := e.tickIndexation(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.threads) != 0 {
		t.Fatalf("expected bot-authored thread to be skipped, got %d", len(s.threads))
	}
}

func TestTickIndexationRejectsUnknownForge(t *testing.T) {
	s := &fakeJobStore{}
	e := newTestEngine(s, fakeJobsForge{})

	job := &domain.Job{ID: 1, JobType: domain.JobIssueIndexation, RepositoryID: "bitbucket/acme/widgets"}
	if _, err := e.tickIndexation(context.Background(), job); err == nil {
		t.Fatal("expected an error for an unconfigured forge")
	}
}

func TestTickRegenerationDoneWhenBatchSmallerThanSize(t *testing.T) {
	s := &fakeJobStore{threadRows: []domain.Thread{
		{ID: 1, SourceID: "github/acme/widgets/issue/1"},
		{ID: 2, SourceID: "github/acme/widgets/issue/2"},
	}}
	e := newTestEngine(s, fakeJobsForge{})
	e.Cfg.RegenBatchSize = 10

	job := &domain.Job{ID: 2, JobType: domain.JobEmbeddingsRegeneration}
	result, err := e.tickRegeneration(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != domain.TickDone {
		t.Fatalf("expected TickDone, got %v", result)
	}
	if len(s.reembedded) != 2 {
		t.Fatalf("expected 2 threads reembedded, got %d", len(s.reembedded))
	}

	var progress domain.RegenerationProgress
	if err := json.Unmarshal(s.jobData, &progress); err != nil {
		t.Fatalf("unexpected error unmarshalling progress: %v", err)
	}
	if progress.LastThreadID != 2 || progress.Processed != 2 {
		t.Fatalf("got progress %+v", progress)
	}
}

func TestTickRegenerationContinuesWhenBatchFull(t *testing.T) {
	s := &fakeJobStore{threadRows: []domain.Thread{
		{ID: 1, SourceID: "github/acme/widgets/issue/1"},
		{ID: 2, SourceID: "github/acme/widgets/issue/2"},
	}}
	e := newTestEngine(s, fakeJobsForge{})
	e.Cfg.RegenBatchSize = 2

	job := &domain.Job{ID: 2, JobType: domain.JobEmbeddingsRegeneration}
	result, err := e.tickRegeneration(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != domain.TickContinue {
		t.Fatalf("expected TickContinue since the page was full, got %v", result)
	}
}

func TestDrainDeletesJobOnDone(t *testing.T) {
	s := &fakeJobStore{}
	e := newTestEngine(s, fakeJobsForge{threads: nil})
	e.Cfg.RetryBase = time.Millisecond

	job := &domain.Job{ID: 7, JobType: domain.JobIssueIndexation, RepositoryID: JobRepositoryID(domain.ForgeGitHub, "acme", "widgets")}
	e.drain(context.Background(), job, e.Cfg.withDefaults())

	if len(s.deletedJobIDs) != 1 || s.deletedJobIDs[0] != 7 {
		t.Fatalf("expected job 7 to be deleted, got %v", s.deletedJobIDs)
	}
}

func TestSplitJobRepositoryID(t *testing.T) {
	forgeTag, owner, repo, err := splitJobRepositoryID("github/acme/widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forgeTag != domain.ForgeGitHub || owner != "acme" || repo != "widgets" {
		t.Fatalf("got (%s, %s, %s)", forgeTag, owner, repo)
	}
}

func TestSplitJobRepositoryIDRejectsMalformed(t *testing.T) {
	if _, _, _, err := splitJobRepositoryID("acme/widgets"); err == nil {
		t.Fatal("expected error for a repository id missing the forge tag")
	}
}
