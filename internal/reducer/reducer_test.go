package reducer

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/forge"
	"github.com/simili-bot/issuebot/internal/store"
	"github.com/simili-bot/issuebot/internal/webhook"
)

type fakeStore struct {
	store.Store
	upsertedThreads  []domain.Thread
	upsertedComments []domain.Comment
	deletedThreads   []domain.SourceID
	deletedComments  []domain.SourceID
	missingParent    bool
}

func (f *fakeStore) UpsertThread(ctx context.Context, fields domain.Thread) (int64, error) {
	f.upsertedThreads = append(f.upsertedThreads, fields)
	return 1, nil
}

func (f *fakeStore) UpsertComment(ctx context.Context, fields domain.Comment, parent domain.SourceID) error {
	if f.missingParent {
		f.missingParent = false // the create-if-missing retry should succeed
		return store.ErrThreadNotIndexed
	}
	f.upsertedComments = append(f.upsertedComments, fields)
	return nil
}

func (f *fakeStore) DeleteThread(ctx context.Context, sourceID domain.SourceID) error {
	f.deletedThreads = append(f.deletedThreads, sourceID)
	return nil
}

func (f *fakeStore) DeleteComment(ctx context.Context, sourceID domain.SourceID) error {
	f.deletedComments = append(f.deletedComments, sourceID)
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) { return []float32{0.1, 0.2}, nil }
func (fakeEmbedder) Dimensions() int                                           { return 2 }

type fakeSuggest struct {
	called chan struct{}
}

func (f *fakeSuggest) Suggest(ctx context.Context, thread domain.Thread, vector []float32) error {
	close(f.called)
	return nil
}

type fakeForge struct{}

func (fakeForge) FetchThread(ctx context.Context, sourceID domain.SourceID) (*domain.Thread, error) {
	return &domain.Thread{SourceID: sourceID, Title: "fetched"}, nil
}
func (fakeForge) ListComments(ctx context.Context, sourceID domain.SourceID, cursor string) ([]domain.Comment, string, error) {
	return nil, "", nil
}
func (fakeForge) PostReply(ctx context.Context, sourceID domain.SourceID, text string) error { return nil }

func newTestReducer(s *fakeStore, sug *fakeSuggest) *Reducer {
	return &Reducer{
		Store:    s,
		Embedder: fakeEmbedder{},
		Forges:   map[domain.Forge]forge.Client{domain.ForgeGitHub: fakeForge{}},
		Suggest:  sug,
		Logger:   zap.NewNop(),
	}
}

func TestReduceThreadOpenedUpsertsAndTriggersSuggestion(t *testing.T) {
	s := &fakeStore{}
	sug := &fakeSuggest{called: make(chan struct{})}
	r := newTestReducer(s, sug)

	event := webhook.Event{
		Kind: webhook.ThreadOpened,
		Thread: domain.Thread{
			SourceID:    domain.ThreadSourceID(domain.ForgeGitHub, "acme", "widgets", domain.KindIssue, 1),
			Title:       "bug",
			Body:        "it crashes",
			AuthorLogin: "alice",
		},
	}

	if err := r.Reduce(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.upsertedThreads) != 1 {
		t.Fatalf("expected 1 upserted thread, got %d", len(s.upsertedThreads))
	}
	<-sug.called // the suggestion path runs in a goroutine, wait for it
}

func TestReduceThreadOpenedDropsBotAuthor(t *testing.T) {
	s := &fakeStore{}
	sug := &fakeSuggest{called: make(chan struct{})}
	r := newTestReducer(s, sug)

	event := webhook.Event{
		Kind:   webhook.ThreadOpened,
		Thread: domain.Thread{AuthorLogin: "dependabot[bot]"},
	}

	if err := r.Reduce(context.Background(), event); err == nil {
		t.Fatal("expected a permanent drop error for bot-authored thread")
	}
	if len(s.upsertedThreads) != 0 {
		t.Fatalf("expected no upsert for bot-authored thread")
	}
}

func TestReduceThreadDeleted(t *testing.T) {
	s := &fakeStore{}
	r := newTestReducer(s, &fakeSuggest{called: make(chan struct{})})

	sourceID := domain.ThreadSourceID(domain.ForgeGitHub, "acme", "widgets", domain.KindIssue, 1)
	if err := r.Reduce(context.Background(), webhook.Event{Kind: webhook.ThreadDeleted, SourceID: sourceID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.deletedThreads) != 1 || s.deletedThreads[0] != sourceID {
		t.Fatalf("expected thread %s to be deleted", sourceID)
	}
}

func TestReduceCommentCreatedDropsBot(t *testing.T) {
	s := &fakeStore{}
	r := newTestReducer(s, &fakeSuggest{called: make(chan struct{})})

	event := webhook.Event{Kind: webhook.CommentCreated, AuthorIsBot: true}
	if err := r.Reduce(context.Background(), event); err == nil {
		t.Fatal("expected a permanent drop error for bot-authored comment")
	}
}

func TestReduceCommentCreatedFetchesMissingParent(t *testing.T) {
	s := &fakeStore{missingParent: true}
	r := newTestReducer(s, &fakeSuggest{called: make(chan struct{})})

	parent := domain.ThreadSourceID(domain.ForgeGitHub, "acme", "widgets", domain.KindIssue, 1)
	event := webhook.Event{
		Kind:         webhook.CommentCreated,
		Comment:      domain.Comment{SourceID: domain.CommentSourceID(parent, 1), Body: "me too"},
		ParentSource: parent,
	}

	if err := r.Reduce(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.upsertedThreads) != 1 {
		t.Fatalf("expected the missing parent to be fetched and upserted, got %d threads", len(s.upsertedThreads))
	}
	if len(s.upsertedComments) != 1 {
		t.Fatalf("expected the comment to be upserted after parent creation")
	}
}
