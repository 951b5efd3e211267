package webhook

import "testing"

func TestClassifyHuggingFaceDiscussionCreate(t *testing.T) {
	payload := []byte(`{
		"event": {"action": "create", "scope": "discussion"},
		"repo": {"name": "acme/widgets"},
		"discussion": {"num": 7, "title": "crash on startup", "events": [{"type": "comment", "content": "happens every time on launch"}]},
		"comment": {"author": {"name": "alice"}}
	}`)

	ev, err := ClassifyHuggingFace(payload, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != ThreadOpened {
		t.Fatalf("expected ThreadOpened, got %v", ev.Kind)
	}
	if ev.Thread.Title != "crash on startup" {
		t.Fatalf("unexpected title: %q", ev.Thread.Title)
	}
	if ev.Thread.Body != "happens every time on launch" {
		t.Fatalf("expected discussion body populated from events[0].content, got %q", ev.Thread.Body)
	}
}

func TestClassifyHuggingFaceCommentCreate(t *testing.T) {
	payload := []byte(`{
		"event": {"action": "create", "scope": "discussion.comment"},
		"repo": {"name": "acme/widgets"},
		"discussion": {"num": 7},
		"comment": {"id": 42, "content": "same here", "author": {"name": "bob"}}
	}`)

	ev, err := ClassifyHuggingFace(payload, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != CommentCreated {
		t.Fatalf("expected CommentCreated, got %v", ev.Kind)
	}
	if ev.AuthorIsBot {
		t.Fatalf("bob should not be classified as a bot")
	}
}

func TestClassifyHuggingFaceBotCommentStillClassified(t *testing.T) {
	payload := []byte(`{
		"event": {"action": "create", "scope": "discussion.comment"},
		"repo": {"name": "acme/widgets"},
		"discussion": {"num": 7},
		"comment": {"id": 42, "content": "same here", "author": {"name": "simili-bot"}}
	}`)

	ev, err := ClassifyHuggingFace(payload, []string{"simili-bot"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ev.AuthorIsBot {
		t.Fatalf("expected AuthorIsBot true; the Reducer, not the classifier, drops bot events")
	}
}

func TestClassifyHuggingFaceUnknownScope(t *testing.T) {
	payload := []byte(`{"event": {"action": "create", "scope": "repo.update"}, "repo": {"name": "acme/widgets"}}`)
	ev, err := ClassifyHuggingFace(payload, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != Unsupported {
		t.Fatalf("expected Unsupported, got %v", ev.Kind)
	}
}
