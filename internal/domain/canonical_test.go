package domain

import "testing"

func TestCanonicalTextEmptyComments(t *testing.T) {
	got := CanonicalText("Crash on CUDA", "stack...", nil)
	want := "Crash on CUDA\n\nstack...\n\n"
	if got != want {
		t.Fatalf("CanonicalText() = %q, want %q", got, want)
	}
}

func TestCanonicalTextOrdersComments(t *testing.T) {
	got := CanonicalText("T", "B", []string{"first", "second"})
	want := "T\n\nB\n\nfirst\n\nsecond"
	if got != want {
		t.Fatalf("CanonicalText() = %q, want %q", got, want)
	}
}

func TestContentHashStable(t *testing.T) {
	a := ContentHash(CanonicalText("T", "B", []string{"x"}))
	b := ContentHash(CanonicalText("T", "B", []string{"x"}))
	if a != b {
		t.Fatalf("ContentHash not stable: %q != %q", a, b)
	}
	c := ContentHash(CanonicalText("T", "B", []string{"y"}))
	if a == c {
		t.Fatalf("ContentHash collided for different canonical text")
	}
}

func TestIsBotAuthorConfiguredLogin(t *testing.T) {
	if !IsBotAuthor("simili-bot", "hello", []string{"simili-bot"}) {
		t.Fatal("expected configured login to be classified as bot")
	}
	if !IsBotAuthor("some-app[bot]", "hello", nil) {
		t.Fatal("expected [bot] suffix to be classified as bot")
	}
	if !IsBotAuthor("alice", "hi "+BotSentinel, nil) {
		t.Fatal("expected sentinel body to be classified as bot")
	}
	if IsBotAuthor("alice", "hi", []string{"simili-bot"}) {
		t.Fatal("did not expect alice to be classified as bot")
	}
}
