package embedclient

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 0); got != "hello" {
		t.Fatalf("maxChars=0 should be a no-op, got %q", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Fatalf("Truncate(\"hello\", 3) = %q, want \"hel\"", got)
	}
	if got := Truncate("hi", 10); got != "hi" {
		t.Fatalf("Truncate should not pad short input, got %q", got)
	}
}
