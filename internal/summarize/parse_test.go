package summarize

import (
	"reflect"
	"testing"
)

func TestParseTaggedSpans(t *testing.T) {
	got := parseTaggedSpans("noise <DESC>crash on startup</DESC> more <TAGS>bug, cuda</TAGS> trailing")
	want := &Summary{Description: "crash on startup", Tags: []string{"bug", "cuda"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseTaggedSpans() = %+v, want %+v", got, want)
	}
}

func TestParseTaggedSpansMissingTags(t *testing.T) {
	got := parseTaggedSpans("<DESC>only a description</DESC>")
	if got.Description != "only a description" {
		t.Fatalf("unexpected description: %q", got.Description)
	}
	if got.Tags != nil {
		t.Fatalf("expected nil tags, got %v", got.Tags)
	}
}

func TestParseTaggedSpansMissingDescription(t *testing.T) {
	got := parseTaggedSpans("<TAGS>bug</TAGS>")
	if got.Description != "" {
		t.Fatalf("expected empty description, got %q", got.Description)
	}
}
