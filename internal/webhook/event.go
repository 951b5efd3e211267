// Package webhook verifies forge webhook deliveries and classifies them
// into the internal Event algebra the Reducer consumes.
package webhook

import "github.com/simili-bot/issuebot/internal/domain"

// EventKind discriminates the kinds of normalized webhook events the
// Reducer can act on.
type EventKind int

const (
	Unsupported EventKind = iota
	ThreadOpened
	ThreadEdited
	ThreadDeleted
	CommentCreated
	CommentEdited
	CommentDeleted
)

// Event is the typed, forge-agnostic payload the Reducer operates on.
// Only the fields relevant to Kind are populated; zero values elsewhere.
type Event struct {
	Kind EventKind

	// ThreadOpened / ThreadEdited
	Thread domain.Thread

	// ThreadEdited optionally narrows to just the changed fields; when
	// both are empty the Reducer falls back to Thread's full fields.
	NewTitle string
	NewBody  string

	// ThreadDeleted / CommentDeleted / CommentEdited
	SourceID domain.SourceID

	// CommentCreated / CommentEdited
	Comment      domain.Comment
	ParentSource domain.SourceID
	AuthorIsBot  bool
}
