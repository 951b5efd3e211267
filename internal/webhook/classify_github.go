package webhook

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/simili-bot/issuebot/internal/domain"
)

// ClassifyGitHub parses a GitHub webhook delivery and maps it into the
// internal Event algebra, using github.ParseWebHook to decode and
// type-switch the payload.
func ClassifyGitHub(eventType string, payload []byte, botLogins []string) (Event, error) {
	raw, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		return Event{}, err
	}

	switch e := raw.(type) {
	case *github.IssuesEvent:
		return classifyThreadEvent(e.GetAction(), "issue",
			e.GetRepo().GetOwner().GetLogin(), e.GetRepo().GetName(),
			e.GetIssue().GetNumber(), e.GetIssue().GetTitle(), e.GetIssue().GetBody(),
			e.GetIssue().GetHTMLURL(), e.GetIssue().GetUser().GetLogin(), botLogins)

	case *github.PullRequestEvent:
		return classifyThreadEvent(e.GetAction(), "pr",
			e.GetRepo().GetOwner().GetLogin(), e.GetRepo().GetName(),
			e.GetNumber(), e.GetPullRequest().GetTitle(), e.GetPullRequest().GetBody(),
			e.GetPullRequest().GetHTMLURL(), e.GetPullRequest().GetUser().GetLogin(), botLogins)

	case *github.DiscussionEvent:
		return classifyThreadEvent(e.GetAction(), "discussion",
			e.GetRepo().GetOwner().GetLogin(), e.GetRepo().GetName(),
			int(e.GetDiscussion().GetNumber()), e.GetDiscussion().GetTitle(), e.GetDiscussion().GetBody(),
			e.GetDiscussion().GetHTMLURL(), e.GetDiscussion().GetUser().GetLogin(), botLogins)

	case *github.IssueCommentEvent:
		parent := domain.ThreadSourceID(domain.ForgeGitHub, e.GetRepo().GetOwner().GetLogin(),
			e.GetRepo().GetName(), domain.KindIssue, e.GetIssue().GetNumber())
		return classifyCommentEvent(e.GetAction(), parent, e.GetComment().GetID(), e.GetComment().GetBody(),
			e.GetComment().GetUser().GetLogin(), e.GetComment().GetHTMLURL(), botLogins)

	case *github.PullRequestReviewEvent:
		if e.GetAction() != "submitted" || e.GetReview().GetBody() == "" {
			return Event{Kind: Unsupported}, nil
		}
		parent := domain.ThreadSourceID(domain.ForgeGitHub, e.GetRepo().GetOwner().GetLogin(),
			e.GetRepo().GetName(), domain.KindPullReq, e.GetPullRequest().GetNumber())
		return classifyCommentEvent("created", parent, e.GetReview().GetID(), e.GetReview().GetBody(),
			e.GetReview().GetUser().GetLogin(), e.GetReview().GetHTMLURL(), botLogins)

	case *github.PullRequestReviewCommentEvent:
		parent := domain.ThreadSourceID(domain.ForgeGitHub, e.GetRepo().GetOwner().GetLogin(),
			e.GetRepo().GetName(), domain.KindPullReq, e.GetPullRequest().GetNumber())
		return classifyCommentEvent(e.GetAction(), parent, e.GetComment().GetID(), e.GetComment().GetBody(),
			e.GetComment().GetUser().GetLogin(), e.GetComment().GetHTMLURL(), botLogins)

	case *github.DiscussionCommentEvent:
		parent := domain.ThreadSourceID(domain.ForgeGitHub, e.GetRepo().GetOwner().GetLogin(),
			e.GetRepo().GetName(), domain.KindDiscussion, int(e.GetDiscussion().GetNumber()))
		return classifyCommentEvent(e.GetAction(), parent, e.GetComment().GetID(), e.GetComment().GetBody(),
			e.GetComment().GetUser().GetLogin(), e.GetComment().GetHTMLURL(), botLogins)

	default:
		return Event{Kind: Unsupported}, nil
	}
}

func classifyThreadEvent(action, kind, owner, repo string, number int, title, body, htmlURL, authorLogin string, botLogins []string) (Event, error) {
	sourceID := domain.ThreadSourceID(domain.ForgeGitHub, owner, repo, domain.ThreadKind(kind), number)

	switch action {
	case "opened", "created":
		if domain.IsBotAuthor(authorLogin, body, botLogins) {
			return Event{Kind: Unsupported}, nil
		}
		return Event{
			Kind: ThreadOpened,
			Thread: domain.Thread{
				SourceID:      sourceID,
				Source:        domain.ForgeGitHub,
				Title:         title,
				Body:          body,
				IsPullRequest: kind == "pr",
				Number:        number,
				HTMLURL:       htmlURL,
				APIURL:        apiURLFor(owner, repo, kind, number),
				AuthorLogin:   authorLogin,
				RepositoryID:  domain.RepositoryID(owner, repo),
			},
		}, nil

	case "edited", "closed":
		// closed issues/PRs stay in the index -- issue_indexation pages
		// through open and closed threads alike, only "deleted" and
		// "transferred" actually remove the thread from GitHub.
		return Event{
			Kind:     ThreadEdited,
			SourceID: sourceID,
			NewTitle: title,
			NewBody:  body,
			Thread: domain.Thread{
				SourceID:      sourceID,
				Source:        domain.ForgeGitHub,
				Title:         title,
				Body:          body,
				IsPullRequest: kind == "pr",
				Number:        number,
				HTMLURL:       htmlURL,
				APIURL:        apiURLFor(owner, repo, kind, number),
				AuthorLogin:   authorLogin,
				RepositoryID:  domain.RepositoryID(owner, repo),
			},
		}, nil

	case "deleted", "transferred":
		return Event{Kind: ThreadDeleted, SourceID: sourceID}, nil

	default:
		return Event{Kind: Unsupported}, nil
	}
}

func classifyCommentEvent(action string, parent domain.SourceID, commentID int64, body, authorLogin, htmlURL string, botLogins []string) (Event, error) {
	isBot := domain.IsBotAuthor(authorLogin, body, botLogins)
	sourceID := domain.CommentSourceID(parent, commentID)

	switch action {
	case "created", "submitted":
		return Event{
			Kind: CommentCreated,
			Comment: domain.Comment{
				SourceID:    sourceID,
				Body:        body,
				AuthorLogin: authorLogin,
				URL:         htmlURL,
				IsBot:       isBot,
			},
			ParentSource: parent,
			AuthorIsBot:  isBot,
		}, nil

	case "edited":
		return Event{Kind: CommentEdited, SourceID: sourceID, NewBody: body, ParentSource: parent, AuthorIsBot: isBot}, nil

	case "deleted":
		return Event{Kind: CommentDeleted, SourceID: sourceID, ParentSource: parent}, nil

	default:
		return Event{Kind: Unsupported}, nil
	}
}

func apiURLFor(owner, repo, kind string, number int) string {
	plural := "issues"
	if kind == "pr" {
		plural = "pulls"
	}
	return strings.Join([]string{"https://api.github.com/repos", owner, repo, plural, fmt.Sprintf("%d", number)}, "/")
}
