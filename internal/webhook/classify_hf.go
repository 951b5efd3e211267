package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/simili-bot/issuebot/internal/core/errs"
	"github.com/simili-bot/issuebot/internal/domain"
)

// hfPayload mirrors the HF-like forge's webhook shape: a scoped action
// against a repo/discussion, with an optional comment. No webhook SDK
// for this forge exists in the corpus, so this is a hand-rolled
// discriminator, same as forge/huggingface's discussionResponse.
type hfPayload struct {
	Event struct {
		Action string `json:"action"` // create, update, delete
		Scope  string `json:"scope"`  // discussion, discussion.comment
	} `json:"event"`
	Repo struct {
		Name string `json:"name"` // "owner/repo"
	} `json:"repo"`
	Discussion struct {
		Num    int    `json:"num"`
		Title  string `json:"title"`
		Events []struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		} `json:"events"` // events[0].content is the opening post body, same shape forge/huggingface's discussionResponse reads
	} `json:"discussion"`
	Comment struct {
		ID      int64  `json:"id"`
		Content string `json:"content"`
		Author  struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"comment"`
}

// ClassifyHuggingFace parses a webhook delivery from the HF-like forge
// and maps it into the internal Event algebra.
func ClassifyHuggingFace(payload []byte, botLogins []string) (Event, error) {
	var p hfPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Event{}, &errs.Permanent{Op: "ClassifyHuggingFace", Err: err}
	}

	ownerRepo := p.Repo.Name
	owner, repo, err := splitOwnerRepo(ownerRepo)
	if err != nil {
		return Event{Kind: Unsupported}, nil
	}
	threadSourceID := domain.ThreadSourceID(domain.ForgeHuggingFace, owner, repo, domain.KindDiscussion, p.Discussion.Num)
	discussionBody := ""
	if len(p.Discussion.Events) > 0 {
		discussionBody = p.Discussion.Events[0].Content
	}

	switch p.Event.Scope {
	case "discussion":
		switch p.Event.Action {
		case "create":
			return Event{
				Kind: ThreadOpened,
				Thread: domain.Thread{
					SourceID:     threadSourceID,
					Source:       domain.ForgeHuggingFace,
					Title:        p.Discussion.Title,
					Body:         discussionBody,
					Number:       p.Discussion.Num,
					HTMLURL:      fmt.Sprintf("https://huggingface.co/%s/discussions/%d", ownerRepo, p.Discussion.Num),
					AuthorLogin:  p.Comment.Author.Name,
					RepositoryID: domain.RepositoryID(owner, repo),
				},
			}, nil
		case "update":
			return Event{
				Kind:     ThreadEdited,
				SourceID: threadSourceID,
				NewTitle: p.Discussion.Title,
				NewBody:  discussionBody,
				Thread: domain.Thread{
					SourceID:     threadSourceID,
					Source:       domain.ForgeHuggingFace,
					Title:        p.Discussion.Title,
					Body:         discussionBody,
					Number:       p.Discussion.Num,
					HTMLURL:      fmt.Sprintf("https://huggingface.co/%s/discussions/%d", ownerRepo, p.Discussion.Num),
					RepositoryID: domain.RepositoryID(owner, repo),
				},
			}, nil
		case "delete":
			return Event{Kind: ThreadDeleted, SourceID: threadSourceID}, nil
		default:
			return Event{Kind: Unsupported}, nil
		}

	case "discussion.comment":
		isBot := domain.IsBotAuthor(p.Comment.Author.Name, p.Comment.Content, botLogins)
		commentSourceID := domain.CommentSourceID(threadSourceID, p.Comment.ID)

		switch p.Event.Action {
		case "create":
			return Event{
				Kind: CommentCreated,
				Comment: domain.Comment{
					SourceID:    commentSourceID,
					Body:        p.Comment.Content,
					AuthorLogin: p.Comment.Author.Name,
					IsBot:       isBot,
				},
				ParentSource: threadSourceID,
				AuthorIsBot:  isBot,
			}, nil
		case "update":
			return Event{Kind: CommentEdited, SourceID: commentSourceID, NewBody: p.Comment.Content, ParentSource: threadSourceID, AuthorIsBot: isBot}, nil
		case "delete":
			return Event{Kind: CommentDeleted, SourceID: commentSourceID, ParentSource: threadSourceID}, nil
		default:
			return Event{Kind: Unsupported}, nil
		}

	default:
		return Event{Kind: Unsupported}, nil
	}
}

func splitOwnerRepo(s string) (owner, repo string, err error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed repo name: %s", s)
}
