package domain

import (
	"fmt"
	"strings"
)

// ThreadSourceID builds the "{forge}/{owner}/{repo}/{kind}/{number}" key.
func ThreadSourceID(forge Forge, owner, repo string, kind ThreadKind, number int) SourceID {
	return SourceID(fmt.Sprintf("%s/%s/%s/%s/%d", forge, owner, repo, kind, number))
}

// CommentSourceID builds the thread source id suffixed with the comment id,
// so a comment's SourceID is still globally unique and traceable to its
// parent thread without a join.
func CommentSourceID(threadSourceID SourceID, commentID int64) SourceID {
	return SourceID(fmt.Sprintf("%s/comment/%d", threadSourceID, commentID))
}

// RepositoryID builds the "{owner}/{repo}" key used for issue_indexation
// job dedup.
func RepositoryID(owner, repo string) string {
	return fmt.Sprintf("%s/%s", owner, repo)
}

// RepositoryIDFromSourceID pulls the "{owner}/{repo}" segment back out of
// a SourceID built by ThreadSourceID/CommentSourceID.
func RepositoryIDFromSourceID(id SourceID) string {
	parts := strings.Split(string(id), "/")
	if len(parts) < 3 {
		return ""
	}
	return RepositoryID(parts[1], parts[2])
}
