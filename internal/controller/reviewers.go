package controller

import "github.com/gifnksm/jaba-go/internal/review"

// ReviewerSet answers whether a user id is a qualified reviewer: a project
// or parent-group member with access level >= master.
type ReviewerSet map[int64]bool

// NewReviewerSet unions project and group members at or above master access.
func NewReviewerSet(projectMembers, groupMembers []review.Member) ReviewerSet {
	set := make(ReviewerSet)
	add := func(members []review.Member) {
		for _, m := range members {
			if m.AccessLevel.IsReviewer() {
				set[m.User.ID] = true
			}
		}
	}
	add(projectMembers)
	add(groupMembers)
	return set
}

// IsReviewer reports whether the given comment author qualifies.
func (s ReviewerSet) IsReviewer(author review.UserAuthor) bool {
	return s[author.ID]
}
