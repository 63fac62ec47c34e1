package controller

import (
	"github.com/gifnksm/jaba-go/internal/command"
	"github.com/gifnksm/jaba-go/internal/domain"
	"github.com/gifnksm/jaba-go/internal/review"
)

// FoldApprovals derives an ApprovalKind from a request's comment stream.
// Comments must already be in the review service's natural
// ascending-by-creation-time order; this function does not re-sort them.
// The last recognized directive from a qualified reviewer wins, since each
// directive simply overwrites the accumulator.
func FoldApprovals(comments []review.Comment, reviewers ReviewerSet, botLogin string) domain.ApprovalKind {
	kind := domain.NotApproved()
	for _, c := range comments {
		if !reviewers.IsReviewer(c.Author) {
			continue
		}
		directive := command.Parse(c.Note, botLogin)
		switch directive.Kind {
		case command.Approve:
			kind = domain.Approved(domain.ApprovalInfo{
				Priority: directive.Priority,
				Time:     c.CreatedAt,
				Username: c.Author.Login,
			})
		case command.CancelApprove:
			kind = domain.NotApproved()
		}
	}
	return kind
}
