// Package review defines the port the core consumes to talk to the
// self-hosted code-review service. Nothing in this package implements HTTP;
// the concrete adapter lives in internal/adapter/reviewservice.
package review

import (
	"context"
	"time"

	"github.com/gifnksm/jaba-go/internal/domain"
)

// MergeRequest is the subset of review-service fields the core needs.
type MergeRequest struct {
	IID         int64
	Title       string
	Description string

	SourceProjectID int64
	SourceNamespace string
	SourceCloneURL  string
	SourceBranch    string
	SHA             domain.ObjectId

	TargetProjectID int64
	TargetBranch    string

	Mergeable domain.Mergeability
}

// Comment is one commit comment (note) left on a commit.
type Comment struct {
	Author    UserAuthor
	CreatedAt time.Time
	Note      string
}

// UserAuthor identifies a comment's author.
type UserAuthor struct {
	ID    int64
	Login string
}

// Member is a project or group member with an access level.
type Member struct {
	User        domain.UserRef
	AccessLevel AccessLevel
}

// AccessLevel mirrors GitLab-style numeric access levels; only the
// "reviewer" threshold (>= Master) matters to the core.
type AccessLevel int

const (
	AccessLevelNone       AccessLevel = 0
	AccessLevelGuest      AccessLevel = 10
	AccessLevelReporter   AccessLevel = 20
	AccessLevelDeveloper  AccessLevel = 30
	AccessLevelMaster     AccessLevel = 40
	AccessLevelOwner      AccessLevel = 50
)

// IsReviewer reports whether the access level qualifies as a reviewer.
func (a AccessLevel) IsReviewer() bool { return a >= AccessLevelMaster }

// Project is the subset of project metadata the core needs (clone URL,
// web URL for build links).
type Project struct {
	ID                int64
	PathWithNamespace string
	NamespaceIsGroup  bool
	GroupID           int64
	SSHCloneURL       string
	WebURL            string
}

// CommitStatusInput is what the core writes back via CreateCommitStatus.
type CommitStatusInput struct {
	Name        string
	Ref         string
	SHA         domain.ObjectId
	Status      domain.CommitStatus
	Description string
	TargetURL   string
}

// Service is the full set of review-service operations the core consumes.
type Service interface {
	ListOpenMergeRequests(ctx context.Context, projectID int64) ([]MergeRequest, error)
	ListCommitComments(ctx context.Context, projectID int64, sha domain.ObjectId) ([]Comment, error)
	ListCommitStatuses(ctx context.Context, projectID int64, sha domain.ObjectId) ([]domain.CommitStatusRecord, error)
	ListBuilds(ctx context.Context, projectID int64, sha domain.ObjectId) ([]domain.Build, error)
	CreateCommitStatus(ctx context.Context, projectID int64, in CommitStatusInput) error
	ListProjectMembers(ctx context.Context, projectID int64) ([]Member, error)
	ListGroupMembers(ctx context.Context, groupID int64) ([]Member, error)
	GetProject(ctx context.Context, namespacePath string) (Project, error)
	CurrentUser(ctx context.Context) (domain.UserRef, error)
}
