// Package repodriver implements the per-repo orchestration that opens the
// git cache, loads reviewers, builds every open merge request's controller,
// sorts them into per-target queues, and runs the scheduler. cmd/jaba calls
// Driver.Tick once per configured repo, every poll interval.
package repodriver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/sirupsen/logrus"

	"github.com/gifnksm/jaba-go/internal/adapter/git"
	"github.com/gifnksm/jaba-go/internal/config"
	"github.com/gifnksm/jaba-go/internal/controller"
	"github.com/gifnksm/jaba-go/internal/review"
	"github.com/gifnksm/jaba-go/internal/scheduler"
)

// Driver owns the shared resources one repository's tick borrows: the git
// cache and the review-service handle.
type Driver struct {
	Svc       review.Service
	Auth      transport.AuthMethod
	CacheRoot string
	BotName   string
	BotEmail  string
	NamePath  string // "group/project", the [repo.<label>] name from config
}

// New constructs a Driver for one configured repo.
func New(svc review.Service, auth transport.AuthMethod, gitCfg config.GitConfig, repoCfg config.RepoConfig, configDir string) *Driver {
	return &Driver{
		Svc:       svc,
		Auth:      auth,
		CacheRoot: filepath.Join(configDir, gitCfg.CacheDirectory),
		BotName:   gitCfg.BotName,
		BotEmail:  gitCfg.BotEmail,
		NamePath:  repoCfg.Name,
	}
}

// Tick opens this repo's git cache, loads its reviewers and open merge
// requests, sorts them into per-target queues, and runs the scheduler once
// per queue.
func (d *Driver) Tick(ctx context.Context) error {
	log := logrus.WithField("repo", d.NamePath)

	project, err := d.Svc.GetProject(ctx, d.NamePath)
	if err != nil {
		return fmt.Errorf("get project %s: %w", d.NamePath, err)
	}

	dir := filepath.Join(d.CacheRoot, project.PathWithNamespace)
	repo, err := git.Open(ctx, dir, project.SSHCloneURL, d.Auth, d.BotName, d.BotEmail)
	if err != nil {
		return fmt.Errorf("open cache for %s: %w", d.NamePath, err)
	}

	reviewers, botLogin, err := d.loadReviewers(ctx, project)
	if err != nil {
		return fmt.Errorf("load reviewers for %s: %w", d.NamePath, err)
	}

	mrs, err := d.Svc.ListOpenMergeRequests(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("list open merge requests for %s: %w", d.NamePath, err)
	}

	queues := make(map[string]*scheduler.Queue)
	for _, mr := range mrs {
		q, ok := queues[mr.TargetBranch]
		if !ok {
			tip, err := repo.FetchBranch(ctx, "origin", mr.TargetBranch)
			if err != nil {
				log.WithError(err).WithField("branch", mr.TargetBranch).
					Error("repodriver: fetch target branch failed, skipping its queue this tick")
				continue
			}
			q = scheduler.NewQueue(scheduler.BranchInfo{Name: mr.TargetBranch, Tip: tip})
			queues[mr.TargetBranch] = q
		}

		c, err := controller.Build(ctx, d.Svc, reviewers, botLogin, mr)
		if err != nil {
			// Build already forced c.State to Errored and logged; its tracks may
			// be nil this far in, so skip Retarget rather than risk a nil deref.
			q.Add(c)
			continue
		}
		if retargetErr := c.Retarget(ctx, d.Svc, q.Branch.Tip); retargetErr != nil {
			log.WithError(retargetErr).WithField("mr", mr.IID).Error("repodriver: retarget failed")
			c.MarkErrored(retargetErr)
		}
		q.Add(c)
	}

	for _, q := range queues {
		exec := &git.TrialMerge{
			Repo:          repo,
			Svc:           d.Svc,
			TargetProject: project,
			BotLogin:      botLogin,
			BotEmail:      d.BotEmail,
		}
		scheduler.Advance(ctx, q, exec)
	}

	return nil
}

func (d *Driver) loadReviewers(ctx context.Context, project review.Project) (controller.ReviewerSet, string, error) {
	projectMembers, err := d.Svc.ListProjectMembers(ctx, project.ID)
	if err != nil {
		return nil, "", fmt.Errorf("list project members: %w", err)
	}

	var groupMembers []review.Member
	if project.NamespaceIsGroup {
		groupMembers, err = d.Svc.ListGroupMembers(ctx, project.GroupID)
		if err != nil {
			return nil, "", fmt.Errorf("list group members: %w", err)
		}
	}

	botUser, err := d.Svc.CurrentUser(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("get current user: %w", err)
	}

	return controller.NewReviewerSet(projectMembers, groupMembers), botUser.Login, nil
}
