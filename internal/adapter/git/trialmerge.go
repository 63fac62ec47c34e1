package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/gifnksm/jaba-go/internal/controller"
	"github.com/gifnksm/jaba-go/internal/domain"
	"github.com/gifnksm/jaba-go/internal/review"
	"github.com/gifnksm/jaba-go/internal/trialmerge"
)

// TrialMerge implements trialmerge.Executor over one project's working copy.
// The repository driver constructs one per queue, all sharing the same Repo;
// StartTest resets that working copy to each candidate's own target branch
// before merging.
type TrialMerge struct {
	Repo          *Repo
	Svc           review.Service
	TargetProject review.Project
	BotLogin      string
	BotEmail      string
}

var _ trialmerge.Executor = (*TrialMerge)(nil)

// StartTest fetches the source branch, resets the working copy to the
// target branch's tip, merges the source commit into an auto-merge branch,
// and force-pushes it, recording the result as the test track's new state.
func (e *TrialMerge) StartTest(ctx context.Context, c *controller.Controller) (trialmerge.Outcome, error) {
	mr := c.MR
	autoBranch := "auto-" + mr.TargetBranch

	if err := e.Repo.RepointSourceRemote(mr.SourceCloneURL); err != nil {
		return 0, err
	}
	sourceTip, err := e.Repo.FetchBranch(ctx, "mr", mr.SourceBranch)
	if err != nil {
		return 0, fmt.Errorf("fetch source branch: %w", err)
	}
	targetTip, err := e.Repo.ResetHardToRemoteTip(mr.TargetBranch)
	if err != nil {
		return 0, fmt.Errorf("reset to target tip: %w", err)
	}
	if err := e.Repo.CreateOrResetLocalBranch(autoBranch, targetTip); err != nil {
		return 0, fmt.Errorf("create auto branch: %w", err)
	}

	approverInfo, _ := c.Approval.Kind.Info()
	message := mergeCommitMessage(mr, approverInfo.Username)

	result, err := e.Repo.Merge(ctx, sourceTip, message)
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	if result.Conflict {
		if err := c.SetTestKind(ctx, e.Svc, domain.TestFailed(domain.TestInfo{}, false)); err != nil {
			return 0, err
		}
		return trialmerge.NotStarted, nil
	}

	if err := e.Repo.ForcePush(ctx, autoBranch, autoBranch); err != nil {
		return 0, fmt.Errorf("force-push auto branch: %w", err)
	}

	info := domain.TestInfo{
		BuildURL:        fmt.Sprintf("%s/commit/%s/builds", e.TargetProject.WebURL, result.MergeSHA),
		MergeSHA:        result.MergeSHA,
		MergeBranchName: autoBranch,
		SourceProjectID: mr.SourceProjectID,
		SourceBranch:    mr.SourceBranch,
		SourceSHA:       sourceTip,
		TargetProjectID: mr.TargetProjectID,
		TargetBranch:    mr.TargetBranch,
		TargetSHA:       targetTip,
	}
	if err := c.SetTestKind(ctx, e.Svc, domain.TestRunning(info)); err != nil {
		return 0, err
	}
	return trialmerge.Started, nil
}

// PushMerged re-fetches the merge branch and target branch, pushing the
// merge branch onto the target only if both still match the trial-merge
// test's recorded SHAs; otherwise it resets the test track to Pending so a
// fresh trial merge is attempted against the moved target.
func (e *TrialMerge) PushMerged(ctx context.Context, c *controller.Controller) (trialmerge.Outcome, error) {
	info, ok := c.Test.Kind.Info()
	if !ok {
		return 0, fmt.Errorf("push_merged: test track has no info in state %s", c.State)
	}

	mergeTip, err := e.Repo.FetchBranch(ctx, "origin", info.MergeBranchName)
	if err != nil {
		return 0, fmt.Errorf("refetch merge branch: %w", err)
	}
	targetTip, err := e.Repo.FetchBranch(ctx, "origin", c.MR.TargetBranch)
	if err != nil {
		return 0, fmt.Errorf("refetch target branch: %w", err)
	}
	if mergeTip != info.MergeSHA || targetTip != info.TargetSHA {
		if err := c.SetTestKind(ctx, e.Svc, domain.TestPending()); err != nil {
			return 0, err
		}
		return trialmerge.NotPushed, nil
	}

	if err := e.Repo.Push(ctx, info.MergeBranchName, c.MR.TargetBranch); err != nil {
		if err := c.SetTestKind(ctx, e.Svc, domain.TestPending()); err != nil {
			return 0, err
		}
		return trialmerge.NotPushed, nil
	}

	c.MarkMerged()
	return trialmerge.Pushed, nil
}

func mergeCommitMessage(mr review.MergeRequest, approver string) string {
	return fmt.Sprintf(
		"Auto merge of !%d - %s:%s, r=%s\n\n%s\n\n%s\n\nSee merge request !%d",
		mr.IID, mr.SourceNamespace, mr.SourceBranch, approver,
		mr.Title, strings.TrimRight(mr.Description, "\n"), mr.IID,
	)
}
