// Package controller implements the merge request controller: the
// per-request aggregator that reconstructs both tracks, re-derives their
// kinds from comments and CI, syncs them, and derives the composite State.
package controller

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gifnksm/jaba-go/internal/domain"
	"github.com/gifnksm/jaba-go/internal/review"
	"github.com/gifnksm/jaba-go/internal/sync"
	"github.com/gifnksm/jaba-go/internal/track"
)

// Controller is the per-merge-request aggregator. It is rebuilt every tick
// from remote state; nothing about it survives across ticks except what the
// review service records.
type Controller struct {
	MR       review.MergeRequest
	Approval *track.ApprovalTrack
	Test     *track.TestTrack
	State    domain.State

	// Merged is set via MarkMerged by the trial-merge executor after a
	// successful push_merged, purely
	// to drive this tick's final State recomputation and logging; it is
	// never reconstructed from remote state.
	Merged bool
}

// RequestID returns the merge request's identity, for logging and for the
// scheduler's priority ordering.
func (c *Controller) RequestID() domain.RequestId { return domain.RequestId(c.MR.IID) }

// ApprovalInfo returns the current approval priority/time/username, used by
// the scheduler's heaps to order candidates. It panics if the request is not
// currently approved; callers must only place approved/running/success
// candidates into the priority buckets.
func (c *Controller) ApprovalInfo() domain.ApprovalInfo {
	info, ok := c.State.ApprovalInfo()
	if !ok {
		panic("controller: ApprovalInfo called on a request with no approval info")
	}
	return info
}

// Build reconstructs a controller for one open merge request: it decodes
// both tracks from their remote commit statuses, folds approval comments and
// CI results into updated kinds, resets any stale trial-merge test track
// whose recorded source/target no longer matches the request, syncs both
// tracks back to the review service, and derives the composite State.
func Build(ctx context.Context, svc review.Service, reviewers ReviewerSet, botLogin string, mr review.MergeRequest) (c *Controller, err error) {
	c = &Controller{MR: mr}

	defer func() {
		if err != nil {
			c.State = domain.StateErroredValue()
			logrus.WithError(err).WithField("mr", mr.IID).Error("controller: build failed, forcing Errored")
		}
	}()

	builds, err := svc.ListBuilds(ctx, mr.SourceProjectID, mr.SHA)
	if err != nil {
		return c, fmt.Errorf("list builds: %w", err)
	}
	floor := lastPipelineFloor(builds)

	statusRecords, err := svc.ListCommitStatuses(ctx, mr.SourceProjectID, mr.SHA)
	if err != nil {
		return c, fmt.Errorf("list commit statuses: %w", err)
	}
	byName := relevantStatuses(statusRecords, floor, mr.SourceBranch)

	approvalPrior, hasApprovalPrior := byName[domain.ApprovalStatusName]
	c.Approval = track.NewApprovalTrack(mr.SourceProjectID, mr.SourceBranch, mr.SHA)
	if hasApprovalPrior {
		kind, decodeErr := track.DecodeApproval(approvalPrior)
		if decodeErr != nil {
			return c, fmt.Errorf("decode approval track: %w", decodeErr)
		}
		c.Approval.Kind = kind
	}

	testPrior, hasTestPrior := byName[domain.TestStatusName]
	c.Test = track.NewTestTrack(mr.SourceProjectID, mr.SourceBranch, mr.SHA)
	if hasTestPrior {
		kind, decodeErr := track.DecodeTest(testPrior)
		if decodeErr != nil {
			return c, fmt.Errorf("decode test track: %w", decodeErr)
		}
		c.Test.Kind = kind
	}

	c.State = nextState(mr.Mergeable, c.Approval.Kind, c.Test.Kind, c.Merged)

	comments, err := svc.ListCommitComments(ctx, mr.SourceProjectID, mr.SHA)
	if err != nil {
		return c, fmt.Errorf("list commit comments: %w", err)
	}
	c.Approval.Kind = FoldApprovals(comments, reviewers, botLogin)

	c.Test.Kind = track.ResetIfMismatched(c.Test.Kind, mr.SourceProjectID, mr.SourceBranch, mr.TargetProjectID, mr.TargetBranch)

	if info, ok := c.Test.Kind.Info(); ok {
		ciBuilds, buildsErr := svc.ListBuilds(ctx, mr.TargetProjectID, info.MergeSHA)
		if buildsErr != nil {
			return c, fmt.Errorf("list trial-merge builds: %w", buildsErr)
		}
		c.Test.Kind = track.AdvanceTestKind(c.Test.Kind, ciBuilds)
	}

	if syncErr := sync.Sync(ctx, svc, mr.SourceProjectID, c.Approval, priorPtr(approvalPrior, hasApprovalPrior)); syncErr != nil {
		return c, fmt.Errorf("sync approval track: %w", syncErr)
	}
	if syncErr := sync.Sync(ctx, svc, mr.SourceProjectID, c.Test, priorPtr(testPrior, hasTestPrior)); syncErr != nil {
		return c, fmt.Errorf("sync test track: %w", syncErr)
	}

	c.State = nextState(mr.Mergeable, c.Approval.Kind, c.Test.Kind, c.Merged)
	return c, nil
}

func priorPtr(rec domain.CommitStatusRecord, has bool) *domain.CommitStatusRecord {
	if !has {
		return nil
	}
	return &rec
}

// projectionAsRecord snapshots a track's current remote projection as a
// CommitStatusRecord, used as the "prior" when a caller is about to mutate
// the track's kind and re-sync without having gone through Build's remote
// fetch again (e.g. Retarget).
func projectionAsRecord(t track.Track) domain.CommitStatusRecord {
	p := t.Projection()
	return domain.CommitStatusRecord{
		Name:        p.Name,
		Ref:         p.Ref,
		SHA:         p.SHA,
		Status:      p.Status,
		Description: p.Description,
		TargetURL:   p.TargetURL,
	}
}

// Retarget resets the test track to Pending and re-syncs it when it carries
// a TestInfo whose target_sha no longer matches the queue's current tip.
func (c *Controller) Retarget(ctx context.Context, svc review.Service, newTip domain.ObjectId) error {
	next := track.Retarget(c.Test.Kind, newTip)
	if next == c.Test.Kind {
		return nil
	}
	return c.SetTestKind(ctx, svc, next)
}

// SetTestKind mutates the test track's kind, re-syncs it against the review
// service, and recomputes the composite State. The trial-merge executor uses
// this for every TestKind transition it drives, since it needs the same
// snapshot-then-sync discipline as Retarget but from outside this package.
func (c *Controller) SetTestKind(ctx context.Context, svc review.Service, next domain.TestKind) error {
	before := projectionAsRecord(c.Test)
	c.Test.Kind = next
	if err := sync.Sync(ctx, svc, c.MR.SourceProjectID, c.Test, &before); err != nil {
		return fmt.Errorf("sync test track: %w", err)
	}
	c.State = nextState(c.MR.Mergeable, c.Approval.Kind, c.Test.Kind, c.Merged)
	return nil
}

// MarkMerged records that push_merged succeeded and recomputes State (Success
// becomes Merged); the test track's projection is unaffected, so no sync is
// needed here.
func (c *Controller) MarkMerged() {
	c.Merged = true
	c.State = nextState(c.MR.Mergeable, c.Approval.Kind, c.Test.Kind, c.Merged)
}

// MarkErrored forces State to Errored, for exceptional failures the
// scheduler or trial-merge executor encounter outside Build.
func (c *Controller) MarkErrored(err error) {
	c.State = domain.StateErroredValue()
	logrus.WithError(err).WithField("mr", c.MR.IID).Error("controller: forcing Errored")
}

// nextState derives the composite State as an exhaustive switch over
// (mergeability, approval kind, test kind, merged flag).
func nextState(mergeable domain.Mergeability, approval domain.ApprovalKind, test domain.TestKind, merged bool) domain.State {
	if mergeable == domain.MergeabilityCannotBeMerged {
		info, ok := approval.Info()
		return domain.StateFailedValue(info, ok)
	}
	if !approval.IsApproved() {
		return domain.StateInitValue()
	}
	info, _ := approval.Info()
	switch {
	case test.IsPending():
		return domain.StateApprovedValue(info)
	case test.IsRunning():
		return domain.StateRunningValue(info)
	case test.IsSuccess() && merged:
		return domain.StateMergedValue(info)
	case test.IsSuccess():
		return domain.StateSuccessValue(info)
	case test.IsFailed(), test.IsCanceled():
		return domain.StateFailedValue(info, true)
	default:
		return domain.StateErroredValue()
	}
}
