// Package sync implements the status syncer: reconciling a track's desired
// state against the review service's recorded commit status, emitting at
// most one cancel + one create per sync.
package sync

import (
	"context"
	"fmt"

	"github.com/gifnksm/jaba-go/internal/domain"
	"github.com/gifnksm/jaba-go/internal/review"
	"github.com/gifnksm/jaba-go/internal/track"
)

// cancelSet is the table of (old remote state -> new state) pairs that
// require an explicit Canceled write before the new record, kept as audit
// entries rather than compensating retries.
var cancelSet = map[domain.CommitStatus]map[domain.CommitStatus]bool{
	domain.StatusPending: {domain.StatusPending: true},
	domain.StatusRunning: {domain.StatusPending: true, domain.StatusRunning: true},
	domain.StatusSuccess: {domain.StatusPending: true, domain.StatusRunning: true, domain.StatusSuccess: true},
	domain.StatusFailed:  {domain.StatusFailed: true},
	// Canceled is absorbing: no transition out of it ever requires a cancel write.
}

func requiresCancel(old, next domain.CommitStatus) bool {
	return cancelSet[old][next]
}

// Sync ensures the review service's commit status for t matches its
// projection. prior is the most recently observed record for
// (projectID, t.StatusName()), or nil if none exists yet.
func Sync(ctx context.Context, svc review.Service, projectID int64, t track.Track, prior *domain.CommitStatusRecord) error {
	if prior == nil {
		if err := svc.CreateCommitStatus(ctx, projectID, t.Projection()); err != nil {
			return fmt.Errorf("sync %s: create initial status: %w", t.StatusName(), err)
		}
		return nil
	}

	if !track.NeedSync(t, prior) {
		return nil
	}

	newProjection := t.Projection()
	if requiresCancel(prior.Status, newProjection.Status) {
		cancel := review.CommitStatusInput{
			Name:   newProjection.Name,
			Ref:    newProjection.Ref,
			SHA:    newProjection.SHA,
			Status: domain.StatusCanceled,
		}
		if err := svc.CreateCommitStatus(ctx, projectID, cancel); err != nil {
			return fmt.Errorf("sync %s: write cancel record: %w", t.StatusName(), err)
		}
	}

	if err := svc.CreateCommitStatus(ctx, projectID, newProjection); err != nil {
		return fmt.Errorf("sync %s: write new status: %w", t.StatusName(), err)
	}
	return nil
}
