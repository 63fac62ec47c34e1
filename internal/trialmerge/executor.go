// Package trialmerge defines the trial-merge executor contract: the
// fetch/reset/merge/conflict-detect/commit/force-push procedure that drives
// an Approved candidate to Running, and the verify-then-push procedure that
// drives a Success candidate to Merged.
package trialmerge

import (
	"context"

	"github.com/gifnksm/jaba-go/internal/controller"
)

// Outcome is the result the scheduler branches on; it is distinct from
// error, which always means "this tick failed, move the candidate to
// Errored".
type Outcome int

const (
	// Started means the trial merge was pushed and TestKind is now Running.
	Started Outcome = iota
	// NotStarted means a merge conflict was detected; TestKind is now
	// Failed(None).
	NotStarted
	// Pushed means the tested merge commit was fast-forwarded onto the
	// target branch; merged_flag is now true.
	Pushed
	// NotPushed means a concurrent writer moved the target or the tested
	// commit no longer matches what's on the auto branch; TestKind was
	// reset to Pending, so the candidate is back in the approved bucket and
	// may be offered to StartTest again in the same tick.
	NotPushed
)

// Executor performs the git-level mechanics for one controller. Every method
// either returns a non-nil error (an exceptional failure the caller should
// treat as "move this candidate to Errored") or a definite Outcome with the
// controller's track already mutated and synced.
type Executor interface {
	// StartTest fetches, resets, merges, force-pushes, and records the
	// result. Precondition: c.State is Approved and c.Test.Kind is Pending.
	StartTest(ctx context.Context, c *controller.Controller) (Outcome, error)

	// PushMerged verifies the trial merge is still current and, if so,
	// fast-forwards it onto the target branch. Precondition: c.State is
	// Success.
	PushMerged(ctx context.Context, c *controller.Controller) (Outcome, error)
}
