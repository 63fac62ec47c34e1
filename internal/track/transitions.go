package track

import (
	"github.com/sirupsen/logrus"

	"github.com/gifnksm/jaba-go/internal/domain"
)

// Verdict is the CI-verdict precedence outcome rolled up from a set of build
// records for one trial commit. The folding style (accumulate across
// records, resolve to one of a small set of outcomes) mirrors the Prow tide
// controller's accumulate/toSimpleState helpers.
type Verdict int

const (
	VerdictRunning Verdict = iota
	VerdictCanceled
	VerdictFailed
	VerdictSuccess
)

// RollUpBuilds implements the precedence rule: any Pending/Running wins as
// Running; else any Canceled wins; else any Failed wins; else all Success.
// An empty list is Running (waiting).
func RollUpBuilds(builds []domain.Build) Verdict {
	if len(builds) == 0 {
		return VerdictRunning
	}
	sawCanceled := false
	sawFailed := false
	allSuccess := true
	for _, b := range builds {
		switch b.Status {
		case domain.StatusPending, domain.StatusRunning:
			return VerdictRunning
		case domain.StatusCanceled:
			sawCanceled = true
			allSuccess = false
		case domain.StatusFailed:
			sawFailed = true
			allSuccess = false
		case domain.StatusSuccess:
			// keeps allSuccess true unless another status overrides it
		default:
			allSuccess = false
		}
	}
	switch {
	case sawCanceled:
		return VerdictCanceled
	case sawFailed:
		return VerdictFailed
	case allSuccess:
		return VerdictSuccess
	default:
		// Neither pending/running, canceled, failed, nor all-success: an
		// "odd" combination the source implementation flagged as suspect.
		// Preserve the fallback to Running but surface it, since it
		// usually means a build status this agent doesn't recognize
		// slipped into the set.
		logrus.WithField("builds", builds).Warn("track: odd CI status combination, treating as Running")
		return VerdictRunning
	}
}

// AdvanceTestKind implements the CI-driven half of the TestKind transition
// table: Running advances to Success/Failed/Canceled per the build-verdict
// precedence, or stays Running on an ambiguous verdict. Pending, Success,
// Failed, and Canceled are not touched by CI builds directly — only by
// Retarget/ResetIfMismatched (the "target moved"/"request retargeted"
// transitions) or by the trial-merge executor.
func AdvanceTestKind(current domain.TestKind, builds []domain.Build) domain.TestKind {
	if !current.IsRunning() {
		return current
	}
	info, _ := current.Info()
	switch RollUpBuilds(builds) {
	case VerdictSuccess:
		return domain.TestSuccess(info)
	case VerdictFailed:
		return domain.TestFailed(info, true)
	case VerdictCanceled:
		return domain.TestCanceled(info)
	default:
		return current
	}
}

// Retarget reverts to Pending any kind carrying a TestInfo whose TargetSHA no
// longer matches the queue's current tip, so the request is retried against
// the new tip. This is the "target branch advanced" transition; it does not
// detect the request itself being pointed at a different source or target
// branch, which ResetIfMismatched handles.
func Retarget(current domain.TestKind, newTip domain.ObjectId) domain.TestKind {
	info, ok := current.Info()
	if !ok || info.TargetSHA == newTip {
		return current
	}
	return domain.TestPending()
}

// ResetIfMismatched reverts to Pending any kind carrying a TestInfo whose
// source or target project/branch no longer match the merge request's
// current fields. This is the "request retargeted" transition: distinct from
// Retarget's target-tip check, it catches a request being repointed at a
// different source or target branch entirely, for which the recorded trial
// merge (and any in-flight or completed CI for it) is no longer meaningful.
func ResetIfMismatched(current domain.TestKind, sourceProjectID int64, sourceBranch string, targetProjectID int64, targetBranch string) domain.TestKind {
	info, ok := current.Info()
	if !ok {
		return current
	}
	if info.SourceProjectID != sourceProjectID || info.SourceBranch != sourceBranch ||
		info.TargetProjectID != targetProjectID || info.TargetBranch != targetBranch {
		return domain.TestPending()
	}
	return current
}
