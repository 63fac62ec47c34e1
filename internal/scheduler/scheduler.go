package scheduler

import (
	"container/heap"
	"context"

	"github.com/sirupsen/logrus"

	"github.com/gifnksm/jaba-go/internal/controller"
	"github.com/gifnksm/jaba-go/internal/trialmerge"
)

// popCandidate pops the top of a candidate heap with the concrete type
// callers want, rather than repeating the heap.Pop(...).(*controller.Controller)
// assertion at every call site.
func popCandidate(h *candidateHeap) *controller.Controller {
	return heap.Pop(h).(*controller.Controller)
}

// Advance runs one target branch's scheduling rule exactly once. It
// guarantees at-most-one active trial build per target branch and strictly
// prefers finalizing an already-green build over starting a new one.
func Advance(ctx context.Context, q *Queue, exec trialmerge.Executor) {
	for q.success.Len() > 0 {
		c := popCandidate(q.success)

		outcome, err := exec.PushMerged(ctx, c)
		if err != nil {
			c.MarkErrored(err)
			q.Errored = append(q.Errored, c)
			continue
		}

		switch outcome {
		case trialmerge.Pushed:
			q.Add(c)
			return
		case trialmerge.NotPushed:
			q.Add(c)
			continue
		default:
			logrus.WithField("outcome", outcome).Warn("scheduler: unexpected push_merged outcome, treating as errored")
			q.Errored = append(q.Errored, c)
		}
	}

	if q.running.Len() > 0 {
		// Peek only: external CI drives Running candidates forward, and the
		// controller already consulted CI when it was rebuilt this tick.
		return
	}

	for q.approved.Len() > 0 {
		c := popCandidate(q.approved)

		outcome, err := exec.StartTest(ctx, c)
		if err != nil {
			c.MarkErrored(err)
			q.Errored = append(q.Errored, c)
			continue
		}

		switch outcome {
		case trialmerge.Started:
			q.Add(c)
			return
		case trialmerge.NotStarted:
			q.Add(c)
			continue
		default:
			logrus.WithField("outcome", outcome).Warn("scheduler: unexpected start_test outcome, treating as errored")
			q.Errored = append(q.Errored, c)
		}
	}
}
