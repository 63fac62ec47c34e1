// Package scheduler implements the target-branch scheduler: per target
// branch, partition controllers into the seven state buckets and advance
// at most one candidate per tick, preferring an already-green build over
// starting a new trial merge.
package scheduler

import (
	"container/heap"

	"github.com/gifnksm/jaba-go/internal/controller"
	"github.com/gifnksm/jaba-go/internal/domain"
)

// BranchInfo identifies the target branch a Queue belongs to and its
// current tip, as observed at the start of the tick.
type BranchInfo struct {
	Name string
	Tip  domain.ObjectId
}

// Queue holds every open request targeting one branch, partitioned by
// composite State. Approved, Running, and Success are kept as priority
// heaps ordered by the approval ordering; Errored, Init, Merged, and Failed
// need no ordering since the scheduler never advances them.
type Queue struct {
	Branch BranchInfo

	Errored []*controller.Controller
	Init    []*controller.Controller
	Merged  []*controller.Controller
	Failed  []*controller.Controller

	approved *candidateHeap
	running  *candidateHeap
	success  *candidateHeap
}

// NewQueue constructs an empty Queue for the given branch.
func NewQueue(branch BranchInfo) *Queue {
	return &Queue{
		Branch:   branch,
		approved: &candidateHeap{},
		running:  &candidateHeap{},
		success:  &candidateHeap{},
	}
}

// Add places c into the bucket matching its current composite State. Callers
// must call c's Retarget before Add, so a request whose target moved is
// sorted by its post-retarget state.
func (q *Queue) Add(c *controller.Controller) {
	switch c.State.Tag() {
	case domain.StateErrored:
		q.Errored = append(q.Errored, c)
	case domain.StateInit:
		q.Init = append(q.Init, c)
	case domain.StateApproved:
		heap.Push(q.approved, c)
	case domain.StateRunning:
		heap.Push(q.running, c)
	case domain.StateSuccess:
		heap.Push(q.success, c)
	case domain.StateMerged:
		q.Merged = append(q.Merged, c)
	case domain.StateFailed:
		q.Failed = append(q.Failed, c)
	}
}

// candidateHeap is a container/heap priority queue over controllers
// currently carrying an ApprovalInfo (Approved, Running, Success). Pop
// returns the element with the highest (priority, -time, -username_lex)
// tuple.
type candidateHeap struct {
	items []*controller.Controller
}

func (h *candidateHeap) Len() int { return len(h.items) }

func (h *candidateHeap) Less(i, j int) bool {
	return candidateLess(h.items[i], h.items[j])
}

func (h *candidateHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *candidateHeap) Push(x any) {
	h.items = append(h.items, x.(*controller.Controller))
}

func (h *candidateHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

// candidateLess reports whether a should be popped before b: higher
// priority first, ties broken by earlier approval time, further ties by
// lexicographically greater username.
func candidateLess(a, b *controller.Controller) bool {
	ai, bi := a.ApprovalInfo(), b.ApprovalInfo()
	if ai.Priority != bi.Priority {
		return ai.Priority > bi.Priority
	}
	if !ai.Time.Equal(bi.Time) {
		return ai.Time.Before(bi.Time)
	}
	return ai.Username > bi.Username
}
