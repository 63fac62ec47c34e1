package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gifnksm/jaba-go/internal/controller"
	"github.com/gifnksm/jaba-go/internal/domain"
	"github.com/gifnksm/jaba-go/internal/review"
	"github.com/gifnksm/jaba-go/internal/track"
)

func approvedController(iid int64, priority uint64, at time.Time, username string) *controller.Controller {
	info := domain.ApprovalInfo{Priority: priority, Time: at, Username: username}
	return &controller.Controller{
		MR:       review.MergeRequest{IID: iid},
		Approval: track.NewApprovalTrack(1, "feature", "a1b2c3d4e5f60718293a4b5c6d7e8f901234567"),
		Test:     track.NewTestTrack(1, "feature", "a1b2c3d4e5f60718293a4b5c6d7e8f901234567"),
		State:    domain.StateApprovedValue(info),
	}
}

func TestQueueApprovedHeapOrdersByPriorityThenTimeThenUsername(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lowPriority := approvedController(1, 1, t0, "zack")            // loses: lowest priority
	laterTime := approvedController(2, 5, t0.Add(time.Hour), "bob") // same priority, later time: loses to earlier time
	alice := approvedController(3, 5, t0, "alice")                  // same priority+time as bob below; "bob" > "alice"
	bob := approvedController(4, 5, t0, "bob")

	q := NewQueue(BranchInfo{Name: "main"})
	for _, c := range []*controller.Controller{lowPriority, laterTime, alice, bob} {
		q.Add(c)
	}

	assert.Equal(t, domain.RequestId(4), popCandidate(q.approved).RequestID(), "tie on priority+time broken by lexicographically greater username")
	assert.Equal(t, domain.RequestId(3), popCandidate(q.approved).RequestID())
	assert.Equal(t, domain.RequestId(2), popCandidate(q.approved).RequestID())
	assert.Equal(t, domain.RequestId(1), popCandidate(q.approved).RequestID())
}

func TestQueueAddSortsByStateTag(t *testing.T) {
	q := NewQueue(BranchInfo{Name: "main"})

	init := &controller.Controller{MR: review.MergeRequest{IID: 1}, State: domain.StateInitValue()}
	errored := &controller.Controller{MR: review.MergeRequest{IID: 2}, State: domain.StateErroredValue()}
	merged := &controller.Controller{MR: review.MergeRequest{IID: 3}, State: domain.StateMergedValue(domain.ApprovalInfo{})}
	failed := &controller.Controller{MR: review.MergeRequest{IID: 4}, State: domain.StateFailedValue(domain.ApprovalInfo{}, true)}

	q.Add(init)
	q.Add(errored)
	q.Add(merged)
	q.Add(failed)

	assert.Len(t, q.Init, 1)
	assert.Len(t, q.Errored, 1)
	assert.Len(t, q.Merged, 1)
	assert.Len(t, q.Failed, 1)
	assert.Equal(t, 0, q.approved.Len())
	assert.Equal(t, 0, q.running.Len())
	assert.Equal(t, 0, q.success.Len())
}
