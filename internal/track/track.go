// Package track implements the two track sub-state-machines and their codec:
// encode/decode a track's kind to/from a CommitStatusRecord, and need_sync.
package track

import (
	"github.com/gifnksm/jaba-go/internal/domain"
	"github.com/gifnksm/jaba-go/internal/review"
)

// Track is the capability set shared by ApprovalTrack and TestTrack: enough
// to compute and compare a projected CommitStatusRecord, without exposing
// either track's inner kind. The status syncer (internal/sync) is written
// once against this interface.
type Track interface {
	ProjectID() int64
	Refname() string
	SHA() domain.ObjectId
	StatusName() string
	Projection() review.CommitStatusInput
}

// ApprovalTrack holds who approved a request, at what priority, when.
type ApprovalTrack struct {
	projectID int64
	refname   string
	sha       domain.ObjectId
	Kind      domain.ApprovalKind
}

// NewApprovalTrack constructs a track against (project, ref, sha), initially
// NotApproved; callers reconstruct it from a remote record via DecodeApproval
// when one exists.
func NewApprovalTrack(projectID int64, refname string, sha domain.ObjectId) *ApprovalTrack {
	return &ApprovalTrack{projectID: projectID, refname: refname, sha: sha, Kind: domain.NotApproved()}
}

func (t *ApprovalTrack) ProjectID() int64        { return t.projectID }
func (t *ApprovalTrack) Refname() string         { return t.refname }
func (t *ApprovalTrack) SHA() domain.ObjectId    { return t.sha }
func (t *ApprovalTrack) StatusName() string      { return domain.ApprovalStatusName }

// Projection encodes ApprovalTrack's kind to a remote commit status: Approved
// maps to Success, NotApproved to Pending.
func (t *ApprovalTrack) Projection() review.CommitStatusInput {
	in := review.CommitStatusInput{
		Name: t.StatusName(),
		Ref:  t.refname,
		SHA:  t.sha,
	}
	if info, ok := t.Kind.Info(); ok {
		in.Status = domain.StatusSuccess
		in.Description = mustEncode(info)
	} else {
		in.Status = domain.StatusPending
	}
	return in
}

// TestTrack holds the trial-merge identity and its CI verdict.
type TestTrack struct {
	projectID int64
	refname   string
	sha       domain.ObjectId
	Kind      domain.TestKind
}

// NewTestTrack constructs a track against (project, ref, sha), initially
// Pending.
func NewTestTrack(projectID int64, refname string, sha domain.ObjectId) *TestTrack {
	return &TestTrack{projectID: projectID, refname: refname, sha: sha, Kind: domain.TestPending()}
}

func (t *TestTrack) ProjectID() int64     { return t.projectID }
func (t *TestTrack) Refname() string      { return t.refname }
func (t *TestTrack) SHA() domain.ObjectId { return t.sha }
func (t *TestTrack) StatusName() string   { return domain.TestStatusName }

// Projection encodes TestTrack's kind to a remote commit status: an
// injective mapping with build_url/description sourced from the carried
// TestInfo when present.
func (t *TestTrack) Projection() review.CommitStatusInput {
	in := review.CommitStatusInput{
		Name: t.StatusName(),
		Ref:  t.refname,
		SHA:  t.sha,
	}
	switch {
	case t.Kind.IsPending():
		in.Status = domain.StatusPending
	case t.Kind.IsRunning():
		in.Status = domain.StatusRunning
	case t.Kind.IsSuccess():
		in.Status = domain.StatusSuccess
	case t.Kind.IsFailed():
		in.Status = domain.StatusFailed
	case t.Kind.IsCanceled():
		in.Status = domain.StatusCanceled
	}
	if info, ok := t.Kind.Info(); ok {
		in.Description = mustEncode(info)
		in.TargetURL = info.BuildURL
	}
	return in
}

// NeedSync reports whether any projected field differs from the supplied
// record. A nil record (no prior status) always needs a sync.
func NeedSync(t Track, rec *domain.CommitStatusRecord) bool {
	if rec == nil {
		return true
	}
	proj := t.Projection()
	return proj.Name != rec.Name ||
		proj.Ref != rec.Ref ||
		proj.SHA != rec.SHA ||
		proj.Status != rec.Status ||
		proj.Description != rec.Description ||
		proj.TargetURL != rec.TargetURL
}
