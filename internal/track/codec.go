package track

import (
	"encoding/json"
	"fmt"

	"github.com/gifnksm/jaba-go/internal/domain"
)

// mustEncode JSON-encodes a track payload. ApprovalInfo/TestInfo are always
// encodable (plain structs of strings/numbers/times); a marshal failure here
// would indicate a programming error, not a runtime condition, so it panics
// rather than threading an error through every Projection call site.
func mustEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("track: encode %T: %v", v, err))
	}
	return string(b)
}

// DecodeApproval reconstructs an ApprovalKind from a remote commit-status
// record, the reverse of ApprovalTrack.Projection. A Pending record yields
// NotApproved with no decode needed. A Success record must carry a
// parseable ApprovalInfo description.
func DecodeApproval(rec domain.CommitStatusRecord) (domain.ApprovalKind, error) {
	switch rec.Status {
	case domain.StatusPending:
		return domain.NotApproved(), nil
	case domain.StatusSuccess:
		var info domain.ApprovalInfo
		if err := json.Unmarshal([]byte(rec.Description), &info); err != nil {
			return domain.ApprovalKind{}, fmt.Errorf("decode approval description: %w", err)
		}
		return domain.Approved(info), nil
	default:
		return domain.ApprovalKind{}, fmt.Errorf("decode approval: unexpected status %q", rec.Status)
	}
}

// DecodeTest reconstructs a TestKind from a remote commit-status record. A
// Failed record with no description yields Failed(None); any other
// non-Pending state requires a parseable TestInfo description.
func DecodeTest(rec domain.CommitStatusRecord) (domain.TestKind, error) {
	switch rec.Status {
	case domain.StatusPending:
		return domain.TestPending(), nil
	case domain.StatusFailed:
		if rec.Description == "" {
			return domain.TestFailed(domain.TestInfo{}, false), nil
		}
		info, err := decodeTestInfo(rec.Description)
		if err != nil {
			return domain.TestKind{}, fmt.Errorf("decode failed-test description: %w", err)
		}
		return domain.TestFailed(info, true), nil
	case domain.StatusRunning:
		info, err := decodeTestInfo(rec.Description)
		if err != nil {
			return domain.TestKind{}, fmt.Errorf("decode running-test description: %w", err)
		}
		return domain.TestRunning(info), nil
	case domain.StatusSuccess:
		info, err := decodeTestInfo(rec.Description)
		if err != nil {
			return domain.TestKind{}, fmt.Errorf("decode success-test description: %w", err)
		}
		return domain.TestSuccess(info), nil
	case domain.StatusCanceled:
		info, err := decodeTestInfo(rec.Description)
		if err != nil {
			return domain.TestKind{}, fmt.Errorf("decode canceled-test description: %w", err)
		}
		return domain.TestCanceled(info), nil
	default:
		return domain.TestKind{}, fmt.Errorf("decode test: unexpected status %q", rec.Status)
	}
}

func decodeTestInfo(description string) (domain.TestInfo, error) {
	var info domain.TestInfo
	if err := json.Unmarshal([]byte(description), &info); err != nil {
		return domain.TestInfo{}, err
	}
	return info, nil
}
