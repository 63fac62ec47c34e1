package controller

import (
	"github.com/gifnksm/jaba-go/internal/domain"
)

// lastPipelineFloor implements the "last pipeline" definition: among all
// build records for a sha, the one with the greatest (pipeline_id,
// -build_id) lexicographically sets the floor build id. An empty build list
// has no floor (0 admits every status record).
func lastPipelineFloor(builds []domain.Build) int64 {
	if len(builds) == 0 {
		return 0
	}
	best := builds[0]
	for _, b := range builds[1:] {
		if isGreaterPipelineBuild(b, best) {
			best = b
		}
	}
	return best.ID
}

// isGreaterPipelineBuild compares two builds by (pipeline_id, -build_id):
// the higher pipeline id wins; within the same pipeline, the lower build id
// (higher -build_id) wins, since that is the earliest job of that pipeline.
func isGreaterPipelineBuild(a, b domain.Build) bool {
	if a.PipelineID != b.PipelineID {
		return a.PipelineID > b.PipelineID
	}
	return a.ID < b.ID
}

// relevantStatuses filters commit-status records to the last pipeline and
// the request's source branch, then keeps only the highest-id (most recent)
// record per status name, grouped by name.
func relevantStatuses(records []domain.CommitStatusRecord, floor int64, sourceBranch string) map[string]domain.CommitStatusRecord {
	byName := make(map[string]domain.CommitStatusRecord)
	for _, rec := range records {
		if rec.ID < floor || rec.Ref != sourceBranch {
			continue
		}
		existing, ok := byName[rec.Name]
		if !ok || rec.ID > existing.ID {
			byName[rec.Name] = rec
		}
	}
	return byName
}
