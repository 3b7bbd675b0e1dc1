// backend/src/processors/status_aggregator.go
package processors

import (
	"fmt"
	"sort"

	"github.com/thucosta0/financepro/backend/src/models"
)

// GroupStatus summarizes the completion state of a group's members.
type GroupStatus string

const (
	StatusNoneCompleted GroupStatus = "none_completed"
	StatusSomeCompleted GroupStatus = "some_completed"
	StatusAllCompleted  GroupStatus = "all_completed"
)

// AggregateStatus derives the group-level completion state from a member list.
func AggregateStatus(members []models.Transaction) GroupStatus {
	completed := 0
	for _, m := range members {
		if m.IsCompleted {
			completed++
		}
	}
	switch {
	case completed == 0:
		return StatusNoneCompleted
	case completed == len(members):
		return StatusAllCompleted
	default:
		return StatusSomeCompleted
	}
}

// StatusWriter is the persistence collaborator for per-row status updates.
type StatusWriter interface {
	SetCompleted(id int64, completed bool) error
}

// PartialAggregationError reports the members whose status update failed
// during a bulk toggle. Updates that already went through stay applied.
type PartialAggregationError struct {
	FailedIDs []int64
}

func (e *PartialAggregationError) Error() string {
	return fmt.Sprintf("status update failed for %d of the group's members", len(e.FailedIDs))
}

// GroupStatusResult is the per-member outcome of one bulk status change.
type GroupStatusResult struct {
	Applied []int64          `json:"applied"`
	Skipped []int64          `json:"skipped"` // already at the target state, no write issued
	Failed  map[int64]string `json:"failed,omitempty"`
}

// Err returns a PartialAggregationError when any member update failed.
func (r GroupStatusResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &PartialAggregationError{FailedIDs: ids}
}

// StatusAggregator bulk-toggles the completion flag across a group. Updates
// are issued sequentially, one write per member, best effort: a failure does
// not roll back members already updated, and remaining members are still
// attempted so the caller can retry only the failed subset.
type StatusAggregator struct{}

func NewStatusAggregator() *StatusAggregator { return &StatusAggregator{} }

// Apply sets every member's completion flag to target through the writer.
// Members already at the target state are skipped without a write.
func (a *StatusAggregator) Apply(members []models.Transaction, target bool, w StatusWriter) GroupStatusResult {
	result := GroupStatusResult{}
	for _, m := range members {
		if m.IsCompleted == target {
			result.Skipped = append(result.Skipped, m.ID)
			continue
		}
		if err := w.SetCompleted(m.ID, target); err != nil {
			if result.Failed == nil {
				result.Failed = make(map[int64]string)
			}
			result.Failed[m.ID] = err.Error()
			continue
		}
		result.Applied = append(result.Applied, m.ID)
	}
	return result
}
