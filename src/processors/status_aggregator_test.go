// backend/src/processors/status_aggregator_test.go
package processors

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/thucosta0/financepro/backend/src/models"
)

// mockStatusWriter records writes and fails for configured ids.
type mockStatusWriter struct {
	calls   []int64
	failIDs map[int64]bool
}

func (m *mockStatusWriter) SetCompleted(id int64, completed bool) error {
	m.calls = append(m.calls, id)
	if m.failIDs[id] {
		return fmt.Errorf("write failed for row %d", id)
	}
	return nil
}

func statusMember(id int64, completed bool) models.Transaction {
	return models.Transaction{ID: id, IsCompleted: completed}
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name    string
		members []models.Transaction
		want    GroupStatus
	}{
		{
			name:    "no members completed",
			members: []models.Transaction{statusMember(1, false), statusMember(2, false)},
			want:    StatusNoneCompleted,
		},
		{
			name:    "some members completed",
			members: []models.Transaction{statusMember(1, true), statusMember(2, false)},
			want:    StatusSomeCompleted,
		},
		{
			name:    "all members completed",
			members: []models.Transaction{statusMember(1, true), statusMember(2, true)},
			want:    StatusAllCompleted,
		},
		{
			name:    "empty group reads as none completed",
			members: nil,
			want:    StatusNoneCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateStatus(tt.members); got != tt.want {
				t.Errorf("AggregateStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplySkipsMembersAlreadyAtTarget(t *testing.T) {
	aggregator := NewStatusAggregator()
	writer := &mockStatusWriter{}

	members := []models.Transaction{
		statusMember(1, true),
		statusMember(2, true),
		statusMember(3, true),
	}

	result := aggregator.Apply(members, true, writer)

	if len(writer.calls) != 0 {
		t.Errorf("issued %d writes for an already-satisfied group, want 0", len(writer.calls))
	}
	if !reflect.DeepEqual(result.Skipped, []int64{1, 2, 3}) {
		t.Errorf("skipped = %v, want [1 2 3]", result.Skipped)
	}
	if len(result.Applied) != 0 || len(result.Failed) != 0 {
		t.Errorf("result = %+v, want skips only", result)
	}
	if err := result.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestApplyMixedSkipAndWrite(t *testing.T) {
	aggregator := NewStatusAggregator()
	writer := &mockStatusWriter{}

	members := []models.Transaction{
		statusMember(1, true),
		statusMember(2, false),
		statusMember(3, false),
	}

	result := aggregator.Apply(members, true, writer)

	if !reflect.DeepEqual(writer.calls, []int64{2, 3}) {
		t.Errorf("writes = %v, want [2 3]", writer.calls)
	}
	if !reflect.DeepEqual(result.Applied, []int64{2, 3}) {
		t.Errorf("applied = %v, want [2 3]", result.Applied)
	}
	if !reflect.DeepEqual(result.Skipped, []int64{1}) {
		t.Errorf("skipped = %v, want [1]", result.Skipped)
	}
}

func TestApplyContinuesPastFailures(t *testing.T) {
	aggregator := NewStatusAggregator()
	writer := &mockStatusWriter{failIDs: map[int64]bool{2: true, 4: true}}

	members := []models.Transaction{
		statusMember(1, false),
		statusMember(2, false),
		statusMember(3, false),
		statusMember(4, false),
		statusMember(5, false),
	}

	result := aggregator.Apply(members, true, writer)

	// Every member must be attempted even after a failure.
	if !reflect.DeepEqual(writer.calls, []int64{1, 2, 3, 4, 5}) {
		t.Errorf("writes = %v, want all five attempted", writer.calls)
	}
	if !reflect.DeepEqual(result.Applied, []int64{1, 3, 5}) {
		t.Errorf("applied = %v, want [1 3 5]", result.Applied)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("failed = %v, want entries for 2 and 4", result.Failed)
	}
	if result.Failed[2] == "" || result.Failed[4] == "" {
		t.Errorf("failed = %v, want reasons for ids 2 and 4", result.Failed)
	}

	err := result.Err()
	if err == nil {
		t.Fatal("Err() = nil, want a partial aggregation error")
	}
	var partial *PartialAggregationError
	if !errors.As(err, &partial) {
		t.Fatalf("Err() = %T, want *PartialAggregationError", err)
	}
	if !reflect.DeepEqual(partial.FailedIDs, []int64{2, 4}) {
		t.Errorf("failed ids = %v, want sorted [2 4]", partial.FailedIDs)
	}
}

func TestApplyUncompleteDirection(t *testing.T) {
	aggregator := NewStatusAggregator()
	writer := &mockStatusWriter{}

	members := []models.Transaction{
		statusMember(1, true),
		statusMember(2, false),
	}

	result := aggregator.Apply(members, false, writer)

	if !reflect.DeepEqual(result.Applied, []int64{1}) {
		t.Errorf("applied = %v, want [1]", result.Applied)
	}
	if !reflect.DeepEqual(result.Skipped, []int64{2}) {
		t.Errorf("skipped = %v, want [2]", result.Skipped)
	}
}
