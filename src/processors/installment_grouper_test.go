// backend/src/processors/installment_grouper_test.go
package processors

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/thucosta0/financepro/backend/src/models"
)

func installmentRow(id int64, desc string, amount float64, txDate string, number, total int, groupID string, completed bool) models.Transaction {
	return models.Transaction{
		ID:              id,
		Description:     desc,
		Amount:          amount,
		Type:            models.TypeExpense,
		TransactionDate: txDate,
		IsCompleted:     completed,
		Installment: &models.InstallmentMeta{
			Number:  number,
			Total:   total,
			GroupID: groupID,
		},
	}
}

func plainRow(id int64, desc string, amount float64, txDate string, completed bool) models.Transaction {
	return models.Transaction{
		ID:              id,
		Description:     desc,
		Amount:          amount,
		Type:            models.TypeExpense,
		TransactionDate: txDate,
		IsCompleted:     completed,
	}
}

func TestGroupExplicitByGroupID(t *testing.T) {
	grouper := NewInstallmentGrouper()

	rows := []models.Transaction{
		installmentRow(3, "TV (3/3)", 300, "2025-03-10", 3, 3, "g1", false),
		installmentRow(1, "TV (1/3)", 300, "2025-01-10", 1, 3, "g1", true),
		installmentRow(2, "TV (2/3)", 300, "2025-02-10", 2, 3, "g1", false),
		plainRow(4, "Groceries", 85.5, "2025-01-12", true),
	}

	result := grouper.Group(rows)

	if len(result.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(result.Groups))
	}
	g := result.Groups[0]
	if g.GroupID != "g1" {
		t.Errorf("group id = %q, want g1", g.GroupID)
	}
	if g.Heuristic {
		t.Error("planner-grouped rows must not be flagged heuristic")
	}
	if g.TotalAmount != 900 {
		t.Errorf("total amount = %v, want 900", g.TotalAmount)
	}
	if g.TotalInstallments != 3 {
		t.Errorf("total installments = %d, want 3", g.TotalInstallments)
	}
	if g.CompletedCount != 1 {
		t.Errorf("completed count = %d, want 1", g.CompletedCount)
	}
	if g.NextDue == nil || *g.NextDue != "2025-02-10" {
		t.Errorf("next due = %v, want 2025-02-10", g.NextDue)
	}

	var gotOrder []int64
	for _, m := range g.Members {
		gotOrder = append(gotOrder, m.ID)
	}
	if !reflect.DeepEqual(gotOrder, []int64{1, 2, 3}) {
		t.Errorf("member order = %v, want [1 2 3]", gotOrder)
	}

	if len(result.Individual) != 1 || result.Individual[0].ID != 4 {
		t.Errorf("individuals = %+v, want just the groceries row", result.Individual)
	}
}

func TestGroupSingletonDemotedToIndividual(t *testing.T) {
	grouper := NewInstallmentGrouper()

	rows := []models.Transaction{
		installmentRow(9, "Phone (5/12)", 150, "2025-05-01", 5, 12, "orphan", false),
		plainRow(1, "Rent", 1200, "2025-05-01", false),
	}

	result := grouper.Group(rows)

	if len(result.Groups) != 0 {
		t.Fatalf("got %d groups, want 0", len(result.Groups))
	}
	if len(result.Individual) != 2 {
		t.Fatalf("got %d individuals, want 2", len(result.Individual))
	}
}

func TestGroupSingletonNeverJoinsSimilarityBucket(t *testing.T) {
	grouper := NewInstallmentGrouper()

	// The orphan matches the two plain rows on description, amount and type,
	// but its group id keeps it out of the heuristic bucket.
	rows := []models.Transaction{
		installmentRow(1, "Streaming", 30, "2025-01-05", 1, 6, "orphan", false),
		plainRow(2, "Streaming", 30, "2025-02-05", false),
		plainRow(3, "Streaming", 30, "2025-03-05", false),
	}

	result := grouper.Group(rows)

	if len(result.Groups) != 1 {
		t.Fatalf("got %d groups, want 1 heuristic group", len(result.Groups))
	}
	g := result.Groups[0]
	if !g.Heuristic {
		t.Error("expected a heuristic group")
	}
	if len(g.Members) != 2 {
		t.Errorf("heuristic group has %d members, want 2", len(g.Members))
	}
	for _, m := range g.Members {
		if m.ID == 1 {
			t.Error("row with a group id leaked into a similarity bucket")
		}
	}
	if len(result.Individual) != 1 || result.Individual[0].ID != 1 {
		t.Errorf("individuals = %+v, want just the orphan", result.Individual)
	}
}

func TestGroupBySimilarity(t *testing.T) {
	grouper := NewInstallmentGrouper()

	rows := []models.Transaction{
		plainRow(1, "Gym Membership", 90, "2025-01-03", true),
		plainRow(2, "gym membership", 90, "2025-02-03", false),
		plainRow(3, "GYM MEMBERSHIP", 90, "2025-03-03", false),
		// Same description, different amount: not similar.
		plainRow(4, "Gym Membership", 95, "2025-04-03", false),
		plainRow(5, "Dinner", 45, "2025-01-20", true),
	}

	result := grouper.Group(rows)

	if len(result.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(result.Groups))
	}
	g := result.Groups[0]
	if !g.Heuristic {
		t.Error("similarity group must be flagged heuristic")
	}
	if g.GroupID != "similar:gym membership|90|expense" {
		t.Errorf("group id = %q", g.GroupID)
	}
	if g.TotalInstallments != 3 {
		t.Errorf("total installments = %d, want member count 3", g.TotalInstallments)
	}
	if g.CompletedCount != 1 {
		t.Errorf("completed count = %d, want 1", g.CompletedCount)
	}
	if g.NextDue == nil || *g.NextDue != "2025-02-03" {
		t.Errorf("next due = %v, want 2025-02-03", g.NextDue)
	}

	var memberOrder []int64
	for _, m := range g.Members {
		memberOrder = append(memberOrder, m.ID)
	}
	if !reflect.DeepEqual(memberOrder, []int64{1, 2, 3}) {
		t.Errorf("member order = %v, want chronological [1 2 3]", memberOrder)
	}

	if len(result.Individual) != 2 {
		t.Fatalf("got %d individuals, want 2", len(result.Individual))
	}
}

func TestGroupSimilarityDisabled(t *testing.T) {
	grouper := &InstallmentGrouper{SimilarityGrouping: false}

	rows := []models.Transaction{
		plainRow(1, "Gym", 90, "2025-01-03", false),
		plainRow(2, "Gym", 90, "2025-02-03", false),
	}

	result := grouper.Group(rows)

	if len(result.Groups) != 0 {
		t.Fatalf("got %d groups with similarity disabled, want 0", len(result.Groups))
	}
	if len(result.Individual) != 2 {
		t.Fatalf("got %d individuals, want 2", len(result.Individual))
	}
}

func TestGroupOrdering(t *testing.T) {
	grouper := NewInstallmentGrouper()

	rows := []models.Transaction{
		// Fully completed group: sorts by its latest member date.
		installmentRow(1, "Sofa (1/2)", 400, "2025-01-01", 1, 2, "done", true),
		installmentRow(2, "Sofa (2/2)", 400, "2025-02-01", 2, 2, "done", true),
		// Pending group with the most urgent next due.
		installmentRow(3, "TV (1/2)", 300, "2025-03-01", 1, 2, "tv", false),
		installmentRow(4, "TV (2/2)", 300, "2025-04-01", 2, 2, "tv", false),
		// Pending group with an earlier next due.
		installmentRow(5, "Desk (1/2)", 100, "2025-02-15", 1, 2, "desk", false),
		installmentRow(6, "Desk (2/2)", 100, "2025-03-15", 2, 2, "desk", false),
		plainRow(7, "Coffee", 5, "2025-05-01", false),
		plainRow(8, "Lunch", 12, "2025-05-01", false),
	}

	result := grouper.Group(rows)

	var gotGroups []string
	for _, g := range result.Groups {
		gotGroups = append(gotGroups, g.GroupID)
	}
	// tv next due 2025-03-01, desk 2025-02-15, done falls back to 2025-02-01.
	if !reflect.DeepEqual(gotGroups, []string{"tv", "desk", "done"}) {
		t.Errorf("group order = %v, want [tv desk done]", gotGroups)
	}

	if done := result.Groups[2]; done.NextDue != nil {
		t.Errorf("completed group must have no next due, got %v", *done.NextDue)
	}

	var gotIndividuals []int64
	for _, tx := range result.Individual {
		gotIndividuals = append(gotIndividuals, tx.ID)
	}
	// Same date: id ascending.
	if !reflect.DeepEqual(gotIndividuals, []int64{7, 8}) {
		t.Errorf("individual order = %v, want [7 8]", gotIndividuals)
	}
}

func TestGroupDeterministicUnderShuffle(t *testing.T) {
	grouper := NewInstallmentGrouper()

	base := []models.Transaction{
		installmentRow(1, "TV (1/3)", 300, "2025-01-10", 1, 3, "g1", true),
		installmentRow(2, "TV (2/3)", 300, "2025-02-10", 2, 3, "g1", false),
		installmentRow(3, "TV (3/3)", 300, "2025-03-10", 3, 3, "g1", false),
		installmentRow(4, "Phone (1/2)", 150, "2025-02-01", 1, 2, "g2", false),
		installmentRow(5, "Phone (2/2)", 150, "2025-03-01", 2, 2, "g2", false),
		plainRow(6, "Gym", 90, "2025-01-03", false),
		plainRow(7, "Gym", 90, "2025-02-03", false),
		plainRow(8, "Dinner", 45, "2025-01-20", false),
		plainRow(9, "Rent", 1200, "2025-02-01", false),
	}

	want := grouper.Group(append([]models.Transaction(nil), base...))

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Transaction(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := grouper.Group(shuffled)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d changed the output:\ngot  %+v\nwant %+v", i, got, want)
		}
	}
}
