// backend/src/processors/installment_grouper.go
package processors

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/thucosta0/financepro/backend/src/models"
)

// InstallmentGrouper reconstructs logical installment groups from the flat row
// list the store hands back. Two strategies apply, in order of precedence:
// explicit grouping by planner-assigned group id, then heuristic grouping of
// the remaining rows by similarity. Output is deterministic regardless of the
// input order.
type InstallmentGrouper struct {
	// SimilarityGrouping enables the best-effort bucketing of rows that carry
	// no group id. It exists to visually group installment-like series entered
	// before group ids existed and can misclassify unrelated same-description,
	// same-amount rows.
	SimilarityGrouping bool
}

func NewInstallmentGrouper() *InstallmentGrouper {
	return &InstallmentGrouper{SimilarityGrouping: true}
}

// Group partitions rows into reconstructed groups and ungrouped individuals.
func (g *InstallmentGrouper) Group(txs []models.Transaction) models.GroupedTransactions {
	byGroupID := make(map[string][]models.Transaction)
	var individuals []models.Transaction

	for _, tx := range txs {
		if tx.Installment != nil {
			byGroupID[tx.Installment.GroupID] = append(byGroupID[tx.Installment.GroupID], tx)
		} else {
			individuals = append(individuals, tx)
		}
	}

	var groups []models.TransactionGroup
	var demoted []models.Transaction
	for groupID, members := range byGroupID {
		if len(members) < 2 {
			// A lone survivor of a deleted plan is shown as an ordinary row.
			// A row with a group id is still never eligible for similarity
			// grouping, so it bypasses the heuristic below.
			demoted = append(demoted, members...)
			continue
		}
		sortExplicitMembers(members)
		groups = append(groups, buildGroup(groupID, false, members))
	}

	if g.SimilarityGrouping {
		var heuristicGroups []models.TransactionGroup
		heuristicGroups, individuals = groupBySimilarity(individuals)
		groups = append(groups, heuristicGroups...)
	}
	individuals = append(individuals, demoted...)

	sortGroups(groups)

	// Individuals: newest first, id ascending on equal dates.
	sort.Slice(individuals, func(i, j int) bool {
		if individuals[i].TransactionDate != individuals[j].TransactionDate {
			return individuals[i].TransactionDate > individuals[j].TransactionDate
		}
		return individuals[i].ID < individuals[j].ID
	})

	return models.GroupedTransactions{Groups: groups, Individual: individuals}
}

// groupBySimilarity buckets ungrouped rows by (lowercased description, amount,
// type). Buckets of two or more become heuristic groups; everything else stays
// individual. This is a best-effort approximation for legacy data, isolated
// here so it can be disabled or replaced without touching the explicit path.
func groupBySimilarity(rows []models.Transaction) ([]models.TransactionGroup, []models.Transaction) {
	buckets := make(map[string][]models.Transaction)
	for _, tx := range rows {
		key := similarityKey(tx)
		buckets[key] = append(buckets[key], tx)
	}

	var groups []models.TransactionGroup
	var remaining []models.Transaction
	for key, members := range buckets {
		if len(members) < 2 {
			remaining = append(remaining, members...)
			continue
		}
		sortHeuristicMembers(members)
		groups = append(groups, buildGroup("similar:"+key, true, members))
	}
	return groups, remaining
}

func similarityKey(tx models.Transaction) string {
	return fmt.Sprintf("%s|%s|%s",
		strings.ToLower(tx.Description),
		strconv.FormatFloat(tx.Amount, 'f', -1, 64),
		tx.Type,
	)
}

// buildGroup derives the view model from an already-sorted member list. The
// first member is the representative.
func buildGroup(groupID string, heuristic bool, members []models.Transaction) models.TransactionGroup {
	rep := members[0]

	completed := 0
	var total float64
	nextDue := ""
	for _, m := range members {
		total += m.Amount
		if m.IsCompleted {
			completed++
			continue
		}
		// Earliest pending date; ISO dates compare lexicographically.
		if nextDue == "" || m.TransactionDate < nextDue {
			nextDue = m.TransactionDate
		}
	}

	totalInstallments := len(members)
	if !heuristic && rep.Installment != nil {
		totalInstallments = rep.Installment.Total
	}

	group := models.TransactionGroup{
		GroupID:           groupID,
		Heuristic:         heuristic,
		Description:       rep.Description,
		Amount:            rep.Amount,
		TotalAmount:       total,
		Type:              rep.Type,
		CategoryID:        rep.CategoryID,
		CardID:            rep.CardID,
		TotalInstallments: totalInstallments,
		CompletedCount:    completed,
		Members:           members,
	}
	if nextDue != "" {
		group.NextDue = &nextDue
	}
	return group
}

// sortExplicitMembers orders planner-generated rows by sequence number.
func sortExplicitMembers(members []models.Transaction) {
	sort.Slice(members, func(i, j int) bool {
		ni, nj := members[i].Installment.Number, members[j].Installment.Number
		if ni != nj {
			return ni < nj
		}
		return members[i].ID < members[j].ID
	})
}

// sortHeuristicMembers orders similarity-grouped rows chronologically.
func sortHeuristicMembers(members []models.Transaction) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].TransactionDate != members[j].TransactionDate {
			return members[i].TransactionDate < members[j].TransactionDate
		}
		return members[i].ID < members[j].ID
	})
}

// sortGroups orders groups by urgency: descending by next due date, falling
// back to the latest member date for fully completed groups. Ties break on the
// smallest member id so the ordering is stable across runs.
func sortGroups(groups []models.TransactionGroup) {
	sort.Slice(groups, func(i, j int) bool {
		ki, kj := groupSortDate(groups[i]), groupSortDate(groups[j])
		if ki != kj {
			return ki > kj
		}
		return minMemberID(groups[i]) < minMemberID(groups[j])
	})
}

func groupSortDate(g models.TransactionGroup) string {
	if g.NextDue != nil {
		return *g.NextDue
	}
	latest := ""
	for _, m := range g.Members {
		if m.TransactionDate > latest {
			latest = m.TransactionDate
		}
	}
	return latest
}

func minMemberID(g models.TransactionGroup) int64 {
	min := g.Members[0].ID
	for _, m := range g.Members[1:] {
		if m.ID < min {
			min = m.ID
		}
	}
	return min
}
