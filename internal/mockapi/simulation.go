package mockapi

import (
	"strconv"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

// runSimulation projects node balances over [start, end]. Transactions
// scheduled outside the window are ignored entirely, including recurring
// ones whose later occurrences would have fallen inside it. The initial
// occurrence applies when start <= scheduled < end; each recurrence applies
// while it stays strictly before end.
func runSimulation(nodes []models.Node, edges []models.Edge, txs []models.Transaction, start, end models.Date) *models.SimulationResult {
	balances := make(map[int64]float64, len(nodes))
	for _, n := range nodes {
		balances[n.ID] = parseDecimal(n.Balance)
	}

	edgesByID := make(map[int64]models.Edge, len(edges))
	for _, e := range edges {
		edgesByID[e.ID] = e
	}

	for _, tx := range txs {
		scheduled := tx.ScheduledDate.Time
		if scheduled.Before(start.Time) || scheduled.After(end.Time) {
			continue
		}
		edge, ok := edgesByID[tx.Edge]
		if !ok {
			continue
		}
		amount := parseDecimal(tx.Amount)

		if scheduled.Before(end.Time) {
			balances[edge.Source] -= amount
			balances[edge.Target] += amount
		}

		if tx.IsRecurring && tx.RecurrenceSeconds != nil && *tx.RecurrenceSeconds > 0 {
			next := tx.ScheduledDate.AddSeconds(*tx.RecurrenceSeconds)
			for next.Time.Before(end.Time) {
				balances[edge.Source] -= amount
				balances[edge.Target] += amount
				next = next.AddSeconds(*tx.RecurrenceSeconds)
			}
		}
	}

	results := make(map[int64]models.NodeProjection, len(balances))
	for id, balance := range balances {
		results[id] = models.NodeProjection{Balance: balance}
	}

	return &models.SimulationResult{
		Results: results,
		Metrics: computeMetrics(nodes, edges),
	}
}

// computeMetrics summarizes the graph as stored. NetFlow sums the current
// node balances, not the simulated ones.
func computeMetrics(nodes []models.Node, edges []models.Edge) models.NetworkMetrics {
	metrics := models.NetworkMetrics{
		TotalNodes: len(nodes),
		TotalEdges: len(edges),
	}
	for _, n := range nodes {
		switch n.NodeType {
		case models.NodeTypeIncome:
			metrics.IncomeNodes++
		case models.NodeTypeExpense:
			metrics.ExpenseNodes++
		}
		metrics.NetFlow += parseDecimal(n.Balance)
	}
	return metrics
}

func parseDecimal(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
