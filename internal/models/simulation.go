package models

// SimulationRequest asks the backend to project balances over a date window.
type SimulationRequest struct {
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`
}

// NodeProjection is a node's balance after applying the windowed transactions.
type NodeProjection struct {
	Balance float64 `json:"balance"`
}

// NetworkMetrics summarizes the graph at simulation time. NetFlow is the sum
// of current node balances, as the backend computes it.
type NetworkMetrics struct {
	TotalNodes   int     `json:"total_nodes"`
	TotalEdges   int     `json:"total_edges"`
	IncomeNodes  int     `json:"income_nodes"`
	ExpenseNodes int     `json:"expense_nodes"`
	NetFlow      float64 `json:"net_flow"`
}

// SimulationResult is the simulate endpoint's response body. Results is keyed
// by node ID (JSON object keys are the IDs in decimal).
type SimulationResult struct {
	Results map[int64]NodeProjection `json:"simulation_results"`
	Metrics NetworkMetrics           `json:"network_metrics"`
}
