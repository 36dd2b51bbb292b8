package models

import "time"

// Node types as the backend reports them.
const (
	NodeTypeIncome  = "INCOME"
	NodeTypeAccount = "ACCOUNT"
	NodeTypeExpense = "EXPENSE"
)

// Node is a money source, account, or sink in the user's financial graph.
// Balance is a decimal string on the wire; the client treats it as opaque.
type Node struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	NodeType  string    `json:"node_type"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edge is a directed flow from a source node to a target node.
type Edge struct {
	ID        int64     `json:"id"`
	Source    int64     `json:"source"`
	Target    int64     `json:"target"`
	Weight    string    `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is a scheduled transfer along an edge. Recurring transactions
// repeat every RecurrenceSeconds until the end of a simulation window.
type Transaction struct {
	ID                int64     `json:"id"`
	Edge              int64     `json:"edge"`
	Amount            string    `json:"amount"`
	ScheduledDate     Date      `json:"scheduled_date"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrenceSeconds *int64    `json:"recurrence_seconds,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NodeRequest is the create/update payload for a node.
type NodeRequest struct {
	Name     string `json:"name"`
	NodeType string `json:"node_type"`
	Balance  string `json:"balance"`
}

// EdgeRequest is the create/update payload for an edge.
type EdgeRequest struct {
	Source int64  `json:"source"`
	Target int64  `json:"target"`
	Weight string `json:"weight"`
}

// TransactionRequest is the create payload for a transaction.
type TransactionRequest struct {
	Edge              int64  `json:"edge"`
	Amount            string `json:"amount"`
	ScheduledDate     Date   `json:"scheduled_date"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurrenceSeconds *int64 `json:"recurrence_seconds,omitempty"`
}
