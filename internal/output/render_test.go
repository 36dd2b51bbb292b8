package output

import (
	"bytes"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

func sampleNodes() []models.Node {
	return []models.Node{
		{ID: 1, Name: "Salary", NodeType: models.NodeTypeIncome, Balance: "0.00"},
		{ID: 2, Name: "Checking", NodeType: models.NodeTypeAccount, Balance: "1000.00"},
	}
}

func TestRenderer_Nodes(t *testing.T) {
	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRenderer(&buf, FormatTable)
		require.NoError(t, r.Nodes(sampleNodes()))

		out := buf.String()
		assert.Contains(t, out, "NAME")
		assert.Contains(t, out, "Salary")
		assert.Contains(t, out, "ACCOUNT")
		assert.Contains(t, out, "1000.00")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRenderer(&buf, FormatJSON)
		require.NoError(t, r.Nodes(sampleNodes()))

		var decoded []models.Node
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, "Checking", decoded[1].Name)
	})
}

func TestRenderer_Edges(t *testing.T) {
	edges := []models.Edge{{ID: 5, Source: 1, Target: 2, Weight: "1.00"}}

	var buf bytes.Buffer
	r := NewRenderer(&buf, FormatTable)
	require.NoError(t, r.Edges(edges, map[int64]string{1: "Salary", 2: "Checking"}))

	out := buf.String()
	assert.Contains(t, out, "Salary (#1)")
	assert.Contains(t, out, "Checking (#2)")

	buf.Reset()
	require.NoError(t, r.Edges(edges, nil))
	assert.Contains(t, buf.String(), "#1")
}

func TestRenderer_Transactions(t *testing.T) {
	weekly := int64(7 * 24 * 60 * 60)
	txs := []models.Transaction{
		{ID: 1, Edge: 5, Amount: "50.00", ScheduledDate: models.NewDate(2025, time.March, 1)},
		{ID: 2, Edge: 5, Amount: "2500.00", ScheduledDate: models.NewDate(2025, time.March, 15),
			IsRecurring: true, RecurrenceSeconds: &weekly},
	}

	var buf bytes.Buffer
	r := NewRenderer(&buf, FormatTable)
	require.NoError(t, r.Transactions(txs))

	out := buf.String()
	assert.Contains(t, out, "2025-03-01")
	assert.Contains(t, out, "every 7d")
	assert.Contains(t, out, "-")
}

func TestRenderer_Simulation(t *testing.T) {
	result := &models.SimulationResult{
		Results: map[int64]models.NodeProjection{
			1: {Balance: -250},
			2: {Balance: 1250},
		},
		Metrics: models.NetworkMetrics{
			TotalNodes: 2, TotalEdges: 1, IncomeNodes: 1, NetFlow: 1000,
		},
	}

	var buf bytes.Buffer
	r := NewRenderer(&buf, FormatTable)
	require.NoError(t, r.Simulation(sampleNodes(), result))

	out := buf.String()
	assert.Contains(t, out, "PROJECTED")
	assert.Contains(t, out, "-250.00")
	assert.Contains(t, out, "+250.00", "change column is signed")
	assert.Contains(t, out, "Net flow: 1000.00")

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRenderer(&buf, FormatJSON)
		require.NoError(t, r.Simulation(sampleNodes(), result))

		var decoded models.SimulationResult
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.InDelta(t, 1250, decoded.Results[2].Balance, 0.001)
	})
}

func TestFormatRecurrence(t *testing.T) {
	day := int64(86400)
	halfDay := int64(43200)

	assert.Equal(t, "-", formatRecurrence(false, &day))
	assert.Equal(t, "-", formatRecurrence(true, nil))
	assert.Equal(t, "every 1d", formatRecurrence(true, &day))
	assert.Equal(t, "every 12h0m0s", formatRecurrence(true, &halfDay))
}
