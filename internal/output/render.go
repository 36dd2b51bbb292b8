package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

// Format selects between human tables and machine-readable JSON.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Renderer writes graph entities in the configured format.
type Renderer struct {
	w      io.Writer
	format Format
}

func NewRenderer(w io.Writer, format Format) *Renderer {
	return &Renderer{w: w, format: format}
}

// JSON emits v as indented JSON regardless of the configured format.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Nodes renders a node listing.
func (r *Renderer) Nodes(nodes []models.Node) error {
	if r.format == FormatJSON {
		return r.JSON(nodes)
	}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			strconv.FormatInt(n.ID, 10), n.Name, n.NodeType, n.Balance,
		})
	}
	return r.renderTable([]string{"ID", "NAME", "TYPE", "BALANCE"}, rows)
}

// Edges renders an edge listing. When nodeNames is non-nil the endpoints are
// labelled by node name instead of raw id.
func (r *Renderer) Edges(edges []models.Edge, nodeNames map[int64]string) error {
	if r.format == FormatJSON {
		return r.JSON(edges)
	}
	label := func(id int64) string {
		if name, ok := nodeNames[id]; ok {
			return fmt.Sprintf("%s (#%d)", name, id)
		}
		return fmt.Sprintf("#%d", id)
	}
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10), label(e.Source), label(e.Target), e.Weight,
		})
	}
	return r.renderTable([]string{"ID", "SOURCE", "TARGET", "WEIGHT"}, rows)
}

// Transactions renders a transaction listing.
func (r *Renderer) Transactions(txs []models.Transaction) error {
	if r.format == FormatJSON {
		return r.JSON(txs)
	}
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			strconv.FormatInt(tx.ID, 10),
			strconv.FormatInt(tx.Edge, 10),
			tx.Amount,
			tx.ScheduledDate.String(),
			formatRecurrence(tx.IsRecurring, tx.RecurrenceSeconds),
		})
	}
	return r.renderTable([]string{"ID", "EDGE", "AMOUNT", "SCHEDULED", "RECURRENCE"}, rows)
}

// Simulation renders projected balances next to current ones, followed by the
// network metrics.
func (r *Renderer) Simulation(nodes []models.Node, result *models.SimulationResult) error {
	if r.format == FormatJSON {
		return r.JSON(result)
	}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		current := parseAmount(n.Balance)
		projected := result.Results[n.ID].Balance
		rows = append(rows, []string{
			n.Name, n.NodeType, money(current), money(projected), signedMoney(projected - current),
		})
	}
	if err := r.renderTable([]string{"NODE", "TYPE", "CURRENT", "PROJECTED", "CHANGE"}, rows); err != nil {
		return err
	}

	m := result.Metrics
	_, err := fmt.Fprintf(r.w, "\nNodes: %d (%d income, %d expense)  Edges: %d  Net flow: %s\n",
		m.TotalNodes, m.IncomeNodes, m.ExpenseNodes, m.TotalEdges, money(m.NetFlow))
	return err
}

func (r *Renderer) renderTable(header []string, rows [][]string) error {
	table := tablewriter.NewTable(r.w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func formatRecurrence(recurring bool, seconds *int64) string {
	if !recurring || seconds == nil || *seconds <= 0 {
		return "-"
	}
	if *seconds%86400 == 0 {
		return fmt.Sprintf("every %dd", *seconds/86400)
	}
	return "every " + (time.Duration(*seconds) * time.Second).String()
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func signedMoney(v float64) string {
	if v >= 0 {
		return "+" + strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
