package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/output"
)

var edgeCmd = &cobra.Command{
	Use:     "edge",
	Aliases: []string{"edges"},
	Short:   "Manage graph edges",
	Long: `Manage the directed edges of the money-flow graph.

An edge connects a source node to a target node and carries the scheduled
transactions that move money between them.`,
}

var edgeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			edges []models.Edge
			nodes []models.Node
		)
		group, ctx := errgroup.WithContext(cmd.Context())
		group.Go(func() error {
			var err error
			edges, err = app.graph.ListEdges(ctx)
			return err
		})
		group.Go(func() error {
			var err error
			nodes, err = app.graph.ListNodes(ctx)
			return err
		})
		if err := group.Wait(); err != nil {
			return err
		}

		names := make(map[int64]string, len(nodes))
		for _, n := range nodes {
			names[n.ID] = n.Name
		}
		return app.renderer.Edges(edges, names)
	},
}

var edgeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an edge between two nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := edgeRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		edge, err := app.graph.CreateEdge(cmd.Context(), &req)
		if err != nil {
			return err
		}
		app.printer.Success("Created edge %d (%d -> %d)", edge.ID, edge.Source, edge.Target)
		return renderEdge(edge)
	},
}

var edgeUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an edge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		req, err := edgeRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		edge, err := app.graph.UpdateEdge(cmd.Context(), id, &req)
		if err != nil {
			return err
		}
		app.printer.Success("Updated edge %d", edge.ID)
		return renderEdge(edge)
	},
}

var edgeDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an edge and its transactions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := app.graph.DeleteEdge(cmd.Context(), id); err != nil {
			return err
		}
		app.printer.Success("Deleted edge %d", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(edgeCmd)
	edgeCmd.AddCommand(edgeListCmd, edgeCreateCmd, edgeUpdateCmd, edgeDeleteCmd)

	for _, c := range []*cobra.Command{edgeCreateCmd, edgeUpdateCmd} {
		c.Flags().Int64("source", 0, "source node id")
		c.Flags().Int64("target", 0, "target node id")
		c.Flags().String("weight", "", "flow weight, e.g. 1.00")
	}
	_ = edgeCreateCmd.MarkFlagRequired("source")
	_ = edgeCreateCmd.MarkFlagRequired("target")
	_ = edgeUpdateCmd.MarkFlagRequired("source")
	_ = edgeUpdateCmd.MarkFlagRequired("target")
}

func edgeRequestFromFlags(cmd *cobra.Command) (models.EdgeRequest, error) {
	source, _ := cmd.Flags().GetInt64("source")
	target, _ := cmd.Flags().GetInt64("target")
	weight, _ := cmd.Flags().GetString("weight")

	if source <= 0 || target <= 0 {
		return models.EdgeRequest{}, &output.CLIError{
			Summary:    "source and target must be positive node ids",
			ExitCode:   output.ExitUsageError,
			Suggestion: "run 'fingraph node list' to see available ids",
		}
	}
	if source == target {
		return models.EdgeRequest{}, &output.CLIError{
			Summary:  "an edge cannot connect a node to itself",
			ExitCode: output.ExitUsageError,
		}
	}
	return models.EdgeRequest{Source: source, Target: target, Weight: weight}, nil
}

func renderEdge(edge *models.Edge) error {
	if app.cfg.Output.Format == string(output.FormatJSON) {
		return app.renderer.JSON(edge)
	}
	return app.renderer.Edges([]models.Edge{*edge}, nil)
}
