package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/output"
)

var nodeCmd = &cobra.Command{
	Use:     "node",
	Aliases: []string{"nodes"},
	Short:   "Manage graph nodes",
	Long: `Manage the nodes of the money-flow graph.

Nodes are income sources, accounts, or expenses. Money enters the graph at
INCOME nodes, accumulates at ACCOUNT nodes, and leaves at EXPENSE nodes.`,
}

var nodeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := app.graph.ListNodes(cmd.Context())
		if err != nil {
			return err
		}
		return app.renderer.Nodes(nodes)
	},
}

var nodeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		node, err := app.graph.GetNode(cmd.Context(), id)
		if err != nil {
			return err
		}
		return renderNode(node)
	},
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := nodeRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		node, err := app.graph.CreateNode(cmd.Context(), &req)
		if err != nil {
			return err
		}
		app.printer.Success("Created node %d (%s)", node.ID, node.Name)
		return renderNode(node)
	},
}

var nodeUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		req, err := nodeRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		node, err := app.graph.UpdateNode(cmd.Context(), id, &req)
		if err != nil {
			return err
		}
		app.printer.Success("Updated node %d", node.ID)
		return renderNode(node)
	},
}

var nodeDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a node and its edges",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := app.graph.DeleteNode(cmd.Context(), id); err != nil {
			return err
		}
		app.printer.Success("Deleted node %d", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.AddCommand(nodeListCmd, nodeGetCmd, nodeCreateCmd, nodeUpdateCmd, nodeDeleteCmd)

	for _, c := range []*cobra.Command{nodeCreateCmd, nodeUpdateCmd} {
		c.Flags().String("name", "", "node name")
		c.Flags().String("type", "", "node type: INCOME, ACCOUNT, or EXPENSE")
		c.Flags().String("balance", "", "starting balance, e.g. 1000.00")
	}
	_ = nodeCreateCmd.MarkFlagRequired("name")
	_ = nodeCreateCmd.MarkFlagRequired("type")
	_ = nodeUpdateCmd.MarkFlagRequired("name")
	_ = nodeUpdateCmd.MarkFlagRequired("type")
}

func nodeRequestFromFlags(cmd *cobra.Command) (models.NodeRequest, error) {
	name, _ := cmd.Flags().GetString("name")
	nodeType, _ := cmd.Flags().GetString("type")
	balance, _ := cmd.Flags().GetString("balance")

	switch nodeType {
	case models.NodeTypeIncome, models.NodeTypeAccount, models.NodeTypeExpense:
	default:
		return models.NodeRequest{}, &output.CLIError{
			Summary:    fmt.Sprintf("invalid node type %q", nodeType),
			Suggestion: "use INCOME, ACCOUNT, or EXPENSE",
			ExitCode:   output.ExitUsageError,
		}
	}
	return models.NodeRequest{Name: name, NodeType: nodeType, Balance: balance}, nil
}

func renderNode(node *models.Node) error {
	if app.cfg.Output.Format == string(output.FormatJSON) {
		return app.renderer.JSON(node)
	}
	return app.renderer.Nodes([]models.Node{*node})
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, &output.CLIError{
			Summary:    fmt.Sprintf("invalid id %q", arg),
			Suggestion: "ids are positive integers",
			ExitCode:   output.ExitUsageError,
		}
	}
	return id, nil
}
