package api

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/service"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

// Executor runs a request with credential refresh handled transparently.
type Executor interface {
	Execute(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

var _ Executor = (*service.RefreshCoordinator)(nil)

// Client is the authenticated surface of the graph API. Every call goes
// through the Executor, so an expired access credential is refreshed and the
// call retried without the caller noticing.
type Client struct {
	executor Executor
}

// NewClient creates a Client.
func NewClient(executor Executor) *Client {
	return &Client{executor: executor}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := c.executor.Execute(ctx, &transport.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// ListNodes returns every node in the caller's graph.
func (c *Client) ListNodes(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	if err := c.do(ctx, http.MethodGet, "/api/nodes/", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetNode returns a single node by id.
func (c *Client) GetNode(ctx context.Context, id int64) (*models.Node, error) {
	var node models.Node
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/nodes/%d/", id), nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// CreateNode creates a node.
func (c *Client) CreateNode(ctx context.Context, req *models.NodeRequest) (*models.Node, error) {
	var node models.Node
	if err := c.do(ctx, http.MethodPost, "/api/nodes/", req, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// UpdateNode replaces a node's attributes.
func (c *Client) UpdateNode(ctx context.Context, id int64, req *models.NodeRequest) (*models.Node, error) {
	var node models.Node
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/nodes/%d/", id), req, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// DeleteNode deletes a node and every edge attached to it.
func (c *Client) DeleteNode(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/nodes/%d/", id), nil, nil)
}

// ListEdges returns every edge in the caller's graph.
func (c *Client) ListEdges(ctx context.Context) ([]models.Edge, error) {
	var edges []models.Edge
	if err := c.do(ctx, http.MethodGet, "/api/edges/", nil, &edges); err != nil {
		return nil, err
	}
	return edges, nil
}

// CreateEdge creates an edge between two nodes.
func (c *Client) CreateEdge(ctx context.Context, req *models.EdgeRequest) (*models.Edge, error) {
	var edge models.Edge
	if err := c.do(ctx, http.MethodPost, "/api/edges/", req, &edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

// UpdateEdge replaces an edge's attributes.
func (c *Client) UpdateEdge(ctx context.Context, id int64, req *models.EdgeRequest) (*models.Edge, error) {
	var edge models.Edge
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/edges/%d/", id), req, &edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

// DeleteEdge deletes an edge.
func (c *Client) DeleteEdge(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/edges/%d/", id), nil, nil)
}

// ListTransactions returns every scheduled transaction in the caller's graph.
func (c *Client) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions/", nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// CreateTransaction schedules a transaction on an edge.
func (c *Client) CreateTransaction(ctx context.Context, req *models.TransactionRequest) (*models.Transaction, error) {
	var tx models.Transaction
	if err := c.do(ctx, http.MethodPost, "/api/transactions/", req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// DeleteTransaction removes a scheduled transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/transactions/%d/", id), nil, nil)
}

// Simulate projects node balances over the given window and returns the
// per-node results together with whole-graph metrics.
func (c *Client) Simulate(ctx context.Context, start, end models.Date) (*models.SimulationResult, error) {
	var result models.SimulationResult
	req := models.SimulationRequest{StartDate: start, EndDate: end}
	if err := c.do(ctx, http.MethodPost, "/api/transactions/simulate/", &req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
