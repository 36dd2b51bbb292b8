package mockapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

func ownerID(c echo.Context) int64 {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return 0
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0
	}
	sub, _ := claims["sub"].(string)
	id, _ := strconv.ParseInt(sub, 10, 64)
	return id
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func validNodeType(t string) bool {
	switch t {
	case models.NodeTypeIncome, models.NodeTypeAccount, models.NodeTypeExpense:
		return true
	}
	return false
}

func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	case errors.Is(err, ErrBadReference):
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "referenced record does not exist"})
	default:
		return c.JSON(http.StatusInternalServerError, models.ErrorBody{Detail: err.Error()})
	}
}

func (s *Server) handleLogin(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "malformed request body"})
	}

	userID, err := s.store.Authenticate(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidLogin) {
		return c.JSON(http.StatusUnauthorized, models.ErrorBody{Detail: "No active account found with the given credentials"})
	}
	if err != nil {
		return storeError(c, err)
	}

	access, refresh, err := s.tokens.IssuePair(userID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, models.TokenResponse{Access: access, Refresh: refresh})
}

func (s *Server) handleRefresh(c echo.Context) error {
	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil || req.Refresh == "" {
		return c.JSON(http.StatusUnauthorized, models.ErrorBody{Detail: "Token is invalid or expired", Code: "token_not_valid"})
	}

	access, rotated, err := s.tokens.Exchange(req.Refresh)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.ErrorBody{Detail: "Token is invalid or expired", Code: "token_not_valid"})
	}
	return c.JSON(http.StatusOK, models.RefreshResponse{Access: access, Refresh: rotated})
}

func (s *Server) handleListNodes(c echo.Context) error {
	nodes, err := s.store.ListNodes(c.Request().Context(), ownerID(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, nodes)
}

func (s *Server) handleGetNode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	}
	node, err := s.store.GetNode(c.Request().Context(), ownerID(c), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, node)
}

func (s *Server) handleCreateNode(c echo.Context) error {
	var req models.NodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "malformed request body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "name is required"})
	}
	if !validNodeType(req.NodeType) {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "node_type must be one of INCOME, ACCOUNT, EXPENSE"})
	}
	node, err := s.store.CreateNode(c.Request().Context(), ownerID(c), &req)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, node)
}

func (s *Server) handleUpdateNode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	}
	var req models.NodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "malformed request body"})
	}
	if !validNodeType(req.NodeType) {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "node_type must be one of INCOME, ACCOUNT, EXPENSE"})
	}
	node, err := s.store.UpdateNode(c.Request().Context(), ownerID(c), id, &req)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, node)
}

func (s *Server) handleDeleteNode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	}
	if err := s.store.DeleteNode(c.Request().Context(), ownerID(c), id); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListEdges(c echo.Context) error {
	edges, err := s.store.ListEdges(c.Request().Context(), ownerID(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, edges)
}

func (s *Server) handleGetEdge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	}
	edge, err := s.store.GetEdge(c.Request().Context(), ownerID(c), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, edge)
}

func (s *Server) handleCreateEdge(c echo.Context) error {
	var req models.EdgeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "malformed request body"})
	}
	if req.Source == req.Target {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "source and target must differ"})
	}
	edge, err := s.store.CreateEdge(c.Request().Context(), ownerID(c), &req)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, edge)
}

func (s *Server) handleUpdateEdge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	}
	var req models.EdgeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "malformed request body"})
	}
	edge, err := s.store.UpdateEdge(c.Request().Context(), ownerID(c), id, &req)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, edge)
}

func (s *Server) handleDeleteEdge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	}
	if err := s.store.DeleteEdge(c.Request().Context(), ownerID(c), id); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListTransactions(c echo.Context) error {
	txs, err := s.store.ListTransactions(c.Request().Context(), ownerID(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	}
	tx, err := s.store.GetTransaction(c.Request().Context(), ownerID(c), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(c echo.Context) error {
	var req models.TransactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "malformed request body"})
	}
	if req.Amount == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "amount is required"})
	}
	if req.ScheduledDate.IsZero() {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "scheduled_date is required"})
	}
	if req.IsRecurring && (req.RecurrenceSeconds == nil || *req.RecurrenceSeconds <= 0) {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "recurring transactions need a positive recurrence_seconds"})
	}
	tx, err := s.store.CreateTransaction(c.Request().Context(), ownerID(c), &req)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.ErrorBody{Detail: "Not found."})
	}
	if err := s.store.DeleteTransaction(c.Request().Context(), ownerID(c), id); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSimulate(c echo.Context) error {
	var req models.SimulationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "malformed request body"})
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "start_date and end_date are required"})
	}
	if req.EndDate.Time.Before(req.StartDate.Time) {
		return c.JSON(http.StatusBadRequest, models.ErrorBody{Detail: "end_date must not precede start_date"})
	}

	ctx := c.Request().Context()
	owner := ownerID(c)

	nodes, err := s.store.ListNodes(ctx, owner)
	if err != nil {
		return storeError(c, err)
	}
	edges, err := s.store.ListEdges(ctx, owner)
	if err != nil {
		return storeError(c, err)
	}
	txs, err := s.store.ListTransactions(ctx, owner)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(http.StatusOK, runSimulation(nodes, edges, txs, req.StartDate, req.EndDate))
}
