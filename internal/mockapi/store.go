package mockapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

// DefaultDSN keeps the whole fixture in memory and shares it across every
// connection in the process.
const DefaultDSN = "file:fingraph?mode=memory&cache=shared&_fk=1"

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidLogin = errors.New("invalid username or password")
	ErrBadReference = errors.New("referenced record does not exist")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	node_type TEXT NOT NULL,
	balance TEXT NOT NULL DEFAULT '0.00',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	source_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	target_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	weight TEXT NOT NULL DEFAULT '1.00',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	edge_id INTEGER NOT NULL REFERENCES edges(id) ON DELETE CASCADE,
	amount TEXT NOT NULL,
	scheduled_date TEXT NOT NULL,
	is_recurring INTEGER NOT NULL DEFAULT 0,
	recurrence_seconds INTEGER,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Store is the fixture database behind the mock graph API.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed creates) the sqlite database at dsn.
func OpenStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser registers a user with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, string(hash))
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return res.LastInsertId()
}

// Authenticate returns the user id for a valid username/password pair and
// ErrInvalidLogin otherwise.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var id int64
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE username = ?`, username).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInvalidLogin
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return 0, ErrInvalidLogin
	}
	return id, nil
}

func (s *Store) ListNodes(ctx context.Context, ownerID int64) ([]models.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, node_type, balance, created_at, updated_at FROM nodes WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	nodes := []models.Node{}
	for rows.Next() {
		var n models.Node
		if err := rows.Scan(&n.ID, &n.Name, &n.NodeType, &n.Balance, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Store) GetNode(ctx context.Context, ownerID, id int64) (*models.Node, error) {
	var n models.Node
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, node_type, balance, created_at, updated_at FROM nodes WHERE owner_id = ? AND id = ?`,
		ownerID, id).Scan(&n.ID, &n.Name, &n.NodeType, &n.Balance, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}
	return &n, nil
}

func (s *Store) CreateNode(ctx context.Context, ownerID int64, req *models.NodeRequest) (*models.Node, error) {
	now := time.Now().UTC()
	balance := req.Balance
	if balance == "" {
		balance = "0.00"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO nodes (owner_id, name, node_type, balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, req.Name, req.NodeType, balance, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetNode(ctx, ownerID, id)
}

func (s *Store) UpdateNode(ctx context.Context, ownerID, id int64, req *models.NodeRequest) (*models.Node, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET name = ?, node_type = ?, balance = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		req.Name, req.NodeType, req.Balance, time.Now().UTC(), ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetNode(ctx, ownerID, id)
}

func (s *Store) DeleteNode(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context, ownerID int64) ([]models.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, target_id, weight, created_at, updated_at FROM edges WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	edges := []models.Edge{}
	for rows.Next() {
		var e models.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Weight, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) GetEdge(ctx context.Context, ownerID, id int64) (*models.Edge, error) {
	var e models.Edge
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_id, target_id, weight, created_at, updated_at FROM edges WHERE owner_id = ? AND id = ?`,
		ownerID, id).Scan(&e.ID, &e.Source, &e.Target, &e.Weight, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query edge: %w", err)
	}
	return &e, nil
}

func (s *Store) CreateEdge(ctx context.Context, ownerID int64, req *models.EdgeRequest) (*models.Edge, error) {
	if err := s.checkNodeOwnership(ctx, ownerID, req.Source, req.Target); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	weight := req.Weight
	if weight == "" {
		weight = "1.00"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (owner_id, source_id, target_id, weight, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, req.Source, req.Target, weight, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert edge: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetEdge(ctx, ownerID, id)
}

func (s *Store) UpdateEdge(ctx context.Context, ownerID, id int64, req *models.EdgeRequest) (*models.Edge, error) {
	if err := s.checkNodeOwnership(ctx, ownerID, req.Source, req.Target); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE edges SET source_id = ?, target_id = ?, weight = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		req.Source, req.Target, req.Weight, time.Now().UTC(), ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update edge: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetEdge(ctx, ownerID, id)
}

func (s *Store) DeleteEdge(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, ownerID int64) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, edge_id, amount, scheduled_date, is_recurring, recurrence_seconds, created_at, updated_at
		 FROM transactions WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, ownerID, id int64) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, edge_id, amount, scheduled_date, is_recurring, recurrence_seconds, created_at, updated_at
		 FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return tx, err
}

func (s *Store) CreateTransaction(ctx context.Context, ownerID int64, req *models.TransactionRequest) (*models.Transaction, error) {
	if _, err := s.GetEdge(ctx, ownerID, req.Edge); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadReference
		}
		return nil, err
	}
	now := time.Now().UTC()
	var recurrence sql.NullInt64
	if req.RecurrenceSeconds != nil {
		recurrence = sql.NullInt64{Int64: *req.RecurrenceSeconds, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (owner_id, edge_id, amount, scheduled_date, is_recurring, recurrence_seconds, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, req.Edge, req.Amount, req.ScheduledDate.String(), req.IsRecurring, recurrence, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, ownerID, id)
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// checkNodeOwnership verifies that both endpoints exist and belong to owner.
func (s *Store) checkNodeOwnership(ctx context.Context, ownerID int64, nodeIDs ...int64) error {
	for _, id := range nodeIDs {
		if _, err := s.GetNode(ctx, ownerID, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrBadReference
			}
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var scheduled string
	var recurrence sql.NullInt64
	if err := row.Scan(&tx.ID, &tx.Edge, &tx.Amount, &scheduled, &tx.IsRecurring, &recurrence, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	date, err := models.ParseDate(scheduled)
	if err != nil {
		return nil, fmt.Errorf("corrupt scheduled_date in store: %w", err)
	}
	tx.ScheduledDate = date
	if recurrence.Valid {
		tx.RecurrenceSeconds = &recurrence.Int64
	}
	return &tx, nil
}
