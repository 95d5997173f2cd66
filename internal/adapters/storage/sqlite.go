package storage

// sqlite.go — persistencia del estado de trading.
//
// Estrategia:
//   - Todas las filas llevan (account_id, mode): los ledgers demo y live
//     nunca se mezclan en una misma query.
//   - Dinero como TEXT (decimal exacto, sin floats en la DB).
//   - `ApplyFill` hace el fill completo en una transacción: borrar la orden
//     pendiente (si aplica), ajustar balance, upsert/delete de posición
//     e insertar el histórico. O se comete todo, o nada.
//   - `order_history` es append-only: nunca se actualiza ni se borra.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/stockbot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id           TEXT PRIMARY KEY,
    mode         TEXT NOT NULL DEFAULT 'live',
    demo_balance TEXT NOT NULL,
    live_balance TEXT NOT NULL,
    created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    account_id TEXT    NOT NULL,
    mode       TEXT    NOT NULL,
    symbol     TEXT    NOT NULL,
    quantity   INTEGER NOT NULL,
    avg_cost   TEXT    NOT NULL,
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (account_id, mode, symbol)
);

CREATE TABLE IF NOT EXISTS pending_orders (
    id          TEXT PRIMARY KEY,
    account_id  TEXT    NOT NULL,
    mode        TEXT    NOT NULL,
    side        TEXT    NOT NULL,
    symbol      TEXT    NOT NULL,
    quantity    INTEGER NOT NULL,
    limit_price TEXT    NOT NULL,
    created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS order_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id  TEXT    NOT NULL,
    mode        TEXT    NOT NULL,
    side        TEXT    NOT NULL,
    symbol      TEXT    NOT NULL,
    quantity    INTEGER NOT NULL,
    price       TEXT    NOT NULL,
    kind        TEXT    NOT NULL,
    executed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS demo_prices (
    symbol     TEXT PRIMARY KEY,
    price      TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pending_scope ON pending_orders(account_id, mode, symbol);
CREATE INDEX IF NOT EXISTS idx_history_scope ON order_history(account_id, mode, executed_at DESC);
`

// SQLiteStorage implementa ports.TradingStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db      *sql.DB
	opening decimal.Decimal // balance inicial de cada ledger al crear una cuenta
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica
// el schema. openingBalance es el saldo con el que arranca cada ledger
// (demo y live por separado) al crear una cuenta nueva.
func NewSQLiteStorage(path string, openingBalance decimal.Decimal) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db, opening: openingBalance}, nil
}

// EnsureAccount devuelve la cuenta, creándola con los balances iniciales
// la primera vez que se referencia.
func (s *SQLiteStorage) EnsureAccount(ctx context.Context, accountID string) (domain.Account, error) {
	acct, err := s.getAccount(ctx, accountID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("storage.EnsureAccount: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, mode, demo_balance, live_balance, created_at) VALUES (?, ?, ?, ?, ?)`,
		accountID, string(domain.ModeLive), s.opening.String(), s.opening.String(), time.Now().UTC(),
	); err != nil {
		return domain.Account{}, fmt.Errorf("storage.EnsureAccount: insert %q: %w", accountID, err)
	}

	return domain.Account{
		ID:          accountID,
		Mode:        domain.ModeLive,
		DemoBalance: s.opening,
		LiveBalance: s.opening,
	}, nil
}

// SetMode cambia el flag demo/live de la cuenta. No toca balances ni
// posiciones de ningún modo.
func (s *SQLiteStorage) SetMode(ctx context.Context, accountID string, mode domain.Mode) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET mode = ? WHERE id = ?`, string(mode), accountID)
	if err != nil {
		return fmt.Errorf("storage.SetMode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.SetMode: account %q: %w", accountID, sql.ErrNoRows)
	}
	return nil
}

// GetPosition devuelve la posición del símbolo en el modo dado, y un flag
// de existencia.
func (s *SQLiteStorage) GetPosition(ctx context.Context, accountID string, mode domain.Mode, symbol string) (domain.Position, bool, error) {
	pos, ok, err := getPositionQ(ctx, s.db, accountID, mode, symbol)
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("storage.GetPosition: %w", err)
	}
	return pos, ok, nil
}

// GetPositions devuelve todas las posiciones abiertas del modo dado,
// ordenadas por símbolo.
func (s *SQLiteStorage) GetPositions(ctx context.Context, accountID string, mode domain.Mode) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, quantity, avg_cost FROM positions
		 WHERE account_id = ? AND mode = ? ORDER BY symbol`,
		accountID, string(mode))
	if err != nil {
		return nil, fmt.Errorf("storage.GetPositions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		pos := domain.Position{AccountID: accountID, Mode: mode}
		var avgCost string
		if err := rows.Scan(&pos.Symbol, &pos.Quantity, &avgCost); err != nil {
			return nil, fmt.Errorf("storage.GetPositions: scan: %w", err)
		}
		if pos.AvgCost, err = decimal.NewFromString(avgCost); err != nil {
			return nil, fmt.Errorf("storage.GetPositions: avg_cost %q: %w", avgCost, err)
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

// SavePendingOrder inserta una orden límite pendiente. Las órdenes son
// inmutables: nunca hay update.
func (s *SQLiteStorage) SavePendingOrder(ctx context.Context, o domain.PendingOrder) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_orders (id, account_id, mode, side, symbol, quantity, limit_price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.AccountID, string(o.Mode), string(o.Side), o.Symbol, o.Quantity,
		o.LimitPrice.String(), o.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("storage.SavePendingOrder: %w", err)
	}
	return nil
}

// GetPendingOrders devuelve las órdenes pendientes del modo dado, agrupadas
// por símbolo y en orden de creación (las más antiguas primero).
func (s *SQLiteStorage) GetPendingOrders(ctx context.Context, accountID string, mode domain.Mode) ([]domain.PendingOrder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, side, symbol, quantity, limit_price, created_at FROM pending_orders
		 WHERE account_id = ? AND mode = ? ORDER BY symbol, created_at`,
		accountID, string(mode))
	if err != nil {
		return nil, fmt.Errorf("storage.GetPendingOrders: query: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingOrder
	for rows.Next() {
		o := domain.PendingOrder{AccountID: accountID, Mode: mode}
		var side, limitPrice string
		if err := rows.Scan(&o.ID, &side, &o.Symbol, &o.Quantity, &limitPrice, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage.GetPendingOrders: scan: %w", err)
		}
		o.Side = domain.Side(side)
		if o.LimitPrice, err = decimal.NewFromString(limitPrice); err != nil {
			return nil, fmt.Errorf("storage.GetPendingOrders: limit_price %q: %w", limitPrice, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeletePendingOrder borra la orden y devuelve sus términos originales.
// Si ya no existe (ejecutada, cancelada, o de otro modo) devuelve
// domain.ErrOrderNotFound.
func (s *SQLiteStorage) DeletePendingOrder(ctx context.Context, accountID string, mode domain.Mode, orderID string) (domain.PendingOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PendingOrder{}, fmt.Errorf("storage.DeletePendingOrder: begin tx: %w", err)
	}
	defer tx.Rollback()

	o := domain.PendingOrder{ID: orderID, AccountID: accountID, Mode: mode}
	var side, limitPrice string
	err = tx.QueryRowContext(ctx,
		`SELECT side, symbol, quantity, limit_price, created_at FROM pending_orders
		 WHERE id = ? AND account_id = ? AND mode = ?`,
		orderID, accountID, string(mode),
	).Scan(&side, &o.Symbol, &o.Quantity, &limitPrice, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PendingOrder{}, fmt.Errorf("storage.DeletePendingOrder: %q: %w", orderID, domain.ErrOrderNotFound)
	}
	if err != nil {
		return domain.PendingOrder{}, fmt.Errorf("storage.DeletePendingOrder: %w", err)
	}
	o.Side = domain.Side(side)
	if o.LimitPrice, err = decimal.NewFromString(limitPrice); err != nil {
		return domain.PendingOrder{}, fmt.Errorf("storage.DeletePendingOrder: limit_price %q: %w", limitPrice, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_orders WHERE id = ?`, orderID); err != nil {
		return domain.PendingOrder{}, fmt.Errorf("storage.DeletePendingOrder: delete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.PendingOrder{}, fmt.Errorf("storage.DeletePendingOrder: commit: %w", err)
	}
	return o, nil
}

// ApplyFill ejecuta una orden completa en una sola transacción.
// Si la orden venía de pending_orders, el DELETE va primero: si otra
// pasada del sweep ya la ejecutó, no hay fila y el fill entero se aborta
// con ErrOrderNotFound — imposible ejecutar dos veces la misma orden.
func (s *SQLiteStorage) ApplyFill(ctx context.Context, f domain.Fill) (domain.Position, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.ApplyFill: begin tx: %w", err)
	}
	defer tx.Rollback()

	if f.PendingOrderID != "" {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM pending_orders WHERE id = ? AND account_id = ? AND mode = ?`,
			f.PendingOrderID, f.AccountID, string(f.Mode))
		if err != nil {
			return domain.Position{}, fmt.Errorf("storage.ApplyFill: delete pending: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Position{}, fmt.Errorf("storage.ApplyFill: pending %q: %w", f.PendingOrderID, domain.ErrOrderNotFound)
		}
	}

	balCol := "live_balance"
	if f.Mode == domain.ModeDemo {
		balCol = "demo_balance"
	}

	var balStr string
	err = tx.QueryRowContext(ctx,
		`SELECT `+balCol+` FROM accounts WHERE id = ?`, f.AccountID).Scan(&balStr)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.ApplyFill: account %q: %w", f.AccountID, err)
	}
	balance, err := decimal.NewFromString(balStr)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.ApplyFill: balance %q: %w", balStr, err)
	}

	pos, hasPos, err := getPositionQ(ctx, tx, f.AccountID, f.Mode, f.Symbol)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.ApplyFill: %w", err)
	}
	if !hasPos {
		pos = domain.Position{AccountID: f.AccountID, Mode: f.Mode, Symbol: f.Symbol, AvgCost: decimal.Zero}
	}

	now := time.Now().UTC()
	cost := f.Cost()

	switch f.Side {
	case domain.SideBuy:
		if cost.GreaterThan(balance) {
			return domain.Position{}, fmt.Errorf("storage.ApplyFill: %s x%d at %s: %w",
				f.Symbol, f.Quantity, f.Price, domain.ErrInsufficientFunds)
		}
		balance = balance.Sub(cost)
		pos = pos.ApplyBuy(f.Quantity, f.Price)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO positions (account_id, mode, symbol, quantity, avg_cost, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(account_id, mode, symbol) DO UPDATE SET
			     quantity = excluded.quantity,
			     avg_cost = excluded.avg_cost,
			     updated_at = excluded.updated_at`,
			f.AccountID, string(f.Mode), f.Symbol, pos.Quantity, pos.AvgCost.String(), now,
		); err != nil {
			return domain.Position{}, fmt.Errorf("storage.ApplyFill: upsert position: %w", err)
		}

	case domain.SideSell:
		if !hasPos || pos.Quantity < f.Quantity {
			return domain.Position{}, fmt.Errorf("storage.ApplyFill: %s x%d: %w",
				f.Symbol, f.Quantity, domain.ErrInsufficientShares)
		}
		balance = balance.Add(cost)
		pos = pos.ApplySell(f.Quantity)
		if pos.Quantity == 0 {
			// Posición cerrada: la fila desaparece, no se conserva en cero.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM positions WHERE account_id = ? AND mode = ? AND symbol = ?`,
				f.AccountID, string(f.Mode), f.Symbol,
			); err != nil {
				return domain.Position{}, fmt.Errorf("storage.ApplyFill: delete position: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE positions SET quantity = ?, updated_at = ?
				 WHERE account_id = ? AND mode = ? AND symbol = ?`,
				pos.Quantity, now, f.AccountID, string(f.Mode), f.Symbol,
			); err != nil {
				return domain.Position{}, fmt.Errorf("storage.ApplyFill: update position: %w", err)
			}
		}

	default:
		return domain.Position{}, fmt.Errorf("storage.ApplyFill: unknown side %q", f.Side)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET `+balCol+` = ? WHERE id = ?`,
		balance.String(), f.AccountID,
	); err != nil {
		return domain.Position{}, fmt.Errorf("storage.ApplyFill: update balance: %w", err)
	}

	executedAt := f.ExecutedAt
	if executedAt.IsZero() {
		executedAt = now
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_history (account_id, mode, side, symbol, quantity, price, kind, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.AccountID, string(f.Mode), string(f.Side), f.Symbol, f.Quantity,
		f.Price.String(), string(f.Kind), executedAt.UTC(),
	); err != nil {
		return domain.Position{}, fmt.Errorf("storage.ApplyFill: insert history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Position{}, fmt.Errorf("storage.ApplyFill: commit: %w", err)
	}
	return pos, nil
}

// GetOrderHistory devuelve los fills más recientes primero.
func (s *SQLiteStorage) GetOrderHistory(ctx context.Context, accountID string, mode domain.Mode, limit int) ([]domain.OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, side, symbol, quantity, price, kind, executed_at FROM order_history
		 WHERE account_id = ? AND mode = ? ORDER BY executed_at DESC, id DESC LIMIT ?`,
		accountID, string(mode), limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetOrderHistory: query: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderRecord
	for rows.Next() {
		r := domain.OrderRecord{AccountID: accountID, Mode: mode}
		var side, price, kind string
		if err := rows.Scan(&r.ID, &side, &r.Symbol, &r.Quantity, &price, &kind, &r.ExecutedAt); err != nil {
			return nil, fmt.Errorf("storage.GetOrderHistory: scan: %w", err)
		}
		r.Side = domain.Side(side)
		r.Kind = domain.OrderKind(kind)
		if r.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("storage.GetOrderHistory: price %q: %w", price, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetDemoPrice devuelve el último precio simulado del símbolo, si existe.
func (s *SQLiteStorage) GetDemoPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	var price string
	err := s.db.QueryRowContext(ctx,
		`SELECT price FROM demo_prices WHERE symbol = ?`, symbol).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("storage.GetDemoPrice: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("storage.GetDemoPrice: price %q: %w", price, err)
	}
	return d, true, nil
}

// SaveDemoPrice persiste el nuevo baseline del random walk.
func (s *SQLiteStorage) SaveDemoPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO demo_prices (symbol, price, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`,
		symbol, price.String(), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.SaveDemoPrice: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// querier cubre *sql.DB y *sql.Tx para leer posiciones dentro o fuera de
// una transacción.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStorage) getAccount(ctx context.Context, accountID string) (domain.Account, error) {
	acct := domain.Account{ID: accountID}
	var mode, demoBal, liveBal string
	err := s.db.QueryRowContext(ctx,
		`SELECT mode, demo_balance, live_balance FROM accounts WHERE id = ?`,
		accountID,
	).Scan(&mode, &demoBal, &liveBal)
	if err != nil {
		return domain.Account{}, err
	}
	acct.Mode = domain.Mode(mode)
	if acct.DemoBalance, err = decimal.NewFromString(demoBal); err != nil {
		return domain.Account{}, fmt.Errorf("demo_balance %q: %w", demoBal, err)
	}
	if acct.LiveBalance, err = decimal.NewFromString(liveBal); err != nil {
		return domain.Account{}, fmt.Errorf("live_balance %q: %w", liveBal, err)
	}
	return acct, nil
}

func getPositionQ(ctx context.Context, q querier, accountID string, mode domain.Mode, symbol string) (domain.Position, bool, error) {
	pos := domain.Position{AccountID: accountID, Mode: mode, Symbol: symbol}
	var avgCost string
	err := q.QueryRowContext(ctx,
		`SELECT quantity, avg_cost FROM positions WHERE account_id = ? AND mode = ? AND symbol = ?`,
		accountID, string(mode), symbol,
	).Scan(&pos.Quantity, &avgCost)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, err
	}
	if pos.AvgCost, err = decimal.NewFromString(avgCost); err != nil {
		return domain.Position{}, false, fmt.Errorf("avg_cost %q: %w", avgCost, err)
	}
	return pos, true, nil
}
