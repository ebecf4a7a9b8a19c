package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rojas-cambio/cambio/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	receipt TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL,
	type TEXT NOT NULL,
	currency TEXT NOT NULL,
	amount TEXT NOT NULL,
	rate TEXT NOT NULL,
	total TEXT NOT NULL DEFAULT '0',
	customer_dni TEXT NOT NULL DEFAULT '',
	customer_name TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_receipt ON transactions (receipt);
CREATE TABLE IF NOT EXISTS receipt_sequences (
	name TEXT PRIMARY KEY,
	seq INTEGER NOT NULL
);
`

const selectColumns = "id, receipt, date, type, currency, amount, rate, total, customer_dni, customer_name, user_id, created_at"

// SQLiteStore keeps transactions in a SQLite database. Amounts are stored
// as TEXT so decimals round-trip exactly.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Add(ctx context.Context, t model.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Receipt, t.Day(), string(t.Type), string(t.Currency),
		t.Amount.String(), t.Rate.String(), t.Total.String(),
		t.CustomerDNI, t.CustomerName, t.UserID, formatTimestamp(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting transaction %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("reading transaction %s: %w", id, err)
	}
	return t, nil
}

func (s *SQLiteStore) Update(ctx context.Context, t model.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET receipt = ?, date = ?, type = ?, currency = ?, amount = ?, rate = ?, total = ?,
		customer_dni = ?, customer_name = ?, user_id = ?, created_at = ? WHERE id = ?`,
		t.Receipt, t.Day(), string(t.Type), string(t.Currency),
		t.Amount.String(), t.Rate.String(), t.Total.String(),
		t.CustomerDNI, t.CustomerName, t.UserID, formatTimestamp(t.CreatedAt), t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating transaction %s: %w", t.ID, err)
	}
	return requireOneRow(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	return requireOneRow(res)
}

func (s *SQLiteStore) List(ctx context.Context, q Query) ([]model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if q.Range.Start != "" {
		where = append(where, "date >= ?")
		args = append(args, q.Range.Start)
	}
	if q.Range.End != "" {
		where = append(where, "date <= ?")
		args = append(args, q.Range.End)
	}
	if q.Currency != "" {
		where = append(where, "currency = ?")
		args = append(args, string(q.Currency))
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.Receipt != "" {
		where = append(where, "substr(receipt, 1, ?) = ?")
		args = append(args, len(q.Receipt), q.Receipt)
	}

	query := `SELECT ` + selectColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LastSeq(ctx context.Context, key string) (int, error) {
	var seq int
	err := s.db.QueryRowContext(ctx, `SELECT seq FROM receipt_sequences WHERE name = ?`, key).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading sequence %s: %w", key, err)
	}
	return seq, nil
}

func (s *SQLiteStore) SetSeq(ctx context.Context, key string, seq int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO receipt_sequences (name, seq) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET seq = excluded.seq WHERE excluded.seq > receipt_sequences.seq`,
		key, seq,
	)
	if err != nil {
		return fmt.Errorf("storing sequence %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (model.Transaction, error) {
	var (
		t                      model.Transaction
		day, typ, cur, created string
		amount, rate, total    decimal.Decimal
	)
	if err := sc.Scan(&t.ID, &t.Receipt, &day, &typ, &cur, &amount, &rate, &total,
		&t.CustomerDNI, &t.CustomerName, &t.UserID, &created); err != nil {
		return model.Transaction{}, err
	}

	date, err := time.Parse(model.DateFormat, day)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", day, err)
	}
	t.Date = date
	t.Type = model.TransactionType(typ)
	t.Currency = model.Currency(cur)
	t.Amount, t.Rate, t.Total = amount, rate, total

	if created != "" {
		t.CreatedAt, err = time.Parse(TimestampFormat, created)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing created_at %q: %w", created, err)
		}
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampFormat)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
