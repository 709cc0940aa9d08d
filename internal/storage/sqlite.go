package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"storefront/internal/model"
	"storefront/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// touch creates the session row if needed and bumps its updated_at.
func (s *SQLite) touch(ctx context.Context, db execer, chatID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, updated_at) VALUES (?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET updated_at = excluded.updated_at`,
		chatID, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Touch marks a chat as active so the sweeper keeps its session.
func (s *SQLite) Touch(ctx context.Context, chatID int64) error {
	return s.touch(ctx, s.db, chatID)
}

// LoadFilter returns the last saved filter of a chat, or the zero spec
// if none was saved.
func (s *SQLite) LoadFilter(ctx context.Context, chatID int64) (model.FilterSpec, error) {
	var sortBy sql.NullInt64
	var brandsJSON, modelsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT sort_by, brands, models FROM sessions WHERE chat_id = ?`, chatID,
	).Scan(&sortBy, &brandsJSON, &modelsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FilterSpec{}, nil
	}
	if err != nil {
		return model.FilterSpec{}, fmt.Errorf("query filter: %w", err)
	}

	var brands, models []string
	if err := json.Unmarshal([]byte(brandsJSON), &brands); err != nil {
		return model.FilterSpec{}, fmt.Errorf("decode brands: %w", err)
	}
	if err := json.Unmarshal([]byte(modelsJSON), &models); err != nil {
		return model.FilterSpec{}, fmt.Errorf("decode models: %w", err)
	}

	var opt *model.SortOption
	if sortBy.Valid {
		v := model.SortOption(sortBy.Int64)
		if v.Valid() {
			opt = &v
		}
	}
	return model.NewFilterSpec(opt, brands, models), nil
}

// SaveFilter stores the filter of a chat.
func (s *SQLite) SaveFilter(ctx context.Context, chatID int64, spec model.FilterSpec) error {
	brands, err := encodeList(spec.Brands())
	if err != nil {
		return err
	}
	models, err := encodeList(spec.Models())
	if err != nil {
		return err
	}
	var sortBy *int64
	if opt, ok := spec.SortBy(); ok {
		v := int64(opt)
		sortBy = &v
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, sort_by, brands, models, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET
		     sort_by = excluded.sort_by,
		     brands = excluded.brands,
		     models = excluded.models,
		     updated_at = excluded.updated_at`,
		chatID, sortBy, brands, models, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	return nil
}

// ListFavorites returns the favorite product IDs of a chat in the order
// they were added.
func (s *SQLite) ListFavorites(ctx context.Context, chatID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id FROM favorites WHERE chat_id = ? ORDER BY created_at, rowid`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetFavorite marks or unmarks a product as a favorite of a chat.
func (s *SQLite) SetFavorite(ctx context.Context, chatID, productID int64, favorite bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.touch(ctx, tx, chatID); err != nil {
		return err
	}
	if favorite {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO favorites (chat_id, product_id, created_at) VALUES (?, ?, ?)`,
			chatID, productID, s.timestamp(),
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM favorites WHERE chat_id = ? AND product_id = ?`, chatID, productID,
		)
	}
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	return tx.Commit()
}

// AddToCart adds quantity units of a product to the cart of a chat and
// returns the resulting quantity, capped at model.MaxCartQuantity.
func (s *SQLite) AddToCart(ctx context.Context, chatID, productID int64, quantity int) (int, error) {
	if quantity < 1 {
		return 0, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.touch(ctx, tx, chatID); err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cart_items (chat_id, product_id, quantity, added_at) VALUES (?, ?, min(?, ?), ?)
		 ON CONFLICT (chat_id, product_id) DO UPDATE SET quantity = min(quantity + excluded.quantity, ?)`,
		chatID, productID, quantity, model.MaxCartQuantity, s.timestamp(), model.MaxCartQuantity,
	)
	if err != nil {
		return 0, fmt.Errorf("add to cart: %w", err)
	}

	var total int
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM cart_items WHERE chat_id = ? AND product_id = ?`, chatID, productID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("read cart quantity: %w", err)
	}
	return total, tx.Commit()
}

// RemoveFromCart deletes a cart line. It returns ErrNotFound when the
// product is not in the cart.
func (s *SQLite) RemoveFromCart(ctx context.Context, chatID, productID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE chat_id = ? AND product_id = ?`, chatID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.touch(ctx, s.db, chatID)
}

// ClearCart removes every cart line of a chat.
func (s *SQLite) ClearCart(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return s.touch(ctx, s.db, chatID)
}

// ListCart returns the cart lines of a chat in the order they were added.
func (s *SQLite) ListCart(ctx context.Context, chatID int64) ([]model.CartItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, quantity, added_at FROM cart_items WHERE chat_id = ? ORDER BY added_at, rowid`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		var added string
		if err := rows.Scan(&item.ProductID, &item.Quantity, &added); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.AddedAt, _ = time.Parse(timeLayout, added)
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteStaleSessions removes sessions last updated before the given
// time, together with their favorites and cart lines. It returns the
// number of sessions removed.
func (s *SQLite) DeleteStaleSessions(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stale := `SELECT chat_id FROM sessions WHERE updated_at < ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE chat_id IN (`+stale+`)`, cutoff); err != nil {
		return 0, fmt.Errorf("delete favorites: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE chat_id IN (`+stale+`)`, cutoff); err != nil {
		return 0, fmt.Errorf("delete cart items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, tx.Commit()
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(data), nil
}
