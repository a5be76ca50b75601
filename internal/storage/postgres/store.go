// Package postgres persists catalog and order snapshots in Postgres. Each
// save replaces the whole table inside one transaction, matching the
// snapshot semantics of the storage contract.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"magazyn/internal/domain"
	"magazyn/internal/storage"
	"magazyn/pkg/applog"
)

type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("postgres_store"),
	}
}

func (s *Store) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.LoadProducts")
	defer span.End()

	query := `
		SELECT id, name, quantity, reserved, image, description
		FROM products
		ORDER BY id;
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.Reserved, &p.Image, &p.Description); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products rows: %w", err)
	}

	if len(products) == 0 {
		return nil, storage.ErrNotFound
	}
	return products, nil
}

func (s *Store) SaveProducts(ctx context.Context, products []domain.Product) error {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.SaveProducts")
	defer span.End()

	return s.replaceAll(ctx, "products", func(tx pgx.Tx) error {
		query := `
			INSERT INTO products (id, name, quantity, reserved, image, description)
			VALUES ($1, $2, $3, $4, $5, $6);
		`
		for _, p := range products {
			if _, err := tx.Exec(ctx, query, p.ID, p.Name, p.Quantity, p.Reserved, p.Image, p.Description); err != nil {
				return fmt.Errorf("insert product %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.LoadOrders")
	defer span.End()

	query := `
		SELECT id, status, created_at, notes, items
		FROM orders
		ORDER BY created_at DESC, id DESC;
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o         domain.Order
			status    string
			itemsJSON []byte
		)
		if err := rows.Scan(&o.ID, &status, &o.CreatedAt, &o.Notes, &itemsJSON); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("decode items of order %d: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders rows: %w", err)
	}

	if len(orders) == 0 {
		return nil, storage.ErrNotFound
	}
	return orders, nil
}

func (s *Store) SaveOrders(ctx context.Context, orders []domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.SaveOrders")
	defer span.End()

	return s.replaceAll(ctx, "orders", func(tx pgx.Tx) error {
		query := `
			INSERT INTO orders (id, status, created_at, notes, items)
			VALUES ($1, $2, $3, $4, $5);
		`
		for _, o := range orders {
			itemsJSON, err := json.Marshal(o.Items)
			if err != nil {
				return fmt.Errorf("encode items of order %d: %w", o.ID, err)
			}
			if _, err := tx.Exec(ctx, query, o.ID, string(o.Status), o.CreatedAt, o.Notes, itemsJSON); err != nil {
				return fmt.Errorf("insert order %d: %w", o.ID, err)
			}
		}
		return nil
	})
}

// replaceAll truncates table and runs insert inside one transaction.
func (s *Store) replaceAll(ctx context.Context, table string, insert func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			applog.Warn(cleanupCtx, s.logger, "failed to rollback transaction", zap.Error(err))
		}
	}()

	if _, err := tx.Exec(ctx, "DELETE FROM "+table+";"); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s snapshot: %w", table, err)
	}
	return nil
}
