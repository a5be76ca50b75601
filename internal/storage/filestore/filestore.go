// Package filestore persists catalog and order snapshots as JSON files,
// mirroring the load/save contract against a local data directory. Writes go
// through a temp file and rename so a crash mid-save never leaves a torn
// snapshot behind.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"magazyn/internal/domain"
	"magazyn/internal/storage"
)

const (
	productsFile = "products.json"
	ordersFile   = "orders.json"
)

type Store struct {
	dir    string
	logger *zap.Logger
}

func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := s.load(productsFile, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SaveProducts(ctx context.Context, products []domain.Product) error {
	return s.save(productsFile, products)
}

func (s *Store) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := s.load(ordersFile, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) SaveOrders(ctx context.Context, orders []domain.Order) error {
	return s.save(ordersFile, orders)
}

func (s *Store) load(name string, into any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}

	s.logger.Debug("snapshot saved", zap.String("file", name), zap.Int("bytes", len(data)))
	return nil
}
