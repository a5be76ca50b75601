// Package redisstore persists catalog and order snapshots as JSON blobs in
// Redis, one key per collection.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"magazyn/internal/domain"
	"magazyn/internal/storage"
)

const (
	productsKey = "magazyn:products"
	ordersKey   = "magazyn:orders"
)

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := s.load(ctx, productsKey, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SaveProducts(ctx context.Context, products []domain.Product) error {
	return s.save(ctx, productsKey, products)
}

func (s *Store) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := s.load(ctx, ordersKey, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) SaveOrders(ctx context.Context, orders []domain.Order) error {
	return s.save(ctx, ordersKey, orders)
}

func (s *Store) load(ctx context.Context, key string, into any) error {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), into); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
