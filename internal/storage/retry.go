package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"magazyn/internal/domain"
)

// retryStore decorates a Store with bounded retries on saves and a circuit
// breaker over every call. Loads are not retried: an absent snapshot is a
// normal answer and the breaker does not count it as a failure.
type retryStore struct {
	next     Store
	attempts int
	wait     time.Duration
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// WithRetry wraps next so transient persistence failures are retried up to
// attempts times before the error surfaces.
func WithRetry(next Store, attempts int, wait time.Duration, logger *zap.Logger) Store {
	if attempts < 1 {
		attempts = 1
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "storage",
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})
	return &retryStore{
		next:     next,
		attempts: attempts,
		wait:     wait,
		breaker:  cb,
		logger:   logger,
	}
}

func (s *retryStore) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	return execute(s.breaker, func() ([]domain.Product, error) {
		return s.next.LoadProducts(ctx)
	})
}

func (s *retryStore) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	return execute(s.breaker, func() ([]domain.Order, error) {
		return s.next.LoadOrders(ctx)
	})
}

func (s *retryStore) SaveProducts(ctx context.Context, products []domain.Product) error {
	return s.retry(ctx, "save products", func() error {
		return s.next.SaveProducts(ctx, products)
	})
}

func (s *retryStore) SaveOrders(ctx context.Context, orders []domain.Order) error {
	return s.retry(ctx, "save orders", func() error {
		return s.next.SaveOrders(ctx, orders)
	})
}

func (s *retryStore) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		_, err = s.breaker.Execute(func() (any, error) {
			return nil, fn()
		})
		if err == nil {
			return nil
		}

		s.logger.Warn("persistence attempt failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == s.attempts {
			break
		}
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return fmt.Errorf("%s: %d attempts exhausted: %w", op, s.attempts, err)
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}
