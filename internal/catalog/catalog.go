package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"magazyn/internal/domain"
)

// Catalog owns every product record and is the only code allowed to change
// the quantity/reserved counters. All methods hold the catalog mutex for
// their full duration, so each call is atomic with respect to the others.
type Catalog struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
	nextID   int64
	validate *validator.Validate
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Catalog {
	return &Catalog{
		products: make(map[int64]*domain.Product),
		nextID:   1,
		validate: validator.New(),
		logger:   logger,
	}
}

// Add inserts a new product. Reserved is forced to zero regardless of input
// and the id is assigned here, never by the caller.
func (c *Catalog) Add(p domain.Product) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := c.validate.Struct(p); err != nil {
		return domain.Product{}, asValidationError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p.ID = c.nextID
	c.nextID++
	p.Reserved = 0
	c.products[p.ID] = &p

	c.logger.Info("product added",
		zap.Int64("product_id", p.ID),
		zap.String("name", p.Name),
		zap.Int("quantity", p.Quantity),
	)
	return p, nil
}

// Edit applies a partial update. A direct quantity edit is an administrative
// restock/correction and deliberately leaves Reserved alone.
func (c *Catalog) Edit(id int64, upd domain.ProductUpdate) (domain.Product, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return domain.Product{}, domain.NewValidationError("name", "name is required")
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		return domain.Product{}, domain.NewValidationError("quantity", "quantity must be greater than or equal to 0")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("edit product %d: %w", id, domain.ErrProductNotFound)
	}

	if upd.Name != nil {
		p.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}
	if upd.Image != nil {
		p.Image = *upd.Image
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	return *p, nil
}

// Remove deletes a product. A product still referenced by an open order
// (Reserved > 0) cannot be removed; those orders must be cancelled or
// completed first.
func (c *Catalog) Remove(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return fmt.Errorf("remove product %d: %w", id, domain.ErrProductNotFound)
	}
	if p.Reserved > 0 {
		return fmt.Errorf("remove product %d (%d reserved): %w", id, p.Reserved, domain.ErrProductReserved)
	}

	delete(c.products, id)
	c.logger.Info("product removed", zap.Int64("product_id", id))
	return nil
}

// Reserve places a hold for every item, all-or-nothing: availability is
// checked for the whole batch before any counter moves, and a failure leaves
// every product untouched. Multiple lines for the same product are summed
// before the check so a batch cannot sneak past it in pieces.
func (c *Catalog) Reserve(items []domain.OrderItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	needed, order := aggregate(items)

	var shortages []domain.Shortage
	for _, id := range order {
		p, ok := c.products[id]
		if !ok {
			return fmt.Errorf("reserve product %d: %w", id, domain.ErrProductNotFound)
		}
		if p.Quantity < needed[id] {
			shortages = append(shortages, domain.Shortage{
				ProductID:   id,
				ProductName: p.Name,
				Requested:   needed[id],
				Available:   p.Quantity,
			})
		}
	}
	if len(shortages) > 0 {
		return &domain.InsufficientStockError{Shortages: shortages}
	}

	for _, id := range order {
		p := c.products[id]
		p.Quantity -= needed[id]
		p.Reserved += needed[id]
	}
	return nil
}

// Release returns held stock to the sellable counter, used when an order is
// cancelled or edited. It never fails: unknown products are skipped and
// Reserved is clamped at zero, so releasing the same items twice is safe.
func (c *Catalog) Release(items []domain.OrderItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, it := range items {
		p, ok := c.products[it.ProductID]
		if !ok {
			c.logger.Warn("release for unknown product skipped", zap.Int64("product_id", it.ProductID))
			continue
		}
		p.Quantity += it.Quantity
		p.Reserved = max(0, p.Reserved-it.Quantity)
	}
}

// ClearReservation drops the hold without restoring Quantity: the stock was
// consumed by fulfillment. Clamped at zero like Release.
func (c *Catalog) ClearReservation(items []domain.OrderItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, it := range items {
		p, ok := c.products[it.ProductID]
		if !ok {
			c.logger.Warn("clear for unknown product skipped", zap.Int64("product_id", it.ProductID))
			continue
		}
		p.Reserved = max(0, p.Reserved-it.Quantity)
	}
}

// Availability reports how many units can still be reserved. Reserve debits
// Quantity immediately, so this is Quantity itself, never quantity minus
// reserved.
func (c *Catalog) Availability(id int64) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return 0, fmt.Errorf("availability of product %d: %w", id, domain.ErrProductNotFound)
	}
	return p.Quantity, nil
}

func (c *Catalog) Get(id int64) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("get product %d: %w", id, domain.ErrProductNotFound)
	}
	return *p, nil
}

// List returns a copy of every product ordered by id.
func (c *Catalog) List() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return int(a.ID - b.ID)
	})
	return out
}

// ReplaceAll swaps in a loaded snapshot, used at startup and on refresh.
func (c *Catalog) ReplaceAll(products []domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = make(map[int64]*domain.Product, len(products))
	c.nextID = 1
	for _, p := range products {
		c.products[p.ID] = &p
		if p.ID >= c.nextID {
			c.nextID = p.ID + 1
		}
	}
}

// aggregate sums quantities per product, keeping first-seen order for
// deterministic shortage reporting.
func aggregate(items []domain.OrderItem) (map[int64]int, []int64) {
	needed := make(map[int64]int, len(items))
	order := make([]int64, 0, len(items))
	for _, it := range items {
		if _, seen := needed[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		needed[it.ProductID] += it.Quantity
	}
	return needed, order
}

func asValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "gte":
			fields[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "min":
			fields[field] = fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return &domain.ValidationError{Fields: fields}
}
