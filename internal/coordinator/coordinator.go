package coordinator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"magazyn/internal/domain"
	"magazyn/internal/journal"
	"magazyn/internal/storage"
	"magazyn/pkg/applog"
)

// Catalog is the product-side collaborator. Only the coordinator may call
// its mutating operations.
type Catalog interface {
	Add(p domain.Product) (domain.Product, error)
	Edit(id int64, upd domain.ProductUpdate) (domain.Product, error)
	Remove(id int64) error
	Reserve(items []domain.OrderItem) error
	Release(items []domain.OrderItem)
	ClearReservation(items []domain.OrderItem)
	Availability(id int64) (int, error)
	Get(id int64) (domain.Product, error)
	List() []domain.Product
	ReplaceAll(products []domain.Product)
}

// Orders is the order-side collaborator.
type Orders interface {
	Create(o domain.Order) (domain.Order, error)
	Replace(o domain.Order) (domain.Order, error)
	SetStatus(id int64, next domain.OrderStatus) (domain.Order, error)
	Get(id int64) (domain.Order, error)
	All() iter.Seq[domain.Order]
	ReplaceAll(orders []domain.Order)
}

// Coordinator is the single mutation entry point of the system. It is the
// only component calling both the catalog and the order store, and it holds
// one mutex across validation, both-store mutation and the persistence
// attempt, so no two order actions ever interleave.
//
// Every operation validates fully before touching either store. The one
// place where a step can fail after stock already moved is order creation
// inside PlaceOrder; that path compensates with a release before returning.
type Coordinator struct {
	mu      sync.Mutex
	catalog Catalog
	orders  Orders
	store   storage.Store
	journal *journal.Journal
	logger  *zap.Logger
	tracer  trace.Tracer
}

func New(catalog Catalog, orders Orders, store storage.Store, jrnl *journal.Journal, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		catalog: catalog,
		orders:  orders,
		store:   store,
		journal: jrnl,
		logger:  logger,
		tracer:  otel.Tracer("coordinator"),
	}
}

// PlaceOrder reserves stock for every item and creates the order record.
// Availability is checked for the whole batch before any counter moves; a
// shortfall rejects the order listing each short product. If the order
// record cannot be created after the reservation succeeded, the reservation
// is rolled back so no stock leaks.
func (c *Coordinator) PlaceOrder(ctx context.Context, items []domain.OrderItem, notes string) (domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("items_count", len(items)))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateItems(items); err != nil {
		return domain.Order{}, err
	}
	filled, err := c.snapshotNames(items)
	if err != nil {
		return domain.Order{}, err
	}

	if err := c.catalog.Reserve(filled); err != nil {
		applog.Warn(ctx, c.logger, "order rejected", zap.Error(err))
		return domain.Order{}, err
	}

	order, err := c.orders.Create(domain.Order{Items: filled, Notes: notes})
	if err != nil {
		c.catalog.Release(filled)
		applog.Error(ctx, c.logger, "order creation failed, reservation rolled back", zap.Error(err))
		return domain.Order{}, fmt.Errorf("place order: %w", err)
	}

	c.journal.RecordItems(domain.MovementReserve, order.ID, filled)
	c.persist(ctx)

	applog.Info(ctx, c.logger, "order placed",
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

// EditOrder swaps the item list of a still-new order. Each new item is
// validated against the availability it would see with the old reservation
// released first (quantity + old hold on that product); only then does the
// release/reserve pair run, so there is no window where the order is over-
// or under-reserved.
func (c *Coordinator) EditOrder(ctx context.Context, orderID int64, newItems []domain.OrderItem, notes string) (domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.EditOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", orderID))

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if current.Status != domain.OrderStatusNew {
		return domain.Order{}, fmt.Errorf("edit order %d in status %q: %w",
			orderID, current.Status, domain.ErrInvalidTransition)
	}
	if err := validateItems(newItems); err != nil {
		return domain.Order{}, err
	}
	filled, err := c.snapshotNames(newItems)
	if err != nil {
		return domain.Order{}, err
	}

	if err := c.checkNetAvailability(current.Items, filled); err != nil {
		applog.Warn(ctx, c.logger, "order edit rejected", zap.Int64("order_id", orderID), zap.Error(err))
		return domain.Order{}, err
	}

	c.catalog.Release(current.Items)
	if err := c.catalog.Reserve(filled); err != nil {
		// Unreachable after the net check; restore the old hold.
		_ = c.catalog.Reserve(current.Items)
		return domain.Order{}, fmt.Errorf("edit order %d: %w", orderID, err)
	}

	updated, err := c.orders.Replace(domain.Order{ID: orderID, Items: filled, Notes: notes})
	if err != nil {
		c.catalog.Release(filled)
		_ = c.catalog.Reserve(current.Items)
		return domain.Order{}, fmt.Errorf("edit order %d: %w", orderID, err)
	}

	c.journal.RecordItems(domain.MovementRelease, orderID, current.Items)
	c.journal.RecordItems(domain.MovementReserve, orderID, filled)
	c.persist(ctx)

	applog.Info(ctx, c.logger, "order edited", zap.Int64("order_id", orderID))
	return updated, nil
}

// AcceptOrder moves a new order to accepted. No stock moves: the
// reservation made at placement simply stays held.
func (c *Coordinator) AcceptOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.AcceptOrder")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	order, err := c.orders.SetStatus(orderID, domain.OrderStatusAccepted)
	if err != nil {
		return domain.Order{}, err
	}
	c.persist(ctx)

	applog.Info(ctx, c.logger, "order accepted", zap.Int64("order_id", orderID))
	return order, nil
}

// CancelOrder releases the order's reservation back to sellable stock and
// marks the order cancelled.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", orderID))

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !current.Status.CanTransitionTo(domain.OrderStatusCancelled) {
		return domain.Order{}, fmt.Errorf("cancel order %d in status %q: %w",
			orderID, current.Status, domain.ErrInvalidTransition)
	}

	c.catalog.Release(current.Items)
	order, err := c.orders.SetStatus(orderID, domain.OrderStatusCancelled)
	if err != nil {
		// The transition was pre-checked; this cannot fire under the lock.
		return domain.Order{}, err
	}

	c.journal.RecordItems(domain.MovementRelease, orderID, current.Items)
	c.persist(ctx)

	applog.Info(ctx, c.logger, "order cancelled", zap.Int64("order_id", orderID))
	return order, nil
}

// CompleteOrder clears the order's reservation without restoring stock (the
// units left the shelf) and marks the order completed. Completing straight
// from new is allowed.
func (c *Coordinator) CompleteOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.CompleteOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", orderID))

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !current.Status.CanTransitionTo(domain.OrderStatusCompleted) {
		return domain.Order{}, fmt.Errorf("complete order %d in status %q: %w",
			orderID, current.Status, domain.ErrInvalidTransition)
	}

	c.catalog.ClearReservation(current.Items)
	order, err := c.orders.SetStatus(orderID, domain.OrderStatusCompleted)
	if err != nil {
		return domain.Order{}, err
	}

	c.journal.RecordItems(domain.MovementClear, orderID, current.Items)
	c.persist(ctx)

	applog.Info(ctx, c.logger, "order completed", zap.Int64("order_id", orderID))
	return order, nil
}

// AddProduct, EditProduct and RemoveProduct are the administrative catalog
// mutations. They run under the same lock and persistence discipline as the
// order operations so there is no mutation path around the coordinator.

func (c *Coordinator) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.AddProduct")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	added, err := c.catalog.Add(p)
	if err != nil {
		return domain.Product{}, err
	}
	if added.Quantity > 0 {
		c.journal.Record(domain.MovementRestock, added.ID, 0, added.Quantity)
	}
	c.persist(ctx)
	return added, nil
}

func (c *Coordinator) EditProduct(ctx context.Context, id int64, upd domain.ProductUpdate) (domain.Product, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.EditProduct")
	defer span.End()
	span.SetAttributes(attribute.Int64("product_id", id))

	c.mu.Lock()
	defer c.mu.Unlock()

	before, err := c.catalog.Get(id)
	if err != nil {
		return domain.Product{}, err
	}
	edited, err := c.catalog.Edit(id, upd)
	if err != nil {
		return domain.Product{}, err
	}
	if delta := edited.Quantity - before.Quantity; delta != 0 {
		c.journal.Record(domain.MovementCorrection, id, 0, delta)
	}
	c.persist(ctx)
	return edited, nil
}

func (c *Coordinator) RemoveProduct(ctx context.Context, id int64) error {
	ctx, span := c.tracer.Start(ctx, "Coordinator.RemoveProduct")
	defer span.End()
	span.SetAttributes(attribute.Int64("product_id", id))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.catalog.Remove(id); err != nil {
		return err
	}
	c.persist(ctx)
	return nil
}

// Products returns a catalog snapshot in id order.
func (c *Coordinator) Products() []domain.Product {
	return c.catalog.List()
}

// Orders returns the shared newest-first order sequence.
func (c *Coordinator) Orders() iter.Seq[domain.Order] {
	return c.orders.All()
}

func (c *Coordinator) Order(id int64) (domain.Order, error) {
	return c.orders.Get(id)
}

func (c *Coordinator) Product(id int64) (domain.Product, error) {
	return c.catalog.Get(id)
}

func (c *Coordinator) Availability(id int64) (int, error) {
	return c.catalog.Availability(id)
}

// Movements exposes the audit trail for one product.
func (c *Coordinator) Movements(productID int64) []domain.Movement {
	return c.journal.ByProduct(productID)
}

// Load pulls both snapshots from the persistence collaborator. An absent
// snapshot means an empty catalog or order book, not an error.
func (c *Coordinator) Load(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Load")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	products, err := c.store.LoadProducts(ctx)
	switch {
	case err == nil:
		c.catalog.ReplaceAll(products)
	case errors.Is(err, storage.ErrNotFound):
		c.catalog.ReplaceAll(nil)
	default:
		return fmt.Errorf("load products: %w", err)
	}

	orders, err := c.store.LoadOrders(ctx)
	switch {
	case err == nil:
		c.orders.ReplaceAll(orders)
	case errors.Is(err, storage.ErrNotFound):
		c.orders.ReplaceAll(nil)
	default:
		return fmt.Errorf("load orders: %w", err)
	}

	applog.Info(ctx, c.logger, "state loaded",
		zap.Int("products", len(products)),
		zap.Int("orders", len(orders)),
	)
	return nil
}

// Flush saves both snapshots and surfaces any persistence error.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx)
}

// persist runs after a successful in-memory mutation. Memory is the source
// of truth, so a persistence failure is logged and the operation still
// succeeds; the next save carries the full state anyway.
func (c *Coordinator) persist(ctx context.Context) {
	if err := c.save(ctx); err != nil {
		applog.Error(ctx, c.logger, "persistence failed, in-memory state kept", zap.Error(err))
	}
}

func (c *Coordinator) save(ctx context.Context) error {
	if err := c.store.SaveProducts(ctx, c.catalog.List()); err != nil {
		return err
	}

	var orders []domain.Order
	for o := range c.orders.All() {
		orders = append(orders, o)
	}
	return c.store.SaveOrders(ctx, orders)
}

// snapshotNames resolves every item's product and stamps the current product
// name onto it, rejecting unknown products before anything mutates.
func (c *Coordinator) snapshotNames(items []domain.OrderItem) ([]domain.OrderItem, error) {
	filled := make([]domain.OrderItem, len(items))
	for i, it := range items {
		p, err := c.catalog.Get(it.ProductID)
		if err != nil {
			return nil, err
		}
		it.ProductName = p.Name
		filled[i] = it
	}
	return filled, nil
}

// checkNetAvailability validates newItems as if oldItems were already
// released: each product may draw on its live quantity plus whatever the old
// order held on it.
func (c *Coordinator) checkNetAvailability(oldItems, newItems []domain.OrderItem) error {
	oldHeld := make(map[int64]int, len(oldItems))
	for _, it := range oldItems {
		oldHeld[it.ProductID] += it.Quantity
	}

	needed := make(map[int64]int, len(newItems))
	seen := make([]domain.OrderItem, 0, len(newItems))
	for _, it := range newItems {
		if _, dup := needed[it.ProductID]; !dup {
			seen = append(seen, it)
		}
		needed[it.ProductID] += it.Quantity
	}

	var shortages []domain.Shortage
	for _, it := range seen {
		avail, err := c.catalog.Availability(it.ProductID)
		if err != nil {
			return err
		}
		net := avail + oldHeld[it.ProductID]
		if needed[it.ProductID] > net {
			shortages = append(shortages, domain.Shortage{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Requested:   needed[it.ProductID],
				Available:   net,
			})
		}
	}
	if len(shortages) > 0 {
		return &domain.InsufficientStockError{Shortages: shortages}
	}
	return nil
}

func validateItems(items []domain.OrderItem) error {
	if len(items) == 0 {
		return domain.NewValidationError("items", "at least one item is required")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return domain.NewValidationError("quantity",
				fmt.Sprintf("quantity for product %d must be greater than 0", it.ProductID))
		}
	}
	return nil
}
