package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

var ErrDuplicateRequest = fmt.Errorf("%w: duplicate request", domain.ErrConflict)

const idempotencyKeyPrefix = "order:"

type CreateOrderInput struct {
	CustomerID int64
	Items      []domain.LineItem
	// ShippingAddress falls back to the customer's address when empty.
	ShippingAddress string
	Notes           string
	// Status defaults to pending.
	Status         string
	IdempotencyKey string
}

// UpdateOrderInput carries only what the caller sent: nil fields and an
// empty Items slice leave the order unchanged.
type UpdateOrderInput struct {
	CustomerID      *int64
	Items           []domain.LineItem
	Status          *string
	ShippingAddress *string
	Notes           *string
}

type OrderService struct {
	store  port.Store
	ledger *InventoryLedger
	cache  port.CacheRepository
	events port.EventPublisher
	locks  orderLocks
	logger zerolog.Logger
	now    func() time.Time
}

// NewOrderService wires the order lifecycle engine. cache and events are
// optional; without a cache idempotency keys are ignored.
func NewOrderService(store port.Store, ledger *InventoryLedger, cache port.CacheRepository, events port.EventPublisher, logger zerolog.Logger) *OrderService {
	return &OrderService{
		store:  store,
		ledger: ledger,
		cache:  cache,
		events: events,
		logger: logger.With().Str("component", "order_service").Logger(),
		now:    time.Now,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (_ *domain.OrderDetails, err error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one order item is required", domain.ErrInvalidArgument)
	}

	if in.IdempotencyKey != "" && s.cache != nil {
		key := idempotencyKeyPrefix + in.IdempotencyKey
		claimed, claimErr := s.cache.SetIdempotency(ctx, key)
		if claimErr != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", claimErr)
		}
		if !claimed {
			return nil, ErrDuplicateRequest
		}
		// err is the named result, so every failed return below frees the key.
		defer func() {
			if err != nil {
				s.releaseIdempotency(ctx, key)
			}
		}()
	}

	customer, err := s.requireCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	status := domain.OrderStatusPending
	if in.Status != "" {
		if status, err = domain.ParseOrderStatus(in.Status); err != nil {
			return nil, err
		}
	}
	if err := s.checkLines(ctx, in.Items, nil, status.Active()); err != nil {
		return nil, err
	}

	order := &domain.Order{
		CustomerID:      customer.ID,
		Status:          status,
		OrderDate:       s.now(),
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
		Lines:           toOrderLines(in.Items),
	}
	if order.ShippingAddress == "" {
		order.ShippingAddress = customer.Address
	}

	committed := order.Committed()
	if err := s.ledger.ReserveMany(ctx, committed); err != nil {
		return nil, err
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		s.compensate(ctx, "create", 0, committed, nil)
		return nil, fmt.Errorf("save order: %w", err)
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("customer_id", order.CustomerID).
		Str("status", string(order.Status)).
		Int("lines", len(order.Lines)).
		Msg("order created")
	s.publish(ctx, domain.OrderEventCreated, order)

	return s.expand(ctx, order, newItemCache())
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.OrderDetails, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}
	return s.expand(ctx, order, newItemCache())
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.OrderDetails, error) {
	return s.listOrders(ctx, nil)
}

func (s *OrderService) ListOrdersByStatus(ctx context.Context, status string) ([]domain.OrderDetails, error) {
	st, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.listOrders(ctx, &st)
}

func (s *OrderService) listOrders(ctx context.Context, status *domain.OrderStatus) ([]domain.OrderDetails, error) {
	orders, err := s.store.ListOrders(ctx, status)
	if err != nil {
		return nil, err
	}

	items := newItemCache()
	result := make([]domain.OrderDetails, 0, len(orders))
	for i := range orders {
		details, err := s.expand(ctx, &orders[i], items)
		if err != nil {
			return nil, err
		}
		result = append(result, *details)
	}
	return result, nil
}

// UpdateOrder validates everything before touching stock, moves stock by the
// net difference between the old and the new commitment and only then
// persists. A failure at any step leaves the order and stock as they were.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, in UpdateOrderInput) (*domain.OrderDetails, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	current, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}

	updated := *current
	if in.CustomerID != nil {
		customer, err := s.requireCustomer(ctx, *in.CustomerID)
		if err != nil {
			return nil, err
		}
		updated.CustomerID = customer.ID
	}
	if in.Status != nil {
		if updated.Status, err = domain.ParseOrderStatus(*in.Status); err != nil {
			return nil, err
		}
	}
	if in.ShippingAddress != nil {
		updated.ShippingAddress = *in.ShippingAddress
	}
	if in.Notes != nil {
		updated.Notes = *in.Notes
	}

	replaceLines := len(in.Items) > 0
	if replaceLines {
		if err := s.checkLines(ctx, in.Items, current.Committed(), updated.Status.Active()); err != nil {
			return nil, err
		}
		updated.Lines = toOrderLines(in.Items)
	}

	action := domain.OnStatusChange(current.Status, updated.Status)
	before, after := current.Committed(), updated.Committed()
	if err := s.ledger.Reconcile(ctx, before, after); err != nil {
		return nil, err
	}
	if err := s.store.UpdateOrder(ctx, &updated, replaceLines); err != nil {
		s.compensate(ctx, "update", id, after, before)
		return nil, fmt.Errorf("save order %d: %w", id, err)
	}

	s.logger.Info().
		Int64("order_id", id).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Stringer("stock_action", action).
		Bool("lines_replaced", replaceLines).
		Msg("order updated")

	eventType := domain.OrderEventUpdated
	if action == domain.StockRelease {
		eventType = domain.OrderEventCanceled
	}
	s.publish(ctx, eventType, &updated)

	saved, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}
	return s.expand(ctx, saved, newItemCache())
}

// DeleteOrder returns the order's commitment to stock, then removes the
// order and its lines. A canceled order has nothing left to return.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	unlock := s.locks.lock(id)
	defer unlock()

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}

	committed := order.Committed()
	if err := s.ledger.ReleaseMany(ctx, committed); err != nil {
		return err
	}
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		s.compensate(ctx, "delete", id, nil, committed)
		return fmt.Errorf("delete order %d: %w", id, err)
	}

	s.logger.Info().Int64("order_id", id).Int("released_lines", len(committed)).Msg("order deleted")
	s.publish(ctx, domain.OrderEventDeleted, order)
	return nil
}

// checkLines validates every requested line in order: quantity, then the
// shop item's existence, then stock. Stock the order already holds counts
// as available to it. Stock is not checked when the order ends up canceled.
func (s *OrderService) checkLines(ctx context.Context, lines, held []domain.LineItem, checkStock bool) error {
	holding := make(map[int64]int, len(held))
	for _, h := range held {
		holding[h.ShopItemID] += h.Quantity
	}
	wanted := make(map[int64]int, len(lines))

	for _, line := range lines {
		if line.Quantity < 1 {
			return fmt.Errorf("%w: shop item %d, got %d", domain.ErrInvalidQuantity, line.ShopItemID, line.Quantity)
		}
		item, err := s.store.GetShopItem(ctx, line.ShopItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: shop item %d", domain.ErrNotFound, line.ShopItemID)
		}
		if !checkStock {
			continue
		}
		wanted[line.ShopItemID] += line.Quantity
		if available := item.StockQuantity + holding[line.ShopItemID]; wanted[line.ShopItemID] > available {
			return fmt.Errorf("%w: not enough stock for item %s, available: %d",
				domain.ErrInsufficientStock, item.Title, available)
		}
	}
	return nil
}

func (s *OrderService) requireCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %d", domain.ErrNotFound, id)
	}
	return customer, nil
}

// compensate undoes the ledger moves of an operation whose persistence step
// failed, moving stock from the attempted commitment back to the original.
func (s *OrderService) compensate(ctx context.Context, op string, orderID int64, attempted, original []domain.LineItem) {
	if err := s.ledger.Reconcile(context.WithoutCancel(ctx), attempted, original); err != nil {
		s.logger.Error().Err(err).
			Str("op", op).
			Int64("order_id", orderID).
			Msg("CRITICAL stock compensation failed")
	}
}

func (s *OrderService) releaseIdempotency(ctx context.Context, key string) {
	if err := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("release idempotency key failed")
	}
}

func (s *OrderService) publish(ctx context.Context, eventType domain.OrderEventType, order *domain.Order) {
	if s.events == nil {
		return
	}
	event := domain.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Lines:      order.LineItems(),
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).
			Str("event", string(eventType)).
			Int64("order_id", order.ID).
			Msg("publish order event failed")
	}
}

// itemCache memoizes shop item lookups while expanding a batch of orders.
type itemCache map[int64]*domain.ShopItem

func newItemCache() itemCache { return make(itemCache) }

func (s *OrderService) expand(ctx context.Context, order *domain.Order, items itemCache) (*domain.OrderDetails, error) {
	customer, err := s.store.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}

	details := &domain.OrderDetails{
		Order:    *order,
		Customer: customer,
		Lines:    make([]domain.OrderLineDetails, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		item, ok := items[line.ShopItemID]
		if !ok {
			if item, err = s.store.GetShopItem(ctx, line.ShopItemID); err != nil {
				return nil, err
			}
			items[line.ShopItemID] = item
		}
		details.Lines = append(details.Lines, domain.OrderLineDetails{Line: line, ShopItem: item})
	}
	return details, nil
}

func toOrderLines(items []domain.LineItem) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.OrderLine{ShopItemID: it.ShopItemID, Quantity: it.Quantity})
	}
	return lines
}

const orderLockStripes = 64

// orderLocks serializes updates and deletes of the same order. Distinct
// orders may share a stripe; that only costs concurrency.
type orderLocks [orderLockStripes]sync.Mutex

func (l *orderLocks) lock(id int64) func() {
	mu := &l[uint64(id)%orderLockStripes]
	mu.Lock()
	return mu.Unlock
}
