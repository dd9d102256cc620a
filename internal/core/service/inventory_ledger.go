package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

// InventoryLedger is the only code path that moves stock between available
// and committed. Batches are all-or-nothing: on the first failure every
// move already applied is reverted in reverse order before the error is
// returned.
type InventoryLedger struct {
	items  port.ShopItemRepository
	logger zerolog.Logger
}

func NewInventoryLedger(items port.ShopItemRepository, logger zerolog.Logger) *InventoryLedger {
	return &InventoryLedger{
		items:  items,
		logger: logger.With().Str("component", "inventory_ledger").Logger(),
	}
}

func (l *InventoryLedger) Reserve(ctx context.Context, shopItemID int64, quantity int) (*domain.ShopItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: shop item %d, got %d", domain.ErrInvalidQuantity, shopItemID, quantity)
	}

	item, err := l.items.AdjustStock(ctx, shopItemID, -quantity)
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", err)
	}
	return item, nil
}

func (l *InventoryLedger) Release(ctx context.Context, shopItemID int64, quantity int) (*domain.ShopItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: shop item %d, got %d", domain.ErrInvalidQuantity, shopItemID, quantity)
	}

	item, err := l.items.AdjustStock(ctx, shopItemID, quantity)
	if err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	return item, nil
}

func (l *InventoryLedger) ReserveMany(ctx context.Context, lines []domain.LineItem) error {
	return l.applyAll(ctx, lines, l.Reserve, l.Release)
}

func (l *InventoryLedger) ReleaseMany(ctx context.Context, lines []domain.LineItem) error {
	return l.applyAll(ctx, lines, l.Release, l.Reserve)
}

type stockMove func(ctx context.Context, shopItemID int64, quantity int) (*domain.ShopItem, error)

func (l *InventoryLedger) applyAll(ctx context.Context, lines []domain.LineItem, apply, undo stockMove) error {
	for i, line := range lines {
		if _, err := apply(ctx, line.ShopItemID, line.Quantity); err != nil {
			l.rollback(ctx, lines[:i], undo)
			return err
		}
	}
	return nil
}

// rollback runs detached from ctx cancellation: a compensation that stops
// halfway is worse than one that outlives its request.
func (l *InventoryLedger) rollback(ctx context.Context, applied []domain.LineItem, undo stockMove) {
	ctx = context.WithoutCancel(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		line := applied[i]
		if _, err := undo(ctx, line.ShopItemID, line.Quantity); err != nil {
			l.logger.Error().Err(err).
				Int64("shop_item_id", line.ShopItemID).
				Int("quantity", line.Quantity).
				Msg("CRITICAL stock rollback failed")
		}
	}
}

// Reconcile moves stock from the commitment before to the commitment after
// using the net delta per shop item, so an item present in both is only
// touched by the difference. Reservations run first since only they can
// fail on stock; if a release then fails the reservations are undone.
func (l *InventoryLedger) Reconcile(ctx context.Context, before, after []domain.LineItem) error {
	reserves, releases := netMoves(before, after)

	if err := l.ReserveMany(ctx, reserves); err != nil {
		return err
	}
	if err := l.ReleaseMany(ctx, releases); err != nil {
		l.rollback(ctx, reserves, l.Release)
		return err
	}
	return nil
}

// netMoves returns the reservations and releases turning before into after,
// in first-seen item order.
func netMoves(before, after []domain.LineItem) (reserves, releases []domain.LineItem) {
	delta := make(map[int64]int)
	var order []int64
	track := func(id int64, q int) {
		if _, ok := delta[id]; !ok {
			order = append(order, id)
		}
		delta[id] += q
	}
	for _, line := range before {
		track(line.ShopItemID, line.Quantity)
	}
	for _, line := range after {
		track(line.ShopItemID, -line.Quantity)
	}

	for _, id := range order {
		switch d := delta[id]; {
		case d < 0:
			reserves = append(reserves, domain.LineItem{ShopItemID: id, Quantity: -d})
		case d > 0:
			releases = append(releases, domain.LineItem{ShopItemID: id, Quantity: d})
		}
	}
	return reserves, releases
}

// SetStock overwrites the available stock of an item (restock).
func (l *InventoryLedger) SetStock(ctx context.Context, shopItemID int64, quantity int) (*domain.ShopItem, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: stock quantity must be >= 0, got %d", domain.ErrInvalidArgument, quantity)
	}

	item, err := l.items.SetStock(ctx, shopItemID, quantity)
	if err != nil {
		return nil, fmt.Errorf("set stock: %w", err)
	}
	l.logger.Info().Int64("shop_item_id", shopItemID).Int("stock_quantity", quantity).Msg("stock set")
	return item, nil
}
