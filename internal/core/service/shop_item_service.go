package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

// ShopItemInput holds the fields a caller sent. CategoryIDs follows JSON
// semantics: nil leaves the categories alone, an empty slice clears them.
type ShopItemInput struct {
	Title         *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURL      *string
	IsActive      *bool
	SKU           *string
	CategoryIDs   []int64
}

type ShopItemService struct {
	store  port.Store
	ledger *InventoryLedger
	logger zerolog.Logger
}

func NewShopItemService(store port.Store, ledger *InventoryLedger, logger zerolog.Logger) *ShopItemService {
	return &ShopItemService{
		store:  store,
		ledger: ledger,
		logger: logger.With().Str("component", "shop_item_service").Logger(),
	}
}

func (s *ShopItemService) CreateShopItem(ctx context.Context, in ShopItemInput) (*domain.ShopItem, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	if in.Price == nil {
		return nil, fmt.Errorf("%w: price is required", domain.ErrInvalidArgument)
	}

	item := &domain.ShopItem{IsActive: true}
	if in.StockQuantity != nil {
		if *in.StockQuantity < 0 {
			return nil, fmt.Errorf("%w: stock quantity must be >= 0", domain.ErrInvalidArgument)
		}
		item.StockQuantity = *in.StockQuantity
	}
	if err := s.apply(ctx, item, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateShopItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("shop_item_id", item.ID).
		Str("sku", item.SKU).
		Int("stock_quantity", item.StockQuantity).
		Msg("shop item created")
	return item, nil
}

func (s *ShopItemService) GetShopItem(ctx context.Context, id int64) (*domain.ShopItem, error) {
	item, err := s.store.GetShopItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: shop item %d", domain.ErrNotFound, id)
	}
	return item, nil
}

func (s *ShopItemService) ListShopItems(ctx context.Context, filter domain.ShopItemFilter) ([]domain.ShopItem, error) {
	return s.store.ListShopItems(ctx, filter.Normalize())
}

// UpdateShopItem applies a partial update. A StockQuantity, when sent, is an
// absolute restock that goes through the ledger; if the restock fails the
// field changes are written back to their previous values.
func (s *ShopItemService) UpdateShopItem(ctx context.Context, id int64, in ShopItemInput) (*domain.ShopItem, error) {
	item, err := s.GetShopItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", domain.ErrInvalidArgument)
	}
	if in.StockQuantity != nil && *in.StockQuantity < 0 {
		return nil, fmt.Errorf("%w: stock quantity must be >= 0", domain.ErrInvalidArgument)
	}
	original := *item
	original.CategoryIDs = slices.Clone(item.CategoryIDs)
	if err := s.apply(ctx, item, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateShopItem(ctx, item); err != nil {
		return nil, err
	}
	if in.StockQuantity == nil {
		return s.GetShopItem(ctx, id)
	}

	restocked, err := s.ledger.SetStock(ctx, id, *in.StockQuantity)
	if err != nil {
		if rerr := s.store.UpdateShopItem(context.WithoutCancel(ctx), &original); rerr != nil {
			s.logger.Error().Err(rerr).Int64("shop_item_id", id).Msg("CRITICAL shop item revert failed")
		}
		return nil, err
	}
	return restocked, nil
}

func (s *ShopItemService) UpdateStock(ctx context.Context, id int64, quantity *int) (*domain.ShopItem, error) {
	if quantity == nil || *quantity < 0 {
		return nil, fmt.Errorf("%w: valid stock quantity is required", domain.ErrInvalidArgument)
	}
	return s.ledger.SetStock(ctx, id, *quantity)
}

// DeleteShopItem refuses to remove an item any order line still refers to.
func (s *ShopItemService) DeleteShopItem(ctx context.Context, id int64) error {
	if _, err := s.GetShopItem(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountLinesByShopItem(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: shop item %d is referenced by %d order lines", domain.ErrConflict, id, n)
	}
	if err := s.store.DeleteShopItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("shop_item_id", id).Msg("shop item deleted")
	return nil
}

func (s *ShopItemService) apply(ctx context.Context, item *domain.ShopItem, in ShopItemInput) error {
	if in.Price != nil {
		if in.Price.IsNegative() {
			return fmt.Errorf("%w: price must be >= 0", domain.ErrInvalidArgument)
		}
		item.Price = in.Price.Round(2)
	}
	if in.SKU != nil {
		sku := strings.TrimSpace(*in.SKU)
		if sku != "" && sku != item.SKU {
			existing, err := s.store.GetShopItemBySKU(ctx, sku)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != item.ID {
				return fmt.Errorf("%w: sku %s already in use", domain.ErrConflict, sku)
			}
		}
		item.SKU = sku
	}
	if in.CategoryIDs != nil {
		ids := make([]int64, 0, len(in.CategoryIDs))
		seen := make(map[int64]bool, len(in.CategoryIDs))
		for _, id := range in.CategoryIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			c, err := s.store.GetCategory(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
			}
			ids = append(ids, id)
		}
		item.CategoryIDs = ids
	}
	if in.Title != nil {
		item.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.ImageURL != nil {
		item.ImageURL = *in.ImageURL
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}
	return nil
}
