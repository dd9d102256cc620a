package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

// runStoreSuite exercises behaviour every port.Store implementation must share.
// newStore must return an empty store.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) port.Store) {
	t.Run("customer email is unique", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		c := &domain.Customer{Name: "John", Surname: "Doe", Email: "john@example.com"}
		require.NoError(t, s.CreateCustomer(ctx, c))
		assert.NotZero(t, c.ID)

		dup := &domain.Customer{Name: "Jane", Surname: "Doe", Email: "john@example.com"}
		err := s.CreateCustomer(ctx, dup)
		assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)

		got, err := s.GetCustomerByEmail(ctx, "john@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, c.ID, got.ID)
	})

	t.Run("missing entities", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		c, err := s.GetCustomer(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, c)

		o, err := s.GetOrder(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, o)

		_, err = s.AdjustStock(ctx, 999, -1)
		assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

		err = s.DeleteOrder(ctx, 999)
		assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	})

	t.Run("adjust stock never goes negative", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		item := &domain.ShopItem{Title: "Laptop", Price: decimal.RequireFromString("999.99"), StockQuantity: 5, IsActive: true}
		require.NoError(t, s.CreateShopItem(ctx, item))

		got, err := s.AdjustStock(ctx, item.ID, -3)
		require.NoError(t, err)
		assert.Equal(t, 2, got.StockQuantity)

		_, err = s.AdjustStock(ctx, item.ID, -3)
		assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "got %v", err)

		got, err = s.AdjustStock(ctx, item.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 5, got.StockQuantity)
	})

	t.Run("adjust stock reports failure only when nothing moved", func(t *testing.T) {
		s := newStore(t)

		item := &domain.ShopItem{Title: "Tablet", Price: decimal.NewFromInt(300), StockQuantity: 5, IsActive: true}
		require.NoError(t, s.CreateShopItem(context.Background(), item))

		canceled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.AdjustStock(canceled, item.ID, -2)
		got, getErr := s.GetShopItem(context.Background(), item.ID)
		require.NoError(t, getErr)
		if err != nil {
			assert.Equal(t, 5, got.StockQuantity, "failed adjust must leave stock untouched")
		} else {
			assert.Equal(t, 3, got.StockQuantity)
		}
	})

	t.Run("concurrent reservations never oversell", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		initialStock := 20
		totalRequests := 50

		item := &domain.ShopItem{Title: "Phone", Price: decimal.NewFromInt(10), StockQuantity: initialStock, IsActive: true}
		require.NoError(t, s.CreateShopItem(ctx, item))

		var successCount atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < totalRequests; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.AdjustStock(ctx, item.ID, -1); err == nil {
					successCount.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(initialStock), successCount.Load())
		got, err := s.GetShopItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.StockQuantity)
	})

	t.Run("shop item sku and categories", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		books := &domain.Category{Title: "Books"}
		music := &domain.Category{Title: "Music"}
		require.NoError(t, s.CreateCategory(ctx, books))
		require.NoError(t, s.CreateCategory(ctx, music))

		novel := &domain.ShopItem{Title: "Novel", Price: decimal.RequireFromString("19.99"), StockQuantity: 3,
			IsActive: true, SKU: "BOOK-001", CategoryIDs: []int64{books.ID, music.ID}}
		require.NoError(t, s.CreateShopItem(ctx, novel))

		dup := &domain.ShopItem{Title: "Other", Price: decimal.NewFromInt(1), SKU: "BOOK-001"}
		err := s.CreateShopItem(ctx, dup)
		assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)

		require.NoError(t, s.DeleteCategory(ctx, music.ID))
		got, err := s.GetShopItem(ctx, novel.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{books.ID}, got.CategoryIDs)

		bySKU, err := s.GetShopItemBySKU(ctx, "BOOK-001")
		require.NoError(t, err)
		require.NotNil(t, bySKU)
		assert.Equal(t, novel.ID, bySKU.ID)
	})

	t.Run("update shop item keeps stock", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		item := &domain.ShopItem{Title: "Jeans", Price: decimal.NewFromInt(50), StockQuantity: 7, IsActive: true}
		require.NoError(t, s.CreateShopItem(ctx, item))

		item.Title = "Blue jeans"
		item.StockQuantity = 1000
		require.NoError(t, s.UpdateShopItem(ctx, item))

		got, err := s.GetShopItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "Blue jeans", got.Title)
		assert.Equal(t, 7, got.StockQuantity)

		got, err = s.SetStock(ctx, item.ID, 12)
		require.NoError(t, err)
		assert.Equal(t, 12, got.StockQuantity)
	})

	t.Run("list shop items with filter", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		electronics := &domain.Category{Title: "Electronics"}
		require.NoError(t, s.CreateCategory(ctx, electronics))

		inactive := false
		for _, it := range []*domain.ShopItem{
			{Title: "Smartphone", Description: "Latest model", Price: decimal.RequireFromString("699.99"), StockQuantity: 50, IsActive: true, CategoryIDs: []int64{electronics.ID}},
			{Title: "Headphones", Description: "Wireless noise-cancelling", Price: decimal.RequireFromString("149.99"), StockQuantity: 0, IsActive: true, CategoryIDs: []int64{electronics.ID}},
			{Title: "Novel", Description: "Bestselling fiction", Price: decimal.RequireFromString("19.99"), StockQuantity: 200, IsActive: inactive},
		} {
			require.NoError(t, s.CreateShopItem(ctx, it))
		}

		minPrice := decimal.NewFromInt(100)
		items, err := s.ListShopItems(ctx, domain.ShopItemFilter{MinPrice: &minPrice, SortBy: "price", SortOrder: "desc"})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Smartphone", items[0].Title)
		assert.Equal(t, "Headphones", items[1].Title)

		items, err = s.ListShopItems(ctx, domain.ShopItemFilter{CategoryID: &electronics.ID, InStock: true})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Smartphone", items[0].Title)

		items, err = s.ListShopItems(ctx, domain.ShopItemFilter{Search: "wireless"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Headphones", items[0].Title)

		items, err = s.ListShopItems(ctx, domain.ShopItemFilter{IsActive: &inactive})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Novel", items[0].Title)

		items, err = s.ListShopItems(ctx, domain.ShopItemFilter{SortBy: "title"})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, []string{"Headphones", "Novel", "Smartphone"}, []string{items[0].Title, items[1].Title, items[2].Title})
	})

	t.Run("order lines keep insertion order and cascade", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		c := &domain.Customer{Name: "Jane", Surname: "Smith", Email: "jane@example.com"}
		require.NoError(t, s.CreateCustomer(ctx, c))
		a := &domain.ShopItem{Title: "A", Price: decimal.NewFromInt(1), StockQuantity: 10}
		b := &domain.ShopItem{Title: "B", Price: decimal.NewFromInt(1), StockQuantity: 10}
		require.NoError(t, s.CreateShopItem(ctx, a))
		require.NoError(t, s.CreateShopItem(ctx, b))

		o := &domain.Order{
			CustomerID: c.ID,
			Status:     domain.OrderStatusPending,
			Lines: []domain.OrderLine{
				{ShopItemID: b.ID, Quantity: 2},
				{ShopItemID: a.ID, Quantity: 1},
			},
		}
		require.NoError(t, s.CreateOrder(ctx, o))
		require.NotZero(t, o.ID)

		got, err := s.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		require.Len(t, got.Lines, 2)
		assert.Equal(t, b.ID, got.Lines[0].ShopItemID)
		assert.Equal(t, a.ID, got.Lines[1].ShopItemID)
		assert.Equal(t, o.ID, got.Lines[0].OrderID)

		n, err := s.CountLinesByShopItem(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got.Status = domain.OrderStatusCanceled
		got.Lines = []domain.OrderLine{{ShopItemID: a.ID, Quantity: 4}}
		require.NoError(t, s.UpdateOrder(ctx, got, true))

		canceled := domain.OrderStatusCanceled
		list, err := s.ListOrders(ctx, &canceled)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Len(t, list[0].Lines, 1)
		assert.Equal(t, 4, list[0].Lines[0].Quantity)

		n, err = s.CountOrdersByCustomer(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, s.DeleteOrder(ctx, o.ID))
		n, err = s.CountLinesByShopItem(ctx, a.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
