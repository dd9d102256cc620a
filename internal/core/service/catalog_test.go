package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-orders/internal/adapter/storage"
	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

type catalog struct {
	customers  *CustomerService
	categories *CategoryService
	items      *ShopItemService
	orders     *OrderService
}

func newCatalog() *catalog {
	mem := storage.NewMemoryAdapter()
	ledger := NewInventoryLedger(mem, zerolog.Nop())
	return &catalog{
		customers:  NewCustomerService(mem, zerolog.Nop()),
		categories: NewCategoryService(mem, zerolog.Nop()),
		items:      NewShopItemService(mem, ledger, zerolog.Nop()),
		orders:     NewOrderService(mem, ledger, nil, nil, zerolog.Nop()),
	}
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(v int) *int { return &v }

func TestCustomerService(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	_, err := c.customers.CreateCustomer(ctx, CustomerInput{Name: strPtr("Jane"), Surname: strPtr("Doe")})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "email is required")

	_, err = c.customers.CreateCustomer(ctx, CustomerInput{Name: strPtr("Jane"), Surname: strPtr("Doe"), Email: strPtr("not-an-email")})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	jane, err := c.customers.CreateCustomer(ctx, CustomerInput{
		Name: strPtr("Jane"), Surname: strPtr("Doe"), Email: strPtr(" jane@example.com "), City: strPtr("Oslo"),
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", jane.Email)
	assert.NotZero(t, jane.ID)

	_, err = c.customers.CreateCustomer(ctx, CustomerInput{Name: strPtr("J"), Surname: strPtr("D"), Email: strPtr("jane@example.com")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	updated, err := c.customers.UpdateCustomer(ctx, jane.ID, CustomerInput{Phone: strPtr("555")})
	require.NoError(t, err)
	assert.Equal(t, "555", updated.Phone)
	assert.Equal(t, "Oslo", updated.City, "absent fields are kept")

	_, err = c.customers.UpdateCustomer(ctx, jane.ID, CustomerInput{Name: strPtr("  ")})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = c.customers.GetCustomer(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := c.customers.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCustomerService_DeleteBlockedByOrders(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	cust, err := c.customers.CreateCustomer(ctx, CustomerInput{Name: strPtr("A"), Surname: strPtr("B"), Email: strPtr("a@b.io")})
	require.NoError(t, err)
	item, err := c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Pen"), Price: price("1.50"), StockQuantity: intPtr(3)})
	require.NoError(t, err)
	order, err := c.orders.CreateOrder(ctx, CreateOrderInput{CustomerID: cust.ID, Items: []domain.LineItem{line(item.ID, 1)}})
	require.NoError(t, err)

	assert.ErrorIs(t, c.customers.DeleteCustomer(ctx, cust.ID), domain.ErrConflict)

	require.NoError(t, c.orders.DeleteOrder(ctx, order.Order.ID))
	require.NoError(t, c.customers.DeleteCustomer(ctx, cust.ID))
	assert.ErrorIs(t, c.customers.DeleteCustomer(ctx, cust.ID), domain.ErrNotFound)
}

func TestCategoryService(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	_, err := c.categories.CreateCategory(ctx, CategoryInput{Title: strPtr("")})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	books, err := c.categories.CreateCategory(ctx, CategoryInput{Title: strPtr("Books"), Description: strPtr("Paper")})
	require.NoError(t, err)

	updated, err := c.categories.UpdateCategory(ctx, books.ID, CategoryInput{Description: strPtr("Printed")})
	require.NoError(t, err)
	assert.Equal(t, "Books", updated.Title)
	assert.Equal(t, "Printed", updated.Description)

	item, err := c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Novel"), Price: price("9.99"), CategoryIDs: []int64{books.ID}})
	require.NoError(t, err)
	assert.Equal(t, []int64{books.ID}, item.CategoryIDs)

	require.NoError(t, c.categories.DeleteCategory(ctx, books.ID))
	assert.ErrorIs(t, c.categories.DeleteCategory(ctx, books.ID), domain.ErrNotFound)

	item, err = c.items.GetShopItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, item.CategoryIDs, "deleting a category detaches it")
}

func TestShopItemService(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	_, err := c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("No price")})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Neg"), Price: price("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Neg"), Price: price("1"), StockQuantity: intPtr(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Cat"), Price: price("1"), CategoryIDs: []int64{77}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mug, err := c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Mug"), Price: price("4.5"), SKU: strPtr("MUG-1")})
	require.NoError(t, err)
	assert.True(t, mug.IsActive, "items are active by default")
	assert.Equal(t, 0, mug.StockQuantity)

	_, err = c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Mug 2"), Price: price("5"), SKU: strPtr("MUG-1")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	updated, err := c.items.UpdateShopItem(ctx, mug.ID, ShopItemInput{Price: price("5.25"), StockQuantity: intPtr(12)})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("5.25").Equal(updated.Price))
	assert.Equal(t, 12, updated.StockQuantity)
	assert.Equal(t, "MUG-1", updated.SKU)

	_, err = c.items.UpdateStock(ctx, mug.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = c.items.UpdateStock(ctx, mug.ID, intPtr(-3))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	restocked, err := c.items.UpdateStock(ctx, mug.ID, intPtr(30))
	require.NoError(t, err)
	assert.Equal(t, 30, restocked.StockQuantity)
}

func TestShopItemService_ListNormalizesFilter(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	for _, p := range []string{"3", "1", "2"} {
		_, err := c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("item " + p), Price: price(p)})
		require.NoError(t, err)
	}

	items, err := c.items.ListShopItems(ctx, domain.ShopItemFilter{SortBy: "price", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "item 3", items[0].Title)
	assert.Equal(t, "item 1", items[2].Title)

	items, err = c.items.ListShopItems(ctx, domain.ShopItemFilter{SortBy: "id; DROP TABLE shop_items"})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestShopItemService_DeleteBlockedByOrderLines(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	cust, err := c.customers.CreateCustomer(ctx, CustomerInput{Name: strPtr("A"), Surname: strPtr("B"), Email: strPtr("a@b.io")})
	require.NoError(t, err)
	item, err := c.items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Pen"), Price: price("1"), StockQuantity: intPtr(3)})
	require.NoError(t, err)
	order, err := c.orders.CreateOrder(ctx, CreateOrderInput{CustomerID: cust.ID, Items: []domain.LineItem{line(item.ID, 1)}, Status: "canceled"})
	require.NoError(t, err)

	assert.ErrorIs(t, c.items.DeleteShopItem(ctx, item.ID), domain.ErrConflict, "canceled orders still reference the item")

	require.NoError(t, c.orders.DeleteOrder(ctx, order.Order.ID))
	require.NoError(t, c.items.DeleteShopItem(ctx, item.ID))
	_, err = c.items.GetShopItem(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type restockFailingStore struct {
	port.Store
}

func (s restockFailingStore) SetStock(ctx context.Context, id int64, quantity int) (*domain.ShopItem, error) {
	return nil, errStoreDown
}

func TestShopItemService_FailedRestockRevertsFields(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryAdapter()
	store := restockFailingStore{Store: mem}
	items := NewShopItemService(store, NewInventoryLedger(store, zerolog.Nop()), zerolog.Nop())

	books, err := NewCategoryService(mem, zerolog.Nop()).CreateCategory(ctx, CategoryInput{Title: strPtr("Books")})
	require.NoError(t, err)
	item, err := items.CreateShopItem(ctx, ShopItemInput{Title: strPtr("Novel"), Price: price("9.99"), StockQuantity: intPtr(4)})
	require.NoError(t, err)

	_, err = items.UpdateShopItem(ctx, item.ID, ShopItemInput{
		Title:         strPtr("Renamed"),
		Price:         price("12"),
		CategoryIDs:   []int64{books.ID},
		StockQuantity: intPtr(40),
	})
	require.ErrorIs(t, err, errStoreDown)

	got, err := items.GetShopItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Novel", got.Title)
	assert.True(t, decimal.RequireFromString("9.99").Equal(got.Price))
	assert.Empty(t, got.CategoryIDs)
	assert.Equal(t, 4, got.StockQuantity)
}
