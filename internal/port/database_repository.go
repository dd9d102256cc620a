package port

import (
	"context"

	"github.com/rl1809/shop-orders/internal/core/domain"
)

// Getters return (nil, nil) when the entity does not exist. Mutations of a
// missing entity return domain.ErrNotFound.

type CustomerRepository interface {
	// CreateCustomer assigns c.ID and the timestamps
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, c *domain.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) error
	// DeleteCategory also detaches the category from every shop item
	DeleteCategory(ctx context.Context, id int64) error
}

type ShopItemRepository interface {
	CreateShopItem(ctx context.Context, item *domain.ShopItem) error
	GetShopItem(ctx context.Context, id int64) (*domain.ShopItem, error)
	GetShopItemBySKU(ctx context.Context, sku string) (*domain.ShopItem, error)
	ListShopItems(ctx context.Context, filter domain.ShopItemFilter) ([]domain.ShopItem, error)
	// UpdateShopItem writes everything except StockQuantity
	UpdateShopItem(ctx context.Context, item *domain.ShopItem) error
	DeleteShopItem(ctx context.Context, id int64) error

	// AdjustStock atomically adds delta to the stock. A negative delta is
	// applied only if the stock at commit time covers it, otherwise
	// domain.ErrInsufficientStock is returned and nothing changes. Any error
	// means the stock did not move.
	AdjustStock(ctx context.Context, id int64, delta int) (*domain.ShopItem, error)

	// SetStock overwrites the stock with an absolute quantity (restock)
	SetStock(ctx context.Context, id int64, quantity int) (*domain.ShopItem, error)

	// CountLinesByShopItem counts order lines referencing the item, canceled orders included
	CountLinesByShopItem(ctx context.Context, id int64) (int, error)
}

type OrderRepository interface {
	// CreateOrder persists the order and its lines together, assigning ids
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	// ListOrders returns every order when status is nil
	ListOrders(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error)
	// UpdateOrder writes the order fields; with replaceLines the existing
	// lines are deleted and order.Lines inserted in the same unit of work
	UpdateOrder(ctx context.Context, order *domain.Order, replaceLines bool) error
	// DeleteOrder removes the order and cascades to its lines
	DeleteOrder(ctx context.Context, id int64) error
	CountOrdersByCustomer(ctx context.Context, customerID int64) (int, error)
}

// Store is the entity store consumed by the core services.
type Store interface {
	CustomerRepository
	CategoryRepository
	ShopItemRepository
	OrderRepository
}
