package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

// MemoryAdapter keeps every entity in maps guarded by a single lock. Ids come
// from per-table monotonic counters and are never reused.
type MemoryAdapter struct {
	mu sync.RWMutex

	customers  map[int64]domain.Customer
	categories map[int64]domain.Category
	items      map[int64]domain.ShopItem
	orders     map[int64]domain.Order

	customerSeq int64
	categorySeq int64
	itemSeq     int64
	orderSeq    int64
	lineSeq     int64

	now func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		customers:  make(map[int64]domain.Customer),
		categories: make(map[int64]domain.Category),
		items:      make(map[int64]domain.ShopItem),
		orders:     make(map[int64]domain.Order),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var _ port.Store = (*MemoryAdapter)(nil)

func (m *MemoryAdapter) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(c.Email, 0) {
		return fmt.Errorf("%w: email %s already registered", domain.ErrConflict, c.Email)
	}

	m.customerSeq++
	c.ID = m.customerSeq
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	m.customers[c.ID] = *c
	return nil
}

func (m *MemoryAdapter) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryAdapter) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.customers {
		if strings.EqualFold(c.Email, email) {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryAdapter) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Customer, 0, len(m.customers))
	for _, id := range sortedKeys(m.customers) {
		out = append(out, m.customers[id])
	}
	return out, nil
}

func (m *MemoryAdapter) UpdateCustomer(ctx context.Context, c *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.customers[c.ID]
	if !ok {
		return fmt.Errorf("%w: customer %d", domain.ErrNotFound, c.ID)
	}
	if m.emailTaken(c.Email, c.ID) {
		return fmt.Errorf("%w: email %s already registered", domain.ErrConflict, c.Email)
	}

	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = m.now()
	m.customers[c.ID] = *c
	return nil
}

func (m *MemoryAdapter) DeleteCustomer(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[id]; !ok {
		return fmt.Errorf("%w: customer %d", domain.ErrNotFound, id)
	}
	delete(m.customers, id)
	return nil
}

func (m *MemoryAdapter) emailTaken(email string, except int64) bool {
	for id, c := range m.customers {
		if id != except && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (m *MemoryAdapter) CreateCategory(ctx context.Context, c *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.categorySeq++
	c.ID = m.categorySeq
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	m.categories[c.ID] = *c
	return nil
}

func (m *MemoryAdapter) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Category, 0, len(m.categories))
	for _, id := range sortedKeys(m.categories) {
		out = append(out, m.categories[id])
	}
	return out, nil
}

func (m *MemoryAdapter) UpdateCategory(ctx context.Context, c *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.categories[c.ID]
	if !ok {
		return fmt.Errorf("%w: category %d", domain.ErrNotFound, c.ID)
	}
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = m.now()
	m.categories[c.ID] = *c
	return nil
}

func (m *MemoryAdapter) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[id]; !ok {
		return fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
	}
	delete(m.categories, id)

	for itemID, item := range m.items {
		if slices.Contains(item.CategoryIDs, id) {
			item.CategoryIDs = slices.DeleteFunc(slices.Clone(item.CategoryIDs), func(c int64) bool { return c == id })
			m.items[itemID] = item
		}
	}
	return nil
}

func (m *MemoryAdapter) CreateShopItem(ctx context.Context, item *domain.ShopItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.skuTaken(item.SKU, 0) {
		return fmt.Errorf("%w: sku %s already exists", domain.ErrConflict, item.SKU)
	}

	m.itemSeq++
	item.ID = m.itemSeq
	item.CreatedAt = m.now()
	item.UpdatedAt = item.CreatedAt
	m.items[item.ID] = cloneItem(*item)
	return nil
}

func (m *MemoryAdapter) GetShopItem(ctx context.Context, id int64) (*domain.ShopItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	item = cloneItem(item)
	return &item, nil
}

func (m *MemoryAdapter) GetShopItemBySKU(ctx context.Context, sku string) (*domain.ShopItem, error) {
	if sku == "" {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.items {
		if item.SKU == sku {
			item = cloneItem(item)
			return &item, nil
		}
	}
	return nil, nil
}

func (m *MemoryAdapter) ListShopItems(ctx context.Context, filter domain.ShopItemFilter) ([]domain.ShopItem, error) {
	filter = filter.Normalize()
	search := strings.ToLower(filter.Search)

	m.mu.RLock()
	out := make([]domain.ShopItem, 0, len(m.items))
	for _, id := range sortedKeys(m.items) {
		item := m.items[id]

		if filter.CategoryID != nil && !slices.Contains(item.CategoryIDs, *filter.CategoryID) {
			continue
		}
		if filter.MinPrice != nil && item.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && item.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Title), search) &&
			!strings.Contains(strings.ToLower(item.Description), search) {
			continue
		}
		if filter.InStock && item.StockQuantity <= 0 {
			continue
		}
		if filter.IsActive != nil && item.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, cloneItem(item))
	}
	m.mu.RUnlock()

	if filter.SortBy != "" {
		less := shopItemLess(filter.SortBy)
		desc := filter.SortOrder == domain.SortDesc
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return less(out[j], out[i])
			}
			return less(out[i], out[j])
		})
	}
	return out, nil
}

func shopItemLess(field string) func(a, b domain.ShopItem) bool {
	switch field {
	case domain.SortByTitle:
		return func(a, b domain.ShopItem) bool { return a.Title < b.Title }
	case domain.SortByPrice:
		return func(a, b domain.ShopItem) bool { return a.Price.LessThan(b.Price) }
	case domain.SortByStockQuantity:
		return func(a, b domain.ShopItem) bool { return a.StockQuantity < b.StockQuantity }
	default:
		return func(a, b domain.ShopItem) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func (m *MemoryAdapter) UpdateShopItem(ctx context.Context, item *domain.ShopItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.items[item.ID]
	if !ok {
		return fmt.Errorf("%w: shop item %d", domain.ErrNotFound, item.ID)
	}
	if m.skuTaken(item.SKU, item.ID) {
		return fmt.Errorf("%w: sku %s already exists", domain.ErrConflict, item.SKU)
	}

	item.StockQuantity = old.StockQuantity
	item.CreatedAt = old.CreatedAt
	item.UpdatedAt = m.now()
	m.items[item.ID] = cloneItem(*item)
	return nil
}

func (m *MemoryAdapter) DeleteShopItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("%w: shop item %d", domain.ErrNotFound, id)
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryAdapter) AdjustStock(ctx context.Context, id int64, delta int) (*domain.ShopItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: shop item %d", domain.ErrNotFound, id)
	}
	if item.StockQuantity+delta < 0 {
		return nil, fmt.Errorf("%w: shop item %d has %d, requested %d",
			domain.ErrInsufficientStock, id, item.StockQuantity, -delta)
	}

	item.StockQuantity += delta
	item.UpdatedAt = m.now()
	m.items[id] = item

	item = cloneItem(item)
	return &item, nil
}

func (m *MemoryAdapter) SetStock(ctx context.Context, id int64, quantity int) (*domain.ShopItem, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: stock quantity %d", domain.ErrInvalidArgument, quantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: shop item %d", domain.ErrNotFound, id)
	}
	item.StockQuantity = quantity
	item.UpdatedAt = m.now()
	m.items[id] = item

	item = cloneItem(item)
	return &item, nil
}

func (m *MemoryAdapter) CountLinesByShopItem(ctx context.Context, id int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, o := range m.orders {
		for _, l := range o.Lines {
			if l.ShopItemID == id {
				n++
			}
		}
	}
	return n, nil
}

func (m *MemoryAdapter) skuTaken(sku string, except int64) bool {
	if sku == "" {
		return false
	}
	for id, item := range m.items {
		if id != except && item.SKU == sku {
			return true
		}
	}
	return false
}

func (m *MemoryAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orderSeq++
	order.ID = m.orderSeq
	order.CreatedAt = m.now()
	order.UpdatedAt = order.CreatedAt
	m.assignLineIDs(order)

	m.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m *MemoryAdapter) ListOrders(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Order, 0, len(m.orders))
	for _, id := range sortedKeys(m.orders) {
		o := m.orders[id]
		if status != nil && o.Status != *status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func (m *MemoryAdapter) UpdateOrder(ctx context.Context, order *domain.Order, replaceLines bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.orders[order.ID]
	if !ok {
		return fmt.Errorf("%w: order %d", domain.ErrNotFound, order.ID)
	}

	order.CreatedAt = old.CreatedAt
	order.UpdatedAt = m.now()
	if replaceLines {
		m.assignLineIDs(order)
	} else {
		order.Lines = old.Lines
	}
	m.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (m *MemoryAdapter) DeleteOrder(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}
	delete(m.orders, id)
	return nil
}

func (m *MemoryAdapter) CountOrdersByCustomer(ctx context.Context, customerID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryAdapter) assignLineIDs(order *domain.Order) {
	for i := range order.Lines {
		m.lineSeq++
		order.Lines[i].ID = m.lineSeq
		order.Lines[i].OrderID = order.ID
	}
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func cloneItem(item domain.ShopItem) domain.ShopItem {
	item.CategoryIDs = slices.Clone(item.CategoryIDs)
	return item
}

func cloneOrder(o domain.Order) domain.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}
