package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/core/service"
)

type Services struct {
	Customers  *service.CustomerService
	Categories *service.CategoryService
	ShopItems  *service.ShopItemService
	Orders     *service.OrderService
}

type customerSeed struct {
	name, surname, email, address, city, state, zip, country, phone string
}

type itemSeed struct {
	title, description, price string
	stock                     int
	image, sku                string
	category                  int
}

type orderSeed struct {
	customer int
	status   domain.OrderStatus
	notes    string
	lines    [][2]int // item index, quantity
}

var customers = []customerSeed{
	{"John", "Doe", "john.doe@example.com", "123 Main St", "New York", "NY", "10001", "USA", "555-123-4567"},
	{"Jane", "Smith", "jane.smith@example.com", "456 Park Ave", "Los Angeles", "CA", "90001", "USA", "555-987-6543"},
	{"Robert", "Johnson", "robert.johnson@example.com", "789 Broadway", "Chicago", "IL", "60601", "USA", "555-456-7890"},
}

var categories = [][2]string{
	{"Electronics", "Electronic devices and accessories"},
	{"Books", "Printed and digital books"},
	{"Clothing", "Apparel and fashion items"},
}

var items = []itemSeed{
	{"Smartphone", "Latest model smartphone", "699.99", 50, "https://example.com/images/smartphone.jpg", "PHONE-001", 0},
	{"Laptop", "High-performance laptop", "1299.99", 30, "https://example.com/images/laptop.jpg", "LAPT-001", 0},
	{"Headphones", "Wireless noise-cancelling headphones", "149.99", 100, "https://example.com/images/headphones.jpg", "AUDIO-001", 0},
	{"Novel", "Bestselling fiction novel", "19.99", 200, "https://example.com/images/novel.jpg", "BOOK-001", 1},
	{"T-shirt", "Cotton t-shirt", "24.99", 150, "https://example.com/images/tshirt.jpg", "SHIRT-001", 2},
	{"Jeans", "Denim jeans", "49.99", 75, "https://example.com/images/jeans.jpg", "PANTS-001", 2},
}

var orders = []orderSeed{
	{0, domain.OrderStatusDelivered, "Please deliver before noon", [][2]int{{0, 1}, {2, 1}}},
	{1, domain.OrderStatusProcessing, "Gift wrap requested", [][2]int{{1, 1}, {3, 2}}},
	{2, domain.OrderStatusPending, "", [][2]int{{4, 3}, {5, 1}}},
}

// Run loads the sample catalog and orders. Orders go through the order
// service, so their stock is reserved like any other order. A store that
// already has customers is left alone.
func Run(ctx context.Context, svc Services, logger zerolog.Logger) error {
	existing, err := svc.Customers.ListCustomers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info().Int("customers", len(existing)).Msg("store not empty, skipping seed")
		return nil
	}

	customerIDs := make([]int64, 0, len(customers))
	for _, c := range customers {
		created, err := svc.Customers.CreateCustomer(ctx, service.CustomerInput{
			Name: &c.name, Surname: &c.surname, Email: &c.email, Address: &c.address,
			City: &c.city, State: &c.state, ZipCode: &c.zip, Country: &c.country, Phone: &c.phone,
		})
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", c.email, err)
		}
		customerIDs = append(customerIDs, created.ID)
	}

	categoryIDs := make([]int64, 0, len(categories))
	for _, c := range categories {
		created, err := svc.Categories.CreateCategory(ctx, service.CategoryInput{Title: &c[0], Description: &c[1]})
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c[0], err)
		}
		categoryIDs = append(categoryIDs, created.ID)
	}

	itemIDs := make([]int64, 0, len(items))
	for _, it := range items {
		price := decimal.RequireFromString(it.price)
		created, err := svc.ShopItems.CreateShopItem(ctx, service.ShopItemInput{
			Title:         &it.title,
			Description:   &it.description,
			Price:         &price,
			StockQuantity: &it.stock,
			ImageURL:      &it.image,
			SKU:           &it.sku,
			CategoryIDs:   []int64{categoryIDs[it.category]},
		})
		if err != nil {
			return fmt.Errorf("seed shop item %s: %w", it.sku, err)
		}
		itemIDs = append(itemIDs, created.ID)
	}

	for i, o := range orders {
		lines := make([]domain.LineItem, 0, len(o.lines))
		for _, l := range o.lines {
			lines = append(lines, domain.LineItem{ShopItemID: itemIDs[l[0]], Quantity: l[1]})
		}
		if _, err := svc.Orders.CreateOrder(ctx, service.CreateOrderInput{
			CustomerID: customerIDs[o.customer],
			Items:      lines,
			Notes:      o.notes,
			Status:     string(o.status),
		}); err != nil {
			return fmt.Errorf("seed order %d: %w", i+1, err)
		}
	}

	logger.Info().
		Int("customers", len(customerIDs)).
		Int("categories", len(categoryIDs)).
		Int("shop_items", len(itemIDs)).
		Int("orders", len(orders)).
		Msg("database seeded")
	return nil
}
