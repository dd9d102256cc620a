package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrRowIsReferenced = 1451
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLAdapter struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ port.Store = (*MySQLAdapter)(nil)

// classify turns driver errors for unique and foreign key violations into domain.ErrConflict.
func classify(err error, what string) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDuplicateEntry:
			return fmt.Errorf("%w: %s: %s", domain.ErrConflict, what, me.Message)
		case mysqlErrRowIsReferenced:
			return fmt.Errorf("%w: %s is still referenced", domain.ErrConflict, what)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func requireAffected(res sql.Result, what string, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %d", domain.ErrNotFound, what, id)
	}
	return nil
}

const customerColumns = `id, name, surname, email, address, city, state, zip_code, country, phone, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Surname, &c.Email, &c.Address, &c.City, &c.State,
		&c.ZipCode, &c.Country, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (m *MySQLAdapter) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	now := m.now()
	res, err := m.db.ExecContext(ctx, `
		INSERT INTO customers (name, surname, email, address, city, state, zip_code, country, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Surname, c.Email, c.Address, c.City, c.State, c.ZipCode, c.Country, c.Phone, now, now,
	)
	if err != nil {
		return classify(err, "insert customer")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("customer id: %w", err)
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	return nil
}

func (m *MySQLAdapter) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(m.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

func (m *MySQLAdapter) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	c, err := scanCustomer(m.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer by email: %w", err)
	}
	return &c, nil
}

func (m *MySQLAdapter) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	out := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) UpdateCustomer(ctx context.Context, c *domain.Customer) error {
	c.UpdatedAt = m.now()
	res, err := m.db.ExecContext(ctx, `
		UPDATE customers
		SET name = ?, surname = ?, email = ?, address = ?, city = ?, state = ?,
		    zip_code = ?, country = ?, phone = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Surname, c.Email, c.Address, c.City, c.State, c.ZipCode, c.Country, c.Phone, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return classify(err, "update customer")
	}
	return requireAffected(res, "customer", c.ID)
}

func (m *MySQLAdapter) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return classify(err, "customer")
	}
	return requireAffected(res, "customer", id)
}

func (m *MySQLAdapter) CreateCategory(ctx context.Context, c *domain.Category) error {
	now := m.now()
	res, err := m.db.ExecContext(ctx, `
		INSERT INTO categories (title, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.Title, c.Description, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	return nil
}

func (m *MySQLAdapter) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := m.db.QueryRowContext(ctx, `
		SELECT id, title, description, created_at, updated_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return &c, nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, title, description, created_at, updated_at FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) UpdateCategory(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = m.now()
	res, err := m.db.ExecContext(ctx, `
		UPDATE categories SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		c.Title, c.Description, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res, "category", c.ID)
}

// DeleteCategory relies on ON DELETE CASCADE to detach the category from shop items.
func (m *MySQLAdapter) DeleteCategory(ctx context.Context, id int64) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, "category", id)
}

const shopItemColumns = `id, title, description, price, stock_quantity, image_url, is_active, sku, created_at, updated_at`

func scanShopItem(row interface{ Scan(...any) error }) (domain.ShopItem, error) {
	var (
		item domain.ShopItem
		sku  sql.NullString
	)
	err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Price, &item.StockQuantity,
		&item.ImageURL, &item.IsActive, &sku, &item.CreatedAt, &item.UpdatedAt)
	item.SKU = sku.String
	return item, err
}

func nullableSKU(sku string) sql.NullString {
	return sql.NullString{String: sku, Valid: sku != ""}
}

func (m *MySQLAdapter) CreateShopItem(ctx context.Context, item *domain.ShopItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := m.now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO shop_items (title, description, price, stock_quantity, image_url, is_active, sku, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Title, item.Description, item.Price, item.StockQuantity, item.ImageURL, item.IsActive,
		nullableSKU(item.SKU), now, now,
	)
	if err != nil {
		return classify(err, "insert shop item")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("shop item id: %w", err)
	}

	if err := writeItemCategories(ctx, tx, id, item.CategoryIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit shop item: %w", err)
	}

	item.ID, item.CreatedAt, item.UpdatedAt = id, now, now
	return nil
}

func writeItemCategories(ctx context.Context, q querier, itemID int64, categoryIDs []int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM shop_item_categories WHERE shop_item_id = ?`, itemID); err != nil {
		return fmt.Errorf("clear item categories: %w", err)
	}
	for _, cid := range categoryIDs {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO shop_item_categories (shop_item_id, category_id) VALUES (?, ?)`, itemID, cid,
		); err != nil {
			return fmt.Errorf("insert item category: %w", err)
		}
	}
	return nil
}

// loadItemCategories fills CategoryIDs for the given items in one query.
func (m *MySQLAdapter) loadItemCategories(ctx context.Context, items []domain.ShopItem) error {
	if len(items) == 0 {
		return nil
	}

	index := make(map[int64]int, len(items))
	args := make([]any, 0, len(items))
	for i := range items {
		index[items[i].ID] = i
		items[i].CategoryIDs = []int64{}
		args = append(args, items[i].ID)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT shop_item_id, category_id FROM shop_item_categories
		WHERE shop_item_id IN (`+placeholders(len(args))+`)
		ORDER BY category_id`, args...)
	if err != nil {
		return fmt.Errorf("query item categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID, categoryID int64
		if err := rows.Scan(&itemID, &categoryID); err != nil {
			return fmt.Errorf("scan item category: %w", err)
		}
		i := index[itemID]
		items[i].CategoryIDs = append(items[i].CategoryIDs, categoryID)
	}
	return rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (m *MySQLAdapter) getShopItem(ctx context.Context, where string, arg any) (*domain.ShopItem, error) {
	item, err := scanShopItem(m.db.QueryRowContext(ctx,
		`SELECT `+shopItemColumns+` FROM shop_items WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shop item: %w", err)
	}

	items := []domain.ShopItem{item}
	if err := m.loadItemCategories(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (m *MySQLAdapter) GetShopItem(ctx context.Context, id int64) (*domain.ShopItem, error) {
	return m.getShopItem(ctx, "id = ?", id)
}

func (m *MySQLAdapter) GetShopItemBySKU(ctx context.Context, sku string) (*domain.ShopItem, error) {
	if sku == "" {
		return nil, nil
	}
	return m.getShopItem(ctx, "sku = ?", sku)
}

var shopItemSortColumns = map[string]string{
	domain.SortByTitle:         "title",
	domain.SortByPrice:         "price",
	domain.SortByStockQuantity: "stock_quantity",
	domain.SortByCreatedAt:     "created_at",
}

func (m *MySQLAdapter) ListShopItems(ctx context.Context, filter domain.ShopItemFilter) ([]domain.ShopItem, error) {
	filter = filter.Normalize()

	var (
		conds []string
		args  []any
	)
	if filter.CategoryID != nil {
		conds = append(conds, `id IN (SELECT shop_item_id FROM shop_item_categories WHERE category_id = ?)`)
		args = append(args, *filter.CategoryID)
	}
	if filter.MinPrice != nil {
		conds = append(conds, `price >= ?`)
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conds = append(conds, `price <= ?`)
		args = append(args, *filter.MaxPrice)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		conds = append(conds, `(title LIKE ? OR description LIKE ?)`)
		args = append(args, like, like)
	}
	if filter.InStock {
		conds = append(conds, `stock_quantity > 0`)
	}
	if filter.IsActive != nil {
		conds = append(conds, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}

	query := `SELECT ` + shopItemColumns + ` FROM shop_items`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	if col, ok := shopItemSortColumns[filter.SortBy]; ok {
		query += ` ORDER BY ` + col + ` ` + filter.SortOrder + `, id`
	} else {
		query += ` ORDER BY id`
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shop items: %w", err)
	}
	defer rows.Close()

	out := []domain.ShopItem{}
	for rows.Next() {
		item, err := scanShopItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := m.loadItemCategories(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MySQLAdapter) UpdateShopItem(ctx context.Context, item *domain.ShopItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	item.UpdatedAt = m.now()
	res, err := tx.ExecContext(ctx, `
		UPDATE shop_items
		SET title = ?, description = ?, price = ?, image_url = ?, is_active = ?, sku = ?, updated_at = ?
		WHERE id = ?`,
		item.Title, item.Description, item.Price, item.ImageURL, item.IsActive, nullableSKU(item.SKU),
		item.UpdatedAt, item.ID,
	)
	if err != nil {
		return classify(err, "update shop item")
	}
	if err := requireAffected(res, "shop item", item.ID); err != nil {
		return err
	}

	if err := writeItemCategories(ctx, tx, item.ID, item.CategoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *MySQLAdapter) DeleteShopItem(ctx context.Context, id int64) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM shop_items WHERE id = ?`, id)
	if err != nil {
		return classify(err, "shop item")
	}
	return requireAffected(res, "shop item", id)
}

// AdjustStock applies the delta with a conditional UPDATE so the stock check
// and the write cannot be interleaved by another request. The row is read
// back inside the same transaction: an error means nothing was committed.
func (m *MySQLAdapter) AdjustStock(ctx context.Context, id int64, delta int) (*domain.ShopItem, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE shop_items
		SET stock_quantity = stock_quantity + ?, updated_at = ?
		WHERE id = ? AND stock_quantity + ? >= 0`,
		delta, m.now(), id, delta,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("adjust stock rows affected: %w", err)
	}

	item, err := scanShopItem(tx.QueryRowContext(ctx,
		`SELECT `+shopItemColumns+` FROM shop_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: shop item %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query shop item: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: shop item %d has %d, requested %d",
			domain.ErrInsufficientStock, id, item.StockQuantity, -delta)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit stock: %w", err)
	}

	// Categories are decoration here; the stock move is already committed.
	items := []domain.ShopItem{item}
	if err := m.loadItemCategories(context.WithoutCancel(ctx), items); err != nil {
		return &item, nil
	}
	return &items[0], nil
}

func (m *MySQLAdapter) SetStock(ctx context.Context, id int64, quantity int) (*domain.ShopItem, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: stock quantity %d", domain.ErrInvalidArgument, quantity)
	}

	res, err := m.db.ExecContext(ctx, `
		UPDATE shop_items SET stock_quantity = ?, updated_at = ? WHERE id = ?`,
		quantity, m.now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set stock: %w", err)
	}
	if err := requireAffected(res, "shop item", id); err != nil {
		return nil, err
	}
	return m.GetShopItem(ctx, id)
}

func (m *MySQLAdapter) CountLinesByShopItem(ctx context.Context, id int64) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_lines WHERE shop_item_id = ?`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count order lines: %w", err)
	}
	return n, nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := m.now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (customer_id, status, order_date, shipping_address, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.CustomerID, order.Status, order.OrderDate, order.ShippingAddress, order.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	order.ID = id

	if err := insertLines(ctx, tx, order); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	order.CreatedAt, order.UpdatedAt = now, now
	return nil
}

func insertLines(ctx context.Context, q querier, order *domain.Order) error {
	for i := range order.Lines {
		l := &order.Lines[i]
		res, err := q.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, shop_item_id, quantity) VALUES (?, ?, ?)`,
			order.ID, l.ShopItemID, l.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
		if l.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("order line id: %w", err)
		}
		l.OrderID = order.ID
	}
	return nil
}

const orderColumns = `id, customer_id, status, order_date, shipping_address, notes, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.OrderDate, &o.ShippingAddress, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// loadLines fills Lines for the given orders in insertion order.
func (m *MySQLAdapter) loadLines(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[int64]int, len(orders))
	args := make([]any, 0, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
		orders[i].Lines = []domain.OrderLine{}
		args = append(args, orders[i].ID)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, shop_item_id, quantity FROM order_lines
		WHERE order_id IN (`+placeholders(len(args))+`)
		ORDER BY id`, args...)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ShopItemID, &l.Quantity); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		i := index[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return rows.Err()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(m.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	orders := []domain.Order{o}
	if err := m.loadLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY id`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := m.loadLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MySQLAdapter) UpdateOrder(ctx context.Context, order *domain.Order, replaceLines bool) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	order.UpdatedAt = m.now()
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET customer_id = ?, status = ?, shipping_address = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		order.CustomerID, order.Status, order.ShippingAddress, order.Notes, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if err := requireAffected(res, "order", order.ID); err != nil {
		return err
	}

	if replaceLines {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, order.ID); err != nil {
			return fmt.Errorf("delete order lines: %w", err)
		}
		if err := insertLines(ctx, tx, order); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, id int64) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return requireAffected(res, "order", id)
}

func (m *MySQLAdapter) CountOrdersByCustomer(ctx context.Context, customerID int64) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id = ?`, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
