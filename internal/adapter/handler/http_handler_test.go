package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-orders/internal/adapter/storage"
	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/core/service"
)

type testEnv struct {
	store    *storage.MemoryAdapter
	services Services
	server   *httptest.Server
	customer int64
	laptop   int64 // stock 10
	phone    int64 // stock 5
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	store := storage.NewMemoryAdapter()
	ledger := service.NewInventoryLedger(store, logger)
	env := &testEnv{
		store: store,
		services: Services{
			Orders:     service.NewOrderService(store, ledger, storage.NewMemoryCache(), nil, logger),
			Customers:  service.NewCustomerService(store, logger),
			Categories: service.NewCategoryService(store, logger),
			ShopItems:  service.NewShopItemService(store, ledger, logger),
		},
	}

	c := &domain.Customer{Name: "John", Surname: "Doe", Email: "john@example.com", Address: "1 Main St"}
	require.NoError(t, store.CreateCustomer(ctx, c))
	env.customer = c.ID
	for _, it := range []struct {
		id    *int64
		title string
		stock int
	}{{&env.laptop, "Laptop", 10}, {&env.phone, "Phone", 5}} {
		item := &domain.ShopItem{Title: it.title, Price: decimal.NewFromInt(500), StockQuantity: it.stock, IsActive: true}
		require.NoError(t, store.CreateShopItem(ctx, item))
		*it.id = item.ID
	}

	env.server = httptest.NewServer(NewHTTPHandler(env.services, logger).Routes())
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (e *testEnv) stock(t *testing.T, id int64) int {
	t.Helper()
	item, err := e.store.GetShopItem(context.Background(), id)
	require.NoError(t, err)
	return item.StockQuantity
}

func decodeInto[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Online Shop API is running", decodeInto[MessageResponse](t, body).Message)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp, body = env.do(t, http.MethodGet, "/health", nil, RequestIDHeader, "abc-123")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))

	resp, _ = env.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/orders", map[string]any{
		"customerId": env.customer,
		"items": []map[string]any{
			{"shopItemId": env.laptop, "quantity": 2},
			{"shopItemId": env.phone, "quantity": 1},
		},
		"notes": "gift",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	order := decodeInto[OrderResponse](t, body)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "1 Main St", order.ShippingAddress)
	assert.Equal(t, "gift", order.Notes)
	require.NotNil(t, order.Customer)
	assert.Equal(t, "john@example.com", order.Customer.Email)
	require.Len(t, order.OrderItems, 2)
	assert.Equal(t, "Laptop", order.OrderItems[0].ShopItem.Title)
	assert.Equal(t, 8, order.OrderItems[0].ShopItem.StockQuantity)

	assert.Equal(t, 8, env.stock(t, env.laptop))
	assert.Equal(t, 4, env.stock(t, env.phone))
}

func TestCreateOrder_ErrorStatuses(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed json", `{"customerId":`, http.StatusBadRequest},
		{"missing items", map[string]any{"customerId": env.customer}, http.StatusBadRequest},
		{"missing customer", map[string]any{"items": []map[string]any{{"shopItemId": env.laptop, "quantity": 1}}}, http.StatusBadRequest},
		{"unknown customer", map[string]any{"customerId": 999, "items": []map[string]any{{"shopItemId": env.laptop, "quantity": 1}}}, http.StatusNotFound},
		{"unknown item", map[string]any{"customerId": env.customer, "items": []map[string]any{{"shopItemId": 999, "quantity": 1}}}, http.StatusNotFound},
		{"zero quantity", map[string]any{"customerId": env.customer, "items": []map[string]any{{"shopItemId": env.laptop, "quantity": 0}}}, http.StatusBadRequest},
		{"insufficient stock", map[string]any{"customerId": env.customer, "items": []map[string]any{{"shopItemId": env.phone, "quantity": 6}}}, http.StatusBadRequest},
		{"bad status", map[string]any{"customerId": env.customer, "status": "lost", "items": []map[string]any{{"shopItemId": env.laptop, "quantity": 1}}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(body))
			assert.NotEmpty(t, decodeInto[MessageResponse](t, body).Message)
		})
	}

	assert.Equal(t, 10, env.stock(t, env.laptop))
	assert.Equal(t, 5, env.stock(t, env.phone))
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{"customerId": env.customer, "items": []map[string]any{{"shopItemId": env.laptop, "quantity": 1}}}

	resp, _ := env.do(t, http.MethodPost, "/orders", body, IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := env.do(t, http.MethodPost, "/orders", body, IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(raw))
	assert.Equal(t, 9, env.stock(t, env.laptop))
}

func TestOrderLifecycle(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodPost, "/orders", map[string]any{
		"customerId": env.customer,
		"items":      []map[string]any{{"shopItemId": env.laptop, "quantity": 3}},
	})
	order := decodeInto[OrderResponse](t, body)
	path := fmt.Sprintf("/orders/%d", order.ID)

	resp, body := env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, order.ID, decodeInto[OrderResponse](t, body).ID)

	resp, body = env.do(t, http.MethodPut, path, map[string]any{
		"items": []map[string]any{{"shopItemId": env.phone, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 10, env.stock(t, env.laptop))
	assert.Equal(t, 3, env.stock(t, env.phone))

	resp, body = env.do(t, http.MethodPut, path, map[string]any{"status": "canceled"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, domain.OrderStatusCanceled, decodeInto[OrderResponse](t, body).Status)
	assert.Equal(t, 5, env.stock(t, env.phone))

	resp, body = env.do(t, http.MethodGet, "/orders/status/canceled", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[[]OrderResponse](t, body), 1)

	resp, _ = env.do(t, http.MethodGet, "/orders/status/lost", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 5, env.stock(t, env.phone))

	resp, _ = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCustomerRoutes(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/customers", map[string]any{
		"name": "Ann", "surname": "Lee", "email": "ann@example.com", "zipCode": "0150",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	ann := decodeInto[CustomerResponse](t, body)
	assert.Equal(t, "0150", ann.ZipCode)

	resp, _ = env.do(t, http.MethodPost, "/customers", map[string]any{"name": "X", "surname": "Y", "email": "ann@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/customers", map[string]any{"name": "X", "surname": "Y", "email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPut, fmt.Sprintf("/customers/%d", ann.ID), map[string]any{"city": "Oslo"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Oslo", decodeInto[CustomerResponse](t, body).City)

	resp, body = env.do(t, http.MethodGet, "/customers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[[]CustomerResponse](t, body), 2)

	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/customers/%d", ann.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, fmt.Sprintf("/customers/%d", ann.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoryAndShopItemRoutes(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/categories", map[string]any{"title": "Electronics"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	cat := decodeInto[CategoryResponse](t, body)

	resp, body = env.do(t, http.MethodPost, "/shop-items", map[string]any{
		"title": "Headphones", "price": 59.99, "stockQuantity": 7, "sku": "HP-1", "categoryIds": []int64{cat.ID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	item := decodeInto[ShopItemResponse](t, body)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("59.99")))
	assert.Equal(t, []int64{cat.ID}, item.CategoryIDs)
	assert.True(t, item.IsActive)

	resp, _ = env.do(t, http.MethodPost, "/shop-items", map[string]any{"title": "No price"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, fmt.Sprintf("/shop-items?category=%d", cat.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[[]ShopItemResponse](t, body), 1)

	resp, body = env.do(t, http.MethodGet, "/shop-items?sortBy=price&sortOrder=desc&minPrice=50", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeInto[[]ShopItemResponse](t, body)
	require.Len(t, listed, 3)
	assert.Equal(t, "Laptop", listed[0].Title)
	assert.Equal(t, "Headphones", listed[2].Title)

	resp, _ = env.do(t, http.MethodGet, "/shop-items?minPrice=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	stockPath := fmt.Sprintf("/shop-items/%d/stock", item.ID)
	resp, body = env.do(t, http.MethodPatch, stockPath, map[string]any{"stockQuantity": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"title":"Headphones","stockQuantity":20}`, item.ID), string(body))

	resp, _ = env.do(t, http.MethodPatch, stockPath, map[string]any{"stockQuantity": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPatch, stockPath, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPatch, "/shop-items/999/stock", map[string]any{"stockQuantity": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/categories/%d", cat.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = env.do(t, http.MethodGet, fmt.Sprintf("/shop-items/%d", item.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeInto[ShopItemResponse](t, body).CategoryIDs)

	// Referenced by an order line: deletion is refused.
	_, _ = env.do(t, http.MethodPost, "/orders", map[string]any{
		"customerId": env.customer,
		"items":      []map[string]any{{"shopItemId": item.ID, "quantity": 1}},
	})
	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/shop-items/%d", item.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrInvalidArgument, http.StatusBadRequest},
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{domain.ErrInsufficientStock, http.StatusBadRequest},
		{service.ErrDuplicateRequest, http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpStatus(tt.err), tt.err.Error())
	}
}
