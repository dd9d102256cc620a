package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/core/service"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
	requestTimeout       = 30 * time.Second
)

type Services struct {
	Orders     *service.OrderService
	Customers  *service.CustomerService
	Categories *service.CategoryService
	ShopItems  *service.ShopItemService
}

type HTTPHandler struct {
	svc    Services
	logger zerolog.Logger
}

func NewHTTPHandler(svc Services, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger.With().Str("component", "http").Logger()}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, MessageResponse{Message: "method not allowed"})
	})

	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/status/{status}", h.ListOrdersByStatus)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}", h.UpdateOrder)
		r.Delete("/{id}", h.DeleteOrder)
	})
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.ListCustomers)
		r.Post("/", h.CreateCustomer)
		r.Get("/{id}", h.GetCustomer)
		r.Put("/{id}", h.UpdateCustomer)
		r.Delete("/{id}", h.DeleteCustomer)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Get("/{id}", h.GetCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
	r.Route("/shop-items", func(r chi.Router) {
		r.Get("/", h.ListShopItems)
		r.Post("/", h.CreateShopItem)
		r.Get("/{id}", h.GetShopItem)
		r.Put("/{id}", h.UpdateShopItem)
		r.Patch("/{id}/stock", h.UpdateStock)
		r.Delete("/{id}", h.DeleteShopItem)
	})
	return r
}

func (h *HTTPHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Online Shop API is running"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Orders

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponses(orders))
}

func (h *HTTPHandler) ListOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListOrdersByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponses(orders))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.CustomerID == 0 || len(req.Items) == 0 {
		h.writeError(w, r, fmt.Errorf("%w: customer id and at least one item are required", domain.ErrInvalidArgument))
		return
	}

	order, err := h.svc.Orders.CreateOrder(r.Context(), req.input(r.Header.Get(IdempotencyKeyHeader)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (h *HTTPHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req UpdateOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.svc.Orders.UpdateOrder(r.Context(), id, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Orders.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Customers

func (h *HTTPHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.Customers.ListCustomers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]*CustomerResponse, 0, len(customers))
	for i := range customers {
		out = append(out, newCustomerResponse(&customers[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Customers.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerResponse(c))
}

func (h *HTTPHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Customers.CreateCustomer(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCustomerResponse(c))
}

func (h *HTTPHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req CustomerRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Customers.UpdateCustomer(r.Context(), id, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerResponse(c))
}

func (h *HTTPHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Customers.DeleteCustomer(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, newCategoryResponse(&categories[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Categories.GetCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryResponse(c))
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Categories.CreateCategory(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryResponse(c))
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req CategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Categories.UpdateCategory(r.Context(), id, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryResponse(c))
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Categories.DeleteCategory(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Shop items

func (h *HTTPHandler) ListShopItems(w http.ResponseWriter, r *http.Request) {
	filter, err := shopItemFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items, err := h.svc.ShopItems.ListShopItems(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]*ShopItemResponse, 0, len(items))
	for i := range items {
		out = append(out, newShopItemResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetShopItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.ShopItems.GetShopItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShopItemResponse(item))
}

func (h *HTTPHandler) CreateShopItem(w http.ResponseWriter, r *http.Request) {
	var req ShopItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.ShopItems.CreateShopItem(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newShopItemResponse(item))
}

func (h *HTTPHandler) UpdateShopItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req ShopItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.ShopItems.UpdateShopItem(r.Context(), id, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShopItemResponse(item))
}

func (h *HTTPHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req StockRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.ShopItems.UpdateStock(r.Context(), id, req.StockQuantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StockResponse{ID: item.ID, Title: item.Title, StockQuantity: item.StockQuantity})
}

func (h *HTTPHandler) DeleteShopItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.ShopItems.DeleteShopItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func shopItemFilter(r *http.Request) (domain.ShopItemFilter, error) {
	q := r.URL.Query()
	filter := domain.ShopItemFilter{
		Search:    q.Get("search"),
		InStock:   q.Get("inStock") == "true",
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	if v := q.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid category %q", domain.ErrInvalidArgument, v)
		}
		filter.CategoryID = &id
	}
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidArgument, name, v)
		}
		*dst = &d
	}
	if v := q.Get("isActive"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}
	return filter, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid id %q", domain.ErrInvalidArgument, raw)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		message = "internal error"
	}
	writeJSON(w, status, MessageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
