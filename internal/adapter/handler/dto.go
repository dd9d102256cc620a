package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/core/service"
)

// Requests. Pointer fields distinguish "absent" from the zero value; a JSON
// null is treated as absent.

type CreateOrderRequest struct {
	CustomerID      int64             `json:"customerId"`
	Items           []domain.LineItem `json:"items"`
	ShippingAddress string            `json:"shippingAddress"`
	Notes           string            `json:"notes"`
	Status          string            `json:"status"`
}

func (r CreateOrderRequest) input(idempotencyKey string) service.CreateOrderInput {
	return service.CreateOrderInput{
		CustomerID:      r.CustomerID,
		Items:           r.Items,
		ShippingAddress: r.ShippingAddress,
		Notes:           r.Notes,
		Status:          r.Status,
		IdempotencyKey:  idempotencyKey,
	}
}

type UpdateOrderRequest struct {
	CustomerID      *int64            `json:"customerId"`
	Items           []domain.LineItem `json:"items"`
	Status          *string           `json:"status"`
	ShippingAddress *string           `json:"shippingAddress"`
	Notes           *string           `json:"notes"`
}

func (r UpdateOrderRequest) input() service.UpdateOrderInput {
	return service.UpdateOrderInput{
		CustomerID:      r.CustomerID,
		Items:           r.Items,
		Status:          r.Status,
		ShippingAddress: r.ShippingAddress,
		Notes:           r.Notes,
	}
}

type CustomerRequest struct {
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zipCode"`
	Country *string `json:"country"`
	Phone   *string `json:"phone"`
}

func (r CustomerRequest) input() service.CustomerInput {
	return service.CustomerInput(r)
}

type CategoryRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (r CategoryRequest) input() service.CategoryInput {
	return service.CategoryInput(r)
}

type ShopItemRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stockQuantity"`
	ImageURL      *string          `json:"imageUrl"`
	IsActive      *bool            `json:"isActive"`
	SKU           *string          `json:"sku"`
	CategoryIDs   []int64          `json:"categoryIds"`
}

func (r ShopItemRequest) input() service.ShopItemInput {
	return service.ShopItemInput(r)
}

type StockRequest struct {
	StockQuantity *int `json:"stockQuantity"`
}

// Responses

type MessageResponse struct {
	Message string `json:"message"`
}

type CustomerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ZipCode   string    `json:"zipCode"`
	Country   string    `json:"country"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newCustomerResponse(c *domain.Customer) *CustomerResponse {
	if c == nil {
		return nil
	}
	return &CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Surname:   c.Surname,
		Email:     c.Email,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		ZipCode:   c.ZipCode,
		Country:   c.Country,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type CategoryResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type ShopItemResponse struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
	IsActive      bool            `json:"isActive"`
	SKU           string          `json:"sku,omitempty"`
	CategoryIDs   []int64         `json:"categoryIds"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func newShopItemResponse(item *domain.ShopItem) *ShopItemResponse {
	if item == nil {
		return nil
	}
	ids := item.CategoryIDs
	if ids == nil {
		ids = []int64{}
	}
	return &ShopItemResponse{
		ID:            item.ID,
		Title:         item.Title,
		Description:   item.Description,
		Price:         item.Price,
		StockQuantity: item.StockQuantity,
		ImageURL:      item.ImageURL,
		IsActive:      item.IsActive,
		SKU:           item.SKU,
		CategoryIDs:   ids,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

type StockResponse struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	StockQuantity int    `json:"stockQuantity"`
}

type OrderItemResponse struct {
	ID         int64             `json:"id"`
	OrderID    int64             `json:"orderId"`
	ShopItemID int64             `json:"shopItemId"`
	Quantity   int               `json:"quantity"`
	ShopItem   *ShopItemResponse `json:"shopItem"`
}

type OrderResponse struct {
	ID              int64               `json:"id"`
	CustomerID      int64               `json:"customerId"`
	Status          domain.OrderStatus  `json:"status"`
	OrderDate       time.Time           `json:"orderDate"`
	ShippingAddress string              `json:"shippingAddress"`
	Notes           string              `json:"notes"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	Customer        *CustomerResponse   `json:"customer"`
	OrderItems      []OrderItemResponse `json:"orderItems"`
}

func newOrderResponse(d *domain.OrderDetails) OrderResponse {
	resp := OrderResponse{
		ID:              d.Order.ID,
		CustomerID:      d.Order.CustomerID,
		Status:          d.Order.Status,
		OrderDate:       d.Order.OrderDate,
		ShippingAddress: d.Order.ShippingAddress,
		Notes:           d.Order.Notes,
		CreatedAt:       d.Order.CreatedAt,
		UpdatedAt:       d.Order.UpdatedAt,
		Customer:        newCustomerResponse(d.Customer),
		OrderItems:      make([]OrderItemResponse, 0, len(d.Lines)),
	}
	for _, l := range d.Lines {
		resp.OrderItems = append(resp.OrderItems, OrderItemResponse{
			ID:         l.Line.ID,
			OrderID:    l.Line.OrderID,
			ShopItemID: l.Line.ShopItemID,
			Quantity:   l.Line.Quantity,
			ShopItem:   newShopItemResponse(l.ShopItem),
		})
	}
	return resp
}

func newOrderResponses(details []domain.OrderDetails) []OrderResponse {
	out := make([]OrderResponse, 0, len(details))
	for i := range details {
		out = append(out, newOrderResponse(&details[i]))
	}
	return out
}
