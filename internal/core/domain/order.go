package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

// ParseOrderStatus returns ErrInvalidArgument for anything but the five known statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range orderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: invalid order status %q", ErrInvalidArgument, s)
}

// Active reports whether an order in this status holds a stock commitment.
func (s OrderStatus) Active() bool {
	return s != OrderStatusCanceled
}

// StockAction is the stock side effect of a status transition.
type StockAction int

const (
	// StockNone: the order held nothing before and holds nothing after.
	StockNone StockAction = iota
	// StockHold: the commitment carries over; only a line change moves stock.
	StockHold
	// StockRelease: the commitment is given back exactly once.
	StockRelease
	// StockReserve: a canceled order becomes active again and must re-reserve.
	StockReserve
)

func (a StockAction) String() string {
	switch a {
	case StockHold:
		return "hold"
	case StockRelease:
		return "release"
	case StockReserve:
		return "reserve"
	default:
		return "none"
	}
}

func OnStatusChange(from, to OrderStatus) StockAction {
	switch {
	case from.Active() && to.Active():
		return StockHold
	case from.Active():
		return StockRelease
	case to.Active():
		return StockReserve
	default:
		return StockNone
	}
}

type Order struct {
	ID              int64
	CustomerID      int64
	Status          OrderStatus
	OrderDate       time.Time
	ShippingAddress string
	Notes           string
	Lines           []OrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderLine struct {
	ID         int64
	OrderID    int64
	ShopItemID int64
	Quantity   int
}

// LineItem is a (shop item, quantity) pair as requested by a caller or
// committed by an order.
type LineItem struct {
	ShopItemID int64 `json:"shopItemId"`
	Quantity   int   `json:"quantity"`
}

// Committed returns the stock this order holds: its lines while active, nothing once canceled.
func (o Order) Committed() []LineItem {
	if !o.Status.Active() {
		return nil
	}
	return o.LineItems()
}

func (o Order) LineItems() []LineItem {
	items := make([]LineItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, LineItem{ShopItemID: l.ShopItemID, Quantity: l.Quantity})
	}
	return items
}

// OrderDetails is an order expanded with its customer and the shop item of every line.
type OrderDetails struct {
	Order    Order
	Customer *Customer
	Lines    []OrderLineDetails
}

type OrderLineDetails struct {
	Line     OrderLine
	ShopItem *ShopItem
}
