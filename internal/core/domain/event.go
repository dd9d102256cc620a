package domain

import "time"

type OrderEventType string

const (
	OrderEventCreated  OrderEventType = "order.created"
	OrderEventUpdated  OrderEventType = "order.updated"
	OrderEventCanceled OrderEventType = "order.canceled"
	OrderEventDeleted  OrderEventType = "order.deleted"
)

type OrderEvent struct {
	Type       OrderEventType `json:"type"`
	OrderID    int64          `json:"orderId"`
	CustomerID int64          `json:"customerId"`
	Status     OrderStatus    `json:"status"`
	Lines      []LineItem     `json:"lines"`
	OccurredAt time.Time      `json:"occurredAt"`
}
