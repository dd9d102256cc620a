package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/core/service"
)

const (
	OrderServiceName = "shop.v1.OrderService"
	// JSONSubtype is the content-subtype clients pass with grpc.CallContentSubtype.
	JSONSubtype = "json"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONSubtype }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type CreateOrderRPCRequest struct {
	CreateOrderRequest
	IdempotencyKey string `json:"idempotencyKey"`
}

type OrderIDRequest struct {
	ID int64 `json:"id"`
}

type ListOrdersRequest struct {
	// Status filters the listing when set.
	Status string `json:"status"`
}

type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

type UpdateOrderRPCRequest struct {
	ID int64 `json:"id"`
	UpdateOrderRequest
}

type DeleteOrderResponse struct{}

type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRPCRequest) (*OrderResponse, error)
	GetOrder(context.Context, *OrderIDRequest) (*OrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	UpdateOrder(context.Context, *UpdateOrderRPCRequest) (*OrderResponse, error)
	DeleteOrder(context.Context, *OrderIDRequest) (*DeleteOrderResponse, error)
}

type GRPCHandler struct {
	orderService *service.OrderService
}

func NewGRPCHandler(orderService *service.OrderService) *GRPCHandler {
	return &GRPCHandler{orderService: orderService}
}

func RegisterOrderService(s grpc.ServiceRegistrar, h OrderServiceServer) {
	s.RegisterService(&orderServiceDesc, h)
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRPCRequest) (*OrderResponse, error) {
	order, err := h.orderService.CreateOrder(ctx, req.input(req.IdempotencyKey))
	if err != nil {
		return nil, grpcError(err)
	}
	resp := newOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *OrderIDRequest) (*OrderResponse, error) {
	order, err := h.orderService.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := newOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	var (
		details []domain.OrderDetails
		err     error
	)
	if req.Status == "" {
		details, err = h.orderService.ListOrders(ctx)
	} else {
		details, err = h.orderService.ListOrdersByStatus(ctx, req.Status)
	}
	if err != nil {
		return nil, grpcError(err)
	}
	return &ListOrdersResponse{Orders: newOrderResponses(details)}, nil
}

func (h *GRPCHandler) UpdateOrder(ctx context.Context, req *UpdateOrderRPCRequest) (*OrderResponse, error) {
	order, err := h.orderService.UpdateOrder(ctx, req.ID, req.input())
	if err != nil {
		return nil, grpcError(err)
	}
	resp := newOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) DeleteOrder(ctx context.Context, req *OrderIDRequest) (*DeleteOrderResponse, error) {
	if err := h.orderService.DeleteOrder(ctx, req.ID); err != nil {
		return nil, grpcError(err)
	}
	return &DeleteOrderResponse{}, nil
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateOrder", OrderServiceServer.CreateOrder),
		unary("GetOrder", OrderServiceServer.GetOrder),
		unary("ListOrders", OrderServiceServer.ListOrders),
		unary("UpdateOrder", OrderServiceServer.UpdateOrder),
		unary("DeleteOrder", OrderServiceServer.DeleteOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shop/v1/order_service",
}

func unary[Req, Resp any](method string, call func(OrderServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderServiceServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + OrderServiceName + "/" + method}
			return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderServiceServer), ctx, req.(*Req))
			})
		},
	}
}

func UnaryLoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	logger = logger.With().Str("component", "grpc").Logger()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		st := status.Convert(err)
		event := logger.Info()
		if st.Code() != codes.OK {
			event = logger.Warn().Str("error", st.Message())
		}
		event.Str("method", info.FullMethod).
			Str("code", st.Code().String()).
			Dur("latency", time.Since(start)).
			Msg("rpc completed")
		return resp, err
	}
}

// OrderServiceClient calls OrderServiceName over an existing connection using the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, req, resp any) error {
	return c.cc.Invoke(ctx, "/"+OrderServiceName+"/"+method, req, resp, grpc.CallContentSubtype(JSONSubtype))
}

func (c *OrderServiceClient) CreateOrder(ctx context.Context, req *CreateOrderRPCRequest) (*OrderResponse, error) {
	resp := new(OrderResponse)
	if err := c.invoke(ctx, "CreateOrder", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, req *OrderIDRequest) (*OrderResponse, error) {
	resp := new(OrderResponse)
	if err := c.invoke(ctx, "GetOrder", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *OrderServiceClient) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	resp := new(ListOrdersResponse)
	if err := c.invoke(ctx, "ListOrders", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *OrderServiceClient) UpdateOrder(ctx context.Context, req *UpdateOrderRPCRequest) (*OrderResponse, error) {
	resp := new(OrderResponse)
	if err := c.invoke(ctx, "UpdateOrder", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *OrderServiceClient) DeleteOrder(ctx context.Context, req *OrderIDRequest) (*DeleteOrderResponse, error) {
	resp := new(DeleteOrderResponse)
	if err := c.invoke(ctx, "DeleteOrder", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
