package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// OrderHandler handles HTTP requests made on behalf of clients.
type OrderHandler struct {
	dispatchService *service.DispatchService
	driverService   *service.DriverService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(dispatchService *service.DispatchService, driverService *service.DriverService) *OrderHandler {
	return &OrderHandler{
		dispatchService: dispatchService,
		driverService:   driverService,
	}
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	ClientID   int64  `json:"client_id"`
	Pickup     string `json:"pickup"`
	Dropoff    string `json:"dropoff"`
	Comment    string `json:"comment,omitempty"`
	Passengers int    `json:"passengers"`
	Source     string `json:"source,omitempty"` // api, web
}

// SelectDriverRequest is the HTTP request body for choosing a bidding driver.
type SelectDriverRequest struct {
	ClientID int64 `json:"client_id"`
	DriverID int64 `json:"driver_id"`
}

// CancelOrderRequest is the HTTP request body for a client cancellation.
type CancelOrderRequest struct {
	ClientID int64 `json:"client_id"`
}

// OrderResponse is the HTTP representation of an order.
type OrderResponse struct {
	ID            int64  `json:"id"`
	ClientID      int64  `json:"client_id"`
	DriverID      int64  `json:"driver_id,omitempty"`
	Pickup        string `json:"pickup"`
	Dropoff       string `json:"dropoff"`
	Comment       string `json:"comment,omitempty"`
	Passengers    int    `json:"passengers"`
	Status        string `json:"status"`
	Source        string `json:"source"`
	DriverArrived bool   `json:"driver_arrived"`
	CreatedAt     string `json:"created_at"`
	AcceptedAt    string `json:"accepted_at,omitempty"`
	CancelledBy   string `json:"cancelled_by,omitempty"`
}

// CreateOrderResponse is the HTTP response for creating an order.
type CreateOrderResponse struct {
	Order           OrderResponse `json:"order"`
	DriversNotified int           `json:"drivers_notified"`
}

// BidResponse is the HTTP representation of a bid.
type BidResponse struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	DriverID       int64  `json:"driver_id"`
	ArrivalMinutes int    `json:"arrival_minutes"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at,omitempty"`
}

func newOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:            order.ID,
		ClientID:      order.ClientID,
		DriverID:      order.DriverID,
		Pickup:        order.Pickup,
		Dropoff:       order.Dropoff,
		Comment:       order.Comment,
		Passengers:    order.Passengers,
		Status:        string(order.Status),
		Source:        string(order.Source),
		DriverArrived: order.DriverArrived,
		CreatedAt:     order.CreatedAt.Format(time.RFC3339),
		CancelledBy:   order.CancelledBy,
	}
	if !order.AcceptedAt.IsZero() {
		resp.AcceptedAt = order.AcceptedAt.Format(time.RFC3339)
	}
	return resp
}

func newBidResponse(bid *domain.Bid) BidResponse {
	resp := BidResponse{
		ID:             bid.ID,
		OrderID:        bid.OrderID,
		DriverID:       bid.DriverID,
		ArrivalMinutes: bid.ArrivalMinutes,
		Status:         string(bid.Status),
	}
	if !bid.CreatedAt.IsZero() {
		resp.CreatedAt = bid.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.dispatchService.SubmitOrder(c.Request.Context(), service.SubmitOrderInput{
		ClientID:   req.ClientID,
		Pickup:     req.Pickup,
		Dropoff:    req.Dropoff,
		Comment:    req.Comment,
		Passengers: req.Passengers,
		Source:     domain.OrderSource(req.Source),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateOrderResponse{
		Order:           newOrderResponse(result.Order),
		DriversNotified: result.DriversNotified,
	})
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := h.dispatchService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newOrderResponse(order))
}

// ListBids handles GET /v1/orders/:id/bids
func (h *OrderHandler) ListBids(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	bids, err := h.dispatchService.GetBidsFor(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, newBidResponse(b))
	}
	respondJSON(c, http.StatusOK, gin.H{"bids": resp})
}

// SelectDriver handles POST /v1/orders/:id/select
func (h *OrderHandler) SelectDriver(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req SelectDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.dispatchService.SelectDriver(c.Request.Context(), orderID, req.ClientID, req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newOrderResponse(order))
}

// CancelOrder handles POST /v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.dispatchService.CancelOrder(c.Request.Context(), orderID, service.Actor{
		Role: service.RoleClient,
		ID:   req.ClientID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newOrderResponse(order))
}

// DriverPositionResponse is the HTTP representation of a driver position.
type DriverPositionResponse struct {
	DriverID  int64   `json:"driver_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	UpdatedAt string  `json:"updated_at"`
}

// DriverPosition handles GET /v1/orders/:id/driver_position
func (h *OrderHandler) DriverPosition(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	clientID, err := queryInt64(c, "client_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid client_id"})
		return
	}

	pos, err := h.driverService.PositionForOrder(c.Request.Context(), orderID, clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	if pos == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no current position for driver"})
		return
	}
	respondJSON(c, http.StatusOK, DriverPositionResponse{
		DriverID:  pos.DriverID,
		Lat:       pos.Lat,
		Lng:       pos.Lng,
		UpdatedAt: pos.UpdatedAt.Format(time.RFC3339),
	})
}
