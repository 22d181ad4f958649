package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// DriverHandler handles HTTP requests made on behalf of drivers.
type DriverHandler struct {
	dispatchService *service.DispatchService
	driverService   *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(dispatchService *service.DispatchService, driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{
		dispatchService: dispatchService,
		driverService:   driverService,
	}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CarBrand      string `json:"car_brand,omitempty"`
	CarNumber     string `json:"car_number,omitempty"`
	VerifiedUntil string `json:"verified_until,omitempty"` // RFC 3339
}

// SetShiftRequest is the HTTP request body for opening or closing a shift.
type SetShiftRequest struct {
	Open bool `json:"open"`
}

// PlaceBidRequest is the HTTP request body for bidding on an order.
type PlaceBidRequest struct {
	DriverID       int64 `json:"driver_id"`
	ArrivalMinutes int   `json:"arrival_minutes"`
}

// DriverActionRequest is the HTTP request body for arrival, completion and
// driver-side cancellation.
type DriverActionRequest struct {
	DriverID int64 `json:"driver_id"`
}

// UpdatePositionRequest is the HTTP request body for a position update.
type UpdatePositionRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Register handles PUT /v1/drivers/:id
func (h *DriverHandler) Register(c *gin.Context) {
	driverID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver := &domain.Driver{
		ID:        driverID,
		Name:      req.Name,
		CarBrand:  req.CarBrand,
		CarNumber: req.CarNumber,
	}
	if req.VerifiedUntil != "" {
		until, err := time.Parse(time.RFC3339, req.VerifiedUntil)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid verified_until"})
			return
		}
		driver.VerifiedUntil = until
	}

	if err := h.driverService.RegisterDriver(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"id": driverID})
}

// SetShift handles POST /v1/drivers/:id/shift
func (h *DriverHandler) SetShift(c *gin.Context) {
	driverID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req SetShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.SetShift(c.Request.Context(), driverID, req.Open); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"id": driverID, "shift_opened": req.Open})
}

// PlaceBid handles POST /v1/orders/:id/bids
func (h *DriverHandler) PlaceBid(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	bid, err := h.dispatchService.SubmitBid(c.Request.Context(), orderID, req.DriverID, req.ArrivalMinutes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, newBidResponse(bid))
}

// MarkArrived handles POST /v1/orders/:id/arrived
func (h *DriverHandler) MarkArrived(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.dispatchService.MarkArrived(c.Request.Context(), orderID, req.DriverID); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"order_id": orderID, "driver_arrived": true})
}

// CompleteOrder handles POST /v1/orders/:id/complete
func (h *DriverHandler) CompleteOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.dispatchService.CompleteOrder(c.Request.Context(), orderID, req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newOrderResponse(order))
}

// CancelOrder handles POST /v1/orders/:id/driver_cancel
func (h *DriverHandler) CancelOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.dispatchService.CancelOrder(c.Request.Context(), orderID, service.Actor{
		Role: service.RoleDriver,
		ID:   req.DriverID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newOrderResponse(order))
}

// UpdatePosition handles POST /v1/drivers/:id/position
func (h *DriverHandler) UpdatePosition(c *gin.Context) {
	driverID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.UpdatePosition(c.Request.Context(), driverID, req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"id": driverID})
}
