package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	dispatchService *service.DispatchService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(dispatchService *service.DispatchService) *AdminHandler {
	return &AdminHandler{dispatchService: dispatchService}
}

// AdminCancelRequest is the HTTP request body for an admin cancellation.
type AdminCancelRequest struct {
	AdminID int64 `json:"admin_id"`
}

// AutoAcceptRequest is the HTTP request body for toggling auto-accept.
type AutoAcceptRequest struct {
	Enabled bool `json:"enabled"`
}

// ListActiveOrders handles GET /v1/admin/orders
func (h *AdminHandler) ListActiveOrders(c *gin.Context) {
	limit := queryIntDefault(c, "limit", 20)
	offset := queryIntDefault(c, "offset", 0)

	orders, err := h.dispatchService.ListActiveOrders(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	respondJSON(c, http.StatusOK, gin.H{"orders": resp})
}

// CancelOrder handles POST /v1/admin/orders/:id/cancel
func (h *AdminHandler) CancelOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req AdminCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.dispatchService.CancelOrder(c.Request.Context(), orderID, service.Actor{
		Role: service.RoleAdmin,
		ID:   req.AdminID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newOrderResponse(order))
}

// SetAutoAccept handles PUT /v1/admin/settings/auto_accept
func (h *AdminHandler) SetAutoAccept(c *gin.Context) {
	var req AutoAcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.dispatchService.SetAutoAccept(c.Request.Context(), req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"auto_accept_on_first_bid": req.Enabled})
}

// GetSettings handles GET /v1/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	respondJSON(c, http.StatusOK, gin.H{
		"auto_accept_on_first_bid": h.dispatchService.AutoAcceptEnabled(c.Request.Context()),
	})
}
