package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// RatingHandler handles HTTP requests for post-ride ratings.
type RatingHandler struct {
	ratingService *service.RatingService
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(ratingService *service.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// SubmitRatingRequest is the HTTP request body for rating an order.
type SubmitRatingRequest struct {
	RaterID int64 `json:"rater_id"`
	Score   int   `json:"score"`
}

// SubmitRating handles POST /v1/orders/:id/ratings
func (h *RatingHandler) SubmitRating(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.ratingService.SubmitRating(c.Request.Context(), orderID, req.RaterID, req.Score); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, gin.H{"order_id": orderID, "score": req.Score})
}

// GetUserRating handles GET /v1/users/:id/rating
func (h *RatingHandler) GetUserRating(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	avg, err := h.ratingService.AverageFor(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"user_id": userID, "average_rating": avg})
}
