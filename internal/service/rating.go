package service

import (
	"context"
	"log"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RatingService handles post-ride ratings between order parties.
type RatingService struct {
	ratingRepo repository.RatingRepository
	orderRepo  repository.OrderRepository
}

// NewRatingService creates a RatingService.
func NewRatingService(ratingRepo repository.RatingRepository, orderRepo repository.OrderRepository) *RatingService {
	return &RatingService{ratingRepo: ratingRepo, orderRepo: orderRepo}
}

// SubmitRating records a score one party of a completed order gives the
// other. The target is derived from the order, never taken from the caller.
func (s *RatingService) SubmitRating(ctx context.Context, orderID, raterID int64, score int) error {
	if orderID <= 0 {
		return ErrInvalidOrderID
	}
	if raterID <= 0 {
		return ErrInvalidClientID
	}
	if score < 1 || score > 5 {
		return ErrInvalidRating
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusCompleted {
		return ErrOrderNotCompleted
	}

	var targetID int64
	switch raterID {
	case order.ClientID:
		targetID = order.DriverID
	case order.DriverID:
		targetID = order.ClientID
	default:
		return ErrNotParticipant
	}

	saved, err := s.ratingRepo.Save(ctx, &domain.Rating{
		OrderID:  orderID,
		RaterID:  raterID,
		TargetID: targetID,
		Score:    score,
	})
	if err != nil {
		return err
	}
	if !saved {
		return ErrAlreadyRated
	}
	log.Printf("[rating] order %d: user %d rated user %d %d/5", orderID, raterID, targetID, score)
	return nil
}

// AverageFor returns a user's mean received score, 0 when unrated.
func (s *RatingService) AverageFor(ctx context.Context, userID int64) (float64, error) {
	if userID <= 0 {
		return 0, ErrInvalidClientID
	}
	return s.ratingRepo.AverageFor(ctx, userID)
}
