package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationOrderBroadcast  NotificationType = "ORDER_BROADCAST"
	NotificationFirstBid        NotificationType = "FIRST_BID"
	NotificationBidListUpdated  NotificationType = "BID_LIST_UPDATED"
	NotificationDriverAssigned  NotificationType = "DRIVER_ASSIGNED"
	NotificationBidRejected     NotificationType = "BID_REJECTED"
	NotificationDriverArrived   NotificationType = "DRIVER_ARRIVED"
	NotificationOrderCompleted  NotificationType = "ORDER_COMPLETED"
	NotificationOrderCancelled  NotificationType = "ORDER_CANCELLED"
	NotificationRatingRequested NotificationType = "RATING_REQUESTED"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID int64
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// Sink delivers notifications to a recipient. Delivery is best effort with no
// guarantee; a failed send must never block a state transition.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the process log. It stands in for the real
// delivery channel (push, websocket, chat surface) owned outside this core.
type LogSink struct{}

func (LogSink) Send(_ context.Context, n Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%d, Title=%s, Message=%s",
		n.Type, n.RecipientID, n.Title, n.Message)
	return nil
}

// NotificationService composes and fires dispatch notifications.
type NotificationService struct {
	sink Sink
}

// NewNotificationService creates a NotificationService over the given sink.
// A nil sink falls back to LogSink.
func NewNotificationService(sink Sink) *NotificationService {
	if sink == nil {
		sink = LogSink{}
	}
	return &NotificationService{sink: sink}
}

// NotifyOrderBroadcast announces a new order to every eligible driver.
func (s *NotificationService) NotifyOrderBroadcast(ctx context.Context, order *domain.Order, driverIDs []int64) {
	for _, driverID := range driverIDs {
		s.send(ctx, Notification{
			Type:        NotificationOrderBroadcast,
			RecipientID: driverID,
			Title:       "New Order",
			Message:     fmt.Sprintf("Order #%d: %s → %s, %d passenger(s)", order.ID, order.Pickup, order.Dropoff, order.Passengers),
			Data: map[string]interface{}{
				"order_id":   order.ID,
				"pickup":     order.Pickup,
				"dropoff":    order.Dropoff,
				"comment":    order.Comment,
				"passengers": order.Passengers,
			},
		})
	}
}

// NotifyFirstBid prompts the client that a driver responded and the selection
// window is running.
func (s *NotificationService) NotifyFirstBid(ctx context.Context, order *domain.Order, bid *domain.Bid, window time.Duration) {
	s.send(ctx, Notification{
		Type:        NotificationFirstBid,
		RecipientID: order.ClientID,
		Title:       "Driver Found",
		Message: fmt.Sprintf("A driver can reach you in %d minutes. You have %s to choose.",
			bid.ArrivalMinutes, window.Round(time.Second)),
		Data: map[string]interface{}{
			"order_id":        order.ID,
			"driver_id":       bid.DriverID,
			"arrival_minutes": bid.ArrivalMinutes,
		},
	})
}

// NotifyBidListUpdated re-renders the candidate list for the client after a
// further bid arrives.
func (s *NotificationService) NotifyBidListUpdated(ctx context.Context, order *domain.Order, bids []*domain.Bid) {
	candidates := make([]map[string]interface{}, 0, len(bids))
	for _, b := range bids {
		if b.Status != domain.BidStatusPending {
			continue
		}
		candidates = append(candidates, map[string]interface{}{
			"driver_id":       b.DriverID,
			"arrival_minutes": b.ArrivalMinutes,
		})
	}
	s.send(ctx, Notification{
		Type:        NotificationBidListUpdated,
		RecipientID: order.ClientID,
		Title:       "Choose a Driver",
		Message:     fmt.Sprintf("%d drivers are ready to take order #%d", len(candidates), order.ID),
		Data: map[string]interface{}{
			"order_id":   order.ID,
			"candidates": candidates,
		},
	})
}

// NotifyDriverAssigned tells both parties the order is accepted.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, order *domain.Order, bid *domain.Bid) {
	s.send(ctx, Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: order.ClientID,
		Title:       "Driver On The Way",
		Message:     fmt.Sprintf("Your driver is on the way, about %d minutes out.", bid.ArrivalMinutes),
		Data: map[string]interface{}{
			"order_id":        order.ID,
			"driver_id":       bid.DriverID,
			"arrival_minutes": bid.ArrivalMinutes,
		},
	})
	s.send(ctx, Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: bid.DriverID,
		Title:       "Order Assigned",
		Message:     fmt.Sprintf("You got order #%d: %s → %s", order.ID, order.Pickup, order.Dropoff),
		Data: map[string]interface{}{
			"order_id": order.ID,
			"pickup":   order.Pickup,
			"dropoff":  order.Dropoff,
			"comment":  order.Comment,
		},
	})
}

// NotifyBidRejected tells a losing bidder the order went to someone else.
func (s *NotificationService) NotifyBidRejected(ctx context.Context, orderID, driverID int64) {
	s.send(ctx, Notification{
		Type:        NotificationBidRejected,
		RecipientID: driverID,
		Title:       "Order Taken",
		Message:     fmt.Sprintf("Order #%d went to another driver.", orderID),
		Data:        map[string]interface{}{"order_id": orderID},
	})
}

// NotifyDriverArrived tells the client the driver is waiting outside.
func (s *NotificationService) NotifyDriverArrived(ctx context.Context, order *domain.Order) {
	s.send(ctx, Notification{
		Type:        NotificationDriverArrived,
		RecipientID: order.ClientID,
		Title:       "Driver Arrived",
		Message:     fmt.Sprintf("Your driver has arrived at %s.", order.Pickup),
		Data:        map[string]interface{}{"order_id": order.ID},
	})
}

// NotifyOrderCompleted requests ratings from both parties.
func (s *NotificationService) NotifyOrderCompleted(ctx context.Context, order *domain.Order) {
	s.send(ctx, Notification{
		Type:        NotificationOrderCompleted,
		RecipientID: order.ClientID,
		Title:       "Ride Completed",
		Message:     fmt.Sprintf("Order #%d is complete. Please rate your driver.", order.ID),
		Data:        map[string]interface{}{"order_id": order.ID, "rate_target": order.DriverID},
	})
	s.send(ctx, Notification{
		Type:        NotificationRatingRequested,
		RecipientID: order.DriverID,
		Title:       "Rate Your Client",
		Message:     fmt.Sprintf("Order #%d is complete. Please rate the client.", order.ID),
		Data:        map[string]interface{}{"order_id": order.ID, "rate_target": order.ClientID},
	})
}

// NotifyOrderCancelled informs a recipient about a cancellation with the
// reason tag preserved for the client-facing message.
func (s *NotificationService) NotifyOrderCancelled(ctx context.Context, orderID, recipientID int64, reason string) {
	s.send(ctx, Notification{
		Type:        NotificationOrderCancelled,
		RecipientID: recipientID,
		Title:       "Order Cancelled",
		Message:     cancelMessage(orderID, reason),
		Data:        map[string]interface{}{"order_id": orderID, "reason": reason},
	})
}

func cancelMessage(orderID int64, reason string) string {
	switch reason {
	case domain.CancelReasonNoDrivers:
		return fmt.Sprintf("No drivers are online right now. Order #%d was cancelled.", orderID)
	case domain.CancelReasonUnclaimedTimer:
		return fmt.Sprintf("No driver responded to order #%d. The order was cancelled.", orderID)
	case domain.CancelReasonSelectionTimer:
		return fmt.Sprintf("The time to choose a driver for order #%d ran out. The order was cancelled.", orderID)
	case domain.CancelReasonStaleTimer:
		return fmt.Sprintf("Order #%d was open for too long and was cancelled.", orderID)
	default:
		return fmt.Sprintf("Order #%d was cancelled.", orderID)
	}
}

// send stamps and fires a notification, swallowing delivery failures.
func (s *NotificationService) send(ctx context.Context, n Notification) {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()
	if err := s.sink.Send(ctx, n); err != nil {
		log.Printf("[notify] delivery failed: type=%s recipient=%d: %v", n.Type, n.RecipientID, err)
	}
}
