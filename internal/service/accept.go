package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dispatch/internal/repository/postgres"
)

// BidAcceptor commits the assignment of a driver to an order. The returned
// bool reports whether the assignment won: false means a precondition failed
// (order no longer pending, driver already busy, or another acceptance raced
// this one) and nothing was changed.
type BidAcceptor interface {
	AcceptBid(ctx context.Context, orderID, driverID int64, at time.Time) (bool, error)
}

// TxBidAcceptor performs the acceptance in a single database transaction so
// the winning bid, the rejected bids, and the order row move together.
type TxBidAcceptor struct {
	db *sql.DB
}

func NewTxBidAcceptor(db *sql.DB) *TxBidAcceptor {
	return &TxBidAcceptor{db: db}
}

// AcceptBid assigns driverID to orderID, marks the driver's bid accepted and
// rejects the rest. The conditional order update is the arbiter: of any set of
// concurrent acceptances for the same order exactly one sees a pending,
// unassigned row and wins.
func (a *TxBidAcceptor) AcceptBid(ctx context.Context, orderID, driverID int64, at time.Time) (bool, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	orders := postgres.NewOrderRepositoryWithTx(tx)
	bids := postgres.NewBidRepositoryWithTx(tx)

	won, err := orders.AssignDriverIf(ctx, orderID, driverID, at)
	if err != nil {
		return false, fmt.Errorf("failed to assign driver: %w", err)
	}
	if !won {
		tx.Rollback()
		return false, nil
	}

	if err = bids.MarkAccepted(ctx, orderID, driverID); err != nil {
		return false, fmt.Errorf("failed to mark bid accepted: %w", err)
	}
	if err = bids.RejectOthers(ctx, orderID, driverID); err != nil {
		return false, fmt.Errorf("failed to reject other bids: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}
