package app

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so a restart against
// an already-provisioned database is a no-op.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id             BIGSERIAL PRIMARY KEY,
			client_id      BIGINT NOT NULL,
			driver_id      BIGINT,
			pickup         TEXT NOT NULL,
			dropoff        TEXT NOT NULL,
			comment        TEXT NOT NULL DEFAULT '',
			passengers     INT NOT NULL DEFAULT 1,
			status         TEXT NOT NULL DEFAULT 'pending',
			source         TEXT NOT NULL DEFAULT 'api',
			driver_arrived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			first_bid_at   TIMESTAMPTZ,
			accepted_at    TIMESTAMPTZ,
			cancelled_by   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_client_active
			ON orders (client_id) WHERE status IN ('pending', 'accepted')`,
		`CREATE INDEX IF NOT EXISTS idx_orders_driver_active
			ON orders (driver_id) WHERE status = 'accepted'`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,

		`CREATE TABLE IF NOT EXISTS bids (
			id              BIGSERIAL PRIMARY KEY,
			order_id        BIGINT NOT NULL REFERENCES orders (id),
			driver_id       BIGINT NOT NULL,
			arrival_minutes INT NOT NULL,
			status          TEXT NOT NULL DEFAULT 'pending',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (order_id, driver_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bids_order ON bids (order_id)`,

		`CREATE TABLE IF NOT EXISTS drivers (
			id             BIGINT PRIMARY KEY,
			name           TEXT,
			car_brand      TEXT,
			car_number     TEXT,
			shift_opened   BOOLEAN NOT NULL DEFAULT FALSE,
			verified_until TIMESTAMPTZ,
			banned         BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS ratings (
			order_id  BIGINT NOT NULL REFERENCES orders (id),
			rater_id  BIGINT NOT NULL,
			target_id BIGINT NOT NULL,
			score     INT NOT NULL CHECK (score BETWEEN 1 AND 5),
			PRIMARY KEY (order_id, rater_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_target ON ratings (target_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
