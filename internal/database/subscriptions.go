package database

import (
	"database/sql"
	"time"
)

// Subscription plan names.
const (
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// UpsertSubscription sets a user's plan. end may be nil for a plan without
// an expiry.
func (db *DB) UpsertSubscription(userID, plan string, end *time.Time) error {
	var endStr *string
	if end != nil {
		s := end.UTC().Format(time.RFC3339)
		endStr = &s
	}
	_, err := db.conn.Exec(
		`INSERT INTO subscriptions (user_id, subscription_type, subscription_end)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			subscription_type = excluded.subscription_type,
			subscription_end = excluded.subscription_end,
			updated_at = datetime('now')`,
		userID, plan, endStr,
	)
	return err
}

// GetSubscription returns a user's subscription, or nil if they have none.
func (db *DB) GetSubscription(userID string) (*Subscription, error) {
	row := db.conn.QueryRow(
		`SELECT user_id, subscription_type, subscription_end, updated_at
		FROM subscriptions WHERE user_id = ?`, userID,
	)
	var s Subscription
	if err := row.Scan(&s.UserID, &s.Type, &s.SubscriptionEnd, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// DeleteSubscription removes a user's subscription.
func (db *DB) DeleteSubscription(userID string) error {
	_, err := db.conn.Exec(`DELETE FROM subscriptions WHERE user_id = ?`, userID)
	return err
}
