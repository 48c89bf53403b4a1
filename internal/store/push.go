package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dt2patel/traveller/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

// Upsert registers a subscription, replacing any existing one for the same
// endpoint.
func (s *PushStore) Upsert(ownerID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (owner_id, endpoint, p256dh_key, auth_key, device_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   owner_id = excluded.owner_id,
		   p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key,
		   device_name = excluded.device_name`,
		ownerID, endpoint, p256dh, auth, deviceName, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", err)
	}
	return s.getByEndpoint(endpoint)
}

func (s *PushStore) getByEndpoint(endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	var lastAlert sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, owner_id, endpoint, p256dh_key, auth_key, device_name, last_alert, created_at
		 FROM push_subscriptions WHERE endpoint = ?`,
		endpoint,
	).Scan(&sub.ID, &sub.OwnerID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &lastAlert, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query push subscription: %w", err)
	}
	if lastAlert.Valid {
		sub.LastAlert = &lastAlert.Time
	}
	return &sub, nil
}

func (s *PushStore) ListByOwner(ownerID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, endpoint, p256dh_key, auth_key, device_name, last_alert, created_at
		 FROM push_subscriptions WHERE owner_id = ?`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		var lastAlert sql.NullTime
		if err := rows.Scan(&sub.ID, &sub.OwnerID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &lastAlert, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		if lastAlert.Valid {
			sub.LastAlert = &lastAlert.Time
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListOwnerIDs returns the distinct owners with at least one subscription.
func (s *PushStore) ListOwnerIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT owner_id FROM push_subscriptions")
	if err != nil {
		return nil, fmt.Errorf("query push owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan push owner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PushStore) Delete(endpoint string) error {
	_, err := s.db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// SetLastAlert records when a threshold alert was last sent to a subscription.
func (s *PushStore) SetLastAlert(id int64, at time.Time) error {
	_, err := s.db.Exec("UPDATE push_subscriptions SET last_alert = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return fmt.Errorf("set last alert: %w", err)
	}
	return nil
}
