package model

import "time"

// Notification type constants
const (
	NotifTypeThresholdWarning = "threshold_warning"
	NotifTypeSyncError        = "sync_error"
)

type PushSubscription struct {
	ID         int64      `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Endpoint   string     `json:"endpoint"`
	P256dhKey  string     `json:"p256dh_key"`
	AuthKey    string     `json:"auth_key"`
	DeviceName string     `json:"device_name"`
	LastAlert  *time.Time `json:"last_alert,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
