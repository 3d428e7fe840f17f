package eventbus

import "time"

// Event types published by streakbot components.
const (
	EventPushOK        = "push.ok"
	EventPushFailed    = "push.failed"
	EventTenantStarted = "tenant.started"
	EventTenantStopped = "tenant.stopped"
)

// PushEvent is the Data payload for push.ok / push.failed events.
type PushEvent struct {
	ChatID   int64         `json:"chat_id"`
	Owner    string        `json:"owner"`
	Repo     string        `json:"repo"`
	Path     string        `json:"path"`
	Created  bool          `json:"created"`
	Err      string        `json:"err,omitempty"`
	Duration time.Duration `json:"duration"`
}

// TenantEvent is the Data payload for tenant lifecycle events.
type TenantEvent struct {
	ChatID   int64         `json:"chat_id"`
	Interval time.Duration `json:"interval,omitempty"`
	Repos    int           `json:"repos,omitempty"`
}
