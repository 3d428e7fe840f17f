package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free JSON Lines backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// PushRecord is one repository push attempt.
// Keep it compact and schema-stable.
type PushRecord struct {
	At       time.Time     `json:"at"`
	ChatID   int64         `json:"chat_id"`
	Owner    string        `json:"owner"`
	Repo     string        `json:"repo"`
	Path     string        `json:"path"`
	Created  bool          `json:"created"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
