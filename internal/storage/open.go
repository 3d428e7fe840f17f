package storage

import (
	"context"
	"errors"
	"strings"

	logx "streakbot/pkg/logx"
)

// Store is the push-trail persistence API.
type Store interface {
	AppendPush(ctx context.Context, r PushRecord) error
	RecentPushes(ctx context.Context, chatID int64, limit int) ([]PushRecord, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
