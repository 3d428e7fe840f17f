package app

import (
	"fmt"
	"strings"
	"time"

	"streakbot/internal/config"
	"streakbot/internal/notify"
	pprofsvc "streakbot/internal/observability/pprof"
	"streakbot/internal/scheduler"
	"streakbot/internal/storage"
	"streakbot/internal/tenant"
	logx "streakbot/pkg/logx"
)

func parseDurationField(path, raw string) (time.Duration, error) {
	return config.ParseDurationField(path, raw)
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	return config.ParseDurationOrDefault(path, raw, def)
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapNotifyConfig(cfg *config.Config) (notify.Config, error) {
	if cfg.Notify.QueueSize < 0 {
		return notify.Config{}, fmt.Errorf("notify.queue_size must be >= 0")
	}
	if cfg.Notify.RatePerSec < 0 {
		return notify.Config{}, fmt.Errorf("notify.rate_per_sec must be >= 0")
	}
	return notify.Config{
		QueueSize:  cfg.Notify.QueueSize,
		RatePerSec: cfg.Notify.RatePerSec,
	}, nil
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	timeout, err := parseDurationOrDefault("push.timeout", cfg.Push.Timeout, 30*time.Second)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{PushTimeout: timeout}, nil
}

// tenantDefaults maps the push section onto the seed values for new
// tenants. Existing tenants keep their configured values.
func tenantDefaults(cfg *config.Config) (tenant.Defaults, error) {
	interval, err := parseDurationOrDefault("push.default_interval", cfg.Push.DefaultInterval, 60*time.Second)
	if err != nil {
		return tenant.Defaults{}, err
	}
	file := strings.TrimSpace(cfg.Push.DefaultFile)
	if file == "" {
		file = "log.md"
	}
	return tenant.Defaults{File: file, Interval: interval}, nil
}

func mapDebugConfig(cfg *config.Config) (pprofsvc.Config, bool) {
	if cfg == nil || cfg.Debug == nil || !cfg.Debug.Enabled {
		return pprofsvc.Config{}, false
	}
	return pprofsvc.Config{
		Enabled: true,
		Addr:    strings.TrimSpace(cfg.Debug.Addr),
		Token:   strings.TrimSpace(cfg.Debug.Token),
	}, true
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.TrimSpace(sc.Driver)
	if driver == "" || strings.EqualFold(driver, "none") {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	dl := strings.ToLower(driver)
	switch dl {
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := parseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 1*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: dl, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", driver)
	}
}
