package config

import (
	"sort"
	logx "streakbot/pkg/logx"
	"strings"
)

// SummarizeConfigChange returns a compact list of changed sections plus
// safe structured attrs for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)

	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
		)
	}

	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) ||
		oldCfg.Logging.Telegram.Enabled != newCfg.Logging.Telegram.Enabled ||
		oldCfg.Logging.Telegram.ChatID != newCfg.Logging.Telegram.ChatID ||
		oldCfg.Logging.Telegram.MinLevel != newCfg.Logging.Telegram.MinLevel ||
		oldCfg.Logging.Telegram.RatePerSec != newCfg.Logging.Telegram.RatePerSec {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Push.Timeout) != strings.TrimSpace(newCfg.Push.Timeout) ||
		strings.TrimSpace(oldCfg.Push.DefaultFile) != strings.TrimSpace(newCfg.Push.DefaultFile) ||
		strings.TrimSpace(oldCfg.Push.DefaultInterval) != strings.TrimSpace(newCfg.Push.DefaultInterval) {
		changed = append(changed, "push")
		attrs = append(attrs,
			logx.String("push.timeout", strings.TrimSpace(newCfg.Push.Timeout)),
			logx.String("push.default_file", strings.TrimSpace(newCfg.Push.DefaultFile)),
			logx.String("push.default_interval", strings.TrimSpace(newCfg.Push.DefaultInterval)),
		)
	}

	if oldCfg.Notify.QueueSize != newCfg.Notify.QueueSize ||
		oldCfg.Notify.RatePerSec != newCfg.Notify.RatePerSec {
		changed = append(changed, "notify")
		attrs = append(attrs,
			logx.Int("notify.queue_size", newCfg.Notify.QueueSize),
			logx.Int("notify.rate_per_sec", newCfg.Notify.RatePerSec),
		)
	}

	// Storage: nil means disabled. Path values may embed user homes; log presence only.
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldCfg.Storage != nil {
		oDriver = strings.TrimSpace(oldCfg.Storage.Driver)
		oBusy = strings.TrimSpace(oldCfg.Storage.BusyTimeout)
		oPathSet = strings.TrimSpace(oldCfg.Storage.Path) != ""
	}
	if newCfg.Storage != nil {
		nDriver = strings.TrimSpace(newCfg.Storage.Driver)
		nBusy = strings.TrimSpace(newCfg.Storage.BusyTimeout)
		nPathSet = strings.TrimSpace(newCfg.Storage.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
			logx.String("storage.busy_timeout", nBusy),
		)
	}

	// Debug: nil means disabled. The token is a secret; log presence only.
	var oDbgEnabled, nDbgEnabled, oDbgTokSet, nDbgTokSet bool
	var oDbgAddr, nDbgAddr string
	if oldCfg.Debug != nil {
		oDbgEnabled = oldCfg.Debug.Enabled
		oDbgAddr = strings.TrimSpace(oldCfg.Debug.Addr)
		oDbgTokSet = strings.TrimSpace(oldCfg.Debug.Token) != ""
	}
	if newCfg.Debug != nil {
		nDbgEnabled = newCfg.Debug.Enabled
		nDbgAddr = strings.TrimSpace(newCfg.Debug.Addr)
		nDbgTokSet = strings.TrimSpace(newCfg.Debug.Token) != ""
	}
	if oDbgEnabled != nDbgEnabled || oDbgAddr != nDbgAddr || oDbgTokSet != nDbgTokSet {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", nDbgEnabled),
			logx.String("debug.addr", nDbgAddr),
			logx.Bool("debug.token_set", nDbgTokSet),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
