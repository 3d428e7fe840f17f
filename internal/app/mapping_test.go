package app

import (
	"strings"
	"testing"
	"time"

	"streakbot/internal/config"
)

func TestMapSchedulerConfig(t *testing.T) {
	cfg := config.Default()
	sc, err := mapSchedulerConfig(cfg)
	if err != nil {
		t.Fatalf("mapSchedulerConfig: %v", err)
	}
	if sc.PushTimeout != 30*time.Second {
		t.Fatalf("PushTimeout = %v, want 30s", sc.PushTimeout)
	}

	cfg.Push.Timeout = "oops"
	if _, err := mapSchedulerConfig(cfg); err == nil {
		t.Fatal("expected an error for an invalid timeout")
	}
}

func TestTenantDefaults(t *testing.T) {
	cfg := config.Default()
	d, err := tenantDefaults(cfg)
	if err != nil {
		t.Fatalf("tenantDefaults: %v", err)
	}
	if d.File != "log.md" || d.Interval != 60*time.Second {
		t.Fatalf("defaults = %+v", d)
	}

	cfg.Push.DefaultFile = "   "
	d, err = tenantDefaults(cfg)
	if err != nil {
		t.Fatalf("tenantDefaults: %v", err)
	}
	if d.File != "log.md" {
		t.Fatalf("blank file fell through to %q", d.File)
	}
}

func TestMapNotifyConfigRejectsNegatives(t *testing.T) {
	cfg := config.Default()
	cfg.Notify.QueueSize = -1
	if _, err := mapNotifyConfig(cfg); err == nil {
		t.Fatal("expected an error for a negative queue size")
	}

	cfg = config.Default()
	cfg.Notify.RatePerSec = -5
	if _, err := mapNotifyConfig(cfg); err == nil {
		t.Fatal("expected an error for a negative rate")
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		storage *config.StorageConfig
		enabled bool
		wantErr string
		driver  string
	}{
		{name: "absent section", storage: nil, enabled: false},
		{name: "driver none", storage: &config.StorageConfig{Driver: "none"}, enabled: false},
		{name: "driver blank", storage: &config.StorageConfig{Driver: "  "}, enabled: false},
		{name: "file", storage: &config.StorageConfig{Driver: "file", Path: "/tmp/t"}, enabled: true, driver: "file"},
		{name: "file without path", storage: &config.StorageConfig{Driver: "file"}, wantErr: "storage.path is required"},
		{name: "sqlite", storage: &config.StorageConfig{Driver: "sqlite", Path: "/tmp/t.db"}, enabled: true, driver: "sqlite"},
		{name: "sqlite3 alias", storage: &config.StorageConfig{Driver: "SQLite3", Path: "/tmp/t.db"}, enabled: true, driver: "sqlite3"},
		{name: "sqlite without path", storage: &config.StorageConfig{Driver: "sqlite"}, wantErr: "storage.path is required"},
		{name: "bad busy timeout", storage: &config.StorageConfig{Driver: "sqlite", Path: "/tmp/t.db", BusyTimeout: "soon"}, wantErr: "storage.busy_timeout"},
		{name: "unknown driver", storage: &config.StorageConfig{Driver: "postgres", Path: "x"}, wantErr: "unknown storage.driver"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage = tc.storage
			sc, enabled, err := mapStorageConfig(cfg)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if enabled != tc.enabled {
				t.Fatalf("enabled = %v, want %v", enabled, tc.enabled)
			}
			if enabled && sc.Driver != tc.driver {
				t.Fatalf("driver = %q, want %q", sc.Driver, tc.driver)
			}
		})
	}
}

func TestMapStorageConfigSQLiteBusyDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = &config.StorageConfig{Driver: "sqlite", Path: "/tmp/t.db"}
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil || !enabled {
		t.Fatalf("mapStorageConfig: enabled=%v err=%v", enabled, err)
	}
	if sc.BusyTimeout != time.Second {
		t.Fatalf("BusyTimeout = %v, want 1s default", sc.BusyTimeout)
	}
}

func TestMapDebugConfig(t *testing.T) {
	cfg := config.Default()
	if _, enabled := mapDebugConfig(cfg); enabled {
		t.Fatal("debug enabled with no config section")
	}

	cfg.Debug = &config.DebugConfig{Enabled: false, Addr: "127.0.0.1:6060"}
	if _, enabled := mapDebugConfig(cfg); enabled {
		t.Fatal("debug enabled despite enabled=false")
	}

	cfg.Debug = &config.DebugConfig{Enabled: true, Addr: " 127.0.0.1:6060 ", Token: " s "}
	dc, enabled := mapDebugConfig(cfg)
	if !enabled {
		t.Fatal("debug not enabled")
	}
	if dc.Addr != "127.0.0.1:6060" || dc.Token != "s" {
		t.Fatalf("mapped = %+v, want trimmed fields", dc)
	}
}

func TestMapLoggingConfigCopiesAllFields(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "DEBUG"
	cfg.Logging.File.Enabled = true
	cfg.Logging.File.Path = "/var/log/streakbot.log"
	cfg.Logging.Telegram.Enabled = true
	cfg.Logging.Telegram.ChatID = 42
	cfg.Logging.Telegram.MinLevel = "ERROR"
	cfg.Logging.Telegram.RatePerSec = 3

	lc := mapLoggingConfig(cfg)
	if lc.Level != "DEBUG" || !lc.Console {
		t.Fatalf("base fields = %+v", lc)
	}
	if !lc.File.Enabled || lc.File.Path != "/var/log/streakbot.log" {
		t.Fatalf("file fields = %+v", lc.File)
	}
	if !lc.Telegram.Enabled || lc.Telegram.ChatID != 42 || lc.Telegram.MinLevel != "ERROR" || lc.Telegram.RatePerSec != 3 {
		t.Fatalf("telegram fields = %+v", lc.Telegram)
	}
}
