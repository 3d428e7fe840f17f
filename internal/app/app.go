package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"streakbot/internal/bot"
	"streakbot/internal/config"
	"streakbot/internal/eventbus"
	"streakbot/internal/github"
	"streakbot/internal/notify"
	pprofsvc "streakbot/internal/observability/pprof"
	"streakbot/internal/push"
	"streakbot/internal/runtime/supervisor"
	"streakbot/internal/scheduler"
	"streakbot/internal/storage"
	"streakbot/internal/tenant"
	kit "streakbot/internal/transport"
	telegram "streakbot/internal/transport/telegram"
	logx "streakbot/pkg/logx"
)

// DefaultConfigPath is the config location tried when -config is not given.
// A missing file here falls back to built-in defaults; a missing file at an
// explicit path is a startup error.
const DefaultConfigPath = "./config.yaml"

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store   storage.Store
	tenants *tenant.Store

	adapter kit.Adapter
	ghf     *github.Factory

	sched   *scheduler.Service
	notif   *notify.Service
	handler *bot.Handler
	debug   *pprofsvc.Service

	updates chan kit.Update
}

// tokenVerifier adapts the client factory to the control surface's
// advisory credential check.
type tokenVerifier struct{ factory *github.Factory }

func (v tokenVerifier) Verify(ctx context.Context, token string) error {
	return v.factory.Get(token).Validate(ctx)
}

func New(cfgPath, botToken string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && cfgPath == DefaultConfigPath {
			cfg = config.Default()
			cfgm.Commit(cfg)
		} else {
			return nil, err
		}
	}

	// Adapter config mapping
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	pollTimeout, err := parseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       botToken,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Logging service mapping
	// Important: logx.New() calls Apply() immediately. If Telegram logging is
	// enabled but the target chat isn't set yet, Apply() would warn. Bootstrap
	// with the sink disabled, set the target, then Apply() the final config.
	baseLogCfg := mapLoggingConfig(cfg)
	tgSinkEnabled := baseLogCfg.Telegram.Enabled
	baseLogCfg.Telegram.Enabled = false

	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))

	logSvc.SetTelegramTarget(cfg.Logging.Telegram.ChatID)

	finalLogCfg := baseLogCfg
	finalLogCfg.Telegram.Enabled = tgSinkEnabled
	logSvc.Apply(finalLogCfg)

	bus := eventbus.New()

	// Push trail (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("push trail enabled", logx.String("driver", sc.Driver))
	}

	defaults, err := tenantDefaults(cfg)
	if err != nil {
		return nil, err
	}
	tenants := tenant.NewStore(defaults)

	ghf := github.NewFactory()
	publisher := push.NewPublisher(".",
		func(token string) push.Remote { return ghf.Get(token) },
		push.WithLogger(log.With(logx.String("comp", "push"))),
	)

	ncfg, err := mapNotifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notify.New(ncfg, ad, log.With(logx.String("comp", "notify")))

	scfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(scfg, tenants, publisher,
		scheduler.WithLogger(log.With(logx.String("comp", "scheduler"))),
		scheduler.WithNotifier(notif),
		scheduler.WithBus(bus),
	)

	handler := bot.New(log.With(logx.String("comp", "bot")),
		ad, tenants, tenant.NewModes(), sched, notif,
		bot.WithTokenVerifier(tokenVerifier{factory: ghf}),
		bot.WithCredentialCache(ghf),
	)

	var debug *pprofsvc.Service
	if dc, enabled := mapDebugConfig(cfg); enabled {
		debug = pprofsvc.New(dc, log.With(logx.String("comp", "debug")))
	}

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		tenants: tenants,
		adapter: ad,
		ghf:     ghf,
		sched:   sched,
		notif:   notif,
		handler: handler,
		debug:   debug,
		updates: make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, err := parseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
			return err
		}
		if cfg.Logging.Telegram.RatePerSec < 0 {
			return fmt.Errorf("logging.telegram.rate_per_sec must be >= 0")
		}
		if _, err := mapSchedulerConfig(cfg); err != nil {
			return err
		}
		if _, err := tenantDefaults(cfg); err != nil {
			return err
		}
		if _, err := mapNotifyConfig(cfg); err != nil {
			return err
		}
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		return nil
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	// Best-effort command menu; the bot works without it.
	if mu, ok := a.adapter.(kit.CommandMenuUpdater); ok {
		mctx, cancel := context.WithTimeout(a.sup.Context(), 5*time.Second)
		if err := mu.UpdateMenuCommands(mctx, []kit.BotCommand{
			{Command: "start", Description: "Open the menu"},
			{Command: "help", Description: "How the bot works"},
		}); err != nil {
			a.log.Debug("command menu update failed", logx.Err(err))
		}
		cancel()
	}

	a.notif.Start(a.sup.Context())
	a.sched.Start(a.sup.Context())

	// Debug listener is optional observability; a refused bind never kills the bot.
	if a.debug != nil {
		if err := a.debug.Start(a.sup.Context()); err != nil {
			a.log.Warn("debug server not started", logx.Err(err))
		}
	}

	a.sup.Go("bot.dispatch", func(c context.Context) error {
		return a.handler.DispatchLoop(c, a.updates)
	})

	// Push trail tap: persist push outcomes off the scheduler's hot path.
	if a.store != nil {
		events, unsub := a.bus.Subscribe(128)
		a.sup.Go0("storage.trail", func(c context.Context) {
			defer unsub()
			a.trailLoop(c, events)
		})
	}

	// Debug tap for event visibility (components subscribe themselves for real work).
	{
		events, unsub := a.bus.Subscribe(128)
		a.sup.Go0("eventbus.log", func(c context.Context) {
			defer unsub()
			for {
				select {
				case <-c.Done():
					return
				case e, ok := <-events:
					if !ok {
						return
					}
					a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
				}
			}
		})
	}

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify ready failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready")
	}
	if wd, err := daemon.SdWatchdogEnabled(false); err == nil && wd > 0 {
		interval := wd / 2
		a.sup.Go0("systemd.watchdog", func(c context.Context) {
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-c.Done():
					return
				case <-t.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		})
	}

	a.log.Info("app started")
	return nil
}

// trailLoop copies push outcomes from the bus into the durable trail.
func (a *App) trailLoop(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type != eventbus.EventPushOK && e.Type != eventbus.EventPushFailed {
				continue
			}
			pe, ok := e.Data.(eventbus.PushEvent)
			if !ok {
				continue
			}
			rec := storage.PushRecord{
				At:       e.Time,
				ChatID:   pe.ChatID,
				Owner:    pe.Owner,
				Repo:     pe.Repo,
				Path:     pe.Path,
				Created:  pe.Created,
				OK:       e.Type == eventbus.EventPushOK,
				Error:    pe.Err,
				Duration: pe.Duration,
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := a.store.AppendPush(wctx, rec); err != nil {
				a.log.Warn("push trail append failed", logx.Err(err))
			}
			cancel()
		}
	}
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	// Track last applied config to generate a safe diff summary for logx.
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
			if len(sections) > 0 {
				fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
				a.log.Debug("config change summary", fields...)
			} else {
				a.log.Debug("config reload received, but no effective changes detected")
			}
			lastApplied = newCfg

			for _, s := range sections {
				switch s {
				case "storage":
					a.log.Warn("storage config changed; restart required for changes to take effect")
				case "telegram":
					a.log.Warn("telegram config changed; restart required for changes to take effect")
				case "debug":
					a.log.Warn("debug config changed; restart required for changes to take effect")
				}
			}

			// update log target first (so Apply() doesn't warn when the sink is enabled)
			a.logs.SetTelegramTarget(newCfg.Logging.Telegram.ChatID)
			a.logs.Apply(mapLoggingConfig(newCfg))

			if ncfg, err := mapNotifyConfig(newCfg); err != nil {
				a.log.Warn("invalid notify config; keeping previous", logx.Err(err))
			} else {
				a.notif.Apply(ncfg)
			}

			if scfg, err := mapSchedulerConfig(newCfg); err != nil {
				a.log.Warn("invalid push config; keeping previous", logx.Err(err))
			} else {
				a.sched.Apply(scfg)
			}

			// New-tenant seeds only; running tenants keep their settings.
			if d, err := tenantDefaults(newCfg); err != nil {
				a.log.Warn("invalid push defaults; keeping previous", logx.Err(err))
			} else {
				a.tenants.SetDefaults(d)
			}

			if len(sections) > 0 {
				fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
				a.log.Info("config reloaded", fields...)
			} else {
				a.log.Info("config reloaded (no changes)")
			}
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.String("err", err.Error()))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			// Contract: fn MUST honor stepCtx and return promptly. If it doesn't, log a leak signal.
			elapsed := time.Since(start)
			a.log.Warn(
				"stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.String("err", stepCtx.Err().Error()),
				logx.Duration("elapsed", elapsed),
			)
			// Leak logging: observe when/if the step eventually finishes.
			go func() {
				err := <-done
				took := time.Since(start)
				if err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.String("err", err.Error()), logx.Duration("took", took))
				} else {
					a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
				}
			}()
		}
	}

	// Order: stop producing pushes, drain tenant messages, stop the
	// transport, close the trail, then wait for supervised loops.
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notify", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	if a.debug != nil {
		step("debug", 1*time.Second, func(c context.Context) error { return a.debug.Stop(c) })
	}
	step("storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
