package bot

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"streakbot/internal/runtime/supervisor"
	"streakbot/internal/scheduler"
	"streakbot/internal/tenant"
	"streakbot/internal/transport"
	logx "streakbot/pkg/logx"
)

// defaultHandlerTimeout bounds one inbound update end to end.
const defaultHandlerTimeout = 30 * time.Second

// Scheduler is the slice of the scheduler the control surface drives.
type Scheduler interface {
	StartTenant(id int64) error
	StopTenant(id int64) error
	Snapshot(id int64) (scheduler.Status, bool)
}

// Notifier delivers plain-text replies without blocking the handler.
type Notifier interface {
	Notify(chatID int64, text string)
	Notifyf(chatID int64, format string, args ...any)
}

// TokenVerifier runs the best-effort credential check after a tenant
// submits a new token. Optional.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// CredentialCache releases per-token resources once a tenant has
// replaced its token. Optional.
type CredentialCache interface {
	Evict(token string)
}

type Request struct {
	Update transport.Update
	Chat   transport.ChatTarget
	FromID int64
	Action string
	ReqID  string

	Logger logx.Logger
}

type Handler struct {
	log      logx.Logger
	adapter  transport.Adapter
	store    *tenant.Store
	modes    *tenant.Modes
	sched    Scheduler
	notify   Notifier
	verifier TokenVerifier
	creds    CredentialCache

	jobs chan func()

	runMu   sync.Mutex
	running bool
	sup     *supervisor.Supervisor
}

type Option func(*Handler)

// WithTokenVerifier enables the async token check on submission.
func WithTokenVerifier(v TokenVerifier) Option {
	return func(h *Handler) { h.verifier = v }
}

// WithCredentialCache evicts the previous token's client on replacement.
func WithCredentialCache(c CredentialCache) Option {
	return func(h *Handler) { h.creds = c }
}

func New(log logx.Logger, adapter transport.Adapter, store *tenant.Store, modes *tenant.Modes, sched Scheduler, notify Notifier, opts ...Option) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	h := &Handler{
		log:     log,
		adapter: adapter,
		store:   store,
		modes:   modes,
		sched:   sched,
		notify:  notify,
		jobs:    make(chan func(), 256),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) setSupervisor(sup *supervisor.Supervisor, running bool) {
	h.runMu.Lock()
	h.sup = sup
	h.running = running
	h.runMu.Unlock()
}

// tryEnqueue is a panic-safe enqueue helper (handles the jobs channel being closed).
func (h *Handler) tryEnqueue(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case h.jobs <- fn:
		return true
	default:
		return false
	}
}

// DispatchLoop consumes adapter updates until ctx ends or the channel
// closes. Handlers run on a bounded worker pool so one slow tenant cannot
// stall the others.
func (h *Handler) DispatchLoop(ctx context.Context, updates <-chan transport.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	sup := supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(h.log.With(logx.String("comp", "bot.dispatch"))),
		supervisor.WithCancelOnError(false),
	)
	h.setSupervisor(sup, true)

	h.log.Info("dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(h.jobs)))

	var closeOnce sync.Once
	closeJobs := func() {
		closeOnce.Do(func() {
			// Mark as not running before closing so enqueue can degrade gracefully.
			h.setSupervisor(sup, false)
			close(h.jobs)
		})
	}

	for i := 0; i < workers; i++ {
		idx := i
		name := "bot.worker." + strconv.Itoa(idx)
		sup.GoRestart(name, func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-h.jobs:
					if !ok {
						return nil
					}
					if job == nil {
						continue
					}
					// A stray panic must not take the worker down; jobs also
					// carry their own recovery middleware.
					func() {
						defer func() {
							if r := recover(); r != nil {
								h.log.Error("panic in dispatch job",
									logx.Int("worker", idx),
									logx.Any("panic", r),
									logx.String("stack", string(debug.Stack())),
								)
							}
						}()
						job()
					}()
				}
			}
		},
			supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			supervisor.WithPublishFirstError(true),
			supervisor.WithStopOnCleanExit(true),
		)
	}

	defer func() {
		closeJobs()
		// Wait briefly for workers to drain.
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		h.setSupervisor(nil, false)
		h.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				h.log.Info("dispatcher stopped (updates channel closed)")
				return nil
			}
			h.route(ctx, up)
		}
	}
}

func (h *Handler) route(root context.Context, up transport.Update) {
	switch up.Kind {
	case transport.UpdateMessage:
		h.routeMessage(root, up)
	case transport.UpdateCallback:
		h.routeCallback(root, up)
	}
}
