package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"streakbot/internal/eventbus"
	"streakbot/internal/tenant"
	logx "streakbot/pkg/logx"
)

// Config controls the shared tick machinery. Per-tenant intervals live in
// the tenant store, not here.
type Config struct {
	Workers     int           // tick workers (default 4)
	QueueSize   int           // tick queue capacity (default 64)
	PushTimeout time.Duration // bound per repository push (default 30s)
	HistorySize int           // per-tenant outcome ring (default 20)
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.PushTimeout <= 0 {
		c.PushTimeout = 30 * time.Second
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 20
	}
	return c
}

// Pusher executes one repository push. Implemented by push.Publisher.
type Pusher interface {
	PushOnce(ctx context.Context, cfg tenant.Config, repo string) (created bool, err error)
}

// Notifier delivers tenant-facing messages without blocking.
type Notifier interface {
	Notify(chatID int64, text string)
	Notifyf(chatID int64, format string, args ...any)
}

// Outcome is one repository's result within a tick.
type Outcome struct {
	Repo     string
	Created  bool
	Error    string
	Started  time.Time
	Duration time.Duration
}

func (o Outcome) OK() bool { return o.Error == "" }

// Status is the read-only view behind the status screen.
type Status struct {
	Config  tenant.Config
	History []Outcome
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	log    logx.Logger
	store  *tenant.Store
	pusher Pusher
	notify Notifier
	bus    eventbus.Bus

	c      *cron.Cron
	queue  chan int64
	stopCh chan struct{}
	// stopDone is non-nil while a Stop() is in progress; it is closed when
	// workers fully exit.
	stopDone  chan struct{}
	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup

	// inFlight guards against a tenant's tick overlapping its previous one.
	ifMu     sync.Mutex
	inFlight map[int64]bool

	hmu     sync.Mutex
	history map[int64][]Outcome

	droppedTicks atomic.Uint64
	skippedTicks atomic.Uint64
}

type Option func(*Service)

func WithLogger(log logx.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

func WithBus(bus eventbus.Bus) Option {
	return func(s *Service) { s.bus = bus }
}
