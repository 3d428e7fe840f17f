// Package notify is the async outbound channel for tenant-facing
// messages: a bounded queue, one worker, a global rate limit. Callers
// never block; when the queue is full the message is dropped loudly.
package notify

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"streakbot/internal/transport"
	logx "streakbot/pkg/logx"
)

// sendTimeout bounds one delivery attempt.
const sendTimeout = 10 * time.Second

// Sender is the slice of the transport adapter the notifier needs.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

type Config struct {
	QueueSize  int // default 128
	RatePerSec int // default 25, just under Telegram's global send ceiling
}

type message struct {
	chatID int64
	text   string
}

// Service is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender Sender

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup

	queue    chan message
	stopDone chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup

	dropped atomic.Uint64
}

func New(cfg Config, sender Sender, log logx.Logger) *Service {
	s := &Service{
		sender: sender,
		log:    log,
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 25
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil {
		// already running
		s.mu.Unlock()
		return
	}
	s.queue = make(chan message, s.cfg.QueueSize)
	s.accepting = true
	s.stopDone = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		defer func() {
			if r := recover(); r != nil {
				if !s.log.IsZero() {
					s.log.Error("panic in notifier worker",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
				}
			}
		}()
		s.workerLoop()
	}()
}

// Stop stops intake and drains the queue best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	done := s.stopDone
	cancel := s.runCancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	// Block new notifies.
	s.accepting = false
	s.mu.Unlock()

	// Wait for in-flight enqueues to finish, then close the queue so the
	// worker can drain.
	ch := make(chan struct{})
	go func() {
		s.sendWG.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		return
	case <-ch:
	}

	func() {
		defer func() { _ = recover() }()
		close(q)
	}()

	go func() {
		s.workerWG.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
	case <-done:
		if cancel != nil {
			cancel()
		}
		s.mu.Lock()
		s.queue = nil
		s.stopDone = nil
		s.runCtx = nil
		s.runCancel = nil
		s.mu.Unlock()
		if !s.log.IsZero() {
			s.log.Debug("notifier stopped", logx.Uint64("dropped", s.dropped.Load()))
		}
	}
}

// Notify queues one message for a chat. Never blocks.
func (s *Service) Notify(chatID int64, text string) {
	s.mu.Lock()
	q := s.queue
	ok := s.accepting && q != nil
	if ok {
		s.sendWG.Add(1)
	}
	s.mu.Unlock()
	if !ok {
		if !s.log.IsZero() {
			s.log.Debug("notifier not running; dropping message", logx.Int64("chat_id", chatID))
		}
		return
	}
	defer s.sendWG.Done()

	select {
	case q <- message{chatID: chatID, text: text}:
		// queued
	default:
		s.dropped.Add(1)
		if !s.log.IsZero() {
			s.log.Warn("notifier queue full; dropping message",
				logx.Int64("chat_id", chatID),
				logx.Int("queue_cap", cap(q)),
				logx.Uint64("dropped_total", s.dropped.Load()),
			)
		}
	}
}

func (s *Service) Notifyf(chatID int64, format string, args ...any) {
	s.Notify(chatID, fmt.Sprintf(format, args...))
}

// Dropped reports how many messages were lost to backpressure.
func (s *Service) Dropped() uint64 { return s.dropped.Load() }

func (s *Service) workerLoop() {
	s.mu.Lock()
	q := s.queue
	runCtx := s.runCtx
	s.mu.Unlock()

	for msg := range q {
		s.mu.Lock()
		limiter := s.limiter
		s.mu.Unlock()

		if err := limiter.Wait(runCtx); err != nil {
			// shutting down; deliver nothing further
			return
		}
		s.deliver(runCtx, msg)
	}
}

func (s *Service) deliver(ctx context.Context, msg message) {
	sctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.sender.SendText(sctx, transport.ChatTarget{ChatID: msg.chatID}, msg.text, nil)
	if err != nil && !s.log.IsZero() {
		s.log.Warn("notify send failed",
			logx.Int64("chat_id", msg.chatID),
			logx.Any("err", err),
		)
	}
}
