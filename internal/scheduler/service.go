package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"

	"streakbot/internal/tenant"
	logx "streakbot/pkg/logx"
)

func New(cfg Config, store *tenant.Store, pusher Pusher, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg.withDefaults(),
		store:    store,
		pusher:   pusher,
		inFlight: make(map[int64]bool),
		history:  make(map[int64][]Outcome),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply updates the tunable knobs. Queue and pool sizes stay fixed until
// the next Start; timeout and history cap take effect immediately.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg.PushTimeout = cfg.PushTimeout
	s.cfg.HistorySize = cfg.HistorySize
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	// If a Stop() is in progress, wait for it to complete (prevents double
	// worker pools).
	for {
		s.mu.Lock()
		if s.stopCh == nil {
			break
		}
		done := s.stopDone
		if done == nil {
			// already running
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		select {
		case <-done:
			// loop and try again
		case <-ctx.Done():
			return
		}
	}
	defer s.mu.Unlock()

	s.stopCh = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	// Fresh queue per run so stale ticks from a previous run never execute.
	s.queue = make(chan int64, s.cfg.QueueSize)
	s.c = cron.New()

	runCtx := s.runCtx
	stopCh := s.stopCh
	queue := s.queue
	workers := s.cfg.Workers

	s.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer s.workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					if !s.log.IsZero() {
						s.log.Error("panic in scheduler worker",
							logx.Int("worker", idx),
							logx.Any("panic", r),
							logx.String("stack", string(debug.Stack())),
						)
					}
				}
			}()
			s.worker(runCtx, stopCh, queue)
		}()
	}
	s.c.Start()
	if !s.log.IsZero() {
		s.log.Info("scheduler started",
			logx.Int("workers", workers),
			logx.Int("queue_cap", s.cfg.QueueSize),
		)
	}
}

func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	stopCh := s.stopCh
	cancel := s.runCancel
	c := s.c
	// prevent new tick enqueues quickly
	s.c = nil
	s.runCancel = nil
	s.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}

	// finalize cleanup in background so Stop() can return on timeout safely.
	go func() {
		s.workerWG.Wait()
		s.mu.Lock()
		s.stopCh = nil
		s.runCtx = nil
		s.queue = nil
		s.stopDone = nil
		s.mu.Unlock()
		close(done)
		if !s.log.IsZero() {
			s.log.Info("scheduler stopped",
				logx.Duration("took", time.Since(start)),
				logx.Uint64("dropped_ticks", s.droppedTicks.Load()),
				logx.Uint64("skipped_ticks", s.skippedTicks.Load()),
			)
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// stop continues in background
	}
}

// cronSchedule registers a repeating tick for one tenant. The first fire
// happens after one full interval, never immediately.
func (s *Service) cronSchedule(id int64, interval time.Duration) (cron.EntryID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return 0, false
	}
	entry := s.c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		s.enqueueTick(id)
	}))
	return entry, true
}

// cronRemove cancels a tick entry. Removing an already-removed entry is a
// no-op.
func (s *Service) cronRemove(entry cron.EntryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		s.c.Remove(entry)
	}
}

func (s *Service) pushTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.PushTimeout
}

func (s *Service) historySize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.HistorySize
}
