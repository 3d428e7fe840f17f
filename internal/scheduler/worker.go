package scheduler

import (
	"context"
	"time"

	"streakbot/internal/eventbus"
	"streakbot/internal/tenant"
	logx "streakbot/pkg/logx"
)

func (s *Service) enqueueTick(id int64) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		if !s.log.IsZero() {
			s.log.Debug("scheduler not running; dropping tick", logx.Int64("chat_id", id))
		}
		return
	}
	select {
	case q <- id:
		// ok
	default:
		s.droppedTicks.Add(1)
		if !s.log.IsZero() {
			s.log.Warn("tick queue full; dropping tick",
				logx.Int64("chat_id", id),
				logx.Int("queue_len", len(q)),
				logx.Int("queue_cap", cap(q)),
			)
		}
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan int64) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case id := <-queue:
			s.execTick(ctx, id)
		}
	}
}

// execTick runs one tenant's full push cycle: every configured repository,
// strictly in order, each outcome reported independently.
func (s *Service) execTick(ctx context.Context, id int64) {
	s.ifMu.Lock()
	if s.inFlight[id] {
		s.ifMu.Unlock()
		s.skippedTicks.Add(1)
		if !s.log.IsZero() {
			s.log.Debug("previous tick still in flight; skipping", logx.Int64("chat_id", id))
		}
		return
	}
	s.inFlight[id] = true
	s.ifMu.Unlock()
	defer func() {
		s.ifMu.Lock()
		delete(s.inFlight, id)
		s.ifMu.Unlock()
	}()

	cfg, ok := s.store.Get(id)
	if !ok || !cfg.Running() {
		// stopped between fire and dequeue
		return
	}

	for _, repo := range cfg.Repos {
		out := s.pushRepo(ctx, cfg, repo)
		s.appendHistory(id, out)
		s.report(id, cfg, out)
	}
}

func (s *Service) pushRepo(ctx context.Context, cfg tenant.Config, repo string) Outcome {
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, s.pushTimeout())
	created, err := s.pusher.PushOnce(pctx, cfg, repo)
	cancel()

	out := Outcome{
		Repo:     repo,
		Created:  created,
		Started:  start,
		Duration: time.Since(start),
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func (s *Service) report(id int64, cfg tenant.Config, out Outcome) {
	if out.OK() {
		verb := "updated"
		if out.Created {
			verb = "created"
		}
		if !s.log.IsZero() {
			// Keep frequent-interval tenants quiet; elevate only slow pushes.
			fields := []logx.Field{
				logx.Int64("chat_id", id),
				logx.String("repo", out.Repo),
				logx.Duration("dur", out.Duration),
			}
			if out.Duration >= 750*time.Millisecond {
				s.log.Info("push completed", fields...)
			} else {
				s.log.Debug("push completed", fields...)
			}
		}
		if s.notify != nil {
			s.notify.Notifyf(id, "✅ Pushed %s to %s/%s (%s)", cfg.File, cfg.Owner, out.Repo, verb)
		}
		s.publishPush(eventbus.EventPushOK, id, cfg, out)
		return
	}

	if !s.log.IsZero() {
		s.log.Warn("push failed",
			logx.Int64("chat_id", id),
			logx.String("repo", out.Repo),
			logx.String("err", out.Error),
			logx.Duration("dur", out.Duration),
		)
	}
	if s.notify != nil {
		s.notify.Notifyf(id, "⚠️ Push to %s/%s failed: %s", cfg.Owner, out.Repo, out.Error)
	}
	s.publishPush(eventbus.EventPushFailed, id, cfg, out)
}

func (s *Service) publishPush(typ string, id int64, cfg tenant.Config, out Outcome) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{
		Type: typ,
		Data: eventbus.PushEvent{
			ChatID:   id,
			Owner:    cfg.Owner,
			Repo:     out.Repo,
			Path:     cfg.File,
			Created:  out.Created,
			Err:      out.Error,
			Duration: out.Duration,
		},
	})
}

func (s *Service) appendHistory(id int64, out Outcome) {
	limit := s.historySize()
	s.hmu.Lock()
	defer s.hmu.Unlock()
	h := append(s.history[id], out)
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	s.history[id] = h
}
