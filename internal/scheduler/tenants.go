package scheduler

import (
	"errors"
	"time"

	"streakbot/internal/eventbus"
	"streakbot/internal/tenant"
	logx "streakbot/pkg/logx"
)

// ErrNotStarted means the tick machinery is not running. Tenant starts are
// only accepted between Start() and Stop().
var ErrNotStarted = errors.New("scheduler is not running")

// StartTenant installs a repeating push timer for one tenant.
//
// Preconditions are checked and the timer installed inside one store
// transaction, so two racing starts can never double-schedule: the loser
// observes Running and gets ErrAlreadyRunning.
func (s *Service) StartTenant(id int64) error {
	var (
		startErr error
		interval time.Duration
		repos    int
	)
	s.store.Update(id, func(c *tenant.Config) {
		if missing := c.MissingFields(); len(missing) > 0 {
			startErr = &tenant.MissingConfigError{Fields: missing}
			return
		}
		if c.Running() {
			startErr = tenant.ErrAlreadyRunning
			return
		}
		entry, ok := s.cronSchedule(id, c.Interval)
		if !ok {
			startErr = ErrNotStarted
			return
		}
		c.Timer = entry
		interval = c.Interval
		repos = len(c.Repos)
	})
	if startErr != nil {
		return startErr
	}

	if !s.log.IsZero() {
		s.log.Info("tenant started",
			logx.Int64("chat_id", id),
			logx.Duration("interval", interval),
			logx.Int("repos", repos),
		)
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventTenantStarted,
			Data: eventbus.TenantEvent{ChatID: id, Interval: interval, Repos: repos},
		})
	}
	return nil
}

// StopTenant cancels a tenant's push timer. An in-flight tick that already
// started is not interrupted and may still report afterwards.
func (s *Service) StopTenant(id int64) error {
	var stopErr error
	s.store.Update(id, func(c *tenant.Config) {
		if !c.Running() {
			stopErr = tenant.ErrNotRunning
			return
		}
		s.cronRemove(c.Timer)
		c.Timer = 0
	})
	if stopErr != nil {
		return stopErr
	}

	if !s.log.IsZero() {
		s.log.Info("tenant stopped", logx.Int64("chat_id", id))
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventTenantStopped,
			Data: eventbus.TenantEvent{ChatID: id},
		})
	}
	return nil
}

// StopAll cancels every active tenant timer. Used on teardown; individual
// ErrNotRunning results are not errors here.
func (s *Service) StopAll() int {
	stopped := 0
	for _, id := range s.store.IDs() {
		if err := s.StopTenant(id); err == nil {
			stopped++
		}
	}
	return stopped
}

// Snapshot returns one tenant's settings plus recent push outcomes.
func (s *Service) Snapshot(id int64) (Status, bool) {
	cfg, ok := s.store.Get(id)
	if !ok {
		return Status{}, false
	}

	s.hmu.Lock()
	hist := append([]Outcome(nil), s.history[id]...)
	s.hmu.Unlock()

	return Status{Config: cfg, History: hist}, true
}
