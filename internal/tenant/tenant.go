// Package tenant holds per-chat push settings and pending input state.
//
// Every chat talking to the bot is an isolated tenant: its own GitHub
// credentials, target repositories and timer. Nothing here touches the
// network; the scheduler and bot layers coordinate through this package.
package tenant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrAlreadyRunning = errors.New("push cycle already running")
	ErrNotRunning     = errors.New("push cycle is not running")
)

// MissingConfigError reports which required settings block a start.
// Fields are user-facing setting names, in display order.
type MissingConfigError struct {
	Fields []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing settings: %s", strings.Join(e.Fields, ", "))
}

// Config is one tenant's push settings.
//
// Timer is the scheduler entry id; zero means no active timer. Running
// state is derived from it so the two can never disagree.
type Config struct {
	Token    string
	Owner    string
	Repos    []string
	File     string
	Interval time.Duration

	Timer cron.EntryID
}

func (c Config) Running() bool { return c.Timer != 0 }

// MissingFields lists the required settings that are still empty.
// File and Interval are excluded: the store seeds them with defaults.
func (c Config) MissingFields() []string {
	var out []string
	if strings.TrimSpace(c.Token) == "" {
		out = append(out, "token")
	}
	if strings.TrimSpace(c.Owner) == "" {
		out = append(out, "username")
	}
	if len(c.Repos) == 0 {
		out = append(out, "repositories")
	}
	return out
}
