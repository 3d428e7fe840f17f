// Package push renders the streak file and commits it to a tenant's
// repositories with optimistic concurrency: read the current version
// token, then write guarded by it (or create when the file is absent).
package push

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"streakbot/internal/github"
	"streakbot/internal/tenant"
	logx "streakbot/pkg/logx"
)

// Remote is the slice of the repository service one push needs.
type Remote interface {
	FileSHA(ctx context.Context, owner, repo, path string) (string, error)
	UpsertFile(ctx context.Context, owner, repo, path string, content []byte, message, sha string) error
}

// RemoteFor returns the remote client for a credential.
type RemoteFor func(token string) Remote

// Timestamps render in a fixed civil zone regardless of host timezone.
var zone = time.FixedZone("UTC+7", 7*3600)

const timestampLayout = "Monday, 2 January 2006 at 15:04:05"

type Publisher struct {
	workdir   string
	remoteFor RemoteFor
	now       func() time.Time
	log       logx.Logger
}

type Option func(*Publisher)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func WithLogger(log logx.Logger) Option {
	return func(p *Publisher) { p.log = log }
}

func NewPublisher(workdir string, remoteFor RemoteFor, opts ...Option) *Publisher {
	p := &Publisher{
		workdir:   workdir,
		remoteFor: remoteFor,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PushOnce regenerates the streak file and commits it to one repository.
// created reports whether the remote file was created rather than updated.
// No retry happens here; the caller owns error reporting per repository.
func (p *Publisher) PushOnce(ctx context.Context, cfg tenant.Config, repo string) (created bool, err error) {
	ts := p.now().In(zone)
	content := renderContent(ts)

	if err := p.writeLocal(cfg.File, content); err != nil {
		return false, err
	}

	remote := p.remoteFor(cfg.Token)

	sha, err := remote.FileSHA(ctx, cfg.Owner, repo, cfg.File)
	switch {
	case github.IsNotFound(err):
		sha = ""
	case err != nil:
		return false, fmt.Errorf("read version of %s: %w", cfg.File, err)
	}

	message := fmt.Sprintf("update %s: %s", cfg.File, ts.Format(time.RFC3339))
	if err := remote.UpsertFile(ctx, cfg.Owner, repo, cfg.File, []byte(content), message, sha); err != nil {
		return false, fmt.Errorf("write %s: %w", cfg.File, err)
	}

	created = sha == ""
	if !p.log.IsZero() {
		p.log.Debug("pushed",
			logx.String("owner", cfg.Owner),
			logx.String("repo", repo),
			logx.String("file", cfg.File),
			logx.Bool("created", created),
		)
	}
	return created, nil
}

// writeLocal overwrites the working copy. The file is regenerated every
// cycle and never carries external edits.
func (p *Publisher) writeLocal(file, content string) error {
	path := filepath.Join(p.workdir, file)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare local copy: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write local copy: %w", err)
	}
	return nil
}

func renderContent(ts time.Time) string {
	return fmt.Sprintf("# Streak log\n\nLast push: %s (%s)\n", ts.Format(timestampLayout), ts.Location())
}
