package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "streakbot/pkg/logx"
)

// recentCap bounds the per-tenant in-memory tail served by RecentPushes.
const recentCap = 50

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.pushes.jsonl (append-only JSON Lines)
//
// On open the existing trail is replayed so recent-push queries are
// answered from memory; the file itself is never rewritten.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	file   *os.File
	recent map[int64][]PushRecord
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	trailPath := prefix + ".pushes.jsonl"

	recent := map[int64][]PushRecord{}
	if err := replayTrail(trailPath, recent); err != nil {
		log.Debug("push trail replay failed", logx.Any("err", err))
	}

	f, err := os.OpenFile(trailPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:    log,
		file:   f,
		recent: recent,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileStore) AppendPush(ctx context.Context, r PushRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("push trail closed")
	}
	if err := json.NewEncoder(s.file).Encode(r); err != nil {
		return err
	}
	appendRecent(s.recent, r)
	return nil
}

func (s *fileStore) RecentPushes(ctx context.Context, chatID int64, limit int) ([]PushRecord, error) {
	_ = ctx
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tail := s.recent[chatID]
	if len(tail) > limit {
		tail = tail[len(tail)-limit:]
	}
	// newest first
	out := make([]PushRecord, 0, len(tail))
	for i := len(tail) - 1; i >= 0; i-- {
		out = append(out, tail[i])
	}
	return out, nil
}

// replayTrail loads the tail of an existing trail file into per-tenant
// rings. Undecodable lines are skipped, not fatal.
func replayTrail(path string, out map[int64][]PushRecord) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r PushRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		if r.ChatID == 0 {
			continue
		}
		appendRecent(out, r)
	}
	return sc.Err()
}

func appendRecent(m map[int64][]PushRecord, r PushRecord) {
	tail := append(m[r.ChatID], r)
	if len(tail) > recentCap {
		tail = tail[len(tail)-recentCap:]
	}
	m[r.ChatID] = tail
}
