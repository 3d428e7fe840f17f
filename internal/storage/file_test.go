package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logx "streakbot/pkg/logx"
)

func testRecord(chatID int64, repo string, ok bool) PushRecord {
	return PushRecord{
		At:       time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC),
		ChatID:   chatID,
		Owner:    "alice",
		Repo:     repo,
		Path:     "log.md",
		Created:  false,
		OK:       ok,
		Duration: 120 * time.Millisecond,
	}
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " None "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) err = %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "postgres"}, logx.Nop())
	if err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("err = %v, want unknown driver error", err)
	}
}

func TestFileDriverRequiresPath(t *testing.T) {
	_, err := Open(Config{Driver: "file"}, logx.Nop())
	if err == nil {
		t.Fatal("want error for file driver without path")
	}
}

func TestFileAppendAndRecent(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "trail.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()

	for _, repo := range []string{"r1", "r2", "r3"} {
		if err := st.AppendPush(ctx, testRecord(1, repo, true)); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.AppendPush(ctx, testRecord(2, "other", false)); err != nil {
		t.Fatal(err)
	}

	got, err := st.RecentPushes(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Repo != "r3" || got[1].Repo != "r2" {
		t.Fatalf("RecentPushes = %+v, want newest-first r3, r2", got)
	}

	got, err = st.RecentPushes(ctx, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Repo != "other" || got[0].OK {
		t.Fatalf("RecentPushes(2) = %+v", got)
	}

	if got, _ := st.RecentPushes(ctx, 1, 0); got != nil {
		t.Fatalf("limit 0 should return nil, got %+v", got)
	}
	if got, _ := st.RecentPushes(ctx, 99, 5); len(got) != 0 {
		t.Fatalf("unknown chat should be empty, got %+v", got)
	}
}

func TestFileReplayAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Driver: "file", Path: filepath.Join(dir, "trail.db")}
	ctx := context.Background()

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.AppendPush(ctx, testRecord(7, "kept", true)); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st, err = Open(cfg, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	got, err := st.RecentPushes(ctx, 7, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Repo != "kept" || !got[0].At.Equal(testRecord(7, "kept", true).At) {
		t.Fatalf("replayed tail = %+v", got)
	}
}

func TestFileReplaySkipsGarbageLines(t *testing.T) {
	dir := t.TempDir()
	trail := filepath.Join(dir, "trail.pushes.jsonl")
	content := "not json at all\n" +
		`{"at":"2026-03-14T08:30:00Z","chat_id":5,"owner":"alice","repo":"good","path":"log.md","ok":true,"duration":0}` + "\n" +
		`{"chat_id":0,"repo":"no-chat"}` + "\n"
	if err := os.WriteFile(trail, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "trail.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	got, err := st.RecentPushes(context.Background(), 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Repo != "good" {
		t.Fatalf("replay = %+v, want only the decodable record", got)
	}
}

func TestFileTailIsBounded(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "trail.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()

	for i := 0; i < recentCap+10; i++ {
		r := testRecord(3, "bulk", true)
		r.Path = "p" + string(rune('0'+i%10))
		if err := st.AppendPush(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := st.RecentPushes(ctx, 3, recentCap*2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != recentCap {
		t.Fatalf("tail length = %d, want %d", len(got), recentCap)
	}
}
