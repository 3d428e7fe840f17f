package pprof

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	logx "streakbot/pkg/logx"
)

func startTestServer(t *testing.T, cfg Config) *Service {
	t.Helper()
	svc := New(cfg, logx.Nop())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return svc
}

func get(t *testing.T, url string, header map[string]string) (int, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestStartServesHealthzAndIndex(t *testing.T) {
	svc := startTestServer(t, Config{Enabled: true, Addr: "127.0.0.1:0"})

	addr := svc.Addr()
	if addr == "" {
		t.Fatal("expected a bound address")
	}

	code, body := get(t, "http://"+addr+"/healthz", nil)
	if code != http.StatusOK || body != "ok" {
		t.Fatalf("healthz = %d %q, want 200 ok", code, body)
	}

	code, _ = get(t, "http://"+addr+"/debug/pprof/", nil)
	if code != http.StatusOK {
		t.Fatalf("pprof index = %d, want 200", code)
	}
}

func TestTokenGuardsEndpoints(t *testing.T) {
	svc := startTestServer(t, Config{Enabled: true, Addr: "127.0.0.1:0", Token: "s3cret"})
	base := "http://" + svc.Addr()

	if code, _ := get(t, base+"/healthz", nil); code != http.StatusUnauthorized {
		t.Fatalf("no auth = %d, want 401", code)
	}
	if code, _ := get(t, base+"/healthz", map[string]string{"Authorization": "Bearer nope"}); code != http.StatusUnauthorized {
		t.Fatalf("wrong bearer = %d, want 401", code)
	}
	if code, _ := get(t, base+"/healthz?token=nope", nil); code != http.StatusUnauthorized {
		t.Fatalf("wrong query token = %d, want 401", code)
	}
	if code, _ := get(t, base+"/healthz", map[string]string{"Authorization": "Bearer s3cret"}); code != http.StatusOK {
		t.Fatalf("bearer = %d, want 200", code)
	}
	if code, _ := get(t, base+"/healthz?token=s3cret", nil); code != http.StatusOK {
		t.Fatalf("query token = %d, want 200", code)
	}
}

func TestRefusesNonLoopbackWithoutToken(t *testing.T) {
	svc := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, logx.Nop())
	if err := svc.Start(context.Background()); err == nil {
		_ = svc.Stop(context.Background())
		t.Fatal("expected Start to refuse a non-loopback bind without token")
	}
	if svc.Addr() != "" {
		t.Fatalf("Addr = %q, want empty after refused start", svc.Addr())
	}
}

func TestDisabledStartIsNoop(t *testing.T) {
	svc := New(Config{Enabled: false, Addr: "127.0.0.1:0"}, logx.Nop())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if svc.Addr() != "" {
		t.Fatalf("Addr = %q, want empty when disabled", svc.Addr())
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	svc := startTestServer(t, Config{Enabled: true, Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:6060", true},
		{"localhost:6060", true},
		{"[::1]:6060", true},
		{"0.0.0.0:6060", false},
		{"192.168.1.5:6060", false},
		{":6060", false},
		{"garbage", false},
	}
	for _, tc := range cases {
		if got := isLoopbackAddr(tc.addr); got != tc.want {
			t.Errorf("isLoopbackAddr(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}
