package tenant

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestStoreSeedsDefaults(t *testing.T) {
	t.Parallel()
	s := NewStore(Defaults{File: "log.md", Interval: time.Minute})

	c := s.GetOrCreate(42)
	if c.File != "log.md" {
		t.Fatalf("File = %q, want log.md", c.File)
	}
	if c.Interval != time.Minute {
		t.Fatalf("Interval = %v, want 1m", c.Interval)
	}
	if c.Running() {
		t.Fatal("new tenant must not be running")
	}
}

func TestStoreDefaultsApplyToNewTenantsOnly(t *testing.T) {
	t.Parallel()
	s := NewStore(Defaults{File: "log.md", Interval: time.Minute})

	old := s.GetOrCreate(1)
	s.SetDefaults(Defaults{File: "streak.md", Interval: 30 * time.Second})
	fresh := s.GetOrCreate(2)

	if got, _ := s.Get(1); got.File != old.File || got.Interval != old.Interval {
		t.Fatalf("existing tenant changed: %+v", got)
	}
	if fresh.File != "streak.md" || fresh.Interval != 30*time.Second {
		t.Fatalf("new tenant did not get new defaults: %+v", fresh)
	}
}

func TestStoreUpdateIsolation(t *testing.T) {
	t.Parallel()
	s := NewStore(Defaults{File: "log.md", Interval: time.Minute})

	repos := []string{"a", "b"}
	got := s.Update(7, func(c *Config) {
		c.Owner = "octocat"
		c.Repos = repos
	})

	// Mutating the caller slice must not leak into the store.
	repos[0] = "mutated"
	stored, ok := s.Get(7)
	if !ok {
		t.Fatal("tenant 7 missing")
	}
	if !reflect.DeepEqual(stored.Repos, []string{"a", "b"}) {
		t.Fatalf("Repos = %v, want [a b]", stored.Repos)
	}

	// Mutating the returned copy must not leak either.
	got.Repos[1] = "mutated"
	stored, _ = s.Get(7)
	if stored.Repos[1] != "b" {
		t.Fatalf("Repos[1] = %q, want b", stored.Repos[1])
	}
}

func TestStoreTenantsAreIndependent(t *testing.T) {
	t.Parallel()
	s := NewStore(Defaults{File: "log.md", Interval: time.Minute})

	s.Update(1, func(c *Config) { c.Owner = "alice"; c.Timer = 11 })
	s.Update(2, func(c *Config) { c.Owner = "bob" })

	a, _ := s.Get(1)
	b, _ := s.Get(2)
	if !a.Running() {
		t.Fatal("tenant 1 should be running")
	}
	if b.Running() {
		t.Fatal("tenant 2 must not be running")
	}
	if b.Owner != "bob" {
		t.Fatalf("tenant 2 owner = %q", b.Owner)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	t.Parallel()
	s := NewStore(Defaults{File: "log.md", Interval: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Update(int64(n%5), func(c *Config) {
				c.Repos = append(c.Repos, "r")
			})
		}(i)
	}
	wg.Wait()

	total := 0
	for _, id := range s.IDs() {
		c, _ := s.Get(id)
		total += len(c.Repos)
	}
	if total != 50 {
		t.Fatalf("total repos = %d, want 50", total)
	}
}

func TestMissingFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{name: "all missing", cfg: Config{}, want: []string{"token", "username", "repositories"}},
		{name: "token only", cfg: Config{Token: "t"}, want: []string{"username", "repositories"}},
		{name: "no repos", cfg: Config{Token: "t", Owner: "o"}, want: []string{"repositories"}},
		{name: "blank token counts as missing", cfg: Config{Token: "  ", Owner: "o", Repos: []string{"r"}}, want: []string{"token"}},
		{name: "complete", cfg: Config{Token: "t", Owner: "o", Repos: []string{"r"}}, want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.MissingFields()
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("MissingFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingConfigErrorMessage(t *testing.T) {
	t.Parallel()
	err := error(&MissingConfigError{Fields: []string{"token", "repositories"}})
	want := "missing settings: token, repositories"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	var mce *MissingConfigError
	if !errors.As(err, &mce) {
		t.Fatal("errors.As failed to match MissingConfigError")
	}
}
