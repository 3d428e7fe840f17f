package tenant

import "testing"

func TestModesTakeClears(t *testing.T) {
	t.Parallel()
	ms := NewModes()

	ms.Set(1, ModeDelay)
	if got := ms.Take(1); got != ModeDelay {
		t.Fatalf("Take = %v, want ModeDelay", got)
	}
	if got := ms.Get(1); got != ModeNone {
		t.Fatalf("mode after Take = %v, want ModeNone", got)
	}
	if got := ms.Take(1); got != ModeNone {
		t.Fatalf("second Take = %v, want ModeNone", got)
	}
}

func TestModesSetReplaces(t *testing.T) {
	t.Parallel()
	ms := NewModes()

	ms.Set(5, ModeToken)
	ms.Set(5, ModeRepos)
	if got := ms.Get(5); got != ModeRepos {
		t.Fatalf("Get = %v, want ModeRepos", got)
	}

	ms.Set(5, ModeNone)
	if got := ms.Get(5); got != ModeNone {
		t.Fatalf("Get after ModeNone = %v, want ModeNone", got)
	}
}

func TestModesPerChat(t *testing.T) {
	t.Parallel()
	ms := NewModes()

	ms.Set(1, ModeToken)
	ms.Set(2, ModeFile)

	if got := ms.Take(1); got != ModeToken {
		t.Fatalf("chat 1 = %v, want ModeToken", got)
	}
	if got := ms.Get(2); got != ModeFile {
		t.Fatalf("chat 2 = %v, want ModeFile", got)
	}
}
