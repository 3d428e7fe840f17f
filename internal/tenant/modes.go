package tenant

import "sync"

// InputMode marks which setting the next free-text message from a chat
// should be applied to. ModeNone means plain text is ignored.
type InputMode int

const (
	ModeNone InputMode = iota
	ModeToken
	ModeOwner
	ModeRepos
	ModeFile
	ModeDelay
)

func (m InputMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeToken:
		return "token"
	case ModeOwner:
		return "owner"
	case ModeRepos:
		return "repos"
	case ModeFile:
		return "file"
	case ModeDelay:
		return "delay"
	default:
		return "unknown"
	}
}

// Modes tracks the pending input mode per chat.
// A chat has at most one pending mode; setting a new one replaces it.
type Modes struct {
	mu sync.Mutex
	m  map[int64]InputMode
}

func NewModes() *Modes {
	return &Modes{m: make(map[int64]InputMode)}
}

func (ms *Modes) Set(id int64, m InputMode) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if m == ModeNone {
		delete(ms.m, id)
		return
	}
	ms.m[id] = m
}

func (ms *Modes) Get(id int64) InputMode {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.m[id]
}

// Take returns the pending mode and clears it in one step. The mode is
// consumed before any validation runs, so a bad value never leaves the
// chat stuck waiting for input.
func (ms *Modes) Take(id int64) InputMode {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	m := ms.m[id]
	delete(ms.m, id)
	return m
}

func (ms *Modes) Clear(id int64) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.m, id)
}
