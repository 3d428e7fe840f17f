package github

import "sync"

// Factory caches one Client per access token. Tenants carry their own
// credentials, so two tenants with the same token share a client (and
// its limiter) while everyone else stays isolated.
type Factory struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func NewFactory() *Factory {
	return &Factory{clients: make(map[string]*Client)}
}

func (f *Factory) Get(token string) *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[token]; ok {
		return c
	}
	c := NewClient(token)
	f.clients[token] = c
	return c
}

// Evict drops the cached client for a token. Called when a tenant
// replaces its credential so the old client can be collected.
func (f *Factory) Evict(token string) {
	f.mu.Lock()
	delete(f.clients, token)
	f.mu.Unlock()
}
