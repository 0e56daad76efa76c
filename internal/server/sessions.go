package server

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nao1215/sitescan/internal/session"
)

// sessionTable holds the live controllers keyed by session ID. When full,
// adding a session evicts and closes the least recently used one.
type sessionTable struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, *session.Controller]
	factory func() *session.Controller
}

func newSessionTable(size int, factory func() *session.Controller) (*sessionTable, error) {
	cache, err := lru.NewWithEvict(size, func(_ string, c *session.Controller) {
		c.Close()
	})
	if err != nil {
		return nil, err
	}
	return &sessionTable{cache: cache, factory: factory}, nil
}

// get returns the controller of an existing session.
func (t *sessionTable) get(id string) (*session.Controller, bool) {
	return t.cache.Get(id)
}

// getOrCreate returns the controller of id, creating it when absent.
// The second result reports whether it was created.
func (t *sessionTable) getOrCreate(id string) (*session.Controller, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.cache.Get(id); ok {
		return c, false
	}
	c := t.factory()
	t.cache.Add(id, c)
	return c, true
}

// len returns the number of live sessions.
func (t *sessionTable) len() int {
	return t.cache.Len()
}

// closeAll closes and drops every session.
func (t *sessionTable) closeAll() {
	t.cache.Purge()
}
