// internal/web/registry.go
package web

import (
	"sync"
	"time"

	"librarium/internal/booklist"
	"librarium/internal/session"
)

type entry struct {
	view     *booklist.View
	lastSeen time.Time
}

// Registry holds one book list view per user, and one per visitor for
// anonymous sessions. Views idle for longer than ttl are dropped.
type Registry struct {
	mu       sync.Mutex
	views    map[string]*entry
	pageSize int
	ttl      time.Duration
	now      func() time.Time
}

func NewRegistry(pageSize int, ttl time.Duration) *Registry {
	return &Registry{
		views:    make(map[string]*entry),
		pageSize: pageSize,
		ttl:      ttl,
		now:      time.Now,
	}
}

// View returns the view of s, creating it on first use. visitor tells
// anonymous callers apart and is ignored for signed-in users. The returned
// view uses client for its backend calls. The second result reports whether
// the view was created by this call.
func (reg *Registry) View(s session.Session, visitor string, client booklist.Client) (*booklist.View, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	now := reg.now()
	for k, e := range reg.views {
		if now.Sub(e.lastSeen) > reg.ttl {
			delete(reg.views, k)
		}
	}

	k := key(s, visitor)
	if e, ok := reg.views[k]; ok {
		e.lastSeen = now
		e.view.UseClient(client)
		return e.view, false
	}
	v := booklist.NewView(client, s, reg.pageSize)
	reg.views[k] = &entry{view: v, lastSeen: now}
	return v, true
}

// Len is the number of live views.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.views)
}

// key identifies a user together with their role, so a role change is a
// user change and gets a fresh view.
func key(s session.Session, visitor string) string {
	if s.User == nil {
		return "anonymous|" + visitor
	}
	return s.User.ID + "|" + s.User.Role
}
