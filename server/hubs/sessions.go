package hubs

import (
	"sync"
)

/* SESSION REGISTRY */

// Maps connections to the account they are logged in as,
// with a reverse index to find every connection of an account.
// Both maps are only modified together under the same lock.
// It is safe to use concurrently.
type Registry struct {
	mut    sync.RWMutex
	byConn map[string]uint              // connection id -> user id
	byUser map[uint]map[string]struct{} // user id -> connection ids
}

func NewRegistry(size int) *Registry {
	return &Registry{
		byConn: make(map[string]uint, size),
		byUser: make(map[uint]map[string]struct{}, size),
	}
}

// Must be called with the lock held.
func (r *Registry) detach(conn string) {
	old, ok := r.byConn[conn]
	if !ok {
		return
	}

	delete(r.byConn, conn)
	set := r.byUser[old]
	delete(set, conn)
	if len(set) == 0 {
		delete(r.byUser, old)
	}
}

// Binds a connection to an account, replacing any previous binding.
func (r *Registry) Bind(conn string, user uint) {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.detach(conn)
	r.byConn[conn] = user

	set, ok := r.byUser[user]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[user] = set
	}
	set[conn] = struct{}{}
}

// Returns the account a connection is bound to.
func (r *Registry) Resolve(conn string) (uint, bool) {
	r.mut.RLock()
	defer r.mut.RUnlock()
	v, ok := r.byConn[conn]
	return v, ok
}

// Removes the binding of a connection, unbound
// connections are ignored.
func (r *Registry) Unbind(conn string) {
	r.mut.Lock()
	defer r.mut.Unlock()
	r.detach(conn)
}

// Returns a copy of every connection bound to an account.
func (r *Registry) ConnectionsFor(user uint) []string {
	r.mut.RLock()
	defer r.mut.RUnlock()

	set := r.byUser[user]
	list := make([]string, 0, len(set))
	for k := range set {
		list = append(list, k)
	}

	return list
}

// Amount of bound connections.
func (r *Registry) Len() int {
	r.mut.RLock()
	defer r.mut.RUnlock()
	return len(r.byConn)
}
