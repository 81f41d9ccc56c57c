// Package event delivers entity lifecycle notifications around session
// mutations.
//
// Listeners are registered on the session factory and shared by reference
// with every session it mints. Dispatch is synchronous on the calling
// goroutine; listeners must not block significantly. The registry has
// copy-on-write semantics so registration and deregistration are safe while
// another goroutine is mid-dispatch, without holding a lock during dispatch.
package event

import (
	"reflect"
	"sync"
)

// Type identifies when in an entity's lifecycle an event fires.
type Type string

const (
	PreSave    Type = "PRE_SAVE"
	PostSave   Type = "POST_SAVE"
	PreDelete  Type = "PRE_DELETE"
	PostDelete Type = "POST_DELETE"
)

// Event is an immutable (subject, type) pair. The subject is the domain
// entity being saved or deleted, including entities implicitly touched by a
// cascading save.
type Event struct {
	Subject any
	Type    Type
}

// Listener receives lifecycle events synchronously during save and delete.
type Listener interface {
	HandleEvent(e Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(e Event)

// HandleEvent calls f(e).
func (f ListenerFunc) HandleEvent(e Event) {
	f(e)
}

// Registry is an ordered, copy-on-write set of listeners. Mutation replaces
// the backing slice under a mutex; Dispatch iterates a snapshot so a slow
// listener never blocks registration from another goroutine.
type Registry struct {
	mu        sync.Mutex
	listeners []Listener
}

// NewRegistry creates an empty listener registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a listener. Registering the same listener twice delivers
// events twice.
func (r *Registry) Register(l Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Listener, len(r.listeners), len(r.listeners)+1)
	copy(next, r.listeners)
	r.listeners = append(next, l)
}

// Deregister removes the first occurrence of l, matched by identity.
// Removing an unknown listener is a no-op, as is removing a listener whose
// dynamic type is not comparable: a ListenerFunc has no identity to match,
// so deregistering one never finds anything.
func (r *Registry) Deregister(l Listener) {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// Comparing against an uncomparable dynamic type cannot panic here: l is
	// comparable, so a panic would require identical dynamic types.
	for i, existing := range r.listeners {
		if existing == l {
			next := make([]Listener, 0, len(r.listeners)-1)
			next = append(next, r.listeners[:i]...)
			next = append(next, r.listeners[i+1:]...)
			r.listeners = next
			return
		}
	}
}

// Len reports the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Dispatch delivers e to a snapshot of the registered listeners, in
// registration order. No lock is held while listeners run.
func (r *Registry) Dispatch(e Event) {
	r.mu.Lock()
	snapshot := r.listeners
	r.mu.Unlock()

	for _, l := range snapshot {
		l.HandleEvent(e)
	}
}
