package livepreview

import (
	"reflect"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// Registry fans one change notification out to many subscribers.
//
// Subscribe returns a handle; the handle is the supported key for
// Unsubscribe. UnsubscribeCallback exists for callers that only kept the
// function value.
type Registry struct {
	mu    sync.RWMutex
	log   logr.Logger
	order []string
	subs  map[string]func()
}

// NewRegistry creates an empty registry that reports unknown subscribers
// to log.
func NewRegistry(log logr.Logger) *Registry {
	return &Registry{
		log:  log,
		subs: make(map[string]func()),
	}
}

// Subscribe registers cb and returns its handle.
func (reg *Registry) Subscribe(cb func()) string {
	id := uuid.NewString()

	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.subs[id] = cb
	reg.order = append(reg.order, id)
	return id
}

// Unsubscribe removes the subscriber with the given handle. An unknown
// handle is logged and reported as ErrSubscriberNotFound.
func (reg *Registry) Unsubscribe(id string) error {
	reg.mu.Lock()
	_, ok := reg.subs[id]
	if ok {
		reg.remove(id)
	}
	reg.mu.Unlock()

	if !ok {
		reg.log.Info("no subscriber found with the given id", "id", id)
		return ErrSubscriberNotFound
	}
	return nil
}

// UnsubscribeCallback removes the first subscriber registered with cb.
// Functions are compared by code pointer, so two closures created from
// the same literal are indistinguishable.
func (reg *Registry) UnsubscribeCallback(cb func()) error {
	target := reflect.ValueOf(cb).Pointer()

	reg.mu.Lock()
	var found string
	for _, id := range reg.order {
		if reflect.ValueOf(reg.subs[id]).Pointer() == target {
			found = id
			break
		}
	}
	if found != "" {
		reg.remove(found)
	}
	reg.mu.Unlock()

	if found == "" {
		reg.log.Info("no subscriber found with the given callback")
		return ErrSubscriberNotFound
	}
	return nil
}

// remove must be called with mu held.
func (reg *Registry) remove(id string) {
	delete(reg.subs, id)
	for i, v := range reg.order {
		if v == id {
			reg.order = append(reg.order[:i:i], reg.order[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber in subscription order. A panicking
// subscriber is not recovered and stops the remaining calls.
func (reg *Registry) Publish() {
	reg.mu.RLock()
	cbs := make([]func(), 0, len(reg.order))
	for _, id := range reg.order {
		cbs = append(cbs, reg.subs[id])
	}
	reg.mu.RUnlock()

	for _, cb := range cbs {
		cb()
	}
}

// Len returns the number of subscribers.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.order)
}
