package reflector

import (
	"context"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// EventHandler receives callbacks for content-bearing events from one
// observer sequence. Handlers must not modify the objects they are given:
// the same values are shared with the cache and with other observers.
type EventHandler[T Object] interface {
	// OnAdd is called for every added item. initial is true for items from
	// the observer's startup burst, i.e. state that existed before the
	// handler attached.
	OnAdd(obj T, initial bool)
	// OnUpdate is called with the previous and the new value of a
	// modified item.
	OnUpdate(oldObj, newObj T)
	// OnDelete is called with the last known value of a removed item.
	OnDelete(obj T)
}

// EventHandlerFuncs adapts plain functions into an EventHandler; nil
// fields are skipped.
type EventHandlerFuncs[T Object] struct {
	AddFunc    func(obj T, initial bool)
	UpdateFunc func(oldObj, newObj T)
	DeleteFunc func(obj T)
}

var _ EventHandler[Object] = EventHandlerFuncs[Object]{}

func (h EventHandlerFuncs[T]) OnAdd(obj T, initial bool) {
	if h.AddFunc != nil {
		h.AddFunc(obj, initial)
	}
}

func (h EventHandlerFuncs[T]) OnUpdate(oldObj, newObj T) {
	if h.UpdateFunc != nil {
		h.UpdateFunc(oldObj, newObj)
	}
}

func (h EventHandlerFuncs[T]) OnDelete(obj T) {
	if h.DeleteFunc != nil {
		h.DeleteFunc(obj)
	}
}

// HandleEvents attaches a fresh observer and dispatches its events to h
// until ctx ends or the sequence fails. Items are reported as initial
// until the first Synced event goes by; Bookmark, Synced, and Desynced
// events carry no content and produce no callback. An Error event
// terminates the dispatch with the upstream failure.
func (r *Reflector[T]) HandleEvents(ctx context.Context, h EventHandler[T]) error {
	initial := true

	for ev := range r.ObserveAll(ctx) {
		switch ev.Type {
		case Added:
			h.OnAdd(ev.Object, initial)
		case Modified:
			h.OnUpdate(ev.Previous, ev.Object)
		case Deleted:
			h.OnDelete(ev.Object)
		case Synced:
			initial = false
		case Bookmark, Desynced:
			// no content
		case Error:
			return apierrors.FromObject(ev.Status)
		}
	}
	return ctx.Err()
}
