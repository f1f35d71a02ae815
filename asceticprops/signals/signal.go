// Package signals is a small typed observer registry. Observers are keyed by
// an explicit id or, failing that, by the function pointer.
package signals

import (
	"reflect"
	"sync"
)

type entry[E any] struct {
	id       any
	observer Observer[E]
}

type disposeFunc func()

func (f disposeFunc) Dispose() { f() }

// SignalImp is safe for concurrent use. Notify runs observers outside the
// lock, so an observer may attach or detach.
type SignalImp[E any] struct {
	mu        sync.Mutex
	observers []entry[E]
}

func NewSignal[E any]() *SignalImp[E] {
	return &SignalImp[E]{}
}

func (s *SignalImp[E]) Attach(observer Observer[E], observerID ...any) Disposable {
	id := resolveID(observer, observerID)
	detach := disposeFunc(func() { s.Detach(observer, id) })

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.observers {
		if e.id == id {
			return detach
		}
	}
	s.observers = append(s.observers, entry[E]{id: id, observer: observer})
	return detach
}

func (s *SignalImp[E]) Detach(observer Observer[E], observerID ...any) {
	id := resolveID(observer, observerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.observers {
		if e.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *SignalImp[E]) Notify(event E) {
	s.mu.Lock()
	observers := make([]entry[E], len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()
	for _, e := range observers {
		e.observer(event)
	}
}

func (s *SignalImp[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

func resolveID[E any](observer Observer[E], observerID []any) any {
	if len(observerID) > 0 {
		return observerID[0]
	}
	return reflect.ValueOf(observer).Pointer()
}
