package notify

import "sync"

// List is an ordered set of handlers for values of type T.
// Emit calls every handler synchronously, in registration order.
type List[T any] struct {
	mu       sync.Mutex
	next     int
	handlers []entry[T]
}

type entry[T any] struct {
	id int
	fn func(T)
}

// Add registers fn and returns a function that removes it again.
// The returned function is safe to call more than once.
func (l *List[T]) Add(fn func(T)) func() {
	l.mu.Lock()
	id := l.next
	l.next++
	l.handlers = append(l.handlers, entry[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *List[T]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.handlers {
		if e.id == id {
			l.handlers = append(l.handlers[:i:i], l.handlers[i+1:]...)
			return
		}
	}
}

// Emit delivers v to every registered handler. Handlers may add or remove
// registrations; such changes take effect from the next Emit.
func (l *List[T]) Emit(v T) {
	l.mu.Lock()
	handlers := make([]entry[T], len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.Unlock()

	for _, e := range handlers {
		e.fn(v)
	}
}
