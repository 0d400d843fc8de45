package perception

import (
	"log"
	"sync"
)

// Subscription is one consumer of a feed. Close detaches it and closes C.
type Subscription[T any] struct {
	C <-chan T

	f  *feed[T]
	id int
}

func (s *Subscription[T]) Close() {
	if s == nil || s.f == nil {
		return
	}
	s.f.remove(s.id)
}

type feed[T any] struct {
	name string
	log  *log.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan T
}

func newFeed[T any](name string, logger *log.Logger) *feed[T] {
	return &feed[T]{name: name, log: logger, subs: map[int]chan T{}}
}

func (f *feed[T]) subscribe(buf int) *Subscription[T] {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan T, buf)
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = ch
	f.mu.Unlock()
	return &Subscription[T]{C: ch, f: f, id: id}
}

func (f *feed[T]) remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

// publish never blocks; a full subscriber misses the event.
func (f *feed[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- v:
		default:
			if f.log != nil {
				f.log.Printf("%s feed: subscriber %d full, event dropped", f.name, id)
			}
		}
	}
}

func (f *feed[T]) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

func (f *feed[T]) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
