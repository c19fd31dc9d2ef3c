package docstore

import "sync"

// payload is one delivery to a watcher: either a snapshot or a stream error.
type payload struct {
	docs []Document
	err  error
}

// watcher delivers collection snapshots to a single subscriber. Deliveries
// are serialized on one goroutine, and the channel coalesces: a subscriber
// that falls behind only ever sees the latest snapshot.
type watcher struct {
	ch     chan payload
	stop   chan struct{}
	onData func([]Document)
	onErr  func(error)
}

func (w *watcher) run() {
	for {
		select {
		case <-w.stop:
			return
		case p := <-w.ch:
			if p.err != nil {
				if w.onErr != nil {
					w.onErr(p.err)
				}
				continue
			}
			w.onData(p.docs)
		}
	}
}

// offer queues a delivery without blocking, replacing any undelivered one.
func (w *watcher) offer(p payload) {
	for {
		select {
		case w.ch <- p:
			return
		default:
			select {
			case <-w.ch:
			default:
			}
		}
	}
}

// Watch subscribes to a collection. The current snapshot is delivered
// immediately, then again after every mutation of the collection.
func (s *SQLite) Watch(col string, onData func([]Document), onErr func(error)) func() {
	w := &watcher{
		ch:     make(chan payload, 1),
		stop:   make(chan struct{}),
		onData: onData,
		onErr:  onErr,
	}

	s.mu.Lock()
	s.watchers[col] = append(s.watchers[col], w)
	s.mu.Unlock()

	go w.run()

	docs, err := s.list(col)
	w.offer(payload{docs: docs, err: err})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			active := s.watchers[col]
			for i, other := range active {
				if other == w {
					s.watchers[col] = append(active[:i], active[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
			close(w.stop)
		})
	}
}

// notify pushes a fresh snapshot of col to all of its watchers.
func (s *SQLite) notify(col string) {
	s.mu.Lock()
	active := make([]*watcher, len(s.watchers[col]))
	copy(active, s.watchers[col])
	s.mu.Unlock()

	if len(active) == 0 {
		return
	}
	docs, err := s.list(col)
	for _, w := range active {
		w.offer(payload{docs: docs, err: err})
	}
}
