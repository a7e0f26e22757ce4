package store

import "sync"

// Change tells subscribers which part of the store moved.
type Change int

const (
	TradesChanged Change = iota + 1
	BalanceChanged
)

func (c Change) String() string {
	switch c {
	case TradesChanged:
		return "trades"
	case BalanceChanged:
		return "balance"
	}
	return "unknown"
}

const subscriberBuffer = 8

type subscribers struct {
	mu     sync.Mutex
	next   int
	chans  map[int]chan Change
	closed bool
}

func newSubscribers() *subscribers {
	return &subscribers{chans: make(map[int]chan Change)}
}

func (s *subscribers) add() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Change, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.next
	s.next++
	s.chans[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.chans[id]; ok {
				delete(s.chans, id)
				close(c)
			}
		})
	}
}

func (s *subscribers) publish(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.chans {
		select {
		case ch <- c:
		default:
		}
	}
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.chans {
		delete(s.chans, id)
		close(ch)
	}
}
