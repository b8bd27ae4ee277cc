package escrow

import "sync"

// escrowLocks serializes the units of work touching the same escrow within
// this process. Entries are dropped once nobody holds or waits for them.
type escrowLocks struct {
	lock  *sync.Mutex
	locks map[string]*escrowLock
}

type escrowLock struct {
	mu      sync.Mutex
	holders int
}

func newEscrowLocks() *escrowLocks {
	return &escrowLocks{
		lock:  &sync.Mutex{},
		locks: make(map[string]*escrowLock),
	}
}

// acquire blocks until the lock of escrowID is held and returns the func
// releasing it.
func (l *escrowLocks) acquire(escrowID string) func() {
	l.lock.Lock()
	el, ok := l.locks[escrowID]
	if !ok {
		el = &escrowLock{}
		l.locks[escrowID] = el
	}
	el.holders++
	l.lock.Unlock()

	el.mu.Lock()
	return func() {
		el.mu.Unlock()

		l.lock.Lock()
		defer l.lock.Unlock()
		el.holders--
		if el.holders == 0 {
			delete(l.locks, escrowID)
		}
	}
}

func (l *escrowLocks) size() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.locks)
}
