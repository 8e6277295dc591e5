package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/bytebank/backend/internal/transaction"
)

type subscriber struct {
	onSnapshot func([]*transaction.Transaction)
	onError    func(error)
}

// hub fans mutation-driven snapshots out to per-user subscribers.
type hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[int]subscriber
	nextID int
}

func newHub() *hub {
	return &hub{subs: make(map[uuid.UUID]map[int]subscriber)}
}

func (h *hub) add(userID uuid.UUID, onSnapshot func([]*transaction.Transaction), onError func(error)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]subscriber)
	}

	id := h.nextID
	h.nextID++
	h.subs[userID][id] = subscriber{onSnapshot: onSnapshot, onError: onError}

	var once sync.Once

	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.subs[userID], id)

			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
		})
	}
}

func (h *hub) active(userID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs[userID]) > 0
}

func (h *hub) deliver(userID uuid.UUID, txs []*transaction.Transaction) {
	for _, sub := range h.snapshot(userID) {
		sub.onSnapshot(txs)
	}
}

func (h *hub) fail(userID uuid.UUID, err error) {
	for _, sub := range h.snapshot(userID) {
		sub.onError(err)
	}
}

func (h *hub) snapshot(userID uuid.UUID) []subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]subscriber, 0, len(h.subs[userID]))
	for _, sub := range h.subs[userID] {
		out = append(out, sub)
	}

	return out
}
