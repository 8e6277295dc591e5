package stream

import (
	"strings"
	"sync"
	"time"

	"github.com/bytebank/backend/internal/pubsub"
	"github.com/bytebank/backend/internal/transaction"
)

// DefaultSearchDebounce is how long the search term must be stable
// before the filter runs.
const DefaultSearchDebounce = 300 * time.Millisecond

// Search is a debounced projection over the stream's base list. Terms
// fed through Update are debounced, a settled term equal to the last
// applied one is suppressed, and matching is a case-insensitive
// substring test against description or category. Results re-evaluate
// when the base list changes, using the last settled term.
type Search struct {
	mu         sync.Mutex
	debounce   time.Duration
	timer      *time.Timer
	pending    string
	applied    string
	hasApplied bool
	base       []*transaction.Transaction

	results    *pubsub.Topic[[]*transaction.Transaction]
	cancelList func()
}

// NewSearch creates a search projection bound to the stream. A
// non-positive debounce falls back to DefaultSearchDebounce.
func (s *Stream) NewSearch(debounce time.Duration) *Search {
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}

	sr := &Search{
		debounce: debounce,
		results:  pubsub.New[[]*transaction.Transaction](),
	}
	sr.cancelList = s.SubscribeAll(sr.onList)

	return sr
}

// Update feeds one search-term keystroke. The filter does not run until
// the term has been stable for the debounce window.
func (sr *Search) Update(term string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.pending = term

	if sr.timer != nil {
		sr.timer.Stop()
	}

	sr.timer = time.AfterFunc(sr.debounce, sr.settle)
}

// Subscribe delivers filtered results; the latest result replays to new
// subscribers. Cancel is idempotent.
func (sr *Search) Subscribe(fn func([]*transaction.Transaction)) func() {
	return sr.results.Subscribe(fn)
}

// Close detaches from the stream and releases subscribers.
func (sr *Search) Close() {
	sr.mu.Lock()

	if sr.timer != nil {
		sr.timer.Stop()
	}
	sr.mu.Unlock()

	sr.cancelList()
	sr.results.Close()
}

func (sr *Search) settle() {
	sr.mu.Lock()

	term := sr.pending
	if sr.hasApplied && term == sr.applied {
		// Unchanged after settling: skip the re-filter entirely.
		sr.mu.Unlock()
		return
	}

	sr.applied = term
	sr.hasApplied = true
	base := sr.base
	sr.mu.Unlock()

	sr.results.Publish(searchFilter(base, term))
}

func (sr *Search) onList(txs []*transaction.Transaction) {
	sr.mu.Lock()

	sr.base = txs

	if !sr.hasApplied {
		sr.mu.Unlock()
		return
	}

	term := sr.applied
	sr.mu.Unlock()

	sr.results.Publish(searchFilter(txs, term))
}

func searchFilter(txs []*transaction.Transaction, term string) []*transaction.Transaction {
	term = strings.ToLower(term)

	return filterTxs(txs, func(tx *transaction.Transaction) bool {
		return strings.Contains(strings.ToLower(tx.Description), term) ||
			strings.Contains(strings.ToLower(tx.Category), term)
	})
}
