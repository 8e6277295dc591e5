// Package stream maintains an observable in-process view of one user's
// transactions, fed by the repository's real-time snapshot subscription
// and by optimistic local updates. Derived projections (by type, by
// category, by period, recent-N, summary, debounced search, arrival
// events) recompute from the base list on every change.
//
// A Stream is constructed per authenticated session and disposed on
// sign-out; there is no package-level instance.
package stream

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bytebank/backend/internal/pubsub"
	"github.com/bytebank/backend/internal/transaction"
)

type Stream struct {
	// mu serializes all state mutation, including the publishes that
	// follow it, so every subscriber observes each snapshot whole.
	// Subscriber callbacks must not call mutating methods.
	mu      sync.Mutex
	prevLen int

	list     *pubsub.Topic[[]*transaction.Transaction]
	summary  *pubsub.Topic[transaction.Summary]
	loading  *pubsub.Topic[bool]
	errs     *pubsub.Topic[error]
	arrivals *pubsub.Topic[*transaction.Transaction]
}

func New() *Stream {
	return &Stream{
		list:     pubsub.New[[]*transaction.Transaction](),
		summary:  pubsub.New[transaction.Summary](),
		loading:  pubsub.New[bool](),
		errs:     pubsub.New[error](),
		arrivals: pubsub.NewEvents[*transaction.Transaction](),
	}
}

// ReplaceAll atomically replaces the current list with the given
// snapshot. An empty snapshot means "no transactions", not "unknown";
// the loading flag is tracked separately. Any optimistic local edits
// are forgotten: the snapshot is authoritative.
func (s *Stream) ReplaceAll(txs []*transaction.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txs == nil {
		txs = []*transaction.Transaction{}
	}

	s.publish(txs)
}

// InsertLocal prepends one transaction ahead of backend confirmation.
// It does not deduplicate; the next authoritative snapshot overwrites.
func (s *Stream) InsertLocal(tx *transaction.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current()
	next := make([]*transaction.Transaction, 0, len(cur)+1)
	next = append(next, tx)
	next = append(next, cur...)

	s.publish(next)
}

// PatchLocal applies a partial update to the entry matching id. The
// matched entry is copied, never mutated in place. No-op if id is not
// present.
func (s *Stream) PatchLocal(id uuid.UUID, patch transaction.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current()

	matched := false
	next := make([]*transaction.Transaction, len(cur))

	for i, tx := range cur {
		if tx.ID != id {
			next[i] = tx
			continue
		}

		matched = true
		patched := *tx

		if patch.Type != nil {
			patched.Type = *patch.Type
		}

		if patch.Amount != nil {
			patched.Amount = *patch.Amount
		}

		if patch.Date != nil {
			patched.Date = *patch.Date
		}

		if patch.Description != nil {
			patched.Description = *patch.Description
		}

		if patch.Category != nil {
			patched.Category = *patch.Category
		}

		if patch.ReceiptURL != nil {
			patched.ReceiptURL = *patch.ReceiptURL
		}

		next[i] = &patched
	}

	if !matched {
		return
	}

	s.publish(next)
}

// RemoveLocal filters out the entry matching id. No-op if absent.
func (s *Stream) RemoveLocal(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current()

	next := make([]*transaction.Transaction, 0, len(cur))

	for _, tx := range cur {
		if tx.ID != id {
			next = append(next, tx)
		}
	}

	if len(next) == len(cur) {
		return
	}

	s.publish(next)
}

// SetLoading records whether a snapshot is still in flight. Owned by
// the subscription adapter, never inferred from list emptiness.
func (s *Stream) SetLoading(v bool) {
	s.loading.Publish(v)
}

// Fail records and republishes an upstream subscription error as-is.
// The stream does not retry; resubscribing is the caller's decision.
func (s *Stream) Fail(err error) {
	s.errs.Publish(err)
}

// Clear resets list, loading and error, as on sign-out. The error
// state is forgotten rather than published: error subscribers only ever
// receive non-nil errors.
func (s *Stream) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prevLen = 0
	s.list.Publish([]*transaction.Transaction{})
	s.summary.Publish(transaction.Summary{})
	s.loading.Publish(false)
	s.errs.Reset()
}

// Dispose releases all subscribers. Using the stream afterwards is
// undefined.
func (s *Stream) Dispose() {
	s.list.Close()
	s.summary.Close()
	s.loading.Close()
	s.errs.Close()
	s.arrivals.Close()
}

// current returns the latest snapshot. Callers must hold s.mu.
func (s *Stream) current() []*transaction.Transaction {
	cur, _ := s.list.Last()
	return cur
}

// publish emits the new base list and everything derived from it.
// Callers must hold s.mu. A grown list fires one arrival event,
// carrying the newest entry; length delta is the sole signal, so a
// same-length replacement fires none.
func (s *Stream) publish(next []*transaction.Transaction) {
	grew := len(next) > s.prevLen
	s.prevLen = len(next)

	s.list.Publish(next)
	s.summary.Publish(transaction.Summarize(next))

	if grew && len(next) > 0 {
		s.arrivals.Publish(next[0])
	}
}

// Current returns the latest snapshot for non-reactive callers. The
// returned slice is a copy; its elements are shared.
func (s *Stream) Current() []*transaction.Transaction {
	cur, ok := s.list.Last()
	if !ok {
		return nil
	}

	return slices.Clone(cur)
}

// Loading returns the latest loading flag.
func (s *Stream) Loading() bool {
	v, _ := s.loading.Last()
	return v
}

// Err returns the most recent upstream error, or nil.
func (s *Stream) Err() error {
	err, _ := s.errs.Last()
	return err
}

// SubscribeAll delivers the full list on every change, starting with
// the latest snapshot if one exists. All Subscribe* methods return an
// idempotent cancel func; callers own teardown.
func (s *Stream) SubscribeAll(fn func([]*transaction.Transaction)) func() {
	return s.list.Subscribe(fn)
}

// SubscribeByType delivers the list filtered to one transaction type,
// re-evaluated whenever the base list changes.
func (s *Stream) SubscribeByType(t transaction.Type, fn func([]*transaction.Transaction)) func() {
	return s.list.Subscribe(func(txs []*transaction.Transaction) {
		fn(filterTxs(txs, func(tx *transaction.Transaction) bool {
			return tx.Type == t
		}))
	})
}

// SubscribeByCategory delivers the list filtered by exact category
// match.
func (s *Stream) SubscribeByCategory(category string, fn func([]*transaction.Transaction)) func() {
	return s.list.Subscribe(func(txs []*transaction.Transaction) {
		fn(filterTxs(txs, func(tx *transaction.Transaction) bool {
			return tx.Category == category
		}))
	})
}

// SubscribeByPeriod delivers the list filtered to start <= date <= end,
// inclusive on both ends.
func (s *Stream) SubscribeByPeriod(start, end time.Time, fn func([]*transaction.Transaction)) func() {
	return s.list.Subscribe(func(txs []*transaction.Transaction) {
		fn(filterTxs(txs, func(tx *transaction.Transaction) bool {
			return !tx.Date.Before(start) && !tx.Date.After(end)
		}))
	})
}

// SubscribeRecent delivers the first n entries of the current order,
// without re-sorting.
func (s *Stream) SubscribeRecent(n int, fn func([]*transaction.Transaction)) func() {
	return s.list.Subscribe(func(txs []*transaction.Transaction) {
		if len(txs) > n {
			txs = txs[:n]
		}

		fn(slices.Clone(txs))
	})
}

// SubscribeSummary delivers the recomputed financial summary on every
// base-list change.
func (s *Stream) SubscribeSummary(fn func(transaction.Summary)) func() {
	return s.summary.Subscribe(fn)
}

// SubscribeLoading delivers loading-flag changes.
func (s *Stream) SubscribeLoading(fn func(bool)) func() {
	return s.loading.Subscribe(fn)
}

// SubscribeError delivers upstream errors as reported.
func (s *Stream) SubscribeError(fn func(error)) func() {
	return s.errs.Subscribe(fn)
}

// SubscribeArrivals delivers one event per list growth, carrying the
// transaction at the head of the grown list.
func (s *Stream) SubscribeArrivals(fn func(*transaction.Transaction)) func() {
	return s.arrivals.Subscribe(fn)
}

func filterTxs(txs []*transaction.Transaction, keep func(*transaction.Transaction) bool) []*transaction.Transaction {
	out := make([]*transaction.Transaction, 0, len(txs))

	for _, tx := range txs {
		if keep(tx) {
			out = append(out, tx)
		}
	}

	return out
}
