// Package session ties authentication to stream lifecycle: a user's
// transaction stream is constructed on login, fed by the repository's
// real-time subscription, and torn down on logout.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bytebank/backend/internal/transaction"
	"github.com/bytebank/backend/internal/transaction/stream"
)

// Source is the real-time snapshot feed a session subscribes to.
type Source interface {
	Subscribe(ctx context.Context, userID uuid.UUID, onSnapshot func([]*transaction.Transaction), onError func(error)) (func(), error)
}

type session struct {
	stream *stream.Stream
	cancel func()
}

type Manager struct {
	mu       sync.Mutex
	source   Source
	sessions map[uuid.UUID]*session
}

func NewManager(source Source) *Manager {
	return &Manager{
		source:   source,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Begin constructs the user's stream and wires the snapshot
// subscription into it. Calling Begin for an already-active user
// returns the existing stream.
func (m *Manager) Begin(ctx context.Context, userID uuid.UUID) (*stream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s.stream, nil
	}

	st := stream.New()
	st.SetLoading(true)

	cancel, err := m.source.Subscribe(ctx, userID,
		func(txs []*transaction.Transaction) {
			st.ReplaceAll(txs)
			st.SetLoading(false)
		},
		st.Fail,
	)
	if err != nil {
		st.Dispose()
		return nil, fmt.Errorf("subscribing session: %w", err)
	}

	m.sessions[userID] = &session{stream: st, cancel: cancel}

	return st, nil
}

// Stream returns the live stream for a user, if a session is active.
func (m *Manager) Stream(userID uuid.UUID) (*stream.Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}

	return s.stream, true
}

// End cancels the subscription, clears and disposes the stream. Safe to
// call for a user with no active session.
func (m *Manager) End(userID uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if !ok {
		return
	}

	s.cancel()
	s.stream.Clear()
	s.stream.Dispose()
}

// Shutdown ends every active session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.sessions))

	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.End(id)
	}
}
