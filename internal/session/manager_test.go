package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebank/backend/internal/session"
	"github.com/bytebank/backend/internal/transaction"
)

// fakeSource records subscriptions and lets tests push snapshots and
// errors as the backend would.
type fakeSource struct {
	onSnapshot func([]*transaction.Transaction)
	onError    func(error)
	cancels    int
	subErr     error
	initial    []*transaction.Transaction
}

func (f *fakeSource) Subscribe(_ context.Context, _ uuid.UUID, onSnapshot func([]*transaction.Transaction), onError func(error)) (func(), error) {
	if f.subErr != nil {
		return nil, f.subErr
	}

	f.onSnapshot = onSnapshot
	f.onError = onError
	onSnapshot(f.initial)

	return func() { f.cancels++ }, nil
}

func TestManager_BeginFeedsStreamFromSnapshots(t *testing.T) {
	src := &fakeSource{initial: []*transaction.Transaction{
		{ID: uuid.New(), Type: transaction.TypeDeposit, Amount: 100},
	}}
	m := session.NewManager(src)

	userID := uuid.New()

	st, err := m.Begin(context.Background(), userID)
	require.NoError(t, err)

	defer m.End(userID)

	// Initial snapshot already delivered; loading cleared.
	assert.Len(t, st.Current(), 1)
	assert.False(t, st.Loading())

	src.onSnapshot([]*transaction.Transaction{
		{ID: uuid.New(), Type: transaction.TypeDeposit, Amount: 100},
		{ID: uuid.New(), Type: transaction.TypePayment, Amount: 40},
	})

	assert.Len(t, st.Current(), 2)
}

func TestManager_BeginIsIdempotentPerUser(t *testing.T) {
	src := &fakeSource{}
	m := session.NewManager(src)

	userID := uuid.New()

	first, err := m.Begin(context.Background(), userID)
	require.NoError(t, err)

	defer m.End(userID)

	second, err := m.Begin(context.Background(), userID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestManager_BeginSubscribeFailure(t *testing.T) {
	src := &fakeSource{subErr: errors.New("backend down")}
	m := session.NewManager(src)

	_, err := m.Begin(context.Background(), uuid.New())
	require.Error(t, err)

	_, active := m.Stream(uuid.New())
	assert.False(t, active)
}

func TestManager_UpstreamErrorsSurfaceOnStream(t *testing.T) {
	src := &fakeSource{}
	m := session.NewManager(src)

	userID := uuid.New()

	st, err := m.Begin(context.Background(), userID)
	require.NoError(t, err)

	defer m.End(userID)

	boom := errors.New("subscription channel broke")
	src.onError(boom)

	assert.Same(t, boom, st.Err())
}

func TestManager_EndCancelsAndForgetsSession(t *testing.T) {
	src := &fakeSource{}
	m := session.NewManager(src)

	userID := uuid.New()

	_, err := m.Begin(context.Background(), userID)
	require.NoError(t, err)

	m.End(userID)
	m.End(userID) // no-op

	assert.Equal(t, 1, src.cancels)

	_, active := m.Stream(userID)
	assert.False(t, active)
}

func TestManager_Shutdown(t *testing.T) {
	src := &fakeSource{}
	m := session.NewManager(src)

	a := uuid.New()
	b := uuid.New()

	_, err := m.Begin(context.Background(), a)
	require.NoError(t, err)
	_, err = m.Begin(context.Background(), b)
	require.NoError(t, err)

	m.Shutdown()

	_, activeA := m.Stream(a)
	_, activeB := m.Stream(b)
	assert.False(t, activeA)
	assert.False(t, activeB)
}
