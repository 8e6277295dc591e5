package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebank/backend/internal/auth"
	"github.com/bytebank/backend/internal/http/realtime"
	"github.com/bytebank/backend/internal/session"
	"github.com/bytebank/backend/internal/transaction"
	"github.com/bytebank/backend/internal/transaction/stream"
)

// staticSource delivers one snapshot at subscribe time and nothing
// after; local stream mutations drive the rest of each test.
type staticSource struct {
	initial []*transaction.Transaction
}

func (s *staticSource) Subscribe(_ context.Context, _ uuid.UUID, onSnapshot func([]*transaction.Transaction), _ func(error)) (func(), error) {
	onSnapshot(s.initial)
	return func() {}, nil
}

type wsEvent struct {
	Event       string `json:"event"`
	Transaction *struct {
		Description string `json:"description"`
	} `json:"transaction"`
}

func newWSServer(t *testing.T, sessions *session.Manager, tokens *auth.Tokens) string {
	t.Helper()

	r := chi.NewRouter()
	r.With(auth.Middleware(tokens)).Get("/ws", realtime.NewHandler(sessions).ServeHTTP)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialWS(t *testing.T, initial []*transaction.Transaction) (*stream.Stream, *websocket.Conn) {
	t.Helper()

	sessions := session.NewManager(&staticSource{initial: initial})
	tokens := auth.NewTokens("realtime-test-secret", time.Hour)
	userID := uuid.New()

	st, err := sessions.Begin(context.Background(), userID)
	require.NoError(t, err)
	t.Cleanup(func() { sessions.End(userID) })

	url := newWSServer(t, sessions, tokens)

	token, err := tokens.Issue(userID)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return st, conn
}

// readUntil consumes events until one matches name, returning it along
// with the set of event names seen on the way.
func readUntil(t *testing.T, conn *websocket.Conn, name string) (wsEvent, map[string]bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	seen := map[string]bool{}

	for time.Now().Before(deadline) {
		var ev wsEvent
		require.NoError(t, conn.ReadJSON(&ev))

		seen[ev.Event] = true

		if ev.Event == name {
			return ev, seen
		}
	}

	t.Fatalf("no %q event before deadline (saw %v)", name, seen)

	return wsEvent{}, nil
}

func TestHandler_PushesStreamEvents(t *testing.T) {
	opening := &transaction.Transaction{
		ID:          uuid.New(),
		Type:        transaction.TypeDeposit,
		Amount:      100,
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Description: "Opening deposit",
	}

	st, conn := dialWS(t, []*transaction.Transaction{opening})

	// The loading subscription registers after arrivals, so seeing its
	// replay means the arrival subscription is live.
	_, seen := readUntil(t, conn, "loading")
	assert.True(t, seen["snapshot"])
	assert.True(t, seen["summary"])

	st.InsertLocal(&transaction.Transaction{
		ID:          uuid.New(),
		Type:        transaction.TypePayment,
		Amount:      40,
		Date:        time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Description: "Coffee",
	})

	arrival, _ := readUntil(t, conn, "arrival")
	require.NotNil(t, arrival.Transaction)
	assert.Equal(t, "Coffee", arrival.Transaction.Description)
}

func TestHandler_SlowPeerDoesNotBlockStreamMutations(t *testing.T) {
	st, _ := dialWS(t, nil)

	// The connection is never read from: once the outbound buffer
	// fills, further events must be dropped rather than wedging the
	// stream's mutation path.
	done := make(chan struct{})

	go func() {
		defer close(done)

		for i := range 500 {
			st.InsertLocal(&transaction.Transaction{
				ID:          uuid.New(),
				Type:        transaction.TypeDeposit,
				Amount:      int64(i + 1),
				Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Description: "bulk entry",
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream mutations blocked behind an unread websocket")
	}
}

func TestHandler_RejectsWithoutActiveSession(t *testing.T) {
	sessions := session.NewManager(&staticSource{})
	tokens := auth.NewTokens("realtime-test-secret", time.Hour)

	url := newWSServer(t, sessions, tokens)

	token, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.Error(t, err)
	require.NotNil(t, resp)

	if conn != nil {
		conn.Close()
	}

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
