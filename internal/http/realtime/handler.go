// Package realtime pushes transaction stream updates to browser clients
// over a websocket. Stream callbacks fire on whichever goroutine mutated
// the stream, so every event is funneled through a buffered channel into
// a single writer goroutine; gorilla/websocket allows at most one
// concurrent writer per connection.
package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bytebank/backend/internal/auth"
	txhttp "github.com/bytebank/backend/internal/http/transaction"
	"github.com/bytebank/backend/internal/session"
	"github.com/bytebank/backend/internal/transaction"
)

const writeTimeout = 10 * time.Second

type Handler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
}

func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

type event struct {
	Event        string                  `json:"event"`
	Transactions []txhttp.Response       `json:"transactions,omitempty"`
	Transaction  *txhttp.Response        `json:"transaction,omitempty"`
	Summary      *txhttp.SummaryResponse `json:"summary,omitempty"`
	Loading      *bool                   `json:"loading,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	st, ok := h.sessions.Stream(userID)
	if !ok {
		http.Error(w, "no active session", http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	out := make(chan event, 64)
	done := make(chan struct{})

	// Stream callbacks run while the stream's mutation lock is held, so
	// send must never block. When a slow peer fills the buffer the event
	// is dropped; the next snapshot supersedes anything missed.
	send := func(ev event) {
		select {
		case out <- ev:
		default:
		}
	}

	cancels := []func(){
		st.SubscribeAll(func(txs []*transaction.Transaction) {
			send(event{Event: "snapshot", Transactions: txhttp.ToResponseList(txs)})
		}),
		st.SubscribeSummary(func(s transaction.Summary) {
			resp := txhttp.ToSummaryResponse(s)
			send(event{Event: "summary", Summary: &resp})
		}),
		st.SubscribeArrivals(func(tx *transaction.Transaction) {
			resp := txhttp.ToResponse(tx)
			send(event{Event: "arrival", Transaction: &resp})
		}),
		st.SubscribeLoading(func(v bool) {
			send(event{Event: "loading", Loading: &v})
		}),
		st.SubscribeError(func(err error) {
			if err == nil {
				return
			}

			send(event{Event: "error", Error: err.Error()})
		}),
	}

	teardown := func() {
		for _, cancel := range cancels {
			cancel()
		}

		conn.Close()
	}

	// Reader loop: we never expect client messages, but reading is the
	// only way to learn the peer closed the connection.
	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer teardown()

		for {
			select {
			case ev := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
}
