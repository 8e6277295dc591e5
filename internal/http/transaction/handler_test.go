package transaction_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bytebank/backend/internal/auth"
	txhttp "github.com/bytebank/backend/internal/http/transaction"
	"github.com/bytebank/backend/internal/session"
	"github.com/bytebank/backend/internal/transaction"
)

func TestHandler_Update_StreamsPersistedValues(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	stored := &transaction.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        transaction.TypePayment,
		Amount:      400,
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Description: "electricity",
		Category:    "utilities",
	}

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().
		Subscribe(gomock.Any(), userID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, onSnapshot func([]*transaction.Transaction), _ func(error)) (func(), error) {
			onSnapshot([]*transaction.Transaction{stored})
			return func() {}, nil
		})
	// Once for the ownership check, once inside Update.
	repo.EXPECT().GetTransaction(gomock.Any(), stored.ID).Return(stored, nil).Times(2)
	repo.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	svc := transaction.NewService(repo)
	sessions := session.NewManager(svc)
	tokens := auth.NewTokens("handler-test-secret", time.Hour)

	st, err := sessions.Begin(context.Background(), userID)
	require.NoError(t, err)

	defer sessions.End(userID)

	r := chi.NewRouter()
	r.Use(auth.Middleware(tokens))
	r.Route("/transactions", txhttp.NewHandler(svc, sessions, nil).Routes)

	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := tokens.Issue(userID)
	require.NoError(t, err)

	body := strings.NewReader(`{"description":"  Paid electricity  "}`)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/transactions/"+stored.ID.String(), body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The optimistic view carries the trimmed value the service stored,
	// not the padded request input.
	got := st.Current()
	require.Len(t, got, 1)
	assert.Equal(t, "Paid electricity", got[0].Description)
	assert.Equal(t, "utilities", got[0].Category)
}
