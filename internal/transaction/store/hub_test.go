package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/bytebank/backend/internal/transaction"
)

func TestHub_DeliversOnlyToOwningUser(t *testing.T) {
	h := newHub()
	alice := uuid.New()
	bob := uuid.New()

	var aliceGot, bobGot int

	cancelA := h.add(alice, func([]*transaction.Transaction) { aliceGot++ }, func(error) {})
	defer cancelA()

	cancelB := h.add(bob, func([]*transaction.Transaction) { bobGot++ }, func(error) {})
	defer cancelB()

	h.deliver(alice, nil)

	assert.Equal(t, 1, aliceGot)
	assert.Zero(t, bobGot)
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	h := newHub()
	user := uuid.New()

	got := 0
	cancel := h.add(user, func([]*transaction.Transaction) { got++ }, func(error) {})

	h.deliver(user, nil)
	cancel()
	cancel()
	h.deliver(user, nil)

	assert.Equal(t, 1, got)
	assert.False(t, h.active(user))
}

func TestHub_FailReachesErrorCallback(t *testing.T) {
	h := newHub()
	user := uuid.New()

	var got error

	cancel := h.add(user, func([]*transaction.Transaction) {}, func(err error) { got = err })
	defer cancel()

	boom := errors.New("channel broke")
	h.fail(user, boom)

	assert.Same(t, boom, got)
}
