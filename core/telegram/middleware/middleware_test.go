package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return b
}

func textUpdate(id int, userID int64) tele.Update {
	user := &tele.User{ID: userID, Username: "u"}
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Sender: user,
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   "hello",
		},
	}
}

func TestDedupDropsRepeatedUpdates(t *testing.T) {
	b := offlineBot(t)
	calls := 0
	h := DedupMiddleware(DedupOptions{})(func(tele.Context) error {
		calls++
		return nil
	})

	require.NoError(t, h(b.NewContext(textUpdate(10, 1))))
	require.NoError(t, h(b.NewContext(textUpdate(10, 1))))
	require.NoError(t, h(b.NewContext(textUpdate(11, 1))))
	assert.Equal(t, 2, calls)
}

func TestDedupPassesUpdatesWithoutID(t *testing.T) {
	b := offlineBot(t)
	calls := 0
	h := DedupMiddleware(DedupOptions{})(func(tele.Context) error {
		calls++
		return nil
	})
	require.NoError(t, h(b.NewContext(textUpdate(0, 1))))
	require.NoError(t, h(b.NewContext(textUpdate(0, 1))))
	assert.Equal(t, 2, calls)
}

func TestDedupDisabled(t *testing.T) {
	b := offlineBot(t)
	calls := 0
	h := DedupMiddleware(DedupOptions{Window: -1})(func(tele.Context) error {
		calls++
		return nil
	})
	require.NoError(t, h(b.NewContext(textUpdate(5, 1))))
	require.NoError(t, h(b.NewContext(textUpdate(5, 1))))
	assert.Equal(t, 2, calls)
}

func TestUpdateWindowExpires(t *testing.T) {
	w := newUpdateWindow(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	assert.False(t, w.seenBefore(1))
	assert.True(t, w.seenBefore(1))

	now = now.Add(2 * time.Minute)
	assert.False(t, w.seenBefore(2))
	assert.Equal(t, 1, w.size(), "expired ids are swept")
	assert.False(t, w.seenBefore(1))
}

func TestAdminOnly(t *testing.T) {
	b := offlineBot(t)
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  1,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	passed := 0
	h := mw(func(tele.Context) error { passed++; return nil })

	require.NoError(t, h(b.NewContext(textUpdate(1, 1))))
	require.NoError(t, h(b.NewContext(textUpdate(2, 2))))
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, rejected)
}

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	b := offlineBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	var err error
	assert.NotPanics(t, func() { err = h(b.NewContext(textUpdate(1, 1))) })
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.Contains(t, err.Error(), "boom")

	sentinel := errors.New("x")
	h = RecoverMiddleware(func(tele.Context) error { return sentinel })
	assert.ErrorIs(t, h(b.NewContext(textUpdate(2, 1))), sentinel)
}

func TestMetricsCountersDefault(t *testing.T) {
	b := offlineBot(t)
	var msgs int
	var kb bool
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		msgs, kb = GetCounters(c)
		return nil
	})
	require.NoError(t, h(b.NewContext(textUpdate(1, 1))))
	assert.Zero(t, msgs)
	assert.False(t, kb)
}

func TestMetricsCountQueuedResponses(t *testing.T) {
	b := offlineBot(t)
	var msgs int
	var kb bool
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		c.Set("messages", 2)
		c.Set("kb", true)
		msgs, kb = GetCounters(c)
		return nil
	})
	require.NoError(t, h(b.NewContext(textUpdate(1, 1))))
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}
