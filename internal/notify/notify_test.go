package notify

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"kasirinaja/desktop/internal/domain"
)

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, domain.Notice) error {
	return errors.New("offline")
}

func sampleNotice() domain.Notice {
	return domain.Notice{
		Kind:    domain.NoticePaymentFailed,
		Message: "payment was not recorded",
		Detail:  "sale 1001",
		At:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestQueueDrainsInOrder(t *testing.T) {
	q := NewQueue()
	first := sampleNotice()
	second := sampleNotice()
	second.Kind = domain.NoticeSessionExpired

	require.NoError(t, q.Notify(context.Background(), first))
	require.NoError(t, q.Notify(context.Background(), second))
	assert.Equal(t, 2, q.Len())

	drained := q.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, domain.NoticePaymentFailed, drained[0].Kind)
	assert.Equal(t, domain.NoticeSessionExpired, drained[1].Kind)
	assert.Empty(t, q.Drain())
}

func TestLogNotifierWritesWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), sampleNotice()))

	entries := logs.FilterMessage("payment was not recorded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.NoticePaymentFailed, entries[0].ContextMap()["notice"])
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	q := NewQueue()
	m := Multi{failingNotifier{}, nil, q, NoopNotifier{}}

	err := m.Notify(context.Background(), sampleNotice())
	assert.Error(t, err)
	assert.Equal(t, 1, q.Len())
}

func TestRedisNotifierPublishes(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n := NewRedisNotifier(addr, os.Getenv("REDIS_PASSWORD"), 0, "kasirinaja:test-notices")
	defer n.Close()
	require.NoError(t, n.Ping(ctx))

	sub := n.client.Subscribe(ctx, "kasirinaja:test-notices")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, n.Notify(ctx, sampleNotice()))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got domain.Notice
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, domain.NoticePaymentFailed, got.Kind)
	assert.Equal(t, "sale 1001", got.Detail)
}
