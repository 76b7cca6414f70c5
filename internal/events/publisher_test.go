package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupPublisher(t *testing.T) (*Publisher, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPublisher(client, zap.NewNop()), client
}

func TestPublisherStatusChanged(t *testing.T) {
	ctx := context.Background()
	pub, client := setupPublisher(t)

	sub := client.Subscribe(ctx, ChannelStatusChanged)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	sent := StatusChanged{
		ProjectID:  "p-1",
		FromStatus: "delivered",
		ToStatus:   "completed",
		ActorType:  "system",
		OccurredAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	pub.StatusChanged(ctx, sent)

	select {
	case msg := <-sub.Channel():
		var got StatusChanged
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestPublisherLedgerPosted(t *testing.T) {
	ctx := context.Background()
	pub, client := setupPublisher(t)

	sub := client.Subscribe(ctx, ChannelLedgerPosted)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub.LedgerPosted(ctx, LedgerPosted{
		WalletID:      "w-1",
		TransactionID: "t-1",
		Type:          "project_earning",
		Status:        "completed",
		AmountCents:   2700,
		ReferenceType: "project",
		ReferenceID:   "p-1",
	})

	select {
	case msg := <-sub.Channel():
		var got LedgerPosted
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, int64(2700), got.AmountCents)
		assert.Equal(t, "t-1", got.TransactionID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestPublisherBestEffort(t *testing.T) {
	ctx := context.Background()

	t.Run("nil client publishes nothing and never panics", func(t *testing.T) {
		pub := NewPublisher(nil, zap.NewNop())
		pub.StatusChanged(ctx, StatusChanged{ProjectID: "p-1"})
		pub.LedgerPosted(ctx, LedgerPosted{WalletID: "w-1"})
	})

	t.Run("dead redis is swallowed", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		mr.Close()

		pub := NewPublisher(client, zap.NewNop())
		pub.StatusChanged(ctx, StatusChanged{ProjectID: "p-1"})
	})
}

func TestPublisherSubscribe(t *testing.T) {
	ctx := context.Background()
	pub, _ := setupPublisher(t)

	sub, err := pub.Subscribe(ctx, ChannelStatusChanged)
	require.NoError(t, err)
	defer sub.Close()

	_, err = NewPublisher(nil, zap.NewNop()).Subscribe(ctx, ChannelStatusChanged)
	assert.Error(t, err)
}
