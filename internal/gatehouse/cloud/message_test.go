package cloud_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/cloud"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

func TestDecode_DispatchesByTag(t *testing.T) {
	payload, err := cloud.Encode(cloud.AuthorizationRequest{
		CorrelationKey: "ck-1",
		Kind:           types.DirectionEntry,
		Identifier:     "6399C22F",
		Timestamp:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	msg, err := cloud.Decode(payload)
	require.NoError(t, err)

	req, ok := msg.(cloud.AuthorizationRequest)
	require.True(t, ok, "expected AuthorizationRequest, got %T", msg)
	assert.Equal(t, "ck-1", req.CorrelationKey)
	assert.Equal(t, types.DirectionEntry, req.Kind)
}

func TestDecode_RejectsUnknownTag(t *testing.T) {
	_, err := cloud.Decode([]byte(`{"type":"STATUS:door","payload":{}}`))
	assert.Error(t, err)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := cloud.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestListener_DispatchesCheckoutCompleted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := cloud.NewMemoryChannel()
	got := make(chan cloud.CheckoutCompleted, 1)

	lis := cloud.NewListener(ch, "gatehouse/events", cloud.Handlers{
		CheckoutCompleted: func(_ context.Context, m cloud.CheckoutCompleted) {
			got <- m
		},
	}, zap.NewNop())
	go func() { _ = lis.Run(ctx) }()

	// Give the subscriber a moment to attach.
	time.Sleep(20 * time.Millisecond)

	payload, err := cloud.Encode(cloud.CheckoutCompleted{
		SessionKey: "sess_a",
		TotalCents: 2350,
		Items:      []string{"sku-1"},
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, ch.Publish(ctx, "gatehouse/events", payload))

	select {
	case m := <-got:
		assert.Equal(t, "sess_a", m.SessionKey)
		assert.Equal(t, int64(2350), m.TotalCents)
	case <-time.After(2 * time.Second):
		t.Fatal("checkout event never dispatched")
	}
}

func TestListener_SurvivesGarbageMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := cloud.NewMemoryChannel()
	got := make(chan cloud.CheckoutCompleted, 1)

	lis := cloud.NewListener(ch, "gatehouse/events", cloud.Handlers{
		CheckoutCompleted: func(_ context.Context, m cloud.CheckoutCompleted) {
			got <- m
		},
	}, zap.NewNop())
	go func() { _ = lis.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, ch.Publish(ctx, "gatehouse/events", []byte("garbage")))

	payload, err := cloud.Encode(cloud.CheckoutCompleted{SessionKey: "sess_b"})
	require.NoError(t, err)
	require.NoError(t, ch.Publish(ctx, "gatehouse/events", payload))

	select {
	case m := <-got:
		assert.Equal(t, "sess_b", m.SessionKey)
	case <-time.After(2 * time.Second):
		t.Fatal("listener stopped after a garbage message")
	}
}
