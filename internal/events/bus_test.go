package events

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/types"
)

func TestBusPublishStampsCorrelationID(t *testing.T) {
	bus := NewBus(1)
	ctx := context.Background()

	bus.Publish(ctx, types.SyncEvent{Source: types.EventSourceManual, Kind: types.EventUpdate})

	select {
	case ev := <-bus.Events():
		require.NotEmpty(t, ev.CorrelationID)
	case <-time.After(time.Second):
		t.Fatal("expected event on bus")
	}
}

func TestBusPublishPreservesExistingCorrelationID(t *testing.T) {
	bus := NewBus(1)
	ctx := context.Background()

	bus.Publish(ctx, types.SyncEvent{CorrelationID: "fixed-id"})

	ev := <-bus.Events()
	require.Equal(t, "fixed-id", ev.CorrelationID)
}

func TestWebhookSourcePublishesOneEventPerProject(t *testing.T) {
	bus := NewBus(4)
	source := &WebhookSource{Bus: bus}
	ctx := context.Background()

	body := `{"projects":["PROJ","OTHER"]}`
	n, err := source.Handle(ctx, strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := <-bus.Events()
		require.Equal(t, types.EventSourceWebhook, ev.Source)
		seen[ev.ProjectIdentifier] = true
	}
	require.True(t, seen["PROJ"])
	require.True(t, seen["OTHER"])
}

func TestWebhookSourceRejectsEmptyProjectList(t *testing.T) {
	bus := NewBus(1)
	source := &WebhookSource{Bus: bus}
	_, err := source.Handle(context.Background(), strings.NewReader(`{"projects":[]}`))
	require.Error(t, err)
}
