package wgtunnel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitInterfaceUpIgnoresEarlierNotification(t *testing.T) {
	events := make(chan Event, 2)
	events <- Event{Kind: EventInterfaceUp}
	events <- Event{Kind: EventUp, Metadata: InterfaceMetadata{Name: "wg0", MTU: EntryMTU}}

	meta, err := WaitInterfaceUp(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, "wg0", meta.Name)
}

func TestWaitInterfaceUpAuthFailed(t *testing.T) {
	events := make(chan Event, 1)
	events <- Event{Kind: EventAuthFailed}
	_, err := WaitInterfaceUp(context.Background(), events)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestWaitInterfaceUpDown(t *testing.T) {
	events := make(chan Event, 1)
	events <- Event{Kind: EventDown}
	_, err := WaitInterfaceUp(context.Background(), events)
	assert.ErrorIs(t, err, ErrInterfaceDown)
}

func TestWaitInterfaceUpChannelClosed(t *testing.T) {
	events := make(chan Event)
	close(events)
	_, err := WaitInterfaceUp(context.Background(), events)
	assert.ErrorIs(t, err, ErrEventTunnelClose)
}
