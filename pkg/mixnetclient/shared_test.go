package mixnetclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	addr         string
	sent         [][]byte
	inbound      chan InboundMessage
	disconnected int
}

func newFakeSession(addr string) *fakeSession {
	return &fakeSession{addr: addr, inbound: make(chan InboundMessage, 4)}
}

func (f *fakeSession) NymAddress(context.Context) (string, error) { return f.addr, nil }

func (f *fakeSession) Send(_ context.Context, _ string, payload []byte, _ TransmissionLane, _ *int) error {
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeSession) Inbound() <-chan InboundMessage { return f.inbound }

func (f *fakeSession) Disconnect(context.Context) error {
	f.disconnected++
	return nil
}

func TestTakeToDisconnect(t *testing.T) {
	f := newFakeSession("client.addr")
	shared := New(f)

	require.NoError(t, shared.Disconnect(context.Background()))
	assert.Equal(t, 1, f.disconnected)

	// Idempotent: a second disconnect does not touch the underlying session again.
	require.NoError(t, shared.Disconnect(context.Background()))
	assert.Equal(t, 1, f.disconnected)

	// Operations after disconnect fail loudly rather than panicking.
	_, err := shared.NymAddress(context.Background())
	assert.ErrorIs(t, err, errNoSession)

	_, _, err = shared.Lock()
	assert.ErrorIs(t, err, errNoSession)
}

func TestLockServializesAccess(t *testing.T) {
	f := newFakeSession("client.addr")
	shared := New(f)

	session, unlock, err := shared.Lock()
	require.NoError(t, err)
	require.Same(t, f, session)

	done := make(chan struct{})
	go func() {
		_, _ = shared.NymAddress(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("NymAddress should block while the handshake lock is held")
	default:
	}
	unlock()
	<-done
}

func TestBandwidthControllerDisconnectsOnShutdown(t *testing.T) {
	f := newFakeSession("client.addr")
	shared := New(f)
	bc := NewBandwidthController(shared)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- bc.Run(ctx) }()

	cancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, 1, f.disconnected)
}
