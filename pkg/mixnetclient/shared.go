package mixnetclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/datawire/dlib/dlog"
)

// SharedMixnetClient is the single-owner, multi-holder wrapper around a live
// mixnet session. At most one Session ever lives in it; disconnect moves
// the Session out and leaves the slot empty (take-to-disconnect). All
// holders serialize on mu so that the handshake in pkg/iprconnect can hold
// the lock across the entire reply wait without another subsystem stealing
// a message off the inbound stream.
type SharedMixnetClient struct {
	mu      sync.Mutex
	session Session
}

// New wraps an already-connected Session.
func New(session Session) *SharedMixnetClient {
	return &SharedMixnetClient{session: session}
}

// errNoSession is returned by operations invoked after disconnect. It is a
// programming error for every caller except the disconnect path itself,
// which must treat it as an idempotent no-op.
var errNoSession = fmt.Errorf("mixnet client: no session held (already disconnected)")

// Lock acquires the exclusive-access primitive and returns the live Session,
// along with an unlock function the caller must invoke exactly once. Callers
// that need to hold the lock across a suspension point (the IPR handshake)
// use this directly instead of NymAddress/Send.
func (s *SharedMixnetClient) Lock() (Session, func(), error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, func() {}, errNoSession
	}
	return s.session, s.mu.Unlock, nil
}

// NymAddress returns the session's own recipient address.
func (s *SharedMixnetClient) NymAddress(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return "", errNoSession
	}
	return s.session.NymAddress(ctx)
}

// Send transmits a message through the held session.
func (s *SharedMixnetClient) Send(ctx context.Context, recipient string, payload []byte, lane TransmissionLane, hops *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return errNoSession
	}
	return s.session.Send(ctx, recipient, payload, lane, hops)
}

// SplitSender returns a bound send function, letting a caller (e.g. the
// authenticator client) send without re-deriving the recipient each time.
func (s *SharedMixnetClient) SplitSender() func(ctx context.Context, recipient string, payload []byte) error {
	return func(ctx context.Context, recipient string, payload []byte) error {
		return s.Send(ctx, recipient, payload, LaneGeneral, nil)
	}
}

// Inner hands the underlying Session to an adjacent subsystem (the
// authenticator client) as a capability loan, not a transfer of ownership:
// the caller must not call Disconnect on what it gets back.
func (s *SharedMixnetClient) Inner() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, errNoSession
	}
	return s.session, nil
}

// Disconnect atomically takes the session out of the shared slot and
// disconnects it. Safe to call more than once; the second call is a no-op.
func (s *SharedMixnetClient) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return nil
	}
	dlog.Debug(ctx, "disconnecting shared mixnet client")
	return session.Disconnect(ctx)
}
