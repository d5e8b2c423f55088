// Package mixnetclient implements a single-owner, multi-holder wrapper
// around a live Nym mixnet session (SharedMixnetClient) plus the
// long-running BandwidthController that tears it down on shutdown.
package mixnetclient

import "context"

// TransmissionLane mirrors the mixnet client's lane selection; only General
// is used by the connect handshake.
type TransmissionLane int

const (
	LaneGeneral TransmissionLane = iota
)

// InboundMessage is one message delivered from the mixnet's reply stream.
type InboundMessage struct {
	Payload []byte
}

// Session is the capability this core is handed by the out-of-scope Nym
// mixnet client process. It is intentionally narrow: framing, crypto, and
// Sphinx routing all live on the other side of this interface.
type Session interface {
	// NymAddress returns this session's own recipient address, e.g. for use
	// as a connect request's reply_to.
	NymAddress(ctx context.Context) (string, error)

	// Send transmits payload to recipient over lane, honoring a two-hop
	// override when hops is non-nil: hops = Some(0) iff two-hop routing is
	// requested.
	Send(ctx context.Context, recipient string, payload []byte, lane TransmissionLane, hops *int) error

	// Inbound returns the channel of messages arriving on this session's
	// reply stream. It is single-consumer: reading from it concurrently
	// from two goroutines would interleave the handshake's reply wait with
	// unrelated traffic.
	Inbound() <-chan InboundMessage

	// Disconnect tears the session down. Must be idempotent.
	Disconnect(ctx context.Context) error
}
