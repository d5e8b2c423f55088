package iprconnect

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixnetclient"
)

// ConnectTimeout is the hard deadline for a connect reply. It is a timer,
// not a cancellation: an outer context cancellation still wins immediately
// and releases the mixnet lock.
const ConnectTimeout = 5 * time.Second

// Client performs the IPR connect handshake.
type Client struct {
	shared *mixnetclient.SharedMixnetClient
}

// New binds the handshake client to the shared mixnet client it will hold
// the lock on for the duration of Connect.
func New(shared *mixnetclient.SharedMixnetClient) *Client {
	return &Client{shared: shared}
}

// newRequestID draws a cryptographically random 64-bit id. Collisions
// across concurrently live clients are not protected against.
func newRequestID() (uint64, error) {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("iprconnect: generate request id: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Connect executes the full request/reply handshake against iprAddress and
// returns the IpPair the client should configure on its TUN device. ips, if
// non-nil, requests static allocation; nil requests dynamic allocation.
func (c *Client) Connect(ctx context.Context, iprAddress string, ips *IpPair, twoHop bool) (IpPair, error) {
	session, unlock, err := c.shared.Lock()
	if err != nil {
		return IpPair{}, fmt.Errorf("iprconnect: %w", err)
	}
	defer unlock()

	ourAddress, err := session.NymAddress(ctx)
	if err != nil {
		return IpPair{}, fmt.Errorf("iprconnect: read own nym address: %w", err)
	}

	requestID, err := newRequestID()
	if err != nil {
		return IpPair{}, err
	}

	req := Request{RequestID: requestID, ReplyTo: ourAddress, EnableTwoHop: twoHop}
	if ips != nil {
		req.Kind = RequestStatic
		req.StaticIPs = *ips
	} else {
		req.Kind = RequestDynamic
	}

	body, err := req.Encode()
	if err != nil {
		return IpPair{}, err
	}
	if err := session.Send(ctx, iprAddress, body, mixnetclient.LaneGeneral, req.Hops()); err != nil {
		return IpPair{}, fmt.Errorf("iprconnect: send connect request: %w", err)
	}

	deadline := time.NewTimer(ConnectTimeout)
	defer deadline.Stop()
	inbound := session.Inbound()

	for {
		select {
		case <-ctx.Done():
			return IpPair{}, ctx.Err()

		case <-deadline.C:
			return IpPair{}, ErrTimeoutWaitingForConnectResponse

		case msg, ok := <-inbound:
			if !ok {
				return IpPair{}, ErrNoMixnetMessagesReceived
			}
			resp, matched, err := c.evaluate(ctx, msg.Payload, requestID)
			if err != nil {
				return IpPair{}, err
			}
			if !matched {
				continue
			}
			return c.dispatch(resp, req)
		}
	}
}

// evaluate applies the version check first, then best-effort
// deserialization, then correlation-id matching. It returns matched==false
// for anything that should be silently ignored rather than failing the
// handshake (self-pings, unrelated traffic, stale correlation ids).
func (c *Client) evaluate(ctx context.Context, raw []byte, requestID uint64) (Response, bool, error) {
	if len(raw) < 1 {
		return Response{}, false, nil
	}
	version := raw[0]
	if version > CurrentVersion {
		return Response{}, false, &VersionMismatchError{Expected: CurrentVersion, Received: version, Newer: true}
	}
	if version < CurrentVersion {
		return Response{}, false, &VersionMismatchError{Expected: CurrentVersion, Received: version, Newer: false}
	}

	resp, err := Decode(raw)
	if err != nil {
		dlog.Debugf(ctx, "iprconnect: ignoring undecodable mixnet message: %v", err)
		return Response{}, false, nil
	}
	if resp.correlationID() != requestID {
		dlog.Debugf(ctx, "iprconnect: ignoring reply for request %d (waiting for %d)", resp.correlationID(), requestID)
		return Response{}, false, nil
	}
	return resp, true, nil
}

// dispatch resolves a matched response against the original request kind.
func (c *Client) dispatch(resp Response, req Request) (IpPair, error) {
	switch {
	case req.Kind == RequestStatic && resp.Kind == ReplyStatic:
		if resp.ReplyTo != req.ReplyTo {
			return IpPair{}, ErrReplyForWrongAddress
		}
		if !resp.Success {
			return IpPair{}, &DeniedError{Reason: resp.FailReason, Static: true}
		}
		return req.StaticIPs, nil

	case req.Kind == RequestDynamic && resp.Kind == ReplyDynamic:
		if resp.ReplyTo != req.ReplyTo {
			return IpPair{}, ErrReplyForWrongAddress
		}
		if !resp.Success {
			return IpPair{}, &DeniedError{Reason: resp.FailReason, Static: false}
		}
		return resp.AssignedIPs, nil

	default:
		return IpPair{}, ErrUnexpectedResponse
	}
}
