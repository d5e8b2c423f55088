package mixnetclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/datawire/dlib/dlog"
	"github.com/gorilla/websocket"
)

// wsSession implements Session over the Nym native client's local websocket
// control API (the same JSON request/response shape the native client
// exposes to every language binding: {"type":"selfAddress"},
// {"type":"send",...}, {"type":"received",...}).
type wsSession struct {
	conn *websocket.Conn

	inbound chan InboundMessage

	closeOnce sync.Once
	closed    chan struct{}

	selfOnce sync.Once
	self     string
	selfErr  error
	selfDone chan struct{}
}

type wsRequestSelfAddress struct {
	Type string `json:"type"`
}

type wsRequestSend struct {
	Type         string `json:"type"`
	Recipient    string `json:"recipient"`
	Message      []byte `json:"message"`
	WithReplySur bool   `json:"withReplySurb"`
}

type wsResponse struct {
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
	Message []byte `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Dial connects to the local Nym native client websocket endpoint (by
// default ws://localhost:1977) and blocks until the self-address handshake
// completes.
func Dial(ctx context.Context, uri string) (*SharedMixnetClient, error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("dial nym client at %s: %w", uri, err)
	}

	s := &wsSession{
		conn:     conn,
		inbound:  make(chan InboundMessage, 32),
		closed:   make(chan struct{}),
		selfDone: make(chan struct{}),
	}

	req, _ := json.Marshal(wsRequestSelfAddress{Type: "selfAddress"})
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("request self address: %w", err)
	}

	go s.readLoop(ctx)

	select {
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	case <-s.selfDone:
	}
	if s.selfErr != nil {
		conn.Close()
		return nil, s.selfErr
	}

	return New(s), nil
}

func (s *wsSession) readLoop(ctx context.Context) {
	defer s.markClosed()
	defer close(s.inbound)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			dlog.Errorf(ctx, "mixnet websocket read error: %v", err)
			return
		}
		var resp wsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			dlog.Errorf(ctx, "mixnet websocket: malformed frame: %v", err)
			continue
		}
		switch resp.Type {
		case "selfAddress":
			s.selfOnce.Do(func() {
				s.self = resp.Address
				close(s.selfDone)
			})
		case "received":
			select {
			case s.inbound <- InboundMessage{Payload: resp.Message}:
			default:
				dlog.Errorf(ctx, "mixnet websocket: inbound queue full, dropping message")
			}
		case "error":
			dlog.Errorf(ctx, "mixnet websocket: gateway error: %s", resp.Error)
		default:
			dlog.Errorf(ctx, "mixnet websocket: ignoring unexpected frame type %q", resp.Type)
		}
	}
}

func (s *wsSession) NymAddress(ctx context.Context) (string, error) {
	if s.self == "" {
		return "", fmt.Errorf("mixnet websocket: self address not yet known")
	}
	return s.self, nil
}

// Send ignores the hops override at the transport layer: two-hop routing is
// carried in the request body the caller serializes, not as a
// websocket-level parameter. lane is likewise a property of the outer
// protocol, recorded here only for parity with the Session contract.
func (s *wsSession) Send(ctx context.Context, recipient string, payload []byte, _ TransmissionLane, _ *int) error {
	req, err := json.Marshal(wsRequestSend{Type: "send", Recipient: recipient, Message: payload})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return fmt.Errorf("write send request: %w", err)
	}
	return nil
}

func (s *wsSession) Inbound() <-chan InboundMessage {
	return s.inbound
}

func (s *wsSession) markClosed() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *wsSession) Disconnect(ctx context.Context) error {
	err := s.conn.Close()
	<-s.closed
	return err
}
