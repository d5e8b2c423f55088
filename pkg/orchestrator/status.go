package orchestrator

// Status is the connection status stream the orchestrator emits to its
// subscribers. The enum covers the full lifecycle a Connect/Status RPC
// surface would report; Connect emits EstablishingConnection and then
// Connected or ConnectionFailed, and nothing in this package emits
// Disconnecting or Disconnected.
type Status int

const (
	StatusEstablishingConnection Status = iota
	StatusConnected
	StatusDisconnecting
	StatusDisconnected
	StatusConnectionFailed
)

func (s Status) String() string {
	switch s {
	case StatusEstablishingConnection:
		return "establishing-connection"
	case StatusConnected:
		return "connected"
	case StatusDisconnecting:
		return "disconnecting"
	case StatusDisconnected:
		return "disconnected"
	case StatusConnectionFailed:
		return "connection-failed"
	default:
		return "unknown"
	}
}
