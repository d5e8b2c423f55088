package gateway

import "context"

// DirectoryClient is the out-of-scope HTTP collaborator that knows how to
// list gateways; this core only resolves policy against whatever it
// returns.
type DirectoryClient interface {
	EntryGateways(ctx context.Context) ([]Gateway, error)
	ExitGateways(ctx context.Context) ([]Gateway, error)
	// AllGateways is used in WireGuard mode, where a single set covers both
	// entry and exit candidates.
	AllGateways(ctx context.Context) ([]Gateway, error)
}
