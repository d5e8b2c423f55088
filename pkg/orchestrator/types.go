// Package orchestrator implements the top-level state machine that
// dispatches to the mix-tunnel or WireGuard-tunnel setup path, owns the
// shared mixnet client and task hierarchy, and guarantees cleanup on any
// post-connect failure.
package orchestrator

import (
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixtunnel"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/wgtunnel"
)

// TunnelsSetup is the sum type returned on success: exactly one of Mix or
// Wg is populated, depending on which path the orchestrator took.
type TunnelsSetup struct {
	Mix *mixtunnel.Result
	Wg  *wgtunnel.Result
}

// IsMix reports whether this result describes a mix-mode tunnel.
func (t TunnelsSetup) IsMix() bool { return t.Mix != nil }
