package wgtunnel

import (
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// ErrAuthenticationNotPossible is returned when either gateway lacks an
// authenticator address.
var ErrAuthenticationNotPossible = fmt.Errorf("wireguard mode requires both gateways to carry an authenticator address")

// ErrNotEnoughBandwidthToSetupTunnel is returned by the bandwidth precheck.
var ErrNotEnoughBandwidthToSetupTunnel = fmt.Errorf("gateway reports insufficient bandwidth to set up the tunnel")

// FailedToBringInterfaceUpError wraps a barrier failure with the gateway
// and key that failed.
type FailedToBringInterfaceUpError struct {
	GatewayID string
	PublicKey wgtypes.Key
	Source    error
}

func (e *FailedToBringInterfaceUpError) Error() string {
	return fmt.Sprintf("failed to bring up interface for gateway %s (key %s): %v", e.GatewayID, e.PublicKey, e.Source)
}

func (e *FailedToBringInterfaceUpError) Unwrap() error { return e.Source }
