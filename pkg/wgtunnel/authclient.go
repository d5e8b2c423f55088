package wgtunnel

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixnetclient"
)

// AuthClient exchanges authentication/bandwidth messages with gateways over
// the mixnet. It consumes the shared mixnet client's inner session as a
// capability loan, never taking ownership of it.
type AuthClient struct {
	session mixnetclient.Session
}

// NewAuthClient builds an AuthClient riding the given shared mixnet client.
func NewAuthClient(shared *mixnetclient.SharedMixnetClient) (*AuthClient, error) {
	session, err := shared.Inner()
	if err != nil {
		return nil, fmt.Errorf("wgtunnel: authenticator needs a live mixnet session: %w", err)
	}
	return &AuthClient{session: session}, nil
}

// Session exposes the borrowed mixnet session to a Registrar.
func (a *AuthClient) Session() mixnetclient.Session { return a.session }

// GatewayRegistration is what a gateway hands back in exchange for a
// client's WireGuard public key.
type GatewayRegistration struct {
	WireguardConfig Config
	PeerEndpointIP  string // the registered peer's endpoint IP, used as a selection hint
	Suspended       bool   // set when the gateway's bandwidth precheck rejects the client
}

// Registrar performs the authenticator wire exchange itself. Its wire
// format is a collaborator concern; this core only depends on the shape of
// what comes back.
type Registrar interface {
	Register(ctx context.Context, session mixnetclient.Session, gatewayID, authenticatorAddress, peerHint string) (GatewayRegistration, error)
}

// WgGatewayClient registers a single gateway's WireGuard peer and holds a
// named task in the task hierarchy for the lifetime of the tunnel.
type WgGatewayClient struct {
	auth      *AuthClient
	registrar Registrar
	gatewayID string
	authAddr  string
	peerHint  string
}

// NewExit registers against the exit gateway. It has no peer-selection hint
// to pass along.
func NewExit(auth *AuthClient, registrar Registrar, gatewayID, authenticatorAddress string) *WgGatewayClient {
	return &WgGatewayClient{auth: auth, registrar: registrar, gatewayID: gatewayID, authAddr: authenticatorAddress}
}

// NewEntry registers against the entry gateway, using wgGatewayHint (the
// exit config's configured peer endpoint IP) to bias peer selection.
func NewEntry(auth *AuthClient, registrar Registrar, gatewayID, authenticatorAddress, wgGatewayHint string) *WgGatewayClient {
	return &WgGatewayClient{auth: auth, registrar: registrar, gatewayID: gatewayID, authAddr: authenticatorAddress, peerHint: wgGatewayHint}
}

// Register performs the authenticator exchange and returns the resulting
// WireGuard peer configuration.
func (c *WgGatewayClient) Register(ctx context.Context) (GatewayRegistration, error) {
	reg, err := c.registrar.Register(ctx, c.auth.Session(), c.gatewayID, c.authAddr, c.peerHint)
	if err != nil {
		return GatewayRegistration{}, fmt.Errorf("wgtunnel: register with gateway %s: %w", c.gatewayID, err)
	}
	return reg, nil
}

// RunReconciliation is the gateway client's long-running task: it blocks
// until ctx is done and then returns nil. It does not poll the gateway or
// update bandwidth/suspension state; the Suspended flag is only checked once,
// at registration. Intended to be passed to (*dgroup.Group).Go(name, ...).
func (c *WgGatewayClient) RunReconciliation(ctx context.Context) error {
	<-ctx.Done()
	dlog.Debugf(ctx, "wgtunnel: gateway client for %s shutting down", c.gatewayID)
	return nil
}
