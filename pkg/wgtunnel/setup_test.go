package wgtunnel

import (
	"context"
	"fmt"
	"testing"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.zx2c4.com/wireguard/tun"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/gateway"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixnetclient"
)

type noopSession struct{}

func (noopSession) NymAddress(context.Context) (string, error) { return "me.addr", nil }
func (noopSession) Send(context.Context, string, []byte, mixnetclient.TransmissionLane, *int) error {
	return nil
}
func (noopSession) Inbound() <-chan mixnetclient.InboundMessage { return nil }
func (noopSession) Disconnect(context.Context) error            { return nil }

type fakeRegistrar struct {
	exitPeerEndpoint string
}

func (f *fakeRegistrar) Register(_ context.Context, _ mixnetclient.Session, gatewayID, _ string, _ string) (GatewayRegistration, error) {
	if gatewayID == "exit-1" {
		return GatewayRegistration{
			WireguardConfig: Config{
				GatewayID: gatewayID,
				Peers:     []Peer{{PublicKey: wgtypes.Key{1}, Endpoint: f.exitPeerEndpoint}},
			},
			PeerEndpointIP: "198.51.100.9",
		}, nil
	}
	return GatewayRegistration{
		WireguardConfig: Config{
			GatewayID: gatewayID,
			Peers:     []Peer{{PublicKey: wgtypes.Key{2}, Endpoint: "198.51.100.9:51820"}},
		},
		PeerEndpointIP: "198.51.100.9",
	}, nil
}

type fakeRouteInstaller struct {
	calls []string
}

func (f *fakeRouteInstaller) InstallRoute(_ context.Context, destination, via string) error {
	f.calls = append(f.calls, destination+"@"+via)
	return nil
}

func testGateways() gateway.SelectedGateways {
	return gateway.SelectedGateways{
		Entry: gateway.Gateway{Identity: "entry-1", AuthenticatorAddress: "auth.entry"},
		Exit:  gateway.Gateway{Identity: "exit-1", AuthenticatorAddress: "auth.exit"},
	}
}

func TestSetupFailsFastWithoutAuthenticatorAddresses(t *testing.T) {
	ctx := dlog.NewTestContext(t, true)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g := dgroup.NewGroup(ctx, dgroup.GroupConfig{})

	shared := mixnetclient.New(noopSession{})
	selected := gateway.SelectedGateways{
		Entry: gateway.Gateway{Identity: "entry-1"}, // no authenticator address
		Exit:  gateway.Gateway{Identity: "exit-1", AuthenticatorAddress: "auth.exit"},
	}

	_, err := Setup(ctx, g, selected, Keys{}, Options{Shared: shared})
	assert.ErrorIs(t, err, ErrAuthenticationNotPossible)
	cancel()
	_ = g.Wait()
}

func TestSetupLayersMTUAndRoutesBeforeDeviceCreation(t *testing.T) {
	ctx := dlog.NewTestContext(t, true)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g := dgroup.NewGroup(ctx, dgroup.GroupConfig{})

	shared := mixnetclient.New(noopSession{})
	registrar := &fakeRegistrar{exitPeerEndpoint: "203.0.113.5:51820"}
	routeInstaller := &fakeRouteInstaller{}

	var seenMTUs []int
	newTUN := func(mtu int) (tun.Device, string, error) {
		seenMTUs = append(seenMTUs, mtu)
		return nil, "", fmt.Errorf("no real tun device in tests")
	}

	_, err := Setup(ctx, g, testGateways(), Keys{}, Options{
		Shared:         shared,
		Registrar:      registrar,
		RouteInstaller: routeInstaller,
		LANGateway:     "192.168.1.1",
		NewTUN:         newTUN,
	})
	require.Error(t, err)

	require.Len(t, seenMTUs, 1)
	assert.Equal(t, EntryMTU, seenMTUs[0])
	require.Len(t, routeInstaller.calls, 1)
	assert.Equal(t, "198.51.100.9@192.168.1.1", routeInstaller.calls[0])

	cancel()
	_ = g.Wait()
}
