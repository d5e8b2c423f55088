package wgtunnel

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"golang.zx2c4.com/wireguard/tun"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/gateway"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixnetclient"
)

// Keys carries the client's per-tunnel WireGuard private keys. Key
// generation and storage are collaborator concerns; this core does not
// itself perform cryptography and only consumes them.
type Keys struct {
	Entry wgtypes.Key
	Exit  wgtypes.Key
}

// Result is the {entry, exit} pair returned on success.
type Result struct {
	Entry *Handle
	Exit  *Handle
}

// Options bundles the collaborators Setup needs but does not own: external
// singletons passed in by reference rather than constructed internally.
type Options struct {
	Shared         *mixnetclient.SharedMixnetClient
	Registrar      Registrar
	RouteInstaller RouteInstaller
	LANGateway     string
	DisableRouting bool
	NewTUN         func(mtu int) (tun.Device, string, error)
}

// Setup builds the layered entry/exit WireGuard tunnels. g is the task
// hierarchy root; Setup spawns the bandwidth controller and both gateway
// clients' reconciliation loops as named children of it.
func Setup(ctx context.Context, g *dgroup.Group, selected gateway.SelectedGateways, keys Keys, opts Options) (*Result, error) {
	// Step 1: spawn BandwidthController.
	bc := mixnetclient.NewBandwidthController(opts.Shared)
	g.Go("bandwidth", bc.Run)

	// Step 2: validate authenticator addresses.
	if !selected.Entry.HasAuthenticatorAddress() || !selected.Exit.HasAuthenticatorAddress() {
		return nil, ErrAuthenticationNotPossible
	}

	// Step 3: create AuthClient over the shared mixnet.
	auth, err := NewAuthClient(opts.Shared)
	if err != nil {
		return nil, err
	}

	// Step 4: register with the exit gateway first.
	exitClient := NewExit(auth, opts.Registrar, selected.Exit.Identity, selected.Exit.AuthenticatorAddress)
	exitReg, err := exitClient.Register(ctx)
	if err != nil {
		return nil, err
	}

	// Step 5: register with the entry gateway, hinted by the exit's peer endpoint.
	wgGatewayHint := exitPeerEndpointHint(exitReg.WireguardConfig)
	entryClient := NewEntry(auth, opts.Registrar, selected.Entry.Identity, selected.Entry.AuthenticatorAddress, wgGatewayHint)
	entryReg, err := entryClient.Register(ctx)
	if err != nil {
		return nil, err
	}

	// Step 6: bandwidth precheck.
	if exitReg.Suspended || entryReg.Suspended {
		return nil, ErrNotEnoughBandwidthToSetupTunnel
	}

	// Step 7: spawn the two gateway clients' reconciliation tasks.
	g.Go("wg-gateway-entry", entryClient.RunReconciliation)
	g.Go("wg-gateway-exit", exitClient.RunReconciliation)

	entryCfg := entryReg.WireguardConfig
	entryCfg.MTU = EntryMTU
	exitCfg := exitReg.WireguardConfig
	exitCfg.MTU = ExitMTU

	// Step 8: allowed-ips layering.
	entryCfg.Peers = layerAllowedIPs(entryCfg.Peers, exitCfg.Peers)

	// Step 9: catch-all routing on the exit peer set.
	exitCfg.Peers = applyCatchAll(exitCfg.Peers, opts.DisableRouting)

	// Step 10: install the route to the entry gateway via the default LAN gateway.
	if opts.RouteInstaller != nil {
		if err := opts.RouteInstaller.InstallRoute(ctx, entryReg.PeerEndpointIP, opts.LANGateway); err != nil {
			return nil, fmt.Errorf("wgtunnel: install route to entry gateway: %w", err)
		}
	}

	// Step 11: force userspace WireGuard prior to tunnel creation.
	if err := os.Setenv(forceUserspaceEnv, "1"); err != nil {
		return nil, fmt.Errorf("wgtunnel: set %s: %w", forceUserspaceEnv, err)
	}

	// Step 12: bring up the entry tunnel and barrier-wait.
	entryHandle, err := bringUp(ctx, keys.Entry, entryCfg, opts.NewTUN)
	if err != nil {
		return nil, err
	}
	if _, err := WaitInterfaceUp(ctx, entryHandle.Events); err != nil {
		entryHandle.Close()
		return nil, &FailedToBringInterfaceUpError{GatewayID: selected.Entry.Identity, PublicKey: entryCfg.GatewayData.PublicKey, Source: err}
	}
	dlog.Debugf(ctx, "wgtunnel: entry interface up for %s", selected.Entry.Identity)

	// Step 13: bring up the exit tunnel and barrier-wait. Serialized after
	// the entry barrier: this is a hard ordering requirement, not a
	// performance hint — concurrent route installs for both tunnels would
	// race.
	exitHandle, err := bringUp(ctx, keys.Exit, exitCfg, opts.NewTUN)
	if err != nil {
		entryHandle.Close()
		return nil, err
	}
	if _, err := WaitInterfaceUp(ctx, exitHandle.Events); err != nil {
		exitHandle.Close()
		entryHandle.Close()
		return nil, &FailedToBringInterfaceUpError{GatewayID: selected.Exit.Identity, PublicKey: exitCfg.GatewayData.PublicKey, Source: err}
	}
	dlog.Debugf(ctx, "wgtunnel: exit interface up for %s", selected.Exit.Identity)

	// Step 14.
	return &Result{Entry: entryHandle, Exit: exitHandle}, nil
}

func exitPeerEndpointHint(cfg Config) string {
	if len(cfg.Peers) == 0 {
		return ""
	}
	return PeerEndpointIP(cfg.Peers[0].Endpoint)
}
