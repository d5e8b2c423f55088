// Package mixtunnel implements the single-hop mix tunnel path built on top
// of the IPR connect handshake plus the platform-specific collaborators
// that bind a TUN device, install routes, and program DNS.
package mixtunnel

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/iprconnect"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixnetclient"
)

// TunDevice is the platform-specific collaborator that binds a TUN device
// configured with the client's assigned IpPair; OS specifics live outside
// this core.
type TunDevice interface {
	Configure(ctx context.Context, v4, v6 string, mtu int) (ifaceName string, err error)
}

// RouteManager installs the routes that direct all traffic into the mixnet
// IPR path. It is an external singleton passed in by reference.
type RouteManager interface {
	InstallDefaultRoutes(ctx context.Context, ifaceName string, viaLANGateway string) error
}

// DNSMonitor programs DNS for the established tunnel.
type DNSMonitor interface {
	SetDNS(ctx context.Context, ifaceName string, servers []string) error
}

// ConnectionInfo describes the established mixnet path.
type ConnectionInfo struct {
	InterfaceName string
	IPs           iprconnect.IpPair
	MTU           int
}

// ExitConnectionInfo describes the exit side.
type ExitConnectionInfo struct {
	IprAddress string
	IPs        iprconnect.IpPair
}

// Options bundles this setup's collaborators.
type Options struct {
	Tun          TunDevice
	Routes       RouteManager
	DNS          DNSMonitor
	DNSServers   []string
	LANGateway   string
	RequestedIPs *iprconnect.IpPair // nil selects dynamic allocation
	MTU          int
	EnableTwoHop bool
}

// Result is the {mixnet_conn_info, exit_conn_info} pair returned on success.
type Result struct {
	Mixnet ConnectionInfo
	Exit   ExitConnectionInfo
}

// Setup runs the IPR connect handshake and configures the local TUN device,
// routes, and DNS around the resulting IpPair.
func Setup(ctx context.Context, shared *mixnetclient.SharedMixnetClient, iprAddress string, opts Options) (*Result, error) {
	client := iprconnect.New(shared)
	ips, err := client.Connect(ctx, iprAddress, opts.RequestedIPs, opts.EnableTwoHop)
	if err != nil {
		return nil, fmt.Errorf("mixtunnel: connect to IPR %s: %w", iprAddress, err)
	}
	dlog.Debugf(ctx, "mixtunnel: IPR %s assigned %s/%s", iprAddress, ips.V4, ips.V6)

	ifaceName, err := opts.Tun.Configure(ctx, ips.V4, ips.V6, opts.MTU)
	if err != nil {
		return nil, fmt.Errorf("mixtunnel: configure tun device: %w", err)
	}

	if opts.Routes != nil {
		if err := opts.Routes.InstallDefaultRoutes(ctx, ifaceName, opts.LANGateway); err != nil {
			return nil, fmt.Errorf("mixtunnel: install routes: %w", err)
		}
	}

	if opts.DNS != nil {
		if err := opts.DNS.SetDNS(ctx, ifaceName, opts.DNSServers); err != nil {
			return nil, fmt.Errorf("mixtunnel: program dns: %w", err)
		}
	}

	return &Result{
		Mixnet: ConnectionInfo{InterfaceName: ifaceName, IPs: ips, MTU: opts.MTU},
		Exit:   ExitConnectionInfo{IprAddress: iprAddress, IPs: ips},
	}, nil
}
