// Package platform defines the injection seam between the tunnel core and
// its operating-system-specific collaborators: the gateway directory
// client, TUN device creation, route and DNS management, the authenticator
// wire client, and the mixnet connect call itself. A concrete build
// supplies an implementation and installs it on the context before invoking
// the CLI, using a context-key indirection to keep the core decoupled from
// main().
package platform

import (
	"context"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/gateway"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixnetclient"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixtunnel"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/wgtunnel"
	"golang.zx2c4.com/wireguard/tun"
)

// Platform bundles every collaborator a concrete build must supply.
type Platform struct {
	Directory gateway.DirectoryClient

	// ConnectMixnet dials the local mixnet client process and returns a
	// shared session.
	ConnectMixnet func(ctx context.Context, networkName string) (*mixnetclient.SharedMixnetClient, error)

	// DefaultGateway resolves the host's default LAN gateway IP.
	DefaultGateway func(ctx context.Context) (string, error)

	NewTUN func(mtu int) (tun.Device, string, error)

	Tun          mixtunnel.TunDevice
	Routes       mixtunnel.RouteManager
	DNS          mixtunnel.DNSMonitor
	Registrar    wgtunnel.Registrar
	RouteInstall wgtunnel.RouteInstaller

	// PlatformDataDir is the OS-conventional per-user data directory
	// (e.g. XDG_DATA_HOME on Linux), used to derive the credential store
	// path.
	PlatformDataDir string
}

type platformKey struct{}

// WithPlatform installs p on ctx for a later GetPlatform to retrieve.
func WithPlatform(ctx context.Context, p *Platform) context.Context {
	return context.WithValue(ctx, platformKey{}, p)
}

// GetPlatform retrieves the Platform installed by WithPlatform, or nil.
func GetPlatform(ctx context.Context) *Platform {
	p, _ := ctx.Value(platformKey{}).(*Platform)
	return p
}
