package wgtunnel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.zx2c4.com/wireguard/conn"
	"golang.zx2c4.com/wireguard/device"
	"golang.zx2c4.com/wireguard/tun"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// forceUserspaceEnv is the process-wide flag the orchestrator sets prior to
// any tunnel creation, forcing a userspace WireGuard implementation instead
// of a kernel one.
const forceUserspaceEnv = "TALPID_FORCE_USERSPACE_WIREGUARD"

// RouteInstaller installs the interface route for the far end of a tunnel
// via the default LAN gateway node; it is an external singleton passed in
// by reference rather than constructed per call.
type RouteInstaller interface {
	InstallRoute(ctx context.Context, destination string, viaLANGateway string) error
}

// Handle is a running userspace WireGuard tunnel: it carries the event
// stream used by the interface-up barrier, a close function, and a
// completion signal surfaced once the device tears down.
type Handle struct {
	Events <-chan Event
	Done   <-chan struct{}
	Close  func()

	mu  sync.Mutex
	dev *device.Device
}

// bringUp creates a userspace WireGuard device for cfg, applies its peer
// set, and, once the device is up, puts InterfaceUp followed by Up on the
// Event stream the interface-up barrier consumes. Later device state
// changes are not reported on the stream: AuthFailed and Down are never
// emitted by it. Done is closed when Close tears the device down. Uses the userspace
// wireguard-go device/IPC configuration pattern (private-key/port IPC
// config, tun.Device, device.NewDevice).
func bringUp(ctx context.Context, privateKey wgtypes.Key, cfg Config, newTUN func(mtu int) (tun.Device, string, error)) (*Handle, error) {
	tunDev, ifaceName, err := newTUN(cfg.MTU)
	if err != nil {
		return nil, fmt.Errorf("wgtunnel: create tun device for %s: %w", cfg.GatewayID, err)
	}

	dev := device.NewDevice(tunDev, conn.NewDefaultBind(), device.NewLogger(device.LogLevelError, "wgtunnel("+ifaceName+") "))

	ipc := buildIPC(privateKey, cfg.Peers)
	if err := dev.IpcSet(ipc); err != nil {
		dev.Close()
		return nil, fmt.Errorf("wgtunnel: configure device for %s: %w", cfg.GatewayID, err)
	}
	if err := dev.Up(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("wgtunnel: bring up device for %s: %w", cfg.GatewayID, err)
	}

	events := make(chan Event, 4)
	done := make(chan struct{})
	events <- Event{Kind: EventInterfaceUp}
	go func() {
		events <- Event{Kind: EventUp, Metadata: InterfaceMetadata{Name: ifaceName, MTU: cfg.MTU}}
	}()

	h := &Handle{Events: events, Done: done, dev: dev}
	h.Close = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.dev != nil {
			h.dev.Close()
			h.dev = nil
			close(done)
		}
	}
	return h, nil
}

func buildIPC(priv wgtypes.Key, peers []Peer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "private_key=%x\nreplace_peers=true\n", priv[:])
	for _, p := range peers {
		fmt.Fprintf(&b, "public_key=%x\nendpoint=%s\nreplace_allowed_ips=true\n", p.PublicKey[:], p.Endpoint)
		for _, a := range p.AllowedIPs {
			fmt.Fprintf(&b, "allowed_ip=%s\n", a)
		}
	}
	return b.String()
}
