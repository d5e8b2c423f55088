// Package wgtunnel builds the layered WireGuard entry/exit tunnels: auth
// over the mixnet, MTU layering, allowed-ips layering, route install, and
// the interface-up barrier.
package wgtunnel

import "golang.zx2c4.com/wireguard/wgctrl/wgtypes"

// MTU constants. These are invariants of the layered-encapsulation design
// and must never be derived from runtime negotiation:
//
//	entry_mtu = 1500 - (20 IPv4 + 8 UDP + 32 WG) = 1440
//	exit_mtu  = entry_mtu - (40 IPv6 + 8 UDP + 32 WG) = 1360
const (
	EntryMTU = 1500 - (20 + 8 + 32)
	ExitMTU  = EntryMTU - (40 + 8 + 32)
)

// Peer is one WireGuard peer entry.
type Peer struct {
	PublicKey  wgtypes.Key
	Endpoint   string // "IP:port"
	AllowedIPs []string
}

// GatewayData carries the keying material a gateway handed back during
// registration.
type GatewayData struct {
	PublicKey wgtypes.Key
}

// Config is one side (entry or exit) of the chained tunnel.
type Config struct {
	GatewayID  string
	GatewayData GatewayData
	Peers      []Peer
	MTU        int
}

// PeerEndpointIP returns the bare IP of a peer endpoint, dropping the port.
func PeerEndpointIP(endpoint string) string {
	for i := len(endpoint) - 1; i >= 0; i-- {
		if endpoint[i] == ':' {
			ip := endpoint[:i]
			if len(ip) >= 2 && ip[0] == '[' && ip[len(ip)-1] == ']' {
				ip = ip[1 : len(ip)-1]
			}
			return ip
		}
	}
	return endpoint
}

// CatchAllV4 and CatchAllV6 express 0.0.0.0/0 and ::/0 as two /1 prefixes
// each, so the platform route table keeps its pre-existing default route
// for non-tunnel traffic. Never simplify these to a single /0 entry.
var CatchAllV4 = []string{"0.0.0.0/1", "128.0.0.0/1"}
var CatchAllV6 = []string{"::/1", "8000::/1"}

// layerAllowedIPs extends the entry peer's allowed_ips with every exit peer
// endpoint IP as a host route, so the entry tunnel carries the exit
// tunnel's UDP traffic.
func layerAllowedIPs(entryPeers []Peer, exitPeers []Peer) []Peer {
	hostRoutes := make([]string, 0, len(exitPeers))
	for _, p := range exitPeers {
		ip := PeerEndpointIP(p.Endpoint)
		hostRoutes = append(hostRoutes, hostPrefix(ip))
	}
	out := make([]Peer, len(entryPeers))
	for i, p := range entryPeers {
		allowed := append(append([]string(nil), p.AllowedIPs...), hostRoutes...)
		out[i] = Peer{PublicKey: p.PublicKey, Endpoint: p.Endpoint, AllowedIPs: allowed}
	}
	return out
}

// applyCatchAll appends the catch-all prefixes to every exit peer's
// allowed_ips, unless routing is disabled.
func applyCatchAll(exitPeers []Peer, disableRouting bool) []Peer {
	if disableRouting {
		return exitPeers
	}
	out := make([]Peer, len(exitPeers))
	for i, p := range exitPeers {
		allowed := append(append([]string(nil), p.AllowedIPs...), CatchAllV4...)
		allowed = append(allowed, CatchAllV6...)
		out[i] = Peer{PublicKey: p.PublicKey, Endpoint: p.Endpoint, AllowedIPs: allowed}
	}
	return out
}

func hostPrefix(ip string) string {
	if isIPv6(ip) {
		return ip + "/128"
	}
	return ip + "/32"
}

func isIPv6(ip string) bool {
	for _, c := range ip {
		if c == ':' {
			return true
		}
	}
	return false
}
