package wgtunnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

func TestMTULayering(t *testing.T) {
	assert.Equal(t, 1440, EntryMTU)
	assert.Equal(t, EntryMTU-80, ExitMTU)
	assert.Equal(t, 1360, ExitMTU)
}

func TestLayerAllowedIPsIncludesExitEndpoints(t *testing.T) {
	exitPeers := []Peer{
		{PublicKey: wgtypes.Key{}, Endpoint: "203.0.113.5:51820", AllowedIPs: []string{"10.1.0.0/24"}},
	}
	entryPeers := []Peer{
		{PublicKey: wgtypes.Key{}, Endpoint: "198.51.100.9:51820", AllowedIPs: []string{"10.0.0.0/24"}},
	}

	got := layerAllowedIPs(entryPeers, exitPeers)
	assert.Contains(t, got[0].AllowedIPs, "203.0.113.5/32")
	assert.Contains(t, got[0].AllowedIPs, "10.0.0.0/24")
}

func TestApplyCatchAllNeverUsesSlashZero(t *testing.T) {
	exitPeers := []Peer{{Endpoint: "203.0.113.5:51820"}}

	got := applyCatchAll(exitPeers, false)
	assert.Contains(t, got[0].AllowedIPs, "0.0.0.0/1")
	assert.Contains(t, got[0].AllowedIPs, "128.0.0.0/1")
	assert.Contains(t, got[0].AllowedIPs, "::/1")
	assert.Contains(t, got[0].AllowedIPs, "8000::/1")
	assert.NotContains(t, got[0].AllowedIPs, "0.0.0.0/0")
	assert.NotContains(t, got[0].AllowedIPs, "::/0")
}

func TestApplyCatchAllSkippedWhenRoutingDisabled(t *testing.T) {
	exitPeers := []Peer{{Endpoint: "203.0.113.5:51820", AllowedIPs: []string{"10.1.0.0/24"}}}
	got := applyCatchAll(exitPeers, true)
	assert.Equal(t, []string{"10.1.0.0/24"}, got[0].AllowedIPs)
}
