package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/config"
)

func TestToConfigDefaultsToRandomMixMode(t *testing.T) {
	cfg, err := runFlags{}.toConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ModeMixnet, cfg.Mode)
	assert.Equal(t, config.EntryRandom, cfg.Entry.Kind)
	assert.Equal(t, config.ExitRandom, cfg.Exit.Kind)
}

func TestToConfigRejectsMultipleEntrySelectors(t *testing.T) {
	_, err := runFlags{entryGatewayID: "gw1", entryGatewayCountry: "DE"}.toConfig()
	require.Error(t, err)
}

func TestToConfigRejectsMultipleExitSelectors(t *testing.T) {
	_, err := runFlags{exitGatewayID: "gw1", exitGatewayCountry: "FR"}.toConfig()
	require.Error(t, err)
}

func TestToConfigRejectsExitRouterAddressWithWireguardMode(t *testing.T) {
	_, err := runFlags{exitRouterAddress: "exit.addr", wireguardMode: true}.toConfig()
	require.Error(t, err)
}

func TestToConfigWireguardMode(t *testing.T) {
	cfg, err := runFlags{wireguardMode: true, exitGatewayID: "gw2"}.toConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ModeWireguard, cfg.Mode)
	assert.Equal(t, config.ExitGateway, cfg.Exit.Kind)
	assert.Equal(t, "gw2", cfg.Exit.Identity)
}

func TestToConfigStaticIPs(t *testing.T) {
	cfg, err := runFlags{nymIPv4: "10.0.0.5", nymIPv6: "fc00::5"}.toConfig()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", cfg.NymIPv4)
	assert.Equal(t, "fc00::5", cfg.NymIPv6)
}
