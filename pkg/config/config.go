// Package config resolves the run-time configuration for the tunnel core:
// CLI flags (see pkg/cli), the NETWORK_NAME environment variable,
// and the persisted state directory used for mixnet client keys and
// imported credentials.
package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/errcat"
)

const defaultNetworkName = "mainnet"

// VpnMode selects between the mix-tunnel and the chained-WireGuard path.
type VpnMode int

const (
	ModeMixnet VpnMode = iota
	ModeWireguard
)

// EntryPointKind and ExitPointKind mirror the CLI's gateway-selection flags.
type EntryPointKind int

const (
	EntryRandom EntryPointKind = iota
	EntryRandomLowLatency
	EntryGateway
	EntryLocation
)

type ExitPointKind int

const (
	ExitRandom ExitPointKind = iota
	ExitAddress
	ExitGateway
	ExitLocation
)

// EntryPoint and ExitPoint carry the resolved value for their Kind.
type EntryPoint struct {
	Kind       EntryPointKind
	Identity   string // EntryGateway
	CountryISO string // EntryLocation
}

type ExitPoint struct {
	Kind       ExitPointKind
	Address    string // ExitAddress: mixnet recipient of the IPR
	Identity   string // ExitGateway
	CountryISO string // ExitLocation
}

// Config is the resolved configuration for one `run` invocation.
type Config struct {
	Mode VpnMode

	Entry EntryPoint
	Exit  ExitPoint

	// Static IPv4/IPv6 requested for mix-mode; leaving both empty selects
	// dynamic allocation.
	NymIPv4 string
	NymIPv6 string
	NymMTU  int

	DNS            []string
	DisableRouting bool
	WireguardMode  bool
	EnableTwoHop   bool
	MinMixnodePerf float64
	EnableCreds    bool

	// EnablePoissonRate and DisableBackgroundCoverTraffic hold the
	// cover-traffic flags of `run`. They are stored here only: the mixnet
	// connect collaborator is called with the network name alone, so they
	// do not reach it.
	EnablePoissonRate             bool
	DisableBackgroundCoverTraffic bool

	NetworkName string
	DataDir     string
}

// NetworkName resolves NETWORK_NAME, defaulting to "mainnet".
func NetworkName() string {
	if v := os.Getenv("NETWORK_NAME"); v != "" {
		return v
	}
	return defaultNetworkName
}

// DataDir returns <platform-data-dir>/nym-vpn-cli/<NETWORK_NAME>/, creating
// it if necessary. Failure to create it is fatal and categorized as Config.
func DataDir(ctx context.Context, platformDataDir string) (string, error) {
	dir := filepath.Join(platformDataDir, "nym-vpn-cli", NetworkName())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errcat.Config.Newf("create credential data path %s: %w", dir, err)
	}
	return dir, nil
}

// ImportCredential writes raw, already-encoded credential bytes into the
// persisted state directory. Parsing/validating the credential itself is a
// collaborator's responsibility (out of scope for this core).
func ImportCredential(ctx context.Context, platformDataDir string, data []byte) error {
	dir, err := DataDir(ctx, platformDataDir)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "credential.bin")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errcat.Config.Newf("write credential to %s: %w", path, err)
	}
	return nil
}
