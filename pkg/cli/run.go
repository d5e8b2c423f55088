package cli

import (
	"context"
	"time"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/config"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/errcat"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/gateway"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/iprconnect"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixnetclient"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixtunnel"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/orchestrator"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/platform"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/wgtunnel"
)

type runFlags struct {
	entryGatewayID         string
	entryGatewayCountry    string
	entryGatewayLowLatency bool

	exitRouterAddress string
	exitGatewayID     string
	exitGatewayCountry string

	nymIPv4 string
	nymIPv6 string
	nymMTU  int

	dns            []string
	disableRouting bool
	wireguardMode  bool

	enablePoissonRate             bool
	disableBackgroundCoverTraffic bool
	enableCredentialsMode         bool
	minMixnodePerformance         float64
}

func runCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect through the mixnet and hold the tunnel open until cancelled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTunnel(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.entryGatewayID, "entry-gateway-id", "", "identity of the entry gateway to use")
	f.StringVar(&flags.entryGatewayCountry, "entry-gateway-country", "", "two-letter country code to pick an entry gateway from")
	f.BoolVar(&flags.entryGatewayLowLatency, "entry-gateway-low-latency", false, "pick a low-latency entry gateway at random from the best-performing set")

	f.StringVar(&flags.exitRouterAddress, "exit-router-address", "", "mixnet recipient address of the exit IP packet router (mix mode)")
	f.StringVar(&flags.exitGatewayID, "exit-gateway-id", "", "identity of the exit gateway to use")
	f.StringVar(&flags.exitGatewayCountry, "exit-gateway-country", "", "two-letter country code to pick an exit gateway from")

	f.StringVar(&flags.nymIPv4, "nym-ipv4", "", "request this static IPv4 address from the IP packet router (mix mode)")
	f.StringVar(&flags.nymIPv6, "nym-ipv6", "", "request this static IPv6 address from the IP packet router (mix mode)")
	f.IntVar(&flags.nymMTU, "nym-mtu", 1500, "MTU for the mix-tunnel TUN device")

	f.StringSliceVar(&flags.dns, "dns", nil, "comma-separated DNS server IPs to program on the tunnel interface")
	f.BoolVar(&flags.disableRouting, "disable-routing", false, "do not install default routes for the established tunnel")
	f.BoolVar(&flags.wireguardMode, "wireguard-mode", false, "use the chained WireGuard entry/exit path instead of the single mix tunnel")

	f.BoolVar(&flags.enablePoissonRate, "enable-poisson-rate", false, "enable Poisson-distributed cover traffic")
	f.BoolVar(&flags.disableBackgroundCoverTraffic, "disable-background-cover-traffic", false, "disable background cover traffic while idle")
	f.BoolVar(&flags.enableCredentialsMode, "enable-credentials-mode", false, "require a zk-nym credential to connect")
	f.Float64Var(&flags.minMixnodePerformance, "min-mixnode-performance", 0, "exclude gateways reporting performance below this threshold (0 disables filtering)")

	return cmd
}

func (f runFlags) toConfig() (config.Config, error) {
	cfg := config.Config{
		NymIPv4:                       f.nymIPv4,
		NymIPv6:                       f.nymIPv6,
		NymMTU:                        f.nymMTU,
		DNS:                           f.dns,
		DisableRouting:                f.disableRouting,
		WireguardMode:                 f.wireguardMode,
		EnablePoissonRate:             f.enablePoissonRate,
		DisableBackgroundCoverTraffic: f.disableBackgroundCoverTraffic,
		EnableCreds:                   f.enableCredentialsMode,
		MinMixnodePerf:                f.minMixnodePerformance,
		NetworkName:                   config.NetworkName(),
	}
	if f.wireguardMode {
		cfg.Mode = config.ModeWireguard
	}

	entrySet := boolCount(f.entryGatewayID != "", f.entryGatewayCountry != "", f.entryGatewayLowLatency)
	if entrySet > 1 {
		return config.Config{}, errcat.User.New("at most one of --entry-gateway-id, --entry-gateway-country, --entry-gateway-low-latency may be set")
	}
	switch {
	case f.entryGatewayID != "":
		cfg.Entry = config.EntryPoint{Kind: config.EntryGateway, Identity: f.entryGatewayID}
	case f.entryGatewayCountry != "":
		cfg.Entry = config.EntryPoint{Kind: config.EntryLocation, CountryISO: f.entryGatewayCountry}
	case f.entryGatewayLowLatency:
		cfg.Entry = config.EntryPoint{Kind: config.EntryRandomLowLatency}
	default:
		cfg.Entry = config.EntryPoint{Kind: config.EntryRandom}
	}

	exitSet := boolCount(f.exitRouterAddress != "", f.exitGatewayID != "", f.exitGatewayCountry != "")
	if exitSet > 1 {
		return config.Config{}, errcat.User.New("at most one of --exit-router-address, --exit-gateway-id, --exit-gateway-country may be set")
	}
	switch {
	case f.exitRouterAddress != "":
		if f.wireguardMode {
			return config.Config{}, errcat.User.New("--exit-router-address selects a mix-mode IP packet router and cannot be combined with --wireguard-mode")
		}
		cfg.Exit = config.ExitPoint{Kind: config.ExitAddress, Address: f.exitRouterAddress}
	case f.exitGatewayID != "":
		cfg.Exit = config.ExitPoint{Kind: config.ExitGateway, Identity: f.exitGatewayID}
	case f.exitGatewayCountry != "":
		cfg.Exit = config.ExitPoint{Kind: config.ExitLocation, CountryISO: f.exitGatewayCountry}
	default:
		cfg.Exit = config.ExitPoint{Kind: config.ExitRandom}
	}

	return cfg, nil
}

func boolCount(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func runTunnel(cmd *cobra.Command, flags runFlags) error {
	ctx := cmd.Context()
	cfg, err := flags.toConfig()
	if err != nil {
		return err
	}

	p := platform.GetPlatform(ctx)
	if p == nil {
		return errcat.Config.New("no platform collaborators installed on context; this build cannot create a tunnel")
	}

	selector := gateway.NewSelector(p.Directory)
	selector.MinPerformance = cfg.MinMixnodePerf

	o := orchestrator.New(selector,
		func(ctx context.Context) (*mixnetclient.SharedMixnetClient, error) {
			return p.ConnectMixnet(ctx, cfg.NetworkName)
		},
		p.DefaultGateway,
	)

	g := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		SoftShutdownTimeout:  2 * time.Second,
		EnableSignalHandling: true,
		ShutdownOnNonError:   true,
	})

	req, err := buildRequest(cfg, p)
	if err != nil {
		return err
	}

	setup, err := o.Connect(ctx, g, req)
	if err != nil {
		return err
	}
	if setup.IsMix() {
		dlog.Infof(ctx, "connected: mix tunnel via %s, assigned %s/%s", setup.Mix.Exit.IprAddress, setup.Mix.Mixnet.IPs.V4, setup.Mix.Mixnet.IPs.V6)
	} else {
		dlog.Infof(ctx, "connected: wireguard entry+exit tunnels up")
	}

	return g.Wait()
}

func buildRequest(cfg config.Config, p *platform.Platform) (orchestrator.Request, error) {
	req := orchestrator.Request{
		Mode:  gateway.Mode(cfg.Mode),
		Entry: gateway.EntryPoint{Kind: gateway.EntryPointKind(cfg.Entry.Kind), Identity: cfg.Entry.Identity, CountryISO: cfg.Entry.CountryISO},
		Exit:  gateway.ExitPoint{Kind: gateway.ExitPointKind(cfg.Exit.Kind), Address: cfg.Exit.Address, Identity: cfg.Exit.Identity, CountryISO: cfg.Exit.CountryISO},
	}

	if cfg.Mode == config.ModeWireguard {
		req.WgOptions = wgtunnel.Options{
			Registrar:      p.Registrar,
			RouteInstaller: p.RouteInstall,
			DisableRouting: cfg.DisableRouting,
			NewTUN:         p.NewTUN,
		}
		return req, nil
	}

	var requestedIPs *iprconnect.IpPair
	if cfg.NymIPv4 != "" || cfg.NymIPv6 != "" {
		requestedIPs = &iprconnect.IpPair{V4: cfg.NymIPv4, V6: cfg.NymIPv6}
	}
	req.MixOptions = mixtunnel.Options{
		Tun:          p.Tun,
		Routes:       p.Routes,
		DNS:          p.DNS,
		DNSServers:   cfg.DNS,
		RequestedIPs: requestedIPs,
		MTU:          cfg.NymMTU,
		EnableTwoHop: false,
	}
	return req, nil
}
