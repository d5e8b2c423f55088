package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"

	"github.com/nymtech/nym-vpn-tunnel-core/pkg/errcat"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/gateway"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixnetclient"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/mixtunnel"
	"github.com/nymtech/nym-vpn-tunnel-core/pkg/wgtunnel"
)

// MixnetClientStartupTimeout bounds how long Connect waits for the mixnet
// client to come up before treating it as a hard failure.
const MixnetClientStartupTimeout = 10 * time.Second

// MixnetConnector connects to the mixnet and returns a live session wrapped
// for shared access. It is the one collaborator this core does not
// implement itself: the mixnet cryptographic stack and its wire protocol.
type MixnetConnector func(ctx context.Context) (*mixnetclient.SharedMixnetClient, error)

// DefaultGatewayResolver resolves the default LAN gateway IP so the WireGuard
// path can route around it; an OS-specific collaborator.
type DefaultGatewayResolver func(ctx context.Context) (string, error)

// Request is one `run` invocation's resolved parameters.
type Request struct {
	Mode  gateway.Mode
	Entry gateway.EntryPoint
	Exit  gateway.ExitPoint

	WireguardKeys wgtunnel.Keys
	WgOptions     wgtunnel.Options
	MixOptions    mixtunnel.Options
}

// Orchestrator is the top-level state machine. It owns exactly one
// SharedMixnetClient and one task-hierarchy root per successful Connect.
type Orchestrator struct {
	Selector       *gateway.Selector
	ConnectMixnet  MixnetConnector
	DefaultGateway DefaultGatewayResolver

	mu          sync.Mutex
	subscribers []chan Status
}

// New builds an Orchestrator from its collaborators.
func New(selector *gateway.Selector, connect MixnetConnector, defaultGateway DefaultGatewayResolver) *Orchestrator {
	return &Orchestrator{Selector: selector, ConnectMixnet: connect, DefaultGateway: defaultGateway}
}

// Subscribe returns a channel of status updates for this orchestrator's
// lifetime, for a daemon-facing Status RPC to stream to its caller.
func (o *Orchestrator) Subscribe() <-chan Status {
	ch := make(chan Status, 8)
	o.mu.Lock()
	o.subscribers = append(o.subscribers, ch)
	o.mu.Unlock()
	return ch
}

func (o *Orchestrator) emit(s Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}

// Connect selects gateways, resolves the LAN gateway, connects the mixnet
// under a hard timeout, then dispatches to the mix or WireGuard setup path.
// g is the task hierarchy root this Orchestrator will spawn long-running
// subsystems on (the bandwidth controller, gateway-client reconciliation
// loops).
//
// Every failure that occurs after a successful mixnet connect funnels
// through a single cleanup path that disconnects the shared mixnet client
// exactly once, so a partially-set-up tunnel never leaks a live mixnet
// session.
func (o *Orchestrator) Connect(ctx context.Context, g *dgroup.Group, req Request) (result TunnelsSetup, err error) {
	sessionID := uuid.NewString()
	ctx = dlog.WithField(ctx, "session_id", sessionID)

	selected, err := o.Selector.Select(ctx, req.Mode, req.Entry, req.Exit)
	if err != nil {
		return TunnelsSetup{}, errcat.User.New(err)
	}

	lanGateway, err := o.DefaultGateway(ctx)
	if err != nil {
		return TunnelsSetup{}, errcat.Platform.New(ErrDefaultInterfaceGatewayError)
	}

	o.emit(StatusEstablishingConnection)
	defer func() {
		if err != nil {
			o.emit(StatusConnectionFailed)
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, MixnetClientStartupTimeout)
	defer cancel()
	shared, err := o.ConnectMixnet(connectCtx)
	if err != nil {
		if connectCtx.Err() != nil {
			return TunnelsSetup{}, errcat.Mixnet.New(&StartMixnetClientTimeoutError{Timeout: MixnetClientStartupTimeout.String()})
		}
		return TunnelsSetup{}, errcat.Mixnet.New(&ErrFailedToConnectToMixnet{Cause: err})
	}

	// From this point on, every return path funnels through this defer:
	// a non-nil err disconnects the mixnet client exactly once.
	defer func() {
		if err != nil {
			dlog.Debugf(ctx, "orchestrator: tunnel setup failed (%v), disconnecting mixnet", err)
			_ = shared.Disconnect(context.WithoutCancel(ctx))
		}
	}()

	if req.Mode == gateway.ModeWireguard {
		req.WgOptions.Shared = shared
		req.WgOptions.LANGateway = lanGateway
		wgResult, wgErr := wgtunnel.Setup(ctx, g, selected, req.WireguardKeys, req.WgOptions)
		if wgErr != nil {
			err = errcat.Platform.New(wgErr)
			return TunnelsSetup{}, err
		}
		o.emit(StatusConnected)
		return TunnelsSetup{Wg: wgResult}, nil
	}

	req.MixOptions.LANGateway = lanGateway
	mixResult, mixErr := mixtunnel.Setup(ctx, shared, selected.Exit.IprAddress, req.MixOptions)
	if mixErr != nil {
		err = errcat.Platform.New(mixErr)
		return TunnelsSetup{}, err
	}
	o.emit(StatusConnected)
	return TunnelsSetup{Mix: mixResult}, nil
}

// Lanes used by the bandwidth controller and gateway reconciliation tasks
// are named children of g; the orchestrator itself never calls g.Wait —
// shutdown is driven by cancelling the context g was built from.
