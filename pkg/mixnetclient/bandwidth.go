package mixnetclient

import (
	"context"

	"github.com/datawire/dlib/dlog"
)

// BandwidthController is a long-running task, spawned as a named child of
// the root task hierarchy, whose only job is to guarantee that the shared
// mixnet client is disconnected exactly once when the task tree is torn
// down. It does not track bandwidth accounting (neither do the per-gateway
// WgGatewayClient reconciliation tasks in pkg/wgtunnel, which only wait for
// shutdown); it is purely the shutdown-triggered disconnect owner.
type BandwidthController struct {
	shared *SharedMixnetClient
}

// NewBandwidthController binds the controller to the shared client it will
// disconnect on shutdown.
func NewBandwidthController(shared *SharedMixnetClient) *BandwidthController {
	return &BandwidthController{shared: shared}
}

// Run blocks until ctx is done, then disconnects the shared mixnet client
// and returns. Intended to be passed to (*dgroup.Group).Go("bandwidth", ...).
func (b *BandwidthController) Run(ctx context.Context) error {
	<-ctx.Done()
	dlog.Debug(ctx, "bandwidth controller: shutdown received, disconnecting mixnet client")
	// Shutdown may itself have cancelled ctx, so disconnect with a context
	// that is still usable for the teardown call.
	return b.shared.Disconnect(context.WithoutCancel(ctx))
}
