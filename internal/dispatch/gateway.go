package dispatch

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/wagateway"
)

// gatewayStateFor maps the gateway's wire state strings onto the channel
// lifecycle.
func gatewayStateFor(wire string) ChannelState {
	switch wire {
	case "ready", "connected":
		return StateReady
	case "qr", "authenticating", "pairing":
		return StateAwaitingAuth
	case "disconnected", "closed":
		return StateDisconnected
	default:
		return StateUninitialized
	}
}

// GatewayChannel adapts the WhatsApp gateway client to the engine's Channel
// contract, keeping a local state machine in sync with the remote gateway.
type GatewayChannel struct {
	client wagateway.Client
	states *StateMachine
}

// NewGatewayChannel wraps a gateway client. Call Probe before dispatching to
// learn the gateway's current state.
func NewGatewayChannel(client wagateway.Client) *GatewayChannel {
	return &GatewayChannel{
		client: client,
		states: NewStateMachine(),
	}
}

// States exposes the channel's state machine for subscription.
func (g *GatewayChannel) States() *StateMachine {
	return g.states
}

// Probe asks the gateway for its connection state and records it locally.
func (g *GatewayChannel) Probe(ctx context.Context) (ChannelState, error) {
	wire, err := g.client.Status(ctx)
	if err != nil {
		return g.states.State(), eris.Wrap(err, "dispatch: gateway status probe")
	}
	next := gatewayStateFor(wire)
	if err := g.states.Transition(next); err != nil {
		// An unexpected remote state that the lifecycle rejects is worth
		// surfacing, but the probe itself succeeded.
		zap.L().Warn("gateway reported state outside lifecycle",
			zap.String("wire_state", wire),
			zap.String("local_state", string(g.states.State())),
		)
	}
	return g.states.State(), nil
}

// WaitReady probes until the gateway reports ready or the deadline passes.
func (g *GatewayChannel) WaitReady(ctx context.Context, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		state, err := g.Probe(ctx)
		if err == nil && state == StateReady {
			return nil
		}
		select {
		case <-ctx.Done():
			return eris.Wrapf(ctx.Err(), "dispatch: gateway not ready (last state %s)", state)
		case <-time.After(interval):
		}
	}
}

// SendOne delivers one message through the gateway.
func (g *GatewayChannel) SendOne(ctx context.Context, contact model.Contact, message string) (string, error) {
	return g.client.SendMessage(ctx, contact.Phone, message)
}

// IsReady reports the last probed state.
func (g *GatewayChannel) IsReady() bool {
	return g.states.Ready()
}

var _ Channel = (*GatewayChannel)(nil)
