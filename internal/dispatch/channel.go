package dispatch

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Channel is the minimal outbound-messaging contract the engine depends on.
// The real driver (WhatsApp or otherwise) lives outside this module.
type Channel interface {
	// SendOne delivers one message and returns the provider's message id.
	SendOne(ctx context.Context, contact model.Contact, message string) (string, error)
	// IsReady reports whether the channel can accept sends right now.
	IsReady() bool
}

// ChannelState is the connection lifecycle of an outbound channel.
type ChannelState string

const (
	StateUninitialized ChannelState = "uninitialized"
	StateAwaitingAuth  ChannelState = "awaiting-auth"
	StateReady         ChannelState = "ready"
	StateDisconnected  ChannelState = "disconnected"
)

// validTransitions encodes the channel lifecycle. A disconnected channel may
// re-authenticate or come straight back up.
var validTransitions = map[ChannelState][]ChannelState{
	StateUninitialized: {StateAwaitingAuth, StateReady},
	StateAwaitingAuth:  {StateReady, StateDisconnected},
	StateReady:         {StateDisconnected},
	StateDisconnected:  {StateAwaitingAuth, StateReady},
}

// StateMachine tracks a channel's connection state and notifies subscribers
// on every transition. It replaces ad-hoc ready/qr/disconnect event handling
// with an explicit lifecycle the engine can probe synchronously.
type StateMachine struct {
	mu    sync.RWMutex
	state ChannelState
	subs  []func(from, to ChannelState)
}

// NewStateMachine starts in the uninitialized state.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateUninitialized}
}

// State returns the current state.
func (m *StateMachine) State() ChannelState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Ready reports whether the channel is in the ready state.
func (m *StateMachine) Ready() bool {
	return m.State() == StateReady
}

// Transition moves to a new state, rejecting moves the lifecycle does not
// allow. Subscribers are invoked synchronously after the state changes.
func (m *StateMachine) Transition(to ChannelState) error {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return nil
	}
	allowed := false
	for _, next := range validTransitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return eris.Errorf("dispatch: invalid channel transition %s -> %s", from, to)
	}
	m.state = to
	subs := make([]func(from, to ChannelState), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	zap.L().Info("channel state changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	for _, fn := range subs {
		fn(from, to)
	}
	return nil
}

// Subscribe registers a callback for future transitions.
func (m *StateMachine) Subscribe(fn func(from, to ChannelState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}
