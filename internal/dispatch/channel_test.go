package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_Lifecycle(t *testing.T) {
	m := NewStateMachine()
	assert.Equal(t, StateUninitialized, m.State())
	assert.False(t, m.Ready())

	require.NoError(t, m.Transition(StateAwaitingAuth))
	require.NoError(t, m.Transition(StateReady))
	assert.True(t, m.Ready())

	require.NoError(t, m.Transition(StateDisconnected))
	assert.False(t, m.Ready())

	// A disconnected channel may come straight back up.
	require.NoError(t, m.Transition(StateReady))
	assert.True(t, m.Ready())
}

func TestStateMachine_InvalidTransition(t *testing.T) {
	m := NewStateMachine()

	err := m.Transition(StateDisconnected)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid channel transition")
	assert.Equal(t, StateUninitialized, m.State())
}

func TestStateMachine_SelfTransitionIsNoop(t *testing.T) {
	m := NewStateMachine()

	var calls int
	m.Subscribe(func(from, to ChannelState) { calls++ })

	require.NoError(t, m.Transition(StateUninitialized))
	assert.Zero(t, calls)
}

func TestStateMachine_Subscribe(t *testing.T) {
	m := NewStateMachine()

	type transition struct{ from, to ChannelState }
	var seen []transition
	m.Subscribe(func(from, to ChannelState) {
		seen = append(seen, transition{from, to})
	})

	require.NoError(t, m.Transition(StateAwaitingAuth))
	require.NoError(t, m.Transition(StateReady))

	require.Len(t, seen, 2)
	assert.Equal(t, transition{StateUninitialized, StateAwaitingAuth}, seen[0])
	assert.Equal(t, transition{StateAwaitingAuth, StateReady}, seen[1])
}
