package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToQuarter(t *testing.T) {
	assert.Equal(t, 2.25, RoundToQuarter(2.30))
	assert.Equal(t, 2.50, RoundToQuarter(2.40))
	assert.Equal(t, 2.25, RoundToQuarter(2.25))
	assert.Equal(t, 0.0, RoundToQuarter(0.10))
	assert.Equal(t, 3.0, RoundToQuarter(2.90))
}

func TestFloorToLot(t *testing.T) {
	assert.Equal(t, 300, FloorToLot(399, 100))
	assert.Equal(t, 0, FloorToLot(99, 100))
	assert.Equal(t, 400, FloorToLot(400, 100))
	assert.Equal(t, 0, FloorToLot(-50, 100))
	// lotSize <= 0 falls back to the default lot
	assert.Equal(t, 200, FloorToLot(250, 0))
}

func TestLerpAndClamp(t *testing.T) {
	assert.Equal(t, 2.5, Lerp(2.0, 3.0, 0.5))
	assert.Equal(t, 2.0, Lerp(2.0, 3.0, -1))
	assert.Equal(t, 3.0, Lerp(2.0, 3.0, 2))
	assert.Equal(t, 1.0, Clamp(0.5, 1.0, 2.0))
	assert.Equal(t, 2.0, Clamp(9.0, 1.0, 2.0))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PhaseLobby, PhaseIPO))
	assert.True(t, CanTransition(PhaseIPO, PhaseNewspaper))
	assert.True(t, CanTransition(PhaseNewspaper, PhaseTrading))
	assert.False(t, CanTransition(PhaseIPO, PhaseTrading))
	assert.False(t, CanTransition(PhaseNewspaper, PhaseIPO))
	assert.False(t, CanTransition(PhaseTrading, PhaseLobby))
}
