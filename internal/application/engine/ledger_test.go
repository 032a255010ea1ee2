package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

func TestLedgerApply_DebitsOnce(t *testing.T) {
	l := NewLedger()
	c := &domain.Company{ID: "acme", TotalShares: 1000}
	p := domain.NewParticipant("alice", "Alice", true, 1000, nil)

	assert.True(t, l.Apply(1, p, c, 300, 2.25))
	assert.InDelta(t, 325.0, p.Cash, 0.001)       // 1000 - 675
	assert.InDelta(t, 675.0, p.TotalSpent, 0.001) // 300 × 2.25
	assert.Equal(t, 300, p.Shares["acme"])
	assert.Equal(t, 300, c.SharesAllocated)
}

func TestLedgerApply_IdempotentAgainstReplay(t *testing.T) {
	l := NewLedger()
	c := &domain.Company{ID: "acme", TotalShares: 1000}
	p := domain.NewParticipant("alice", "Alice", true, 1000, nil)

	assert.True(t, l.Apply(1, p, c, 300, 2.25))
	assert.False(t, l.Apply(1, p, c, 300, 2.25), "replay must be a no-op")

	assert.InDelta(t, 325.0, p.Cash, 0.001)
	assert.Equal(t, 300, p.Shares["acme"])
	assert.Equal(t, 300, c.SharesAllocated)
}

func TestLedgerApply_DistinctKeysStillApply(t *testing.T) {
	l := NewLedger()
	acme := &domain.Company{ID: "acme", TotalShares: 1000}
	bolt := &domain.Company{ID: "bolt", TotalShares: 1000}
	p := domain.NewParticipant("alice", "Alice", true, 1000, nil)

	assert.True(t, l.Apply(1, p, acme, 100, 2.0))
	assert.True(t, l.Apply(1, p, bolt, 100, 1.0))
	assert.True(t, l.Apply(2, p, acme, 100, 2.0), "a later round settles again")
}

func TestLedgerApply_ZeroSharesRejected(t *testing.T) {
	l := NewLedger()
	c := &domain.Company{ID: "acme", TotalShares: 1000}
	p := domain.NewParticipant("alice", "Alice", true, 1000, nil)
	assert.False(t, l.Apply(1, p, c, 0, 2.0))
}

func TestCheckConservation_CleanLedger(t *testing.T) {
	p := domain.NewParticipant("alice", "Alice", true, 1000, nil)
	p.Cash = 325
	p.TotalSpent = 675
	assert.Empty(t, CheckConservation(map[string]*domain.Participant{"alice": p}))
}

func TestCheckConservation_SurfacesDrift(t *testing.T) {
	p := domain.NewParticipant("alice", "Alice", true, 1000, nil)
	p.Cash = 300 // 25 currency units leaked somewhere
	p.TotalSpent = 675

	warnings := CheckConservation(map[string]*domain.Participant{"alice": p})
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "alice")
}

func TestCheckConservation_ToleratesRounding(t *testing.T) {
	p := domain.NewParticipant("alice", "Alice", true, 1000, nil)
	p.Cash = 324.995
	p.TotalSpent = 675
	assert.Empty(t, CheckConservation(map[string]*domain.Participant{"alice": p}))
}
