package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

// recordingNotifier captures every published round result.
type recordingNotifier struct {
	mu      sync.Mutex
	results []domain.RoundResult
}

func (n *recordingNotifier) RoundCompleted(_ context.Context, r domain.RoundResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, r)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

func (n *recordingNotifier) last() domain.RoundResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.results[len(n.results)-1]
}

func newMixedSession(t *testing.T, cfg Config) (*Manager, *Controller, *Session, *recordingNotifier) {
	t.Helper()
	reg := domain.NewProfileRegistry()
	balanced, err := reg.Get(domain.ArchetypeBalanced)
	require.NoError(t, err)
	aggressive, err := reg.Get(domain.ArchetypeAggressive)
	require.NoError(t, err)

	m := NewManager()
	s, err := m.Create("game1", 42, []CompanySpec{
		{ID: "acme", Name: "Acme Corp", TotalShares: 1000},
		{ID: "bolt", Name: "Bolt Industries", TotalShares: 1500},
	}, []ParticipantSpec{
		{ID: "alice", DisplayName: "Alice", IsHuman: true, Capital: 1000},
		{ID: "bot-1", DisplayName: "Bot One", Capital: 1000, Profile: &balanced},
		{ID: "bot-2", DisplayName: "Bot Two", Capital: 1000, Profile: &aggressive},
	})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	ctl := NewController(m, notifier, nil, cfg)
	return m, ctl, s, notifier
}

func TestCloseRound_FullRound(t *testing.T) {
	_, ctl, s, notifier := newMixedSession(t, Config{})
	require.NoError(t, ctl.StartRound("game1"))
	require.Equal(t, domain.PhaseIPO, s.Phase())
	require.Equal(t, 1, s.Round())

	_, err := s.SubmitBid("alice", "acme", 200, 2.50)
	require.NoError(t, err)

	require.NoError(t, ctl.CloseRound(context.Background(), "game1"))

	assert.Equal(t, domain.PhaseNewspaper, s.Phase())
	require.Equal(t, 1, notifier.count())
	result := notifier.last()
	assert.Equal(t, "game1", result.SessionID)
	assert.Equal(t, 1, result.Round)
	require.Len(t, result.Companies, 2)

	for _, cr := range result.Companies {
		total := 0
		for _, a := range cr.Allocations {
			total += a.Shares
			// Uniform pricing: every winner pays the clearing price.
			assert.InDelta(t, float64(a.Shares)*cr.ClearingPrice, a.Cost, 0.001)
		}
		assert.Equal(t, cr.TotalAllocated, total)
	}

	// Allocated shares never exceed the float, and the market price moved to
	// the clearing price.
	for _, c := range s.Companies() {
		assert.LessOrEqual(t, c.SharesAllocated, c.TotalShares)
		if c.SharesAllocated > 0 {
			assert.Positive(t, c.Price)
		}
	}

	// Conservation: cash + total spent == initial capital for everyone.
	for _, id := range []string{"alice", "bot-1", "bot-2"} {
		p, ok := s.Participant(id)
		require.True(t, ok)
		assert.InDelta(t, 1000.0, p.Cash+p.TotalSpent, domain.CashTolerance, id)
	}
	assert.Empty(t, CheckConservation(s.participants))
}

func TestCloseRound_DeterministicClearing(t *testing.T) {
	// Humans only, one company: the classic oversubscribed book. 2.75×300 and
	// 2.50×200 cumulate to 500 before 2.25×500 pushes demand past the
	// 1000-share float, so 2.25 clears and everyone pays it.
	m := NewManager()
	s, err := m.Create("game1", 1, []CompanySpec{
		{ID: "acme", Name: "Acme Corp", TotalShares: 1000},
	}, []ParticipantSpec{
		{ID: "a", DisplayName: "A", IsHuman: true, Capital: 2000},
		{ID: "b", DisplayName: "B", IsHuman: true, Capital: 2000},
		{ID: "c", DisplayName: "C", IsHuman: true, Capital: 2000},
	})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	ctl := NewController(m, notifier, nil, Config{})
	require.NoError(t, ctl.StartRound("game1"))

	_, err = s.SubmitBid("a", "acme", 300, 2.75)
	require.NoError(t, err)
	_, err = s.SubmitBid("b", "acme", 200, 2.50)
	require.NoError(t, err)
	_, err = s.SubmitBid("c", "acme", 500, 2.25)
	require.NoError(t, err)

	require.NoError(t, ctl.CloseRound(context.Background(), "game1"))

	require.Equal(t, 1, notifier.count())
	cr := notifier.last().Companies[0]
	assert.InDelta(t, 2.25, cr.ClearingPrice, 0.001)
	assert.Equal(t, 1000, cr.TotalAllocated)
	assert.Equal(t, 0, cr.Unsold)

	pa, _ := s.Participant("a")
	pb, _ := s.Participant("b")
	pc, _ := s.Participant("c")
	assert.InDelta(t, 675.0, pa.TotalSpent, 0.001)
	assert.InDelta(t, 450.0, pb.TotalSpent, 0.001)
	assert.InDelta(t, 1125.0, pc.TotalSpent, 0.001)
}

func TestCloseRound_ConcurrentTriggersClearOnce(t *testing.T) {
	_, ctl, _, notifier := newMixedSession(t, Config{ProcessingDelay: 80 * time.Millisecond})
	require.NoError(t, ctl.StartRound("game1"))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ctl.CloseRound(context.Background(), "game1"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, notifier.count(), "both triggers ran but only one cleared")
}

func TestCloseRound_SecondTriggerIsNoOp(t *testing.T) {
	_, ctl, s, notifier := newMixedSession(t, Config{})
	require.NoError(t, ctl.StartRound("game1"))
	require.NoError(t, ctl.CloseRound(context.Background(), "game1"))
	require.Equal(t, 1, notifier.count())

	// The round is closed; a late trigger finds no ipo phase and walks away.
	require.NoError(t, ctl.CloseRound(context.Background(), "game1"))
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, domain.PhaseNewspaper, s.Phase())
}

func TestCloseRound_ResetMidFlightDropsResults(t *testing.T) {
	m, ctl, s, notifier := newMixedSession(t, Config{ProcessingDelay: 150 * time.Millisecond})
	require.NoError(t, ctl.StartRound("game1"))

	done := make(chan error, 1)
	go func() { done <- ctl.CloseRound(context.Background(), "game1") }()

	time.Sleep(30 * time.Millisecond) // let the pass enter its delay
	require.True(t, m.Reset("game1"))

	require.NoError(t, <-done)
	assert.Equal(t, 0, notifier.count(), "stale results must be dropped")

	// Nothing was settled against the torn-down session.
	p, _ := s.Participant("alice")
	assert.Equal(t, 1000.0, p.Cash)
	assert.Equal(t, 0.0, p.TotalSpent)
}

func TestStartRound_WindowForcesAdvance(t *testing.T) {
	_, ctl, s, notifier := newMixedSession(t, Config{RoundWindow: 40 * time.Millisecond})
	require.NoError(t, ctl.StartRound("game1"))
	require.Equal(t, domain.PhaseIPO, s.Phase())

	assert.Eventually(t, func() bool {
		return s.Phase() == domain.PhaseNewspaper
	}, 2*time.Second, 10*time.Millisecond, "window expiry should close the round")
	assert.Equal(t, 1, notifier.count())
}

func TestStartRound_RejectedOutsideLobby(t *testing.T) {
	_, ctl, _, _ := newMixedSession(t, Config{})
	require.NoError(t, ctl.StartRound("game1"))
	assert.Error(t, ctl.StartRound("game1"), "an open round cannot be reopened")
}

func TestAdvancePhase(t *testing.T) {
	_, ctl, s, _ := newMixedSession(t, Config{})

	assert.Error(t, ctl.AdvancePhase("game1", domain.PhaseTrading), "lobby cannot skip to trading")

	require.NoError(t, ctl.StartRound("game1"))
	require.NoError(t, ctl.CloseRound(context.Background(), "game1"))
	require.Equal(t, domain.PhaseNewspaper, s.Phase())

	require.NoError(t, ctl.AdvancePhase("game1", domain.PhaseTrading))
	assert.Equal(t, domain.PhaseTrading, s.Phase())

	assert.Error(t, ctl.AdvancePhase("ghost", domain.PhaseTrading))
}
