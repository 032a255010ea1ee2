package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

// CompanySpec is the company roster entry handed in by the session layer.
type CompanySpec struct {
	ID          string
	Name        string
	TotalShares int
}

// ParticipantSpec is the participant roster entry handed in by the session
// layer. Profile is nil for humans.
type ParticipantSpec struct {
	ID          string
	DisplayName string
	IsHuman     bool
	Capital     float64
	Profile     *domain.BotProfile
}

// Session owns all mutable state of one game: roster, phase, the round's bid
// pool and the ledger. All access goes through the session mutex; the
// processing guard and epoch exist so a long clearing pass can run outside
// the lock without racing submissions or a concurrent reset.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	phase        domain.Phase
	round        int
	epoch        uint64
	processing   atomic.Bool
	companies    []*domain.Company
	companyByID  map[string]*domain.Company
	participants map[string]*domain.Participant
	bids         map[string]map[string]domain.Bid // companyID → participantID → bid
	nextSeq      int64
	ledger       *Ledger
	rng          *rand.Rand
	forceTimer   *time.Timer
}

// Phase returns the session's current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Round returns the current round counter (0 before the first IPO round).
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Companies returns the ordered company slate.
func (s *Session) Companies() []*domain.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Company, len(s.companies))
	copy(out, s.companies)
	return out
}

// Participant looks up a participant by id.
func (s *Session) Participant(id string) (*domain.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	return p, ok
}

// botIDs returns the bot participant ids in a stable order so bot bid
// generation is reproducible under a fixed seed.
func (s *Session) botIDs() []string {
	ids := make([]string, 0, len(s.participants))
	for id, p := range s.participants {
		if !p.IsHuman {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// LedgerSnapshot builds the on-demand balances view: cash, total spent,
// holdings, net worth and CEO titles per participant, richest first.
func (s *Session) LedgerSnapshot() domain.LedgerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.LedgerSnapshot{
		SessionID: s.ID,
		Round:     s.round,
		Phase:     s.phase,
		TakenAt:   time.Now().UTC(),
	}

	ceoByCompany := make(map[string]string)
	for _, c := range s.companies {
		if ceo := domain.CEOOf(c, s.participants); ceo != nil {
			ceoByCompany[c.ID] = ceo.ID
		}
	}

	for _, p := range s.participants {
		shares := make(map[string]int, len(p.Shares))
		for cid, n := range p.Shares {
			shares[cid] = n
		}
		ps := domain.ParticipantSnapshot{
			ParticipantID: p.ID,
			Name:          p.Name,
			IsHuman:       p.IsHuman,
			Cash:          p.Cash,
			TotalSpent:    p.TotalSpent,
			Shares:        shares,
			NetWorth:      p.NetWorth(s.companies),
		}
		for _, c := range s.companies {
			if ceoByCompany[c.ID] == p.ID {
				ps.CEOOf = append(ps.CEOOf, c.ID)
			}
		}
		snap.Participants = append(snap.Participants, ps)
	}

	sort.Slice(snap.Participants, func(i, j int) bool {
		a, b := snap.Participants[i], snap.Participants[j]
		if a.NetWorth != b.NetWorth {
			return a.NetWorth > b.NetWorth
		}
		return a.ParticipantID < b.ParticipantID
	})
	return snap
}

// Manager owns all live sessions, keyed by id. Sessions are fully
// independent; nothing is shared across them.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new session in the lobby phase. The seed feeds the
// session's private random source so tests can force deterministic bot
// behavior without changing the bid policy itself.
func (m *Manager) Create(id string, seed int64, companies []CompanySpec, participants []ParticipantSpec) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("engine.Create: empty session id")
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("engine.Create: session %s has no companies", id)
	}

	s := &Session{
		ID:           id,
		CreatedAt:    time.Now().UTC(),
		phase:        domain.PhaseLobby,
		companyByID:  make(map[string]*domain.Company, len(companies)),
		participants: make(map[string]*domain.Participant, len(participants)),
		bids:         make(map[string]map[string]domain.Bid),
		ledger:       NewLedger(),
		rng:          rand.New(rand.NewSource(seed)),
	}

	for _, spec := range companies {
		if spec.TotalShares <= 0 {
			return nil, fmt.Errorf("engine.Create: company %s has no shares", spec.ID)
		}
		if _, dup := s.companyByID[spec.ID]; dup {
			return nil, fmt.Errorf("engine.Create: duplicate company id %s", spec.ID)
		}
		c := &domain.Company{ID: spec.ID, Name: spec.Name, TotalShares: spec.TotalShares}
		s.companies = append(s.companies, c)
		s.companyByID[spec.ID] = c
	}

	for _, spec := range participants {
		if _, dup := s.participants[spec.ID]; dup {
			return nil, fmt.Errorf("engine.Create: duplicate participant id %s", spec.ID)
		}
		if !spec.IsHuman && spec.Profile == nil {
			return nil, fmt.Errorf("engine.Create: bot %s has no profile", spec.ID)
		}
		s.participants[spec.ID] = domain.NewParticipant(
			spec.ID, spec.DisplayName, spec.IsHuman, spec.Capital, spec.Profile)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("engine.Create: session %s already exists", id)
	}
	m.sessions[id] = s
	return s, nil
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Reset tears a session down. The epoch bump invalidates any clearing pass
// still in flight: its results are dropped instead of being written into a
// session that no longer exists.
func (m *Manager) Reset(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	s.epoch++
	if s.forceTimer != nil {
		s.forceTimer.Stop()
		s.forceTimer = nil
	}
	s.mu.Unlock()
	return true
}
