package engine

import (
	"fmt"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

// RejectReason classifies why a bid submission was refused.
type RejectReason string

const (
	RejectUnknownParticipant RejectReason = "unknown_participant"
	RejectUnknownCompany     RejectReason = "unknown_company"
	RejectWrongPhase         RejectReason = "wrong_phase"
	RejectBadShares          RejectReason = "bad_shares"
	RejectBadPrice           RejectReason = "bad_price"
	RejectCapitalExceeded    RejectReason = "capital_exceeded"
)

// BidError is a structured rejection. It never aborts the round — the caller
// reports the reason back to the submitter and the round carries on.
type BidError struct {
	Reason RejectReason
	Detail string
}

func (e *BidError) Error() string {
	return fmt.Sprintf("bid rejected (%s): %s", e.Reason, e.Detail)
}

func reject(reason RejectReason, format string, args ...any) error {
	return &BidError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// SubmitBid validates and stores a bid for the active IPO round. No cash
// moves here — cash is debited only at settlement — so validation runs
// against uncommitted capital: cash minus the cost of every other bid the
// participant already has pending this round. A second submission for the
// same (participant, company) replaces the first, so pending cost is never
// double-counted.
func (s *Session) SubmitBid(participantID, companyID string, shares int, price float64) (domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(participantID, companyID, shares, price)
}

// submitLocked is the submission path shared by humans and collectBotBids.
// Caller holds s.mu.
func (s *Session) submitLocked(participantID, companyID string, shares int, price float64) (domain.Bid, error) {
	p, ok := s.participants[participantID]
	if !ok {
		return domain.Bid{}, reject(RejectUnknownParticipant, "participant %q not in session", participantID)
	}
	if _, ok := s.companyByID[companyID]; !ok {
		return domain.Bid{}, reject(RejectUnknownCompany, "company %q not in session", companyID)
	}
	if s.phase != domain.PhaseIPO {
		return domain.Bid{}, reject(RejectWrongPhase, "phase is %s, bids are only open during %s", s.phase, domain.PhaseIPO)
	}
	if shares <= 0 {
		return domain.Bid{}, reject(RejectBadShares, "shares must be positive, got %d", shares)
	}
	if price <= 0 {
		return domain.Bid{}, reject(RejectBadPrice, "price must be positive, got %.2f", price)
	}

	cost := price * float64(shares)
	remaining := p.Cash - s.pendingCostLocked(participantID, companyID)
	if cost > remaining+domain.CashTolerance {
		return domain.Bid{}, reject(RejectCapitalExceeded,
			"bid costs %.2f but only %.2f uncommitted capital remains", cost, remaining)
	}

	s.nextSeq++
	b := domain.Bid{
		ParticipantID: participantID,
		CompanyID:     companyID,
		Price:         price,
		Shares:        shares,
		Seq:           s.nextSeq,
	}
	pool, ok := s.bids[companyID]
	if !ok {
		pool = make(map[string]domain.Bid)
		s.bids[companyID] = pool
	}
	pool[participantID] = b
	return b, nil
}

// pendingCostLocked sums the participant's pending bid costs across all
// companies, excluding the bid (if any) that a new submission for
// excludeCompany would replace. Caller holds s.mu.
func (s *Session) pendingCostLocked(participantID, excludeCompany string) float64 {
	total := 0.0
	for companyID, pool := range s.bids {
		if companyID == excludeCompany {
			continue
		}
		if b, ok := pool[participantID]; ok {
			total += b.Cost()
		}
	}
	return total
}

// PendingBids returns the participant's currently stored bids for the round.
func (s *Session) PendingBids(participantID string) []domain.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Bid
	for _, pool := range s.bids {
		if b, ok := pool[participantID]; ok {
			out = append(out, b)
		}
	}
	return out
}

// companyBidsLocked flattens one company's pool for clearing. Caller holds s.mu.
func (s *Session) companyBidsLocked(companyID string) []domain.Bid {
	pool := s.bids[companyID]
	out := make([]domain.Bid, 0, len(pool))
	for _, b := range pool {
		out = append(out, b)
	}
	return out
}
