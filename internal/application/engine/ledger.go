package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

// Ledger applies auction allocations to participant balances. Every
// settlement is keyed (round, participant, company) and applied at most
// once, so replaying a round's allocations is harmless. Callers hold the
// session mutex; the ledger itself carries no lock.
type Ledger struct {
	applied  map[string]bool
	allocSeq int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{applied: make(map[string]bool)}
}

// Apply settles one allocation: debit shares×clearingPrice from cash, credit
// the shares, grow totalSpent by the same amount. Returns false if this
// (round, participant, company) settlement was already applied.
func (l *Ledger) Apply(round int, p *domain.Participant, c *domain.Company, shares int, clearingPrice float64) bool {
	if shares <= 0 {
		return false
	}
	key := fmt.Sprintf("%d|%s|%s", round, p.ID, c.ID)
	if l.applied[key] {
		return false
	}
	l.applied[key] = true

	cost := float64(shares) * clearingPrice
	p.Cash -= cost
	p.TotalSpent += cost
	l.allocSeq++
	p.Credit(c.ID, shares, l.allocSeq)
	c.SharesAllocated += shares
	return true
}

// CheckConservation verifies cash + totalSpent == initialCapital for every
// participant, within the currency tolerance. Violations are defects to be
// surfaced to operators and tests, never a reason to halt the round; the
// returned strings become round warnings.
func CheckConservation(participants map[string]*domain.Participant) []string {
	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var warnings []string
	for _, id := range ids {
		p := participants[id]
		drift := math.Abs(p.Cash + p.TotalSpent - p.InitialCapital)
		if drift > domain.CashTolerance {
			warnings = append(warnings, fmt.Sprintf(
				"ledger drift for %s: cash %.2f + spent %.2f != initial %.2f (off by %.4f)",
				p.ID, p.Cash, p.TotalSpent, p.InitialCapital, drift))
		}
	}
	return warnings
}
