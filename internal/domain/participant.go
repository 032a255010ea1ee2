package domain

// CEOThreshold is the ownership fraction that confers controlling status
// over a company within the simulation.
const CEOThreshold = 0.35

// Participant is a player in the session — human or bot. Cash is debited only
// at settlement, never at bid submission, so Cash+TotalSpent stays equal to
// InitialCapital at every observable point.
type Participant struct {
	ID             string
	Name           string
	IsHuman        bool
	Profile        *BotProfile // nil for humans
	InitialCapital float64
	Cash           float64
	TotalSpent     float64
	Shares         map[string]int // companyID → count
	firstHeld      map[string]int64
}

// NewParticipant creates a participant with its full capital as cash.
func NewParticipant(id, name string, human bool, capital float64, profile *BotProfile) *Participant {
	return &Participant{
		ID:             id,
		Name:           name,
		IsHuman:        human,
		Profile:        profile,
		InitialCapital: capital,
		Cash:           capital,
		Shares:         make(map[string]int),
		firstHeld:      make(map[string]int64),
	}
}

// Credit adds shares of a company, recording the first acquisition order so
// CEO ties can be broken by earliest allocation.
func (p *Participant) Credit(companyID string, shares int, seq int64) {
	if shares <= 0 {
		return
	}
	if _, held := p.firstHeld[companyID]; !held {
		p.firstHeld[companyID] = seq
	}
	p.Shares[companyID] += shares
}

// FirstHeldSeq returns the allocation order in which the participant first
// acquired shares of the company, or -1 if it holds none.
func (p *Participant) FirstHeldSeq(companyID string) int64 {
	seq, ok := p.firstHeld[companyID]
	if !ok {
		return -1
	}
	return seq
}

// NetWorth is cash plus holdings valued at each company's current price.
func (p *Participant) NetWorth(companies []*Company) float64 {
	worth := p.Cash
	for _, c := range companies {
		worth += float64(p.Shares[c.ID]) * c.Price
	}
	return worth
}

// OwnershipPct returns the fraction of the company the participant holds.
func (p *Participant) OwnershipPct(c *Company) float64 {
	if c == nil || c.TotalShares <= 0 {
		return 0
	}
	return float64(p.Shares[c.ID]) / float64(c.TotalShares)
}

// IsCEO reports whether the participant's stake crosses the CEO threshold.
// When several holders qualify, CEOOf decides who actually wears the title.
func (p *Participant) IsCEO(c *Company) bool {
	return p.OwnershipPct(c) >= CEOThreshold
}

// CEOOf resolves the single CEO of a company: highest ownership fraction at or
// above the threshold, ties broken by earliest first allocation. Returns nil
// if nobody qualifies.
func CEOOf(c *Company, participants map[string]*Participant) *Participant {
	var ceo *Participant
	for _, p := range participants {
		if !p.IsCEO(c) {
			continue
		}
		if ceo == nil {
			ceo = p
			continue
		}
		switch {
		case p.Shares[c.ID] > ceo.Shares[c.ID]:
			ceo = p
		case p.Shares[c.ID] == ceo.Shares[c.ID] && p.FirstHeldSeq(c.ID) < ceo.FirstHeldSeq(c.ID):
			ceo = p
		}
	}
	return ceo
}
