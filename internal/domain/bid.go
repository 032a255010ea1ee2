package domain

// Bid is a candidate order for IPO shares. Bids live only for the duration of
// a round: collected while the ipo phase is open, consumed by clearing,
// discarded after allocation.
type Bid struct {
	ParticipantID string
	CompanyID     string
	Price         float64
	Shares        int
	Seq           int64 // arrival order within the round, assigned by the collector
}

// Cost is the capital the bid would commit if fully allocated at its own price.
// Settlement charges the clearing price instead — this figure is only used to
// validate bids against uncommitted capital.
func (b Bid) Cost() float64 {
	return b.Price * float64(b.Shares)
}
