package domain

import "time"

// CompanyResult is the cleared outcome of one company's IPO auction.
type CompanyResult struct {
	CompanyID      string
	CompanyName    string
	ClearingPrice  float64
	Allocations    []Allocation
	TotalAllocated int
	Unsold         int
	Undersold      bool
}

// RoundResult is the per-round completion notification handed to the
// surrounding layer once clearing has run for every company.
type RoundResult struct {
	SessionID   string
	Round       int
	CompletedAt time.Time
	Companies   []CompanyResult
	Warnings    []string // degraded outcomes and invariant diagnostics, never fatal
}

// ParticipantSnapshot is one participant's view in a ledger snapshot.
type ParticipantSnapshot struct {
	ParticipantID string
	Name          string
	IsHuman       bool
	Cash          float64
	TotalSpent    float64
	Shares        map[string]int
	NetWorth      float64
	CEOOf         []string // company ids where this participant holds the title
}

// LedgerSnapshot is the on-demand view of every participant's balances.
type LedgerSnapshot struct {
	SessionID    string
	Round        int
	Phase        Phase
	TakenAt      time.Time
	Participants []ParticipantSnapshot // sorted by net worth descending
}
