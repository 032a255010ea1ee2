package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/marketsim/internal/adapters/notify"
	"github.com/alejandrodnm/marketsim/internal/domain"
)

func makeResult() domain.RoundResult {
	return domain.RoundResult{
		SessionID:   "game1",
		Round:       1,
		CompletedAt: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		Companies: []domain.CompanyResult{
			{
				CompanyID:     "acme",
				CompanyName:   "Acme Corp",
				ClearingPrice: 2.25,
				Allocations: []domain.Allocation{
					{ParticipantID: "alice", Shares: 300, Cost: 675},
					{ParticipantID: "bot-1", Shares: 700, Cost: 1575},
				},
				TotalAllocated: 1000,
			},
			{
				CompanyID:      "bolt",
				CompanyName:    "Bolt Industries",
				ClearingPrice:  1.50,
				Allocations:    []domain.Allocation{{ParticipantID: "alice", Shares: 400, Cost: 600}},
				TotalAllocated: 400,
				Unsold:         600,
				Undersold:      true,
			},
		},
		Warnings: []string{"demand for bolt covered only 400 of 1000 shares; price fell back to the lowest bid"},
	}
}

func TestConsole_RoundCompleted_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.RoundCompleted(context.Background(), makeResult()))

	out := buf.String()
	assert.Contains(t, out, "ROUND 1")
	assert.Contains(t, out, "Acme Corp")
	assert.Contains(t, out, "Bolt Industries")
	assert.Contains(t, out, "2.25")
	assert.Contains(t, out, "UNDERSOLD")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "!!")
}

func TestConsole_RoundCompleted_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.RoundCompleted(context.Background(), makeResult()))

	out := buf.String()
	assert.Contains(t, out, "round 1 cleared")
	assert.Contains(t, out, "acme @2.25 1000/1000")
	assert.Contains(t, out, "bolt @1.50 400/1000 (undersold)")
	assert.Contains(t, out, "warnings:1")
}

func TestConsole_PrintLedger(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	n.PrintLedger(domain.LedgerSnapshot{
		SessionID: "game1",
		Round:     1,
		Phase:     domain.PhaseNewspaper,
		Participants: []domain.ParticipantSnapshot{
			{
				ParticipantID: "alice", Name: "Alice", IsHuman: true,
				Cash: 325, TotalSpent: 675,
				Shares:   map[string]int{"acme": 300},
				NetWorth: 1000,
				CEOOf:    []string{"acme"},
			},
			{
				ParticipantID: "bot-1", Name: "Bot One",
				Cash: 1000, NetWorth: 1000,
			},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "LEDGER")
	assert.Contains(t, out, "Alice *")
	assert.Contains(t, out, "acme:300")
	assert.Contains(t, out, "$325.00")
	assert.Contains(t, out, "Bot One")
}
