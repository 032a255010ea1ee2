package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/marketsim/internal/domain"
	"github.com/alejandrodnm/marketsim/internal/ports"
)

// Config tunes the round orchestration.
type Config struct {
	// ProcessingDelay simulates the bots "thinking" before clearing runs.
	// Human bids arriving during the delay still make it into the round.
	ProcessingDelay time.Duration

	// RoundWindow bounds how long an IPO round may stay open. When it
	// expires the controller force-advances with whatever bids are
	// collected. 0 disables the timer (tests, externally driven rounds).
	RoundWindow time.Duration

	// LotSize is the minimum tradable share increment for bot sizing.
	LotSize int
}

// Controller sequences each session's round: collection → bot generation →
// clearing → settlement → reporting → phase advance. A per-session atomic
// guard makes the whole pass exactly-once: any trigger that arrives while a
// round is in flight is ignored, not queued.
type Controller struct {
	sessions *Manager
	gen      *BotBidGenerator
	notifier ports.Notifier // optional
	history  ports.History  // optional
	cfg      Config
}

// NewController wires the round orchestrator. notifier and history may be
// nil; the engine itself performs no I/O.
func NewController(sessions *Manager, notifier ports.Notifier, history ports.History, cfg Config) *Controller {
	if cfg.LotSize <= 0 {
		cfg.LotSize = domain.DefaultLotSize
	}
	return &Controller{
		sessions: sessions,
		gen:      NewBotBidGenerator(cfg.LotSize),
		notifier: notifier,
		history:  history,
		cfg:      cfg,
	}
}

// StartRound opens the IPO round: lobby → ipo, a fresh bid pool per company,
// and — if configured — a timer that force-advances the round when the
// window closes.
func (ctl *Controller) StartRound(sessionID string) error {
	s, ok := ctl.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("engine.StartRound: unknown session %s", sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !domain.CanTransition(s.phase, domain.PhaseIPO) {
		return fmt.Errorf("engine.StartRound: session %s is in phase %s", sessionID, s.phase)
	}
	s.phase = domain.PhaseIPO
	s.round++
	s.bids = make(map[string]map[string]domain.Bid, len(s.companies))
	for _, c := range s.companies {
		s.bids[c.ID] = make(map[string]domain.Bid)
	}

	if ctl.cfg.RoundWindow > 0 {
		round := s.round
		s.forceTimer = time.AfterFunc(ctl.cfg.RoundWindow, func() {
			slog.Warn("ipo: round window expired, force-advancing",
				"session", sessionID, "round", round)
			if err := ctl.CloseRound(context.Background(), sessionID); err != nil {
				slog.Warn("ipo: force-advance failed", "session", sessionID, "err", err)
			}
		})
	}

	slog.Info("ipo: round open", "session", sessionID, "round", s.round,
		"companies", len(s.companies), "participants", len(s.participants))
	return nil
}

// CloseRound runs the round's processing pass: bot bid generation, clearing
// per company, settlement, conservation diagnostics and the ipo→newspaper
// advance. The processing guard is the single source of truth for "a round
// is in flight" — a second trigger while it is held is a logged no-op.
func (ctl *Controller) CloseRound(ctx context.Context, sessionID string) error {
	s, ok := ctl.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("engine.CloseRound: unknown session %s", sessionID)
	}

	if !s.processing.CompareAndSwap(false, true) {
		slog.Info("ipo: round already in flight, trigger ignored", "session", sessionID)
		return nil
	}
	defer s.processing.Store(false)

	s.mu.Lock()
	if s.phase != domain.PhaseIPO {
		s.mu.Unlock()
		slog.Info("ipo: no open round to close", "session", sessionID, "phase", s.phase)
		return nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	// Simulated processing time. Submissions keep landing in the pool and
	// are included when clearing finally runs.
	if ctl.cfg.ProcessingDelay > 0 {
		select {
		case <-time.After(ctl.cfg.ProcessingDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		// The session was reset while we were out; drop everything.
		s.mu.Unlock()
		slog.Warn("ipo: session reset mid-round, results dropped", "session", sessionID)
		return nil
	}

	ctl.collectBotBids(s)
	result := ctl.clearLocked(s)

	s.phase = domain.PhaseNewspaper
	s.bids = make(map[string]map[string]domain.Bid)
	if s.forceTimer != nil {
		s.forceTimer.Stop()
		s.forceTimer = nil
	}
	s.mu.Unlock()

	slog.Info("ipo: round cleared", "session", sessionID, "round", result.Round,
		"companies", len(result.Companies), "warnings", len(result.Warnings))
	for _, w := range result.Warnings {
		slog.Warn("ipo: "+w, "session", sessionID)
	}

	ctl.publish(ctx, result)
	return nil
}

// AdvancePhase applies an external phase trigger, e.g. newspaper → trading
// once the session layer has shown the round report.
func (ctl *Controller) AdvancePhase(sessionID string, to domain.Phase) error {
	s, ok := ctl.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("engine.AdvancePhase: unknown session %s", sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !domain.CanTransition(s.phase, to) {
		return fmt.Errorf("engine.AdvancePhase: %s → %s not allowed", s.phase, to)
	}
	s.phase = to
	slog.Info("session: phase advanced", "session", sessionID, "phase", to)
	return nil
}

// collectBotBids asks the generator for every bot's candidates and pushes
// them through the same validation/replacement path as human submissions.
// Caller holds s.mu.
func (ctl *Controller) collectBotBids(s *Session) {
	for _, id := range s.botIDs() {
		p := s.participants[id]
		for _, cand := range ctl.gen.Candidates(s.rng, p, s.companies) {
			if _, err := s.submitLocked(cand.ParticipantID, cand.CompanyID, cand.Shares, cand.Price); err != nil {
				slog.Debug("ipo: bot candidate rejected", "session", s.ID, "bot", id, "err", err)
			}
		}
	}
}

// clearLocked runs the uniform-price auction for every company, settles the
// allocations and assembles the round result. Caller holds s.mu.
func (ctl *Controller) clearLocked(s *Session) domain.RoundResult {
	result := domain.RoundResult{
		SessionID:   s.ID,
		Round:       s.round,
		CompletedAt: time.Now().UTC(),
	}

	for _, c := range s.companies {
		bids := s.companyBidsLocked(c.ID)
		cleared := domain.Clear(bids, c.TotalShares)

		if len(bids) == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no bids for %s; shares stay unsold", c.ID))
		} else if cleared.Undersold {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("demand for %s covered only %d of %d shares; price fell back to the lowest bid",
					c.ID, cleared.TotalAllocated, c.TotalShares))
		}

		c.Price = cleared.ClearingPrice
		for _, a := range cleared.Allocations {
			p := s.participants[a.ParticipantID]
			if !s.ledger.Apply(s.round, p, c, a.Shares, cleared.ClearingPrice) {
				slog.Warn("ledger: duplicate settlement skipped",
					"session", s.ID, "participant", a.ParticipantID, "company", c.ID)
			}
		}

		result.Companies = append(result.Companies, domain.CompanyResult{
			CompanyID:      c.ID,
			CompanyName:    c.Name,
			ClearingPrice:  cleared.ClearingPrice,
			Allocations:    cleared.Allocations,
			TotalAllocated: cleared.TotalAllocated,
			Unsold:         cleared.Unsold,
			Undersold:      cleared.Undersold,
		})
	}

	result.Warnings = append(result.Warnings, CheckConservation(s.participants)...)
	return result
}

// publish delivers the round result to the optional notifier and history
// ports. Delivery failures are warnings; the round itself is already done.
func (ctl *Controller) publish(ctx context.Context, result domain.RoundResult) {
	if ctl.notifier != nil {
		if err := ctl.notifier.RoundCompleted(ctx, result); err != nil {
			slog.Warn("ipo: notifier error", "session", result.SessionID, "err", err)
		}
	}
	if ctl.history != nil {
		if err := ctl.history.SaveRound(ctx, result); err != nil {
			slog.Warn("ipo: history error", "session", result.SessionID, "err", err)
		}
	}
}
