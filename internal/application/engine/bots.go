package engine

import (
	"math"
	"math/rand"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

const (
	// maxIPOTargets caps how many companies a single bot spreads its IPO
	// budget across.
	maxIPOTargets = 4

	// priceJitter is the random wobble added around the interpolated price
	// before quarter rounding, in currency units.
	priceJitter = 0.25

	// minDeployFrac is the floor on how much of its cash a bot aims to
	// commit across its chosen companies. Lot flooring alone can drop a bot
	// well below its nominal budget, so a top-up pass adds lots back until
	// this floor is met or the ownership caps say no.
	minDeployFrac = 0.72

	// maxDeployFrac leaves slack so a probe variant still sitting in the
	// pool while the final bids arrive can never trip the capital check.
	maxDeployFrac = 0.95
)

// BotBidGenerator derives candidate IPO bids from a bot's profile, its
// current capital and the company slate. Output is statistical, not
// deterministic: the caller injects the random source.
type BotBidGenerator struct {
	lotSize int
}

// NewBotBidGenerator creates a generator using the given minimum lot size.
func NewBotBidGenerator(lotSize int) *BotBidGenerator {
	if lotSize <= 0 {
		lotSize = domain.DefaultLotSize
	}
	return &BotBidGenerator{lotSize: lotSize}
}

// Candidates produces the bot's candidate bids for the round, in submission
// order. A bot may emit several candidates for the same company; the
// collector's last-write-wins rule keeps only the final one, so the last
// candidate per company is always the fully sized bid.
func (g *BotBidGenerator) Candidates(rng *rand.Rand, p *domain.Participant, companies []*domain.Company) []domain.Bid {
	prof := p.Profile
	if prof == nil || p.Cash <= 0 || len(companies) == 0 {
		return nil
	}

	targets := g.pickTargets(rng, prof, companies)
	deployFrac := domain.Clamp(0.75+0.20*prof.Aggressiveness, 0, maxDeployFrac)
	perBudget := p.Cash * deployFrac / float64(len(targets))

	var out []domain.Bid
	var finals []int // index into out of the surviving candidate per company
	committed := 0.0 // sum of surviving candidate costs

	for _, c := range targets {
		count := prof.IPOBidCountMin
		if span := prof.IPOBidCountMax - prof.IPOBidCountMin; span > 0 {
			count += rng.Intn(span + 1)
		}

		final := -1
		for i := 0; i < count; i++ {
			// Earlier candidates probe with a partial budget; the last one
			// commits the company's full slice.
			budget := perBudget
			if i < count-1 {
				budget *= 0.6 + 0.3*rng.Float64()
			}

			b, ok := g.candidate(rng, prof, p, c, budget, p.Cash-committed)
			if !ok {
				continue
			}
			out = append(out, b)
			final = len(out) - 1
		}
		if final >= 0 {
			committed += out[final].Cost()
			finals = append(finals, final)
		}
	}

	g.topUp(p, companies, out, finals, committed)
	return out
}

// candidate builds one priced and sized bid for a company, or reports that
// every clamp left it below the minimum lot and it should be discarded.
func (g *BotBidGenerator) candidate(rng *rand.Rand, prof *domain.BotProfile, p *domain.Participant, c *domain.Company, budget, affordable float64) (domain.Bid, bool) {
	price := domain.Lerp(prof.IPOPriceMin, prof.IPOPriceMax, prof.Aggressiveness)
	price += (rng.Float64()*2 - 1) * priceJitter
	price = domain.RoundToQuarter(price)
	price = domain.Clamp(price, prof.MinPrice, prof.MaxPrice)
	if price <= 0 {
		return domain.Bid{}, false
	}

	shares := domain.FloorToLot(int(budget/price), g.lotSize)

	// Ownership cap: holdings plus this bid must stay within the profile's
	// fraction of the company.
	capShares := int(prof.OwnershipCapPct*float64(c.TotalShares)) - p.Shares[c.ID]
	shares = min(shares, domain.FloorToLot(capShares, g.lotSize))

	if prof.MaxQty > 0 && shares > prof.MaxQty {
		shares = domain.FloorToLot(prof.MaxQty, g.lotSize)
	}

	// Cumulative cost across the bot's surviving candidates never exceeds
	// its uncommitted capital.
	if float64(shares)*price > affordable {
		shares = domain.FloorToLot(int(affordable/price), g.lotSize)
	}

	minShares := max(prof.MinQty, g.lotSize)
	if shares < minShares {
		return domain.Bid{}, false // discard rather than shrink below the lot
	}

	return domain.Bid{
		ParticipantID: p.ID,
		CompanyID:     c.ID,
		Price:         price,
		Shares:        shares,
	}, true
}

// pickTargets selects 1..4 distinct companies, fewer the more concentrated
// the profile, as a random subset without replacement.
func (g *BotBidGenerator) pickTargets(rng *rand.Rand, prof *domain.BotProfile, companies []*domain.Company) []*domain.Company {
	n := int(math.Round((1 - prof.Concentration) * maxIPOTargets))
	n = max(1, min(n, maxIPOTargets))
	n = min(n, len(companies))

	out := make([]*domain.Company, 0, n)
	for _, idx := range rng.Perm(len(companies))[:n] {
		out = append(out, companies[idx])
	}
	return out
}

// topUp grows the surviving candidates one lot at a time, cheapest first,
// until the bot has committed at least minDeployFrac of its cash or no
// candidate can grow without breaking an ownership cap or overspending.
func (g *BotBidGenerator) topUp(p *domain.Participant, companies []*domain.Company, out []domain.Bid, finals []int, committed float64) {
	if len(finals) == 0 {
		return
	}
	prof := p.Profile

	totalShares := make(map[string]int, len(companies))
	for _, c := range companies {
		totalShares[c.ID] = c.TotalShares
	}

	target := p.Cash * minDeployFrac
	ceiling := p.Cash * maxDeployFrac

	for committed < target {
		pick := -1
		for _, idx := range finals {
			b := out[idx]
			capShares := int(prof.OwnershipCapPct*float64(totalShares[b.CompanyID])) - p.Shares[b.CompanyID]
			if b.Shares+g.lotSize > capShares {
				continue
			}
			if prof.MaxQty > 0 && b.Shares+g.lotSize > prof.MaxQty {
				continue
			}
			if committed+b.Price*float64(g.lotSize) > ceiling {
				continue
			}
			if pick < 0 || b.Price < out[pick].Price {
				pick = idx
			}
		}
		if pick < 0 {
			return
		}
		out[pick].Shares += g.lotSize
		committed += out[pick].Price * float64(g.lotSize)
	}
}
