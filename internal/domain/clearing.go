package domain

import "sort"

// Allocation is one participant's share award from a cleared auction.
// Cost is always Shares × the company's clearing price, never the bid price.
type Allocation struct {
	ParticipantID string
	Shares        int
	Cost          float64
}

// ClearingResult is the outcome of a uniform-price auction for one company.
type ClearingResult struct {
	ClearingPrice  float64
	Allocations    []Allocation // in allocation order (price desc, arrival)
	TotalRequested int
	TotalAllocated int
	Unsold         int
	Undersold      bool // demand never reached supply; price fell back to the lowest bid
}

// Clear runs a uniform-price (Dutch) auction over the collected bids.
//
// Bids are ranked by price descending, ties in arrival order. The clearing
// price is the price of the bid at which cumulative demand first reaches
// totalShares; if demand never gets there, it falls back to the lowest bid's
// price and the remainder of the supply simply stays unsold. Every bid priced
// at or above the clearing price is then awarded shares at the clearing
// price. When the bids tied exactly at the clearing price jointly want more
// than what is left, the remainder is split pro-rata by requested size
// (largest remainder first, then arrival order).
func Clear(bids []Bid, totalShares int) ClearingResult {
	var res ClearingResult
	if len(bids) == 0 || totalShares <= 0 {
		res.Unsold = totalShares
		res.Undersold = totalShares > 0
		return res
	}

	ranked := make([]Bid, len(bids))
	copy(ranked, bids)
	sort.SliceStable(ranked, func(i, j int) bool {
		if samePrice(ranked[i].Price, ranked[j].Price) {
			return ranked[i].Seq < ranked[j].Seq
		}
		return ranked[i].Price > ranked[j].Price
	})

	cumulative := 0
	res.ClearingPrice = ranked[len(ranked)-1].Price // fallback: lowest bid
	res.Undersold = true
	for _, b := range ranked {
		cumulative += b.Shares
		if cumulative >= totalShares {
			res.ClearingPrice = b.Price
			res.Undersold = false
			break
		}
	}
	res.TotalRequested = 0
	for _, b := range ranked {
		res.TotalRequested += b.Shares
	}

	remaining := totalShares

	// Bids strictly above the clearing price are served in full (capped by
	// whatever supply is left), in rank order.
	i := 0
	for ; i < len(ranked) && remaining > 0; i++ {
		b := ranked[i]
		if !(b.Price > res.ClearingPrice) || samePrice(b.Price, res.ClearingPrice) {
			break
		}
		shares := min(b.Shares, remaining)
		remaining -= shares
		res.Allocations = append(res.Allocations, Allocation{
			ParticipantID: b.ParticipantID,
			Shares:        shares,
			Cost:          float64(shares) * res.ClearingPrice,
		})
	}

	// The marginal tier: bids tied at the clearing price.
	var tier []Bid
	for ; i < len(ranked); i++ {
		if samePrice(ranked[i].Price, res.ClearingPrice) {
			tier = append(tier, ranked[i])
		}
	}
	if len(tier) > 0 && remaining > 0 {
		tierWant := 0
		for _, b := range tier {
			tierWant += b.Shares
		}
		if tierWant <= remaining {
			for _, b := range tier {
				res.Allocations = append(res.Allocations, Allocation{
					ParticipantID: b.ParticipantID,
					Shares:        b.Shares,
					Cost:          float64(b.Shares) * res.ClearingPrice,
				})
			}
			remaining -= tierWant
		} else {
			for _, a := range prorate(tier, remaining, tierWant, res.ClearingPrice) {
				res.Allocations = append(res.Allocations, a)
			}
			remaining = 0
		}
	}

	res.TotalAllocated = totalShares - remaining
	res.Unsold = remaining
	return res
}

// prorate splits `remaining` shares among the tied marginal bids
// proportionally to their requested sizes. Fractional leftovers are handed
// out one share at a time by largest remainder, arrival order breaking ties.
func prorate(tier []Bid, remaining, tierWant int, price float64) []Allocation {
	type cut struct {
		idx       int
		shares    int
		remainder float64
	}
	cuts := make([]cut, len(tier))
	given := 0
	for i, b := range tier {
		exact := float64(remaining) * float64(b.Shares) / float64(tierWant)
		whole := int(exact)
		cuts[i] = cut{idx: i, shares: whole, remainder: exact - float64(whole)}
		given += whole
	}

	leftover := remaining - given
	order := make([]int, len(cuts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cuts[order[a]].remainder > cuts[order[b]].remainder
	})
	for _, idx := range order {
		if leftover <= 0 {
			break
		}
		if cuts[idx].shares < tier[idx].Shares {
			cuts[idx].shares++
			leftover--
		}
	}

	out := make([]Allocation, 0, len(tier))
	for i, c := range cuts {
		if c.shares == 0 {
			continue
		}
		out = append(out, Allocation{
			ParticipantID: tier[i].ParticipantID,
			Shares:        c.shares,
			Cost:          float64(c.shares) * price,
		})
	}
	return out
}
