package domain

import "fmt"

// Archetype tags a named bot personality.
type Archetype string

const (
	ArchetypeAggressive   Archetype = "aggressive"
	ArchetypeConservative Archetype = "conservative"
	ArchetypeBalanced     Archetype = "balanced"
	ArchetypeConcentrated Archetype = "concentrated"
	ArchetypeDiversified  Archetype = "diversified"
	ArchetypeScavenger    Archetype = "scavenger"
)

// BotProfile is the immutable parameter record behind a bot personality.
// The trading-phase fields (TradeFrequency, TrendSensitivity, RumorSensitivity)
// are carried for the continuous market that consumes this engine's output;
// the IPO core never reads them.
type BotProfile struct {
	Archetype      Archetype
	Aggressiveness float64 // [0,1] — how close to the top of the price range it bids
	Concentration  float64 // [0,1] — 1 piles the budget into a single company

	MinPrice float64
	MaxPrice float64
	MinQty   int
	MaxQty   int

	OwnershipCapPct float64 // max fraction of one company it will target

	IPOBidCountMin int
	IPOBidCountMax int
	IPOPriceMin    float64
	IPOPriceMax    float64

	TradeFrequency   float64
	TrendSensitivity float64
	RumorSensitivity float64
}

// ProfileRegistry holds the closed set of bot personalities. Built once at
// startup; lookups return copies so callers can never mutate the registry.
type ProfileRegistry struct {
	profiles map[Archetype]BotProfile
}

// NewProfileRegistry builds the registry from the fixed default personalities.
func NewProfileRegistry() *ProfileRegistry {
	r := &ProfileRegistry{profiles: make(map[Archetype]BotProfile)}
	for _, p := range defaultProfiles {
		r.profiles[p.Archetype] = p
	}
	return r
}

// Get returns the profile for an archetype, by value.
func (r *ProfileRegistry) Get(a Archetype) (BotProfile, error) {
	p, ok := r.profiles[a]
	if !ok {
		return BotProfile{}, fmt.Errorf("domain.ProfileRegistry: unknown archetype %q", a)
	}
	return p, nil
}

// Archetypes lists the registered archetype tags.
func (r *ProfileRegistry) Archetypes() []Archetype {
	out := make([]Archetype, 0, len(r.profiles))
	for a := range r.profiles {
		out = append(out, a)
	}
	return out
}

var defaultProfiles = []BotProfile{
	{
		Archetype:      ArchetypeAggressive,
		Aggressiveness: 0.9,
		Concentration:  0.6,
		MinPrice:       1.00, MaxPrice: 5.00,
		MinQty: 100, MaxQty: 2000,
		OwnershipCapPct: 0.40,
		IPOBidCountMin:  2, IPOBidCountMax: 4,
		IPOPriceMin: 2.00, IPOPriceMax: 3.50,
		TradeFrequency: 0.8, TrendSensitivity: 0.7, RumorSensitivity: 0.6,
	},
	{
		Archetype:      ArchetypeConservative,
		Aggressiveness: 0.2,
		Concentration:  0.2,
		MinPrice:       0.75, MaxPrice: 3.00,
		MinQty: 100, MaxQty: 1000,
		OwnershipCapPct: 0.15,
		IPOBidCountMin:  1, IPOBidCountMax: 2,
		IPOPriceMin: 1.25, IPOPriceMax: 2.25,
		TradeFrequency: 0.2, TrendSensitivity: 0.3, RumorSensitivity: 0.1,
	},
	{
		Archetype:      ArchetypeBalanced,
		Aggressiveness: 0.5,
		Concentration:  0.4,
		MinPrice:       1.00, MaxPrice: 4.00,
		MinQty: 100, MaxQty: 1500,
		OwnershipCapPct: 0.25,
		IPOBidCountMin:  1, IPOBidCountMax: 3,
		IPOPriceMin: 1.50, IPOPriceMax: 3.00,
		TradeFrequency: 0.5, TrendSensitivity: 0.5, RumorSensitivity: 0.4,
	},
	{
		Archetype:      ArchetypeConcentrated,
		Aggressiveness: 0.7,
		Concentration:  0.95,
		MinPrice:       1.00, MaxPrice: 5.00,
		MinQty: 100, MaxQty: 3000,
		OwnershipCapPct: 0.45,
		IPOBidCountMin:  2, IPOBidCountMax: 4,
		IPOPriceMin: 1.75, IPOPriceMax: 3.25,
		TradeFrequency: 0.4, TrendSensitivity: 0.6, RumorSensitivity: 0.5,
	},
	{
		Archetype:      ArchetypeDiversified,
		Aggressiveness: 0.5,
		Concentration:  0.05,
		MinPrice:       0.75, MaxPrice: 4.00,
		MinQty: 100, MaxQty: 1200,
		OwnershipCapPct: 0.20,
		IPOBidCountMin:  1, IPOBidCountMax: 3,
		IPOPriceMin: 1.50, IPOPriceMax: 2.75,
		TradeFrequency: 0.6, TrendSensitivity: 0.4, RumorSensitivity: 0.3,
	},
	{
		Archetype:      ArchetypeScavenger,
		Aggressiveness: 0.1,
		Concentration:  0.3,
		MinPrice:       0.50, MaxPrice: 2.50,
		MinQty: 100, MaxQty: 2500,
		OwnershipCapPct: 0.30,
		IPOBidCountMin:  1, IPOBidCountMax: 2,
		IPOPriceMin: 0.75, IPOPriceMax: 1.75,
		TradeFrequency: 0.3, TrendSensitivity: 0.2, RumorSensitivity: 0.8,
	},
}
