package domain

// Company is one of the fixed slate of companies offered in the IPO.
// TotalShares never changes; Price is set once when the IPO round clears.
type Company struct {
	ID              string
	Name            string
	TotalShares     int
	Price           float64 // clearing price, 0 until the IPO round settles
	SharesAllocated int     // cumulative shares handed out so far
}

// Unsold returns the shares that remain in company hands.
func (c *Company) Unsold() int {
	return c.TotalShares - c.SharesAllocated
}
