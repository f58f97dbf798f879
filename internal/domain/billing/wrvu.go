package billing

// WRVU sums the catalog weight of every code in codes. Unknown codes count as
// zero and repeated codes are summed independently.
func (c *Catalog) WRVU(codes Codes) float64 {
	var total float64
	for _, code := range codes.List() {
		if e, ok := c.Lookup(code); ok {
			total += e.WRVU
		}
	}
	return total
}

// ComputeWRVU parses a raw billing-code field and sums its weights.
// Empty input yields 0.
func (c *Catalog) ComputeWRVU(raw string) float64 {
	return c.WRVU(ParseCodes(raw))
}
