package ldmodel

// TotalWeight sums a rollout's weighted variations. A well-formed rollout
// sums to exactly 100000 (spec wire contract). Nothing is rejected when
// the sum is off, and the evaluator does not call this: its cumulative
// walk falls back to the last variation on its own when a bucket lands in
// a "sum < 100000" gap.
func (r *Rollout) TotalWeight() int {
	total := 0
	for _, wv := range r.WeightedVariations {
		total += wv.Weight
	}
	return total
}
