package ldmodel

// SegmentRule is one rule of a segment's rule list. Unlike a flag Rule, it
// carries no segmentMatch-capable clauses (segments cannot reference other
// segments) and resolves to inclusion, not a variation.
type SegmentRule struct {
	Clauses  []Clause `json:"clauses"`
	Weight   *int     `json:"weight,omitempty"`
	BucketBy string   `json:"bucketBy,omitempty"`
}

// Segment is a named user cohort: explicit include/exclude key sets plus an
// ordered list of rules.
type Segment struct {
	Key       string        `json:"key"`
	Version   int           `json:"version"`
	Included  []string      `json:"included,omitempty"`
	Excluded  []string      `json:"excluded,omitempty"`
	Rules     []SegmentRule `json:"rules,omitempty"`
	Salt      string        `json:"salt,omitempty"`
	Deleted   bool          `json:"deleted,omitempty"`
}

// includesKey reports whether key is present in a sorted-or-unsorted slice;
// segments are typically small enough that a linear scan is fine.
func includesKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// IsExcluded reports whether key is in the segment's excluded list.
func (s *Segment) IsExcluded(key string) bool {
	return includesKey(s.Excluded, key)
}

// IsIncluded reports whether key is in the segment's included list.
func (s *Segment) IsIncluded(key string) bool {
	return includesKey(s.Included, key)
}
