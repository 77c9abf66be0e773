package ldmodel

// Operator names one of the clause comparison operators a rule condition
// can use. Values match the wire format exactly.
type Operator string

const (
	OpIn                  Operator = "in"
	OpEndsWith            Operator = "endsWith"
	OpStartsWith          Operator = "startsWith"
	OpMatches             Operator = "matches"
	OpContains            Operator = "contains"
	OpLessThan            Operator = "lessThan"
	OpLessThanOrEqual     Operator = "lessThanOrEqual"
	OpGreaterThan         Operator = "greaterThan"
	OpGreaterThanOrEqual  Operator = "greaterThanOrEqual"
	OpBefore              Operator = "before"
	OpAfter               Operator = "after"
	OpSemVerEqual         Operator = "semVerEqual"
	OpSemVerLessThan      Operator = "semVerLessThan"
	OpSemVerGreaterThan   Operator = "semVerGreaterThan"
	OpSegmentMatch        Operator = "segmentMatch"
)

// Clause is a single targeting predicate. All of a Rule's clauses must
// match (AND semantics) for the rule to apply.
type Clause struct {
	Attribute string   `json:"attribute"`
	Op        Operator `json:"op"`
	Values    []any    `json:"values"`
	Negate    bool     `json:"negate"`
}

// WeightedVariation is one entry of a rollout's weighted-variation list.
// Weight is in one-hundred-thousandths of a percent (0..100000).
type WeightedVariation struct {
	Variation int `json:"variation"`
	Weight    int `json:"weight"`
}

// RolloutKind distinguishes a plain percentage rollout from an experiment.
type RolloutKind string

const (
	RolloutKindRollout    RolloutKind = "rollout"
	RolloutKindExperiment RolloutKind = "experiment"
)

// Rollout describes a weighted distribution over variations, bucketed by
// a hash of a user attribute.
type Rollout struct {
	Kind              RolloutKind         `json:"kind,omitempty"`
	BucketBy          string              `json:"bucketBy,omitempty"`
	Seed              *int                `json:"seed,omitempty"`
	WeightedVariations []WeightedVariation `json:"variations"`
}

// VariationOrRollout is either a fixed variation index or a rollout.
// Exactly one of Variation or Rollout should be set; Variation == nil and
// Rollout == nil is treated as "no outcome" by the evaluator (MalformedFlag).
type VariationOrRollout struct {
	Variation *int     `json:"variation,omitempty"`
	Rollout   *Rollout `json:"rollout,omitempty"`
}

// Rule is an ordered, AND-matched set of clauses plus the outcome to apply
// when every clause matches.
type Rule struct {
	ID      string   `json:"id,omitempty"`
	Clauses []Clause `json:"clauses"`
	VariationOrRollout
	TrackEvents bool `json:"trackEvents,omitempty"`
}

// Target maps a fixed variation index to an explicit set of user keys.
type Target struct {
	Variation int      `json:"variation"`
	Values    []string `json:"values"`
}

// Prerequisite links a flag to a variation index required of another flag.
type Prerequisite struct {
	Key       string `json:"key"`
	Variation int    `json:"variation"`
}

// ClientSideAvailability is preserved verbatim from the wire format but is
// never consulted by server-side evaluation.
type ClientSideAvailability struct {
	UsingMobileKey      bool `json:"usingMobileKey"`
	UsingEnvironmentID  bool `json:"usingEnvironmentId"`
}

// Flag is a single feature flag: its targeting rules, fallthrough, and the
// ordered set of variations it can resolve to.
type Flag struct {
	Key                    string                  `json:"key"`
	Version                int                     `json:"version"`
	On                     bool                    `json:"on"`
	Targets                []Target                `json:"targets,omitempty"`
	Rules                  []Rule                  `json:"rules,omitempty"`
	Fallthrough            VariationOrRollout       `json:"fallthrough"`
	OffVariation           *int                     `json:"offVariation,omitempty"`
	Variations             []any                    `json:"variations"`
	Salt                   string                   `json:"salt,omitempty"`
	TrackEvents            bool                     `json:"trackEvents,omitempty"`
	TrackEventsFallthrough bool                     `json:"trackEventsFallthrough,omitempty"`
	DebugEventsUntilDate   *int64                   `json:"debugEventsUntilDate,omitempty"`
	Prerequisites          []Prerequisite           `json:"prerequisites,omitempty"`
	ClientSideAvailability *ClientSideAvailability  `json:"clientSideAvailability,omitempty"`
	Deleted                bool                     `json:"deleted,omitempty"`
}

// Variation returns flag.Variations[index] and whether index was in range.
func (f *Flag) Variation(index int) (any, bool) {
	if index < 0 || index >= len(f.Variations) {
		return nil, false
	}
	return f.Variations[index], true
}
