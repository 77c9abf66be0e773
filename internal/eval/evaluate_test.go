package eval

import (
	"context"
	"testing"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datastore"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldcontext"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

func intPtrE(v int) *int { return &v }

func TestEvaluateFlagOff(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()
	flag := &ldmodel.Flag{
		Key:          "my-flag",
		On:           false,
		OffVariation: intPtrE(1),
		Variations:   []any{"a", "b"},
	}
	detail, events := Evaluate(ctx, store, flag, &ldcontext.User{Key: "u1"})
	if detail.Reason.Kind != ReasonOff {
		t.Fatalf("reason = %v, want OFF", detail.Reason.Kind)
	}
	if detail.Value != "b" {
		t.Fatalf("value = %v, want b", detail.Value)
	}
	if len(events) != 0 {
		t.Fatalf("expected no prerequisite events, got %v", events)
	}
}

func TestEvaluateTargetMatch(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()
	flag := &ldmodel.Flag{
		Key:         "my-flag",
		On:          true,
		Targets:     []ldmodel.Target{{Variation: 0, Values: []string{"user-a"}}},
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtrE(1)},
		Variations:  []any{"a", "b"},
	}
	detail, _ := Evaluate(ctx, store, flag, &ldcontext.User{Key: "user-a"})
	if detail.Reason.Kind != ReasonTargetMatch {
		t.Fatalf("reason = %v, want TARGET_MATCH", detail.Reason.Kind)
	}
	if detail.Value != "a" {
		t.Fatalf("value = %v, want a", detail.Value)
	}
}

func TestEvaluateRuleMatch(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()
	flag := &ldmodel.Flag{
		Key: "my-flag",
		On:  true,
		Rules: []ldmodel.Rule{
			{
				ID: "rule-1",
				Clauses: []ldmodel.Clause{
					{Attribute: "country", Op: ldmodel.OpIn, Values: []any{"US"}},
				},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtrE(0)},
			},
		},
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtrE(1)},
		Variations:  []any{"a", "b"},
	}
	detail, _ := Evaluate(ctx, store, flag, &ldcontext.User{Key: "u1", Country: "US"})
	if detail.Reason.Kind != ReasonRuleMatch {
		t.Fatalf("reason = %v, want RULE_MATCH", detail.Reason.Kind)
	}
	if detail.Reason.RuleID != "rule-1" {
		t.Fatalf("ruleID = %v, want rule-1", detail.Reason.RuleID)
	}

	detail, _ = Evaluate(ctx, store, flag, &ldcontext.User{Key: "u2", Country: "CA"})
	if detail.Reason.Kind != ReasonFallthrough {
		t.Fatalf("reason = %v, want FALLTHROUGH", detail.Reason.Kind)
	}
}

func TestEvaluatePrerequisiteFailedBlocksFlag(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()

	baseFlag := &ldmodel.Flag{
		Key:         "base-flag",
		On:          true,
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:  []any{false, true},
	}
	_ = store.Init(ctx, map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor{
		ldmodel.Features: {"base-flag": {Version: 1, Item: baseFlag}},
	})

	flag := &ldmodel.Flag{
		Key:           "dependent-flag",
		On:            true,
		Prerequisites: []ldmodel.Prerequisite{{Key: "base-flag", Variation: 1}},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:    []any{"default", "on"},
	}

	detail, events := Evaluate(ctx, store, flag, &ldcontext.User{Key: "u1"})
	if detail.Reason.Kind != ReasonPrerequisiteFailed {
		t.Fatalf("reason = %v, want PREREQUISITE_FAILED", detail.Reason.Kind)
	}
	if detail.Reason.PrerequisiteKey != "base-flag" {
		t.Fatalf("prerequisiteKey = %v, want base-flag", detail.Reason.PrerequisiteKey)
	}
	if len(events) != 1 || events[0].FlagKey != "base-flag" {
		t.Fatalf("expected one prerequisite event for base-flag, got %#v", events)
	}
}

func TestEvaluatePrerequisiteFailedReturnsOffVariationValue(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()

	baseFlag := &ldmodel.Flag{
		Key:         "base-flag",
		On:          true,
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:  []any{false, true},
	}
	_ = store.Init(ctx, map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor{
		ldmodel.Features: {"base-flag": {Version: 1, Item: baseFlag}},
	})

	flag := &ldmodel.Flag{
		Key:           "dependent-flag",
		On:            true,
		OffVariation:  intPtrE(1),
		Prerequisites: []ldmodel.Prerequisite{{Key: "base-flag", Variation: 1}},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:    []any{"default", "fallback"},
	}

	detail, _ := Evaluate(ctx, store, flag, &ldcontext.User{Key: "u1"})
	if detail.Reason.Kind != ReasonPrerequisiteFailed {
		t.Fatalf("reason = %v, want PREREQUISITE_FAILED", detail.Reason.Kind)
	}
	if detail.Value != "fallback" {
		t.Fatalf("value = %v, want the off-variation value \"fallback\"", detail.Value)
	}
}

func TestEvaluatePrerequisiteFailedReportsTheFailingPrerequisite(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()

	passingPrereq := &ldmodel.Flag{
		Key:         "passing-prereq",
		On:          true,
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtrE(1)},
		Variations:  []any{false, true},
	}
	failingPrereq := &ldmodel.Flag{
		Key:         "failing-prereq",
		On:          true,
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:  []any{false, true},
	}
	_ = store.Init(ctx, map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor{
		ldmodel.Features: {
			"passing-prereq": {Version: 1, Item: passingPrereq},
			"failing-prereq": {Version: 1, Item: failingPrereq},
		},
	})

	// The failing prerequisite is listed second; the reason must name it,
	// not the first (passing) prerequisite in the list.
	flag := &ldmodel.Flag{
		Key: "dependent-flag",
		On:  true,
		Prerequisites: []ldmodel.Prerequisite{
			{Key: "passing-prereq", Variation: 1},
			{Key: "failing-prereq", Variation: 1},
		},
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:  []any{"default", "on"},
	}

	detail, _ := Evaluate(ctx, store, flag, &ldcontext.User{Key: "u1"})
	if detail.Reason.Kind != ReasonPrerequisiteFailed {
		t.Fatalf("reason = %v, want PREREQUISITE_FAILED", detail.Reason.Kind)
	}
	if detail.Reason.PrerequisiteKey != "failing-prereq" {
		t.Fatalf("prerequisiteKey = %v, want failing-prereq", detail.Reason.PrerequisiteKey)
	}
}

func TestEvaluatePrerequisiteCycleReturnsMalformedFlagError(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()

	flagA := &ldmodel.Flag{
		Key:           "flag-a",
		On:            true,
		Prerequisites: []ldmodel.Prerequisite{{Key: "flag-b", Variation: 0}},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:    []any{"a", "b"},
	}
	flagB := &ldmodel.Flag{
		Key:           "flag-b",
		On:            true,
		Prerequisites: []ldmodel.Prerequisite{{Key: "flag-a", Variation: 0}},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:    []any{"a", "b"},
	}
	_ = store.Init(ctx, map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor{
		ldmodel.Features: {
			"flag-a": {Version: 1, Item: flagA},
			"flag-b": {Version: 1, Item: flagB},
		},
	})

	detail, _ := Evaluate(ctx, store, flagA, &ldcontext.User{Key: "u1"})
	if detail.Reason.Kind != ReasonError {
		t.Fatalf("reason = %v, want ERROR", detail.Reason.Kind)
	}
	if detail.Reason.ErrorKind != ErrorMalformedFlag {
		t.Fatalf("errorKind = %v, want MALFORMED_FLAG", detail.Reason.ErrorKind)
	}
}

func TestEvaluateSegmentMatch(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()

	segment := &ldmodel.Segment{Key: "beta", Version: 1, Included: []string{"u1"}}
	_ = store.Init(ctx, map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor{
		ldmodel.Segments: {"beta": {Version: 1, Item: segment}},
	})

	flag := &ldmodel.Flag{
		Key: "my-flag",
		On:  true,
		Rules: []ldmodel.Rule{
			{
				Clauses: []ldmodel.Clause{
					{Attribute: "", Op: ldmodel.OpSegmentMatch, Values: []any{"beta"}},
				},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtrE(1)},
			},
		},
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtrE(0)},
		Variations:  []any{"out", "in"},
	}

	detail, _ := Evaluate(ctx, store, flag, &ldcontext.User{Key: "u1"})
	if detail.Value != "in" {
		t.Fatalf("value = %v, want in (segment match)", detail.Value)
	}

	detail, _ = Evaluate(ctx, store, flag, &ldcontext.User{Key: "u2"})
	if detail.Value != "out" {
		t.Fatalf("value = %v, want out (no segment match)", detail.Value)
	}
}

func TestEvaluateMissingUserKey(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()
	flag := &ldmodel.Flag{Key: "my-flag", On: true, Variations: []any{"a"}}

	detail, _ := Evaluate(ctx, store, flag, &ldcontext.User{})
	if detail.Reason.Kind != ReasonError || detail.Reason.ErrorKind != ErrorUserNotSpecified {
		t.Fatalf("reason = %#v, want ERROR/USER_NOT_SPECIFIED", detail.Reason)
	}
}

func TestEvaluateRolloutDistribution(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()
	flag := &ldmodel.Flag{
		Key: "rollout-flag",
		On:  true,
		Fallthrough: ldmodel.VariationOrRollout{
			Rollout: &ldmodel.Rollout{
				BucketBy: "key",
				WeightedVariations: []ldmodel.WeightedVariation{
					{Variation: 0, Weight: 50000},
					{Variation: 1, Weight: 50000},
				},
			},
		},
		Variations: []any{"control", "treatment"},
	}

	counts := map[string]int{}
	for i := 0; i < 200; i++ {
		user := &ldcontext.User{Key: "user-" + string(rune('a'+i%26)) + string(rune('A'+i%26))}
		detail, _ := Evaluate(ctx, store, flag, user)
		counts[detail.Value.(string)]++
	}
	if counts["control"] == 0 || counts["treatment"] == 0 {
		t.Fatalf("expected both variations represented, got %#v", counts)
	}
}
