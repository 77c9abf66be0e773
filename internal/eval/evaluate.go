package eval

import (
	"context"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datastore"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldcontext"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

// maxPrerequisiteDepth guards against a prerequisite cycle slipping through
// data-source validation; a legitimate prerequisite chain is never this
// deep.
const maxPrerequisiteDepth = 20

// Evaluate resolves a flag for a user against the given store, producing a
// Detail plus the prerequisite evaluations performed along the way (for
// callers that want to emit prerequisite analytics events).
func Evaluate(ctx context.Context, store datastore.Store, flag *ldmodel.Flag, user *ldcontext.User) (Detail, []PrerequisiteEvent) {
	if user == nil || user.Key == "" {
		return errorDetail(ErrorUserNotSpecified), nil
	}
	return evaluateDepth(ctx, store, flag, user, 0, map[string]bool{})
}

func evaluateDepth(ctx context.Context, store datastore.Store, flag *ldmodel.Flag, user *ldcontext.User, depth int, visiting map[string]bool) (Detail, []PrerequisiteEvent) {
	if depth > maxPrerequisiteDepth {
		return errorDetail(ErrorMalformedFlag), nil
	}

	if !flag.On {
		return offResult(flag), nil
	}

	var events []PrerequisiteEvent
	if len(flag.Prerequisites) > 0 {
		result, prereqEvents := evaluatePrerequisites(ctx, store, flag, user, depth, visiting)
		events = append(events, prereqEvents...)
		if result.cycle {
			return errorDetail(ErrorMalformedFlag), events
		}
		if !result.ok {
			return prerequisiteFailureResult(flag, result.failedKey), events
		}
	}

	for _, target := range flag.Targets {
		for _, v := range target.Values {
			if v == user.Key {
				detail := variationDetail(flag, target.Variation, targetMatchReason())
				return detail, events
			}
		}
	}

	for i, rule := range flag.Rules {
		if ruleMatches(ctx, store, rule, user) {
			variationIndex, rolloutErr := resolveVariationOrRollout(rule.VariationOrRollout, flag, user)
			if rolloutErr != nil {
				return errorDetail(*rolloutErr), events
			}
			detail := variationDetail(flag, variationIndex, ruleMatchReason(i, rule.ID))
			return detail, events
		}
	}

	variationIndex, rolloutErr := resolveVariationOrRollout(flag.Fallthrough, flag, user)
	if rolloutErr != nil {
		return errorDetail(*rolloutErr), events
	}
	return variationDetail(flag, variationIndex, fallthroughReason()), events
}

func offResult(flag *ldmodel.Flag) Detail {
	if flag.OffVariation == nil {
		return Detail{Value: nil, VariationIndex: nil, Reason: offReason()}
	}
	return variationDetail(flag, *flag.OffVariation, offReason())
}

// prerequisiteFailureResult is offResult with the reason swapped for
// PREREQUISITE_FAILED(failedKey), unless resolving the off-variation itself
// turned up malformed flag data, in which case that error takes priority.
func prerequisiteFailureResult(flag *ldmodel.Flag, failedKey string) Detail {
	detail := offResult(flag)
	if detail.Reason.Kind == ReasonError {
		return detail
	}
	detail.Reason = prerequisiteFailedReason(failedKey)
	return detail
}

func variationDetail(flag *ldmodel.Flag, variationIndex int, reason Reason) Detail {
	value, ok := flag.Variation(variationIndex)
	if !ok {
		return Detail{Value: nil, VariationIndex: nil, Reason: errorReason(ErrorMalformedFlag)}
	}
	idx := variationIndex
	return Detail{Value: value, VariationIndex: &idx, Reason: reason}
}

// resolveVariationOrRollout picks a concrete variation index from either a
// fixed Variation or a bucketed Rollout. Returns a non-nil ErrorKind when
// the flag data is malformed (neither set, or rollout has zero variations).
func resolveVariationOrRollout(vr ldmodel.VariationOrRollout, flag *ldmodel.Flag, user *ldcontext.User) (int, *ErrorKind) {
	if vr.Variation != nil {
		return *vr.Variation, nil
	}
	if vr.Rollout == nil || len(vr.Rollout.WeightedVariations) == 0 {
		kind := ErrorMalformedFlag
		return 0, &kind
	}

	bucketBy := vr.Rollout.BucketBy
	if bucketBy == "" {
		bucketBy = "key"
	}
	bucket := Bucket(user, flag.Key, vr.Rollout.Seed, flag.Salt, bucketBy)

	var cumulative float64
	for _, wv := range vr.Rollout.WeightedVariations {
		cumulative += float64(wv.Weight) / 100000.0
		if bucket < cumulative {
			return wv.Variation, nil
		}
	}
	// Sum < 100000 (rounding or deliberate gap): fall back to the last
	// variation rather than treating this as malformed.
	last := vr.Rollout.WeightedVariations[len(vr.Rollout.WeightedVariations)-1]
	return last.Variation, nil
}

func ruleMatches(ctx context.Context, store datastore.Store, rule ldmodel.Rule, user *ldcontext.User) bool {
	for _, clause := range rule.Clauses {
		if !matchClauseForFlag(ctx, store, clause, user) {
			return false
		}
	}
	return true
}

// matchClauseForFlag is matchClauseValue's flag-rule counterpart: unlike a
// segment rule's clauses, these may use segmentMatch.
func matchClauseForFlag(ctx context.Context, store datastore.Store, clause ldmodel.Clause, user *ldcontext.User) bool {
	if clause.Op == ldmodel.OpSegmentMatch {
		matched := false
		for _, v := range clause.Values {
			segKey, ok := v.(string)
			if !ok {
				continue
			}
			if matchSegment(ctx, store, segKey, user) {
				matched = true
				break
			}
		}
		if clause.Negate {
			return !matched
		}
		return matched
	}
	return matchClauseNoSegments(clause, user)
}

// prerequisiteResult is the outcome of walking one flag's prerequisite
// list: ok, a specific prerequisite failed, or a prerequisite cycle was
// detected anywhere down the chain (a distinct case — it's malformed flag
// data, not a normal failure to satisfy a prerequisite). A prerequisite
// whose own evaluation ended in MALFORMED_FLAG is reported the same way.
type prerequisiteResult struct {
	ok        bool
	cycle     bool
	failedKey string
}

func evaluatePrerequisites(ctx context.Context, store datastore.Store, flag *ldmodel.Flag, user *ldcontext.User, depth int, visiting map[string]bool) (prerequisiteResult, []PrerequisiteEvent) {
	var events []PrerequisiteEvent
	for _, prereq := range flag.Prerequisites {
		if visiting[prereq.Key] {
			return prerequisiteResult{cycle: true, failedKey: prereq.Key}, events
		}

		item, ok, err := store.Get(ctx, ldmodel.Features, prereq.Key)
		if err != nil || !ok || item.IsTombstone() {
			return prerequisiteResult{failedKey: prereq.Key}, events
		}
		prereqFlag, ok := item.Item.(*ldmodel.Flag)
		if !ok {
			return prerequisiteResult{failedKey: prereq.Key}, events
		}

		visiting[prereq.Key] = true
		detail, nestedEvents := evaluateDepth(ctx, store, prereqFlag, user, depth+1, visiting)
		delete(visiting, prereq.Key)

		events = append(events, nestedEvents...)
		events = append(events, PrerequisiteEvent{FlagKey: prereq.Key, Detail: detail})

		if detail.Reason.Kind == ReasonError && detail.Reason.ErrorKind == ErrorMalformedFlag {
			return prerequisiteResult{cycle: true, failedKey: prereq.Key}, events
		}
		if !prereqFlag.On || detail.VariationIndex == nil || *detail.VariationIndex != prereq.Variation {
			return prerequisiteResult{failedKey: prereq.Key}, events
		}
	}
	return prerequisiteResult{ok: true}, events
}
