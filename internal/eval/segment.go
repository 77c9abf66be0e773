package eval

import (
	"context"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datastore"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldcontext"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

// matchSegment reports whether user belongs to the named segment: explicit
// excludes win over includes, which win over rule matches. A reference to a
// segment that doesn't exist in the store never matches.
func matchSegment(ctx context.Context, store datastore.Store, segmentKey string, user *ldcontext.User) bool {
	item, ok, err := store.Get(ctx, ldmodel.Segments, segmentKey)
	if err != nil || !ok || item.IsTombstone() {
		return false
	}
	segment, ok := item.Item.(*ldmodel.Segment)
	if !ok {
		return false
	}

	if segment.IsExcluded(user.Key) {
		return false
	}
	if segment.IsIncluded(user.Key) {
		return true
	}
	for _, rule := range segment.Rules {
		if matchSegmentRule(rule, segment, user) {
			return true
		}
	}
	return false
}

func matchSegmentRule(rule ldmodel.SegmentRule, segment *ldmodel.Segment, user *ldcontext.User) bool {
	for _, clause := range rule.Clauses {
		if !matchClauseNoSegments(clause, user) {
			return false
		}
	}
	if rule.Weight == nil {
		return true
	}
	bucketBy := rule.BucketBy
	if bucketBy == "" {
		bucketBy = "key"
	}
	bucket := Bucket(user, segment.Key, nil, segment.Salt, bucketBy)
	return bucket < float64(*rule.Weight)/100000.0
}

// matchClauseNoSegments evaluates a clause that is guaranteed not to be
// segmentMatch (segment rules cannot reference other segments).
func matchClauseNoSegments(clause ldmodel.Clause, user *ldcontext.User) bool {
	userValue, ok := user.GetAttribute(clause.Attribute)
	if !ok {
		// A missing attribute never matches, negate included — negating
		// "no value" is still "no match", not a match.
		return false
	}
	return matchClauseValue(clause, userValue)
}

func matchClauseValue(clause ldmodel.Clause, userValue any) bool {
	handler, ok := getOperatorHandler(clause.Op)
	if !ok {
		return false
	}
	matched := false
	if values, ok := userValue.([]any); ok {
		for _, uv := range values {
			if clauseMatchesAny(handler, uv, clause.Values) {
				matched = true
				break
			}
		}
	} else {
		matched = clauseMatchesAny(handler, userValue, clause.Values)
	}
	if clause.Negate {
		return !matched
	}
	return matched
}

func clauseMatchesAny(handler ClauseHandler, userValue any, clauseValues []any) bool {
	for _, cv := range clauseValues {
		if handler.Check(userValue, cv) {
			return true
		}
	}
	return false
}
