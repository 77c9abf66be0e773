package eval

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

// ClauseHandler evaluates a single clause value against a single user
// value. Clauses with multiple Values match if any one of them matches
// (the "in" semantics every operator shares at the Values-list level);
// that fan-out lives in clauseMatchesAny, not here.
type ClauseHandler interface {
	Check(userValue, clauseValue any) bool
}

var operatorHandlers = map[ldmodel.Operator]ClauseHandler{
	ldmodel.OpIn:                 inHandler{},
	ldmodel.OpEndsWith:           endsWithHandler{},
	ldmodel.OpStartsWith:         startsWithHandler{},
	ldmodel.OpMatches:            matchesHandler{},
	ldmodel.OpContains:           containsHandler{},
	ldmodel.OpLessThan:           numericHandler{cmp: func(a, b float64) bool { return a < b }},
	ldmodel.OpLessThanOrEqual:    numericHandler{cmp: func(a, b float64) bool { return a <= b }},
	ldmodel.OpGreaterThan:        numericHandler{cmp: func(a, b float64) bool { return a > b }},
	ldmodel.OpGreaterThanOrEqual: numericHandler{cmp: func(a, b float64) bool { return a >= b }},
	ldmodel.OpBefore:             dateHandler{cmp: func(a, b time.Time) bool { return a.Before(b) }},
	ldmodel.OpAfter:              dateHandler{cmp: func(a, b time.Time) bool { return a.After(b) }},
	ldmodel.OpSemVerEqual:        semverHandler{cmp: func(a, b *semver.Version) bool { return a.Equal(b) }},
	ldmodel.OpSemVerLessThan:     semverHandler{cmp: func(a, b *semver.Version) bool { return a.LessThan(b) }},
	ldmodel.OpSemVerGreaterThan:  semverHandler{cmp: func(a, b *semver.Version) bool { return a.GreaterThan(b) }},
}

// regexCache keeps compiled patterns by source string across evaluations;
// "matches" is the one operator on the hot path that's expensive to redo
// per call. Value type is *regexp.Regexp.
var regexCache sync.Map

func getOperatorHandler(op ldmodel.Operator) (ClauseHandler, bool) {
	h, ok := operatorHandlers[op]
	return h, ok
}

type inHandler struct{}

func (inHandler) Check(userValue, clauseValue any) bool {
	if us, ok := toString(userValue); ok {
		if cs, ok := toString(clauseValue); ok {
			return us == cs
		}
	}
	if uf, ok := toFloat64(userValue); ok {
		if cf, ok := toFloat64(clauseValue); ok {
			return uf == cf
		}
	}
	if ub, ok := userValue.(bool); ok {
		if cb, ok := clauseValue.(bool); ok {
			return ub == cb
		}
	}
	return false
}

type containsHandler struct{}

func (containsHandler) Check(userValue, clauseValue any) bool {
	us, ok := toString(userValue)
	if !ok {
		return false
	}
	cs, ok := toString(clauseValue)
	if !ok {
		return false
	}
	return strings.Contains(us, cs)
}

type startsWithHandler struct{}

func (startsWithHandler) Check(userValue, clauseValue any) bool {
	us, ok := toString(userValue)
	if !ok {
		return false
	}
	cs, ok := toString(clauseValue)
	if !ok {
		return false
	}
	return strings.HasPrefix(us, cs)
}

type endsWithHandler struct{}

func (endsWithHandler) Check(userValue, clauseValue any) bool {
	us, ok := toString(userValue)
	if !ok {
		return false
	}
	cs, ok := toString(clauseValue)
	if !ok {
		return false
	}
	return strings.HasSuffix(us, cs)
}

type matchesHandler struct{}

func (matchesHandler) Check(userValue, clauseValue any) bool {
	us, ok := toString(userValue)
	if !ok {
		return false
	}
	pattern, ok := toString(clauseValue)
	if !ok {
		return false
	}
	rx, ok := compiledRegex(pattern)
	if !ok {
		return false
	}
	return rx.MatchString(us)
}

func compiledRegex(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		rx, ok := cached.(*regexp.Regexp)
		return rx, ok
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	regexCache.Store(pattern, rx)
	return rx, true
}

type numericHandler struct {
	cmp func(a, b float64) bool
}

func (h numericHandler) Check(userValue, clauseValue any) bool {
	uf, ok := toFloat64(userValue)
	if !ok {
		return false
	}
	cf, ok := toFloat64(clauseValue)
	if !ok {
		return false
	}
	return h.cmp(uf, cf)
}

type dateHandler struct {
	cmp func(a, b time.Time) bool
}

func (h dateHandler) Check(userValue, clauseValue any) bool {
	ut, ok := toTime(userValue)
	if !ok {
		return false
	}
	ct, ok := toTime(clauseValue)
	if !ok {
		return false
	}
	return h.cmp(ut, ct)
}

type semverHandler struct {
	cmp func(a, b *semver.Version) bool
}

func (h semverHandler) Check(userValue, clauseValue any) bool {
	us, ok := toString(userValue)
	if !ok {
		return false
	}
	cs, ok := toString(clauseValue)
	if !ok {
		return false
	}
	uv, err := semver.NewVersion(us)
	if err != nil {
		return false
	}
	cv, err := semver.NewVersion(cs)
	if err != nil {
		return false
	}
	return h.cmp(uv, cv)
}

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toTime accepts either an RFC3339 string or a Unix-epoch-millis number, the
// two date representations the wire format allows for before/after clauses.
func toTime(v any) (time.Time, bool) {
	switch value := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case float64:
		return time.UnixMilli(int64(value)), true
	case int64:
		return time.UnixMilli(value), true
	case int:
		return time.UnixMilli(int64(value)), true
	default:
		return time.Time{}, false
	}
}
