package eval

import (
	"testing"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

func TestOperatorHandlers(t *testing.T) {
	tests := []struct {
		name       string
		op         ldmodel.Operator
		userValue  any
		ruleValue  any
		want       bool
	}{
		{name: "in string true", op: ldmodel.OpIn, userValue: "premium", ruleValue: "premium", want: true},
		{name: "in string false", op: ldmodel.OpIn, userValue: "premium", ruleValue: "free", want: false},
		{name: "contains true", op: ldmodel.OpContains, userValue: "premium_plan", ruleValue: "premium", want: true},
		{name: "startsWith true", op: ldmodel.OpStartsWith, userValue: "premium_plan", ruleValue: "premium", want: true},
		{name: "endsWith true", op: ldmodel.OpEndsWith, userValue: "premium_plan", ruleValue: "plan", want: true},
		{name: "matches true", op: ldmodel.OpMatches, userValue: "user@example.com", ruleValue: `^[^@]+@example\.com$`, want: true},
		{name: "matches invalid pattern", op: ldmodel.OpMatches, userValue: "abc", ruleValue: "(", want: false},
		{name: "greaterThan int float64", op: ldmodel.OpGreaterThan, userValue: 10, ruleValue: 9.5, want: true},
		{name: "lessThanOrEqual float int", op: ldmodel.OpLessThanOrEqual, userValue: 10.0, ruleValue: 10, want: true},
		{name: "semVerGreaterThan", op: ldmodel.OpSemVerGreaterThan, userValue: "1.2.0", ruleValue: "1.1.9", want: true},
		{name: "semVerLessThan prerelease", op: ldmodel.OpSemVerLessThan, userValue: "1.0.0-beta.1", ruleValue: "1.0.0", want: true},
		{name: "invalid type false", op: ldmodel.OpContains, userValue: 123, ruleValue: "1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, ok := getOperatorHandler(tt.op)
			if !ok {
				t.Fatalf("handler not found for %q", tt.op)
			}
			if got := handler.Check(tt.userValue, tt.ruleValue); got != tt.want {
				t.Fatalf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBeforeAfterDates(t *testing.T) {
	before, _ := getOperatorHandler(ldmodel.OpBefore)
	after, _ := getOperatorHandler(ldmodel.OpAfter)

	if !before.Check("2020-01-01T00:00:00Z", "2021-01-01T00:00:00Z") {
		t.Fatalf("expected 2020 before 2021")
	}
	if !after.Check(int64(1700000000000), int64(1600000000000)) {
		t.Fatalf("expected later epoch-millis to be after earlier one")
	}
}
