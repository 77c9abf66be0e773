package eval

// ReasonKind enumerates why an evaluation resolved the way it did.
type ReasonKind string

const (
	ReasonOff                 ReasonKind = "OFF"
	ReasonFallthrough         ReasonKind = "FALLTHROUGH"
	ReasonTargetMatch         ReasonKind = "TARGET_MATCH"
	ReasonRuleMatch           ReasonKind = "RULE_MATCH"
	ReasonPrerequisiteFailed  ReasonKind = "PREREQUISITE_FAILED"
	ReasonError               ReasonKind = "ERROR"
)

// ErrorKind enumerates why ReasonError fired.
type ErrorKind string

const (
	ErrorMalformedFlag    ErrorKind = "MALFORMED_FLAG"
	ErrorFlagNotFound     ErrorKind = "FLAG_NOT_FOUND"
	ErrorUserNotSpecified ErrorKind = "USER_NOT_SPECIFIED"
	ErrorWrongType        ErrorKind = "WRONG_TYPE"
	ErrorException        ErrorKind = "EXCEPTION"
	ErrorClientNotReady   ErrorKind = "CLIENT_NOT_READY"
)

// Reason is the structured explanation attached to every evaluation Detail.
type Reason struct {
	Kind                ReasonKind `json:"kind"`
	RuleIndex           *int       `json:"ruleIndex,omitempty"`
	RuleID              string     `json:"ruleId,omitempty"`
	PrerequisiteKey     string     `json:"prerequisiteKey,omitempty"`
	ErrorKind           ErrorKind  `json:"errorKind,omitempty"`
	InExperiment        bool       `json:"inExperiment,omitempty"`
}

func offReason() Reason                 { return Reason{Kind: ReasonOff} }
func fallthroughReason() Reason          { return Reason{Kind: ReasonFallthrough} }
func targetMatchReason() Reason          { return Reason{Kind: ReasonTargetMatch} }
func ruleMatchReason(index int, id string) Reason {
	return Reason{Kind: ReasonRuleMatch, RuleIndex: &index, RuleID: id}
}
func prerequisiteFailedReason(key string) Reason {
	return Reason{Kind: ReasonPrerequisiteFailed, PrerequisiteKey: key}
}
func errorReason(kind ErrorKind) Reason { return Reason{Kind: ReasonError, ErrorKind: kind} }

// Detail is the full result of evaluating a flag for a user.
type Detail struct {
	Value          any
	VariationIndex *int
	Reason         Reason
}

func errorDetail(kind ErrorKind) Detail {
	return Detail{Value: nil, VariationIndex: nil, Reason: errorReason(kind)}
}

// PrerequisiteEvent records one prerequisite flag's evaluation outcome,
// surfaced so callers can emit analytics events the way LaunchDarkly's own
// SDKs do for prerequisite evaluations.
type PrerequisiteEvent struct {
	FlagKey string
	Detail  Detail
}
