// Package ldmodel defines the wire data model for feature flags and user
// segments: the same shapes documented in the LaunchDarkly server-side
// flag/segment JSON schema. Types here are plain data, no behavior beyond
// what is needed to round-trip the wire format.
package ldmodel

// DataKind namespaces the data store by item type. Segments carry a lower
// priority than flags so that a full Init() can seed segments before the
// flags that reference them.
type DataKind struct {
	name     string
	priority int
}

func (k DataKind) String() string { return k.name }

// Priority orders kinds for Init — lower values first.
func (k DataKind) Priority() int { return k.priority }

var (
	// Features namespaces feature flag items.
	Features = DataKind{name: "features", priority: 1}
	// Segments namespaces user segment items.
	Segments = DataKind{name: "segments", priority: 0}
)

// AllDataKinds lists every kind in priority order, segments first.
func AllDataKinds() []DataKind {
	return []DataKind{Segments, Features}
}
