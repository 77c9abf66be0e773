package datasourceupdates

import "github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"

// dependencyGraph tracks, in both directions, which flags depend on which
// segments and which flags depend on which other flags (via
// prerequisites), so that a single segment or flag update can be expanded
// into the full set of flags whose evaluation result might have changed.
type dependencyGraph struct {
	// flagsUsingSegment[segmentKey] = set of flag keys whose rules
	// reference segmentKey via a segmentMatch clause.
	flagsUsingSegment map[string]map[string]struct{}
	// flagsUsingFlag[prereqKey] = set of flag keys that list prereqKey as
	// a prerequisite.
	flagsUsingFlag map[string]map[string]struct{}
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		flagsUsingSegment: make(map[string]map[string]struct{}),
		flagsUsingFlag:    make(map[string]map[string]struct{}),
	}
}

// removeFlag clears every edge a flag previously contributed, so indexFlag
// can be called again for the same key without leaking stale edges.
func (g *dependencyGraph) removeFlag(flagKey string) {
	for _, set := range g.flagsUsingSegment {
		delete(set, flagKey)
	}
	for _, set := range g.flagsUsingFlag {
		delete(set, flagKey)
	}
}

// indexFlag rebuilds the edges a single flag contributes to the graph. It
// must be called with removeFlag first when re-indexing an existing flag.
func (g *dependencyGraph) indexFlag(flag *ldmodel.Flag) {
	for _, prereq := range flag.Prerequisites {
		g.addFlagUsesFlag(prereq.Key, flag.Key)
	}
	for _, rule := range flag.Rules {
		for _, clause := range rule.Clauses {
			if clause.Op != ldmodel.OpSegmentMatch {
				continue
			}
			for _, v := range clause.Values {
				if segKey, ok := v.(string); ok {
					g.addFlagUsesSegment(segKey, flag.Key)
				}
			}
		}
	}
}

func (g *dependencyGraph) addFlagUsesSegment(segmentKey, flagKey string) {
	set, ok := g.flagsUsingSegment[segmentKey]
	if !ok {
		set = make(map[string]struct{})
		g.flagsUsingSegment[segmentKey] = set
	}
	set[flagKey] = struct{}{}
}

func (g *dependencyGraph) addFlagUsesFlag(prereqKey, flagKey string) {
	set, ok := g.flagsUsingFlag[prereqKey]
	if !ok {
		set = make(map[string]struct{})
		g.flagsUsingFlag[prereqKey] = set
	}
	set[flagKey] = struct{}{}
}

// affectedFlagKeys computes the transitive closure of every flag that
// might have changed because changedFlags and changedSegments changed: the
// changed items themselves, plus anything that (directly or transitively)
// depends on them via prerequisite or segmentMatch.
func (g *dependencyGraph) affectedFlagKeys(changedFlags, changedSegments []string) []string {
	visited := make(map[string]struct{})
	queue := make([]string, 0, len(changedFlags))

	for _, key := range changedFlags {
		if _, ok := visited[key]; !ok {
			visited[key] = struct{}{}
			queue = append(queue, key)
		}
	}
	for _, segKey := range changedSegments {
		for dependent := range g.flagsUsingSegment[segKey] {
			if _, ok := visited[dependent]; !ok {
				visited[dependent] = struct{}{}
				queue = append(queue, dependent)
			}
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for dependent := range g.flagsUsingFlag[current] {
			if _, ok := visited[dependent]; !ok {
				visited[dependent] = struct{}{}
				queue = append(queue, dependent)
			}
		}
	}

	result := make([]string, 0, len(visited))
	for key := range visited {
		result = append(result, key)
	}
	return result
}
