package verify

import (
	"errors"
	"fmt"
	"sort"

	"decisiontrace/pkg/domain"
	"decisiontrace/pkg/record"
)

// GraphOption adjusts how lineage references are resolved.
type GraphOption func(*graphConfig)

type graphConfig struct {
	scope    domain.LineageScope
	external map[string]struct{}
}

// WithLineageScope selects how far lineage references may reach. The default
// is domain.ScopeRunLocal: every parent must resolve inside the loaded set.
func WithLineageScope(scope domain.LineageScope) GraphOption {
	return func(cfg *graphConfig) {
		cfg.scope = scope
	}
}

// WithExternalParents declares decision_ids known from outside the loaded
// set. Under domain.ScopeGlobal these resolve lineage references without a
// local node; under run-local scope they are ignored.
func WithExternalParents(ids ...string) GraphOption {
	return func(cfg *graphConfig) {
		for _, id := range ids {
			cfg.external[id] = struct{}{}
		}
	}
}

// Graph is the lineage graph over one loaded record set: one node per unique
// decision_id, a directed edge from each record to every parent in its
// lineage. Built fresh per analysis pass and read-only afterwards.
type Graph struct {
	nodes    map[string]record.Record
	children map[string][]string
	order    []string

	// identical re-emissions and id conflicts observed during construction,
	// kept for the duplicate rules
	duplicateCounts map[string]int
	conflicts       []StructuralConflict

	scope    domain.LineageScope
	external map[string]struct{}
}

// BuildGraph constructs the graph tolerantly: an id collision with differing
// content keeps the first record and is remembered as a structural conflict,
// so a verification pass over corrupt input still completes. Identical
// duplicates are deduplicated into one node and counted.
func BuildGraph(records []record.Record, opts ...GraphOption) *Graph {
	cfg := graphConfig{
		scope:    domain.ScopeRunLocal,
		external: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	g := &Graph{
		nodes:           make(map[string]record.Record, len(records)),
		children:        make(map[string][]string),
		duplicateCounts: make(map[string]int),
		scope:           cfg.scope,
		external:        cfg.external,
	}

	for _, rec := range records {
		existing, seen := g.nodes[rec.DecisionID]
		if seen {
			if existing.Equal(rec) {
				g.duplicateCounts[rec.DecisionID]++
			} else {
				g.conflicts = append(g.conflicts, StructuralConflict{DecisionID: rec.DecisionID})
			}
			continue
		}
		g.nodes[rec.DecisionID] = rec
		g.order = append(g.order, rec.DecisionID)
	}

	for _, id := range g.order {
		for _, parent := range g.nodes[id].Lineage {
			g.children[parent] = append(g.children[parent], id)
		}
	}
	return g
}

// NewGraph constructs the graph strictly: any decision_id reused for
// differing content fails construction with the joined structural conflicts.
func NewGraph(records []record.Record, opts ...GraphOption) (*Graph, error) {
	g := BuildGraph(records, opts...)
	if len(g.conflicts) > 0 {
		errs := make([]error, len(g.conflicts))
		for i := range g.conflicts {
			errs[i] = &g.conflicts[i]
		}
		return nil, fmt.Errorf("build lineage graph: %w", errors.Join(errs...))
	}
	return g, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the record stored under id.
func (g *Graph) Node(id string) (record.Record, bool) {
	rec, ok := g.nodes[id]
	return rec, ok
}

// Records returns the node records in first-seen order.
func (g *Graph) Records() []record.Record {
	out := make([]record.Record, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// ParentsOf returns the lineage of id, or nil for an unknown id.
func (g *Graph) ParentsOf(id string) []string {
	rec, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return append([]string{}, rec.Lineage...)
}

// ChildrenOf returns the ids citing id as a parent, sorted for determinism.
func (g *Graph) ChildrenOf(id string) []string {
	out := append([]string{}, g.children[id]...)
	sort.Strings(out)
	return out
}

// resolvable reports whether a lineage reference to id can be satisfied.
func (g *Graph) resolvable(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return true
	}
	if g.scope == domain.ScopeGlobal {
		_, ok := g.external[id]
		return ok
	}
	return false
}

// DanglingReferences maps each child id to its unresolvable parents, in
// node order with parents in lineage order.
func (g *Graph) DanglingReferences() map[string][]string {
	dangling := make(map[string][]string)
	for _, id := range g.order {
		for _, parent := range g.nodes[id].Lineage {
			if !g.resolvable(parent) {
				dangling[id] = append(dangling[id], parent)
			}
		}
	}
	return dangling
}

// IsAcyclic reports whether the lineage graph contains no cycle.
func (g *Graph) IsAcyclic() bool {
	_, err := g.TopologicalOrder()
	return err == nil
}

// TopologicalOrder returns the node ids parents-first. Among ready nodes the
// earliest timestamp wins, then the smaller decision_id, so reconstruction of
// the timeline is deterministic. It fails when the graph has a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	// in-degree counts only parents that exist as nodes; dangling and
	// external references do not gate readiness
	pending := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		count := 0
		for _, parent := range g.nodes[id].Lineage {
			if _, ok := g.nodes[parent]; ok {
				count++
			}
		}
		pending[id] = count
	}

	ready := make([]string, 0, len(g.nodes))
	for _, id := range g.order {
		if pending[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			a, b := g.nodes[ready[i]], g.nodes[ready[j]]
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.DecisionID < b.DecisionID
		})
		next := ready[0]
		ready = ready[1:]
		out = append(out, next)

		for _, child := range g.children[next] {
			if _, ok := g.nodes[child]; !ok {
				continue
			}
			pending[child]--
			if pending[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(out) != len(g.nodes) {
		return nil, errors.New("lineage graph contains a cycle")
	}
	return out, nil
}

// Duplicates returns the ids that were emitted more than once with identical
// content, sorted.
func (g *Graph) Duplicates() []string {
	out := make([]string, 0, len(g.duplicateCounts))
	for id := range g.duplicateCounts {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Conflicts returns the structural conflicts observed during a tolerant
// build. Empty for a graph from NewGraph.
func (g *Graph) Conflicts() []StructuralConflict {
	return append([]StructuralConflict{}, g.conflicts...)
}
