package verify

import (
	"fmt"
	"sort"
	"strings"

	"decisiontrace/pkg/record"
)

// Canonical rule names, which double as report keys.
const (
	RuleSchemaCompleteness   = "schema_completeness"
	RuleActorExplicitness    = "actor_explicitness"
	RuleNonTrivialLogic      = "non_trivial_logic"
	RuleOutcomeClarity       = "outcome_clarity"
	RuleLineageIntegrity     = "lineage_referential_integrity"
	RuleAcyclicity           = "acyclicity"
	RuleDuplicateIdentifiers = "duplicate_identifiers"
	RuleDuplicateEmission    = "duplicate_emission"
	RuleTimestampMonotonic   = "timestamp_monotonicity"
	RuleExpectedCounts       = "expected_counts"
	RulePlaceholderSemantics = "placeholder_semantics"
)

// Violation names one offending record under one rule. A violation without a
// decision_id (e.g. a count mismatch) concerns the record set as a whole.
type Violation struct {
	Rule       string `json:"rule"`
	DecisionID string `json:"decision_id,omitempty"`
	Detail     string `json:"detail"`
}

// Rule is one pure predicate over the graph. Rules are independent; adding
// one never requires reworking another.
type Rule struct {
	Name     string
	Evaluate func(*Graph) []Violation
}

// CanonicalRules returns the fixed battery in its evaluation order.
func CanonicalRules() []Rule {
	return []Rule{
		{Name: RuleSchemaCompleteness, Evaluate: checkSchemaCompleteness},
		{Name: RuleActorExplicitness, Evaluate: checkActorExplicitness},
		{Name: RuleNonTrivialLogic, Evaluate: checkNonTrivialLogic},
		{Name: RuleOutcomeClarity, Evaluate: checkOutcomeClarity},
		{Name: RuleLineageIntegrity, Evaluate: checkLineageIntegrity},
		{Name: RuleAcyclicity, Evaluate: checkAcyclicity},
		{Name: RuleDuplicateIdentifiers, Evaluate: checkDuplicateIdentifiers},
		{Name: RuleDuplicateEmission, Evaluate: checkDuplicateEmission},
		{Name: RuleTimestampMonotonic, Evaluate: checkTimestampMonotonicity},
	}
}

func checkSchemaCompleteness(g *Graph) []Violation {
	var out []Violation
	for _, rec := range g.Records() {
		var missing []string
		if rec.DecisionID == "" {
			missing = append(missing, "decision_id")
		}
		if rec.DecisionType == "" {
			missing = append(missing, "decision_type")
		}
		if rec.Timestamp.IsZero() {
			missing = append(missing, "timestamp")
		}
		if len(rec.Context) == 0 {
			missing = append(missing, "context")
		}
		if rec.Actor == (record.Actor{}) {
			missing = append(missing, "actor")
		}
		if len(rec.Logic) == 0 {
			missing = append(missing, "logic")
		}
		if len(rec.Outcome) == 0 {
			missing = append(missing, "outcome")
		}
		if len(missing) > 0 {
			out = append(out, Violation{
				Rule:       RuleSchemaCompleteness,
				DecisionID: rec.DecisionID,
				Detail:     "missing or empty: " + strings.Join(missing, ", "),
			})
		}
	}
	return out
}

func checkActorExplicitness(g *Graph) []Violation {
	var out []Violation
	for _, rec := range g.Records() {
		switch {
		case rec.Actor.ID == "" && rec.Actor.Name == "":
			out = append(out, Violation{
				Rule:       RuleActorExplicitness,
				DecisionID: rec.DecisionID,
				Detail:     "actor has neither id nor name",
			})
		case rec.Actor.Type == "":
			out = append(out, Violation{
				Rule:       RuleActorExplicitness,
				DecisionID: rec.DecisionID,
				Detail:     "actor has no type",
			})
		}
	}
	return out
}

func checkNonTrivialLogic(g *Graph) []Violation {
	var out []Violation
	for _, rec := range g.Records() {
		explained := false
		for _, code := range rec.ReasonCodes() {
			if code.Explanation != "" {
				explained = true
				break
			}
		}
		if !explained {
			out = append(out, Violation{
				Rule:       RuleNonTrivialLogic,
				DecisionID: rec.DecisionID,
				Detail:     "logic carries no reason artifact with a non-empty explanation",
			})
		}
	}
	return out
}

func checkOutcomeClarity(g *Graph) []Violation {
	var out []Violation
	for _, rec := range g.Records() {
		if _, ok := rec.OutcomeStatus(); !ok {
			out = append(out, Violation{
				Rule:       RuleOutcomeClarity,
				DecisionID: rec.DecisionID,
				Detail:     "outcome has no determinable decision or status field",
			})
		}
	}
	return out
}

func checkLineageIntegrity(g *Graph) []Violation {
	var out []Violation
	for child, parents := range g.DanglingReferences() {
		for _, parent := range parents {
			out = append(out, Violation{
				Rule:       RuleLineageIntegrity,
				DecisionID: child,
				Detail:     fmt.Sprintf("lineage references unknown decision_id %q", parent),
			})
		}
	}
	return out
}

func checkAcyclicity(g *Graph) []Violation {
	if g.IsAcyclic() {
		return nil
	}
	var out []Violation
	for _, id := range cycleMembers(g) {
		out = append(out, Violation{
			Rule:       RuleAcyclicity,
			DecisionID: id,
			Detail:     "record participates in a lineage cycle",
		})
	}
	return out
}

// cycleMembers returns the ids left unorderable by the topological pass,
// i.e. those on or downstream of a cycle.
func cycleMembers(g *Graph) []string {
	ordered, err := g.TopologicalOrder()
	if err == nil {
		return nil
	}
	placed := make(map[string]struct{}, len(ordered))
	for _, id := range ordered {
		placed[id] = struct{}{}
	}
	var out []string
	for _, rec := range g.Records() {
		if _, ok := placed[rec.DecisionID]; !ok {
			out = append(out, rec.DecisionID)
		}
	}
	sort.Strings(out)
	return out
}

func checkDuplicateIdentifiers(g *Graph) []Violation {
	var out []Violation
	for _, conflict := range g.Conflicts() {
		out = append(out, Violation{
			Rule:       RuleDuplicateIdentifiers,
			DecisionID: conflict.DecisionID,
			Detail:     "decision_id reused for structurally different records",
		})
	}
	return out
}

func checkDuplicateEmission(g *Graph) []Violation {
	var out []Violation
	for _, id := range g.Duplicates() {
		out = append(out, Violation{
			Rule:       RuleDuplicateEmission,
			DecisionID: id,
			Detail:     "identical record emitted more than once",
		})
	}
	return out
}

func checkTimestampMonotonicity(g *Graph) []Violation {
	var out []Violation
	for _, rec := range g.Records() {
		for _, ancestor := range ancestorsOf(g, rec.DecisionID) {
			parent, ok := g.Node(ancestor)
			if !ok {
				continue
			}
			if rec.Timestamp.Before(parent.Timestamp) {
				out = append(out, Violation{
					Rule:       RuleTimestampMonotonic,
					DecisionID: rec.DecisionID,
					Detail:     fmt.Sprintf("timestamp precedes ancestor %q", ancestor),
				})
			}
		}
	}
	return out
}

// ancestorsOf walks the lineage transitively, sorted, cycle-safe.
func ancestorsOf(g *Graph, id string) []string {
	seen := make(map[string]struct{})
	var walk func(string)
	walk = func(current string) {
		for _, parent := range g.ParentsOf(current) {
			if _, done := seen[parent]; done || parent == id {
				continue
			}
			seen[parent] = struct{}{}
			walk(parent)
		}
	}
	walk(id)

	out := make([]string, 0, len(seen))
	for ancestor := range seen {
		out = append(out, ancestor)
	}
	sort.Strings(out)
	return out
}

// ExpectedCountsRule asserts an exact number of records per decision_type.
// Types absent from want are unconstrained.
func ExpectedCountsRule(want map[string]int) Rule {
	return Rule{
		Name: RuleExpectedCounts,
		Evaluate: func(g *Graph) []Violation {
			got := make(map[string]int)
			for _, rec := range g.Records() {
				got[rec.DecisionType]++
			}

			types := make([]string, 0, len(want))
			for decisionType := range want {
				types = append(types, decisionType)
			}
			sort.Strings(types)

			var out []Violation
			for _, decisionType := range types {
				if got[decisionType] != want[decisionType] {
					out = append(out, Violation{
						Rule: RuleExpectedCounts,
						Detail: fmt.Sprintf("expected %d %s records, found %d",
							want[decisionType], decisionType, got[decisionType]),
					})
				}
			}
			return out
		},
	}
}

// DefaultPlaceholderTokens are template artifacts that indicate a pipeline
// emitted scaffolding text instead of real decision content.
var DefaultPlaceholderTokens = []string{
	"Plan A", "Plan B", "Plan C",
	"Option 1", "Option 2", "Option 3",
}

// PlaceholderScanRule flags records whose content contains any of the given
// tokens anywhere in context, logic or outcome. With no tokens the defaults
// apply.
func PlaceholderScanRule(tokens ...string) Rule {
	if len(tokens) == 0 {
		tokens = DefaultPlaceholderTokens
	}
	return Rule{
		Name: RulePlaceholderSemantics,
		Evaluate: func(g *Graph) []Violation {
			var out []Violation
			for _, rec := range g.Records() {
				for _, section := range []map[string]any{rec.Context, rec.Logic, rec.Outcome} {
					if token, found := findPlaceholder(section, tokens); found {
						out = append(out, Violation{
							Rule:       RulePlaceholderSemantics,
							DecisionID: rec.DecisionID,
							Detail:     fmt.Sprintf("contains placeholder token %q", token),
						})
						break
					}
				}
			}
			return out
		},
	}
}

func findPlaceholder(value any, tokens []string) (string, bool) {
	switch v := value.(type) {
	case string:
		for _, token := range tokens {
			if strings.Contains(v, token) {
				return token, true
			}
		}
	case []any:
		for _, item := range v {
			if token, found := findPlaceholder(item, tokens); found {
				return token, true
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if token, found := findPlaceholder(v[key], tokens); found {
				return token, true
			}
		}
	}
	return "", false
}
