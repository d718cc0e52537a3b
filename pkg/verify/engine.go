package verify

import (
	"log/slog"
	"sort"

	"decisiontrace/pkg/record"
)

// LoadFailure is the report-facing form of a LoadError.
type LoadFailure struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report is the outcome of one verification pass: every rule keyed to its
// violations (an empty list is a pass), the load failures observed while
// reading, and an overall verdict. It marshals to JSON without further
// interpretation.
type Report struct {
	Passed       bool                   `json:"passed"`
	Rules        map[string][]Violation `json:"rules"`
	LoadFailures []LoadFailure          `json:"load_failures"`
}

// FailedRules returns the names of the rules with violations, sorted.
func (r Report) FailedRules() []string {
	var out []string
	for name, violations := range r.Rules {
		if len(violations) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRules appends rules to the canonical battery.
func WithRules(rules ...Rule) EngineOption {
	return func(e *Engine) {
		e.rules = append(e.rules, rules...)
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine evaluates the rule battery over a lineage graph. Rules are pure, so
// running the engine twice over the same records yields identical reports.
type Engine struct {
	rules  []Rule
	logger *slog.Logger
}

// NewEngine builds an engine carrying the canonical battery plus any rules
// added through options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		rules:  CanonicalRules(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates every rule over g and folds the load errors in. The pass
// always completes; a defective record surfaces as violations, never as an
// abort. The overall verdict requires every rule to pass and zero load
// failures, since an unreadable line may hide a violation.
func (e *Engine) Run(g *Graph, loadErrs []LoadError) Report {
	report := Report{
		Passed:       true,
		Rules:        make(map[string][]Violation, len(e.rules)),
		LoadFailures: make([]LoadFailure, 0, len(loadErrs)),
	}

	for _, rule := range e.rules {
		violations := rule.Evaluate(g)
		sort.Slice(violations, func(i, j int) bool {
			if violations[i].DecisionID != violations[j].DecisionID {
				return violations[i].DecisionID < violations[j].DecisionID
			}
			return violations[i].Detail < violations[j].Detail
		})
		if violations == nil {
			violations = []Violation{}
		}
		report.Rules[rule.Name] = violations

		if len(violations) > 0 {
			report.Passed = false
			e.logger.Warn("verification rule failed",
				"rule", rule.Name,
				"violations", len(violations),
			)
		}
	}

	for _, loadErr := range loadErrs {
		report.Passed = false
		report.LoadFailures = append(report.LoadFailures, LoadFailure{
			File:   loadErr.File,
			Line:   loadErr.Line,
			Reason: loadErr.Err.Error(),
		})
	}

	e.logger.Info("verification pass complete",
		"records", g.Len(),
		"passed", report.Passed,
		"failed_rules", report.FailedRules(),
	)
	return report
}

// Verify is the one-call form: tolerant graph build plus a full engine run.
// Structural conflicts recorded during the build surface through the
// duplicate-identifiers rule, so corrupt input still yields a full report.
func (e *Engine) Verify(records []record.Record, loadErrs []LoadError, opts ...GraphOption) Report {
	return e.Run(BuildGraph(records, opts...), loadErrs)
}
