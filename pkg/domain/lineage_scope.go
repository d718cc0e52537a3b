package domain

import "fmt"

// LineageScope controls how lineage references are resolved during
// verification. Run-local scope requires every declared parent to exist in
// the loaded record set; global scope additionally accepts a caller-supplied
// set of identifiers from prior runs as resolvable roots.
type LineageScope string

const (
	ScopeRunLocal LineageScope = "run-local"
	ScopeGlobal   LineageScope = "global"
)

// ParseLineageScope validates and returns a LineageScope.
func ParseLineageScope(s string) (LineageScope, error) {
	switch LineageScope(s) {
	case ScopeRunLocal, ScopeGlobal:
		return LineageScope(s), nil
	}
	return "", fmt.Errorf("unknown lineage scope: %q", s)
}

// String returns the string representation of the scope.
func (s LineageScope) String() string {
	return string(s)
}
