package milp

import (
	"fmt"
	"sort"
	"strings"
)

// Decision is what the search did with one node.
type Decision string

const (
	DecisionRootIntegral       Decision = "root relaxation is integral"
	DecisionInfeasible         Decision = "subproblem has no feasible solution"
	DecisionDegenerate         Decision = "subproblem could not be solved"
	DecisionWorseThanIncumbent Decision = "worse than incumbent"
	DecisionBranch             Decision = "better than incumbent but fractional, so branching"
	DecisionNewIncumbent       Decision = "better than incumbent and integral, so replacing incumbent"
)

// DecisionLog counts the decisions taken during a search.
type DecisionLog map[Decision]int

func (l *DecisionLog) record(d Decision) {
	if *l == nil {
		*l = make(DecisionLog)
	}
	(*l)[d]++
}

func (l DecisionLog) String() string {
	keys := make([]string, 0, len(l))
	for d := range l {
		keys = append(keys, string(d))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, l[Decision(k)]))
	}
	return strings.Join(parts, "; ")
}
