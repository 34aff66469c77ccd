package pipeline

import (
	"fmt"
	"sort"
)

// topoNode is the minimal shape topoSort needs from a plugin.
type topoNode interface {
	Name() string
	Priority() int
	Dependencies() []string
}

// topoSort orders nodes by (dependencies, priority) via Kahn's
// algorithm: among all nodes with no unresolved dependency, the
// lowest-priority-number node runs next, the same deterministic
// tie-break the teacher's fixed L1->L6 pipeline gets for free from its
// layer numbering, generalized here to a declared dependency graph
// (SPEC_FULL.md §12).
func topoSort(nodes []topoNode) ([]topoNode, error) {
	byName := make(map[string]topoNode, len(nodes))
	for _, n := range nodes {
		if _, dup := byName[n.Name()]; dup {
			return nil, fmt.Errorf("pipeline: duplicate plugin name %q", n.Name())
		}
		byName[n.Name()] = n
	}
	for _, n := range nodes {
		for _, dep := range n.Dependencies() {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("pipeline: plugin %q depends on unregistered plugin %q", n.Name(), dep)
			}
		}
	}

	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		inDegree[n.Name()] = len(n.Dependencies())
		for _, dep := range n.Dependencies() {
			dependents[dep] = append(dependents[dep], n.Name())
		}
	}

	var ready []string
	for _, n := range nodes {
		if inDegree[n.Name()] == 0 {
			ready = append(ready, n.Name())
		}
	}

	var out []topoNode
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			pi, pj := byName[ready[i]].Priority(), byName[ready[j]].Priority()
			if pi != pj {
				return pi < pj
			}
			return ready[i] < ready[j]
		})
		next := ready[0]
		ready = ready[1:]
		out = append(out, byName[next])

		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(out) != len(nodes) {
		return nil, fmt.Errorf("pipeline: plugin dependency graph has a cycle")
	}
	return out, nil
}
