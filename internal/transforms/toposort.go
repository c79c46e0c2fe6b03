package transforms

import (
	"fmt"
	"sort"
	"strings"
)

// topologicalSort orders the transformers of one stage using Kahn's algorithm.
// Ties are broken by name so the result is deterministic.
func topologicalSort(stage []Transformer) ([]Transformer, error) {
	if len(stage) == 0 {
		return []Transformer{}, nil
	}

	byName := make(map[string]Transformer, len(stage))
	for _, t := range stage {
		if _, exists := byName[t.Name()]; exists {
			return nil, &DependencyError{Transformer: t.Name(), Reason: "configured more than once"}
		}
		byName[t.Name()] = t
	}

	graph := make(map[string][]string, len(stage))
	inDegree := make(map[string]int, len(stage))
	for _, t := range stage {
		graph[t.Name()] = nil
		inDegree[t.Name()] = 0
	}

	// Edges to transformers outside this stage are enforced by stage order.
	for _, t := range stage {
		name := t.Name()
		deps := t.Dependencies()
		for _, dep := range deps.MustRunAfter {
			if _, ok := byName[dep]; ok {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
		for _, after := range deps.MustRunBefore {
			if _, ok := byName[after]; ok {
				graph[name] = append(graph[name], after)
				inDegree[after]++
			}
		}
	}

	var queue []string
	for _, t := range stage {
		if inDegree[t.Name()] == 0 {
			queue = append(queue, t.Name())
		}
	}
	sort.Strings(queue)

	result := make([]Transformer, 0, len(stage))
	visited := make(map[string]bool, len(stage))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		result = append(result, byName[current])

		neighbors := graph[current]
		sort.Strings(neighbors)
		for _, n := range neighbors {
			inDegree[n]--
			if inDegree[n] == 0 {
				queue = append(queue, n)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(stage) {
		var cycle []string
		for _, t := range stage {
			if !visited[t.Name()] {
				cycle = append(cycle, t.Name())
			}
		}
		sort.Strings(cycle)
		return nil, &DependencyError{
			Transformer: cycle[0],
			Reason:      fmt.Sprintf("circular dependency involving %s", strings.Join(cycle, ", ")),
		}
	}
	return result, nil
}
