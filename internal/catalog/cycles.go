package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// CycleWarning reports abilities whose prerequisites form a cycle.
//
// Cycles are warnings, not errors: an ability on a cycle can never become
// available, which may be what the organizer wants for a locked perk.
type CycleWarning struct {
	Path    []string `json:"path"`    // Ability keys: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // Always "warning"
}

// AnalyzeCycles finds prerequisite cycles among the abilities of f.
//
// The algorithm:
//  1. Build the ability -> prerequisite graph in file order
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a warning
//
// Warnings are ordered by the file position of their first ability.
// Unknown prerequisite keys are ignored here; Validate reports them.
func AnalyzeCycles(f *File) []CycleWarning {
	g := buildPrerequisiteGraph(f.Abilities)

	var warnings []CycleWarning
	for _, scc := range g.tarjanSCC() {
		if len(scc) > 1 || g.hasSelfLoop(scc[0]) {
			warnings = append(warnings, g.warning(scc))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return g.position[a.Path[0]] - g.position[b.Path[0]]
	})
	return warnings
}

type prerequisiteGraph struct {
	nodes    []string // file order
	edges    map[string][]string
	position map[string]int
}

func buildPrerequisiteGraph(abilities []Ability) *prerequisiteGraph {
	g := &prerequisiteGraph{
		edges:    make(map[string][]string, len(abilities)),
		position: make(map[string]int, len(abilities)),
	}
	for i, a := range abilities {
		if _, dup := g.position[a.Key]; dup {
			continue
		}
		g.position[a.Key] = i
		g.nodes = append(g.nodes, a.Key)
	}
	for _, a := range abilities {
		for _, p := range a.Prerequisites {
			if _, known := g.position[p]; known {
				g.edges[a.Key] = append(g.edges[a.Key], p)
			}
		}
	}
	return g
}

func (g *prerequisiteGraph) hasSelfLoop(node string) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC returns the strongly connected components. Members of each
// component keep file order.
func (g *prerequisiteGraph) tarjanSCC() [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.SortFunc(scc, func(a, b string) int { return g.position[a] - g.position[b] })
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func (g *prerequisiteGraph) warning(scc []string) CycleWarning {
	if len(scc) == 1 {
		key := scc[0]
		return CycleWarning{
			Path:    []string{key, key},
			Message: fmt.Sprintf("ability %s requires itself and can never become available", key),
			Level:   "warning",
		}
	}

	path := g.cyclePath(scc)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("prerequisite cycle %s: these abilities can never become available", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// cyclePath walks edges inside the SCC from its first member until it
// returns to the start.
func (g *prerequisiteGraph) cyclePath(scc []string) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, w := range g.edges[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
