package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/livecode/internal/evalctx"
)

// Context ordering codes. A context program runs top to bottom, so an
// assignment can only see the names above it.
const (
	ErrContextCycle   = "E206" // assignments depend on each other
	ErrForwardContext = "E207" // assignment reads a name assigned further down
)

// dependencyGraph maps an assignment name to the assignment names it reads.
type dependencyGraph map[string][]string

// AnalyzeContext reports cycles and forward references between the context
// program's assignments. Names the program does not assign (signals, defs,
// index bindings) are ignored here; validateReferences covers them.
//
// The algorithm:
//  1. Build name -> referenced names from each assignment
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//  4. Report remaining edges that point further down the program
func AnalyzeContext(doc *Document) []ValidationError {
	if doc.Context == nil {
		return nil
	}
	assigns := doc.Context.Assignments()
	if len(assigns) == 0 {
		return nil
	}

	position := make(map[string]int, len(assigns))
	for i, a := range assigns {
		position[a.Name] = i
	}
	graph := buildDependencyGraph(assigns, position)

	var out []ValidationError
	inCycle := make(map[string]bool)
	for _, scc := range tarjanSCC(graph, assigns) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			for _, n := range scc {
				inCycle[n] = true
			}
			out = append(out, cycleError(scc, graph, position))
		}
	}

	for _, a := range assigns {
		if inCycle[a.Name] {
			continue
		}
		for _, dep := range graph[a.Name] {
			if position[dep] > position[a.Name] {
				out = append(out, ValidationError{
					Field:   "context." + a.Name,
					Message: fmt.Sprintf("reads %s before it is assigned", dep),
					Code:    ErrForwardContext,
				})
			}
		}
	}
	return out
}

func buildDependencyGraph(assigns []evalctx.Assignment, position map[string]int) dependencyGraph {
	graph := make(dependencyGraph, len(assigns))
	for _, a := range assigns {
		deps := []string{}
		for _, id := range a.Identifiers {
			if _, assigned := position[id]; assigned {
				deps = append(deps, id)
			}
		}
		graph[a.Name] = deps
	}
	return graph
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components, visiting nodes in program
// order so the output is deterministic.
func tarjanSCC(graph dependencyGraph, assigns []evalctx.Assignment) [][]string {
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

		for _, w := range graph[v] {
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
			sccs = append(sccs, scc)
		}
	}

	for _, a := range assigns {
		if _, visited := indices[a.Name]; !visited {
			strongConnect(a.Name)
		}
	}
	return sccs
}

// cycleError reports an SCC, starting the path at its earliest assignment.
func cycleError(scc []string, graph dependencyGraph, position map[string]int) ValidationError {
	sort.Slice(scc, func(i, j int) bool { return position[scc[i]] < position[scc[j]] })
	if len(scc) == 1 {
		return ValidationError{
			Field:   "context." + scc[0],
			Message: fmt.Sprintf("reads itself: %s → %s", scc[0], scc[0]),
			Code:    ErrContextCycle,
		}
	}
	path := reconstructCyclePath(scc, graph)
	return ValidationError{
		Field:   "context." + scc[0],
		Message: "cyclic assignments: " + strings.Join(path, " → "),
		Code:    ErrContextCycle,
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
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
