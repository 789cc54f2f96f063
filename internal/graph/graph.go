// Package graph builds the task dependency graph, ranks labels with
// PageRank and finds dependency cycles.
package graph

import (
	"math"
	"slices"
	"sort"

	"github.com/phobologic/taskslabel/internal/index"
	"github.com/phobologic/taskslabel/internal/model"
	"github.com/phobologic/taskslabel/internal/parse"
)

// Build creates one dependency per labelled task with a non-empty dependsOn,
// in document order. Documents that do not parse contribute nothing.
func Build(docs []index.Document) []model.Dependency {
	var deps []model.Dependency
	for _, doc := range docs {
		tasks, err := parse.Tasks(doc.Text)
		if err != nil {
			continue
		}
		for _, task := range tasks {
			if task.Label == nil || task.Label.Text == "" {
				continue
			}
			var targets []string
			for _, v := range task.DependsOn {
				if v.Text != "" && !slices.Contains(targets, v.Text) {
					targets = append(targets, v.Text)
				}
			}
			if len(targets) == 0 {
				continue
			}
			deps = append(deps, model.Dependency{
				Source:  task.Label.Text,
				Targets: targets,
				Doc:     doc.Path,
			})
		}
	}
	return deps
}

// Rank applies PageRank to labels and sorts them by rank descending. A task
// passes rank to the tasks it depends on, so widely depended-on labels come
// first. Ties keep their original order.
func Rank(labels []model.LabelInfo, deps []model.Dependency) {
	if len(labels) == 0 {
		return
	}

	if len(deps) == 0 {
		uniform := 1.0 / float64(len(labels))
		for i := range labels {
			labels[i].Rank = uniform
		}
		return
	}

	// Edge from source to target means source depends on target.
	node := make(map[string]int, len(labels))
	for i := range labels {
		node[labels[i].Label] = i
	}
	outEdges := make([][]int, len(labels))
	for _, d := range deps {
		src, ok := node[d.Source]
		if !ok {
			continue
		}
		for _, t := range d.Targets {
			if tgt, ok := node[t]; ok {
				outEdges[src] = append(outEdges[src], tgt)
			}
		}
	}

	ranks := pageRank(outEdges, 0.85, 100, 1e-6)
	for i := range labels {
		labels[i].Rank = ranks[i]
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Rank > labels[j].Rank
	})
}

func pageRank(outEdges [][]int, alpha float64, maxIter int, tol float64) []float64 {
	n := len(outEdges)
	if n == 0 {
		return nil
	}

	rank := make([]float64, n)
	initial := 1.0 / float64(n)
	for i := range rank {
		rank[i] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make([]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for i := range outEdges {
			if len(outEdges[i]) == 0 {
				danglingSum += rank[i]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for i := range newRank {
			newRank[i] = teleport + danglingContrib
		}

		// Distribute rank through edges
		for src, targets := range outEdges {
			if len(targets) == 0 {
				continue
			}
			contrib := alpha * rank[src] / float64(len(targets))
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		// Check convergence
		var diff float64
		for i := range rank {
			diff += math.Abs(newRank[i] - rank[i])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

// Cycles returns the groups of labels that depend on each other in a loop,
// including tasks that depend on themselves. Each group is sorted, and the
// groups are sorted by their first label.
func Cycles(deps []model.Dependency) [][]string {
	edges := make(map[string][]string)
	var nodes []string
	seen := make(map[string]struct{})
	addNode := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			nodes = append(nodes, n)
		}
	}
	for _, d := range deps {
		addNode(d.Source)
		for _, t := range d.Targets {
			addNode(t)
			edges[d.Source] = append(edges[d.Source], t)
		}
	}

	// Tarjan's strongly connected components.
	var (
		counter int
		stack   []string
		order   = make(map[string]int)
		low     = make(map[string]int)
		onStack = make(map[string]bool)
		cycles  [][]string
	)
	var visit func(v string)
	visit = func(v string) {
		order[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if _, done := order[w]; !done {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], order[w])
			}
		}

		if low[v] != order[v] {
			return
		}
		var group []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			group = append(group, w)
			if w == v {
				break
			}
		}
		if len(group) > 1 || slices.Contains(edges[v], v) {
			sort.Strings(group)
			cycles = append(cycles, group)
		}
	}
	for _, n := range nodes {
		if _, done := order[n]; !done {
			visit(n)
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}
