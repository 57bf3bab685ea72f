package executor

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dusk-indust/buildgraph/internal/task"
)

// ErrCycle is returned when task dependencies form a cycle.
var ErrCycle = errors.New("dependency cycle")

// Plan is the set of tasks a target needs, grouped into levels. Every task
// in a level depends only on tasks in earlier levels.
type Plan struct {
	Targets []string            `json:"targets"`
	Levels  [][]string          `json:"levels"`
	Deps    map[string][]string `json:"deps"`
}

// BuildPlan realizes every task reachable from targets and orders them.
// Tasks in a level keep registration order.
func BuildPlan(c *task.Container, targets ...string) (*Plan, error) {
	if len(targets) == 0 {
		return nil, errors.New("executor: no target")
	}
	deps := make(map[string][]string)
	var visit func(name string) error
	visit = func(name string) error {
		if _, ok := deps[name]; ok {
			return nil
		}
		t, err := c.Realize(name)
		if err != nil {
			return fmt.Errorf("executor: %w", err)
		}
		d := t.TaskBase().Dependencies()
		deps[name] = d
		for _, dep := range d {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, target := range targets {
		if err := visit(target); err != nil {
			return nil, err
		}
	}

	levels, err := levelize(deps, registrationOrder(c))
	if err != nil {
		return nil, err
	}
	return &Plan{Targets: slices.Clone(targets), Levels: levels, Deps: deps}, nil
}

// Order returns the tasks of every level, flattened.
func (p *Plan) Order() []string {
	var out []string
	for _, level := range p.Levels {
		out = append(out, level...)
	}
	return out
}

// Len returns the number of tasks in the plan.
func (p *Plan) Len() int { return len(p.Deps) }

func registrationOrder(c *task.Container) map[string]int {
	idx := make(map[string]int)
	for i, name := range c.Names() {
		idx[name] = i
	}
	return idx
}

// levelize groups tasks with Kahn's algorithm.
func levelize(deps map[string][]string, order map[string]int) ([][]string, error) {
	indegree := make(map[string]int, len(deps))
	dependents := make(map[string][]string, len(deps))
	for name, ds := range deps {
		indegree[name] += 0
		for _, d := range ds {
			indegree[name]++
			dependents[d] = append(dependents[d], name)
		}
	}

	byOrder := func(a, b string) int { return order[a] - order[b] }
	var current []string
	for name, n := range indegree {
		if n == 0 {
			current = append(current, name)
		}
	}
	slices.SortFunc(current, byOrder)

	var levels [][]string
	done := 0
	for len(current) > 0 {
		levels = append(levels, current)
		done += len(current)
		var next []string
		for _, name := range current {
			for _, dep := range dependents[name] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		slices.SortFunc(next, byOrder)
		current = next
	}

	if done != len(deps) {
		var stuck []string
		for name, n := range indegree {
			if n > 0 {
				stuck = append(stuck, name)
			}
		}
		slices.SortFunc(stuck, byOrder)
		return nil, fmt.Errorf("executor: %w between %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return levels, nil
}
