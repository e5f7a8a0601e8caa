package compose

import (
	"fmt"
	"reflect"
	"strconv"
)

// dependencyGraph holds the constructor dependencies between registrations.
type dependencyGraph struct {
	nodes map[string]*node
	order []string // registration order
}

type node struct {
	name         string
	label        string
	dependencies []string
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		nodes: make(map[string]*node),
		order: make([]string, 0),
	}
}

// addNode adds a node with its dependencies.
func (g *dependencyGraph) addNode(name, label string, dependencies []string) {
	g.nodes[name] = &node{name: name, label: label, dependencies: dependencies}
	g.order = append(g.order, name)
}

// topologicalSort returns node names in dependency order. Independent nodes
// keep their registration order. A cycle yields CyclicDependencyError.
func (g *dependencyGraph) topologicalSort() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	result := make([]string, 0, len(g.nodes))

	for _, name := range g.order {
		if err := g.visit(name, visited, visiting, nil, &result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (g *dependencyGraph) visit(name string, visited, visiting map[string]bool, stack []string, result *[]string) error {
	if visited[name] {
		return nil
	}
	if visiting[name] {
		return &CyclicDependencyError{Chain: g.cycle(stack, name)}
	}

	n := g.nodes[name]
	if n == nil {
		// instances, factories and generic closings have no static edges
		return nil
	}

	visiting[name] = true
	stack = append(stack, name)
	for _, dep := range n.dependencies {
		if err := g.visit(dep, visited, visiting, stack, result); err != nil {
			return err
		}
	}
	visiting[name] = false
	visited[name] = true
	*result = append(*result, name)
	return nil
}

// cycle returns the labels of the stack suffix starting at name, closed by name.
func (g *dependencyGraph) cycle(stack []string, name string) []string {
	start := 0
	for i, s := range stack {
		if s == name {
			start = i
			break
		}
	}
	out := make([]string, 0, len(stack)-start+1)
	for _, s := range stack[start:] {
		out = append(out, g.nodes[s].label)
	}
	return append(out, g.nodes[name].label)
}

// validateCatalog resolves every constructor parameter of the catalog to its
// winning registration without constructing anything, then checks the
// resulting graph for cycles.
func validateCatalog(c *Catalog, strategy AmbiguityStrategy) error {
	g := newDependencyGraph()
	for _, r := range c.registrations() {
		if r.recipe == nil {
			continue
		}
		var deps []string
		for _, p := range r.recipe.dependencies() {
			keys, err := dependencyKeys(c, p, strategy)
			if err != nil {
				return fmt.Errorf("validate %s: %w", r, err)
			}
			deps = append(deps, keys...)
		}
		g.addNode(strconv.FormatUint(r.order, 10), r.matchContract().String(), deps)
	}
	_, err := g.topologicalSort()
	return err
}

func dependencyKeys(c *Catalog, p param, strategy AmbiguityStrategy) ([]string, error) {
	if p.name == "" && p.typ.Kind() == reflect.Slice {
		elem := ContractFor(p.typ.Elem())
		if c.IsMultiple(elem) {
			bs, err := c.candidates(elem)
			if err != nil {
				return nil, err
			}
			keys := make([]string, len(bs))
			for i, b := range bs {
				keys[i] = b.key
			}
			return keys, nil
		}
	}

	bs, err := c.candidates(p.contract)
	if err != nil {
		return nil, err
	}
	bs = filterByName(bs, p.name)
	if len(bs) == 0 {
		return nil, &NoServiceRegisteredError{Contract: p.contract.String(), Name: p.name}
	}
	if c.IsMultiple(p.contract) {
		return []string{orderForAll(bs)[0].key}, nil
	}
	w, err := selectWinner(p.contract, bs, strategy)
	if err != nil {
		return nil, err
	}
	return []string{w.key}, nil
}
