// Package graph orders render work into named nodes and per-frame CPU stages.
package graph

import (
	"errors"
	"fmt"
	"sync"
)

// CameraDriverNode is the name of the node that renders every camera's target.
// Nodes that consume rendered output declare it as their predecessor.
const CameraDriverNode = "camera_driver"

var (
	// ErrNodeExists is returned when adding a node under a name already in use.
	ErrNodeExists = errors.New("graph: node already exists")

	// ErrNodeNotFound is returned when an edge references an unknown node.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrCycle is returned when an edge would make the graph cyclic.
	ErrCycle = errors.New("graph: edge creates a cycle")
)

// Frame carries per-frame information passed to nodes and systems.
type Frame struct {
	// Number is the 1-based index of the render frame.
	Number uint64

	// DeltaTime is the time since the previous render frame, in seconds.
	DeltaTime float32
}

// Node is one unit of GPU work in the render graph.
type Node interface {
	// Run records and submits the node's work for the frame.
	//
	// Parameters:
	//   - frame: the current frame
	//
	// Returns:
	//   - error: an error if the node failed; other nodes still run
	Run(frame Frame) error
}

// NodeFunc adapts a function to the Node interface.
type NodeFunc func(frame Frame) error

// Run calls f(frame).
func (f NodeFunc) Run(frame Frame) error {
	return f(frame)
}

// RenderGraph orders named nodes by their declared dependencies and runs them once per frame.
type RenderGraph interface {
	// AddNode registers a node under a unique name.
	//
	// Parameters:
	//   - name: the unique node name
	//   - node: the node to run
	//
	// Returns:
	//   - error: ErrNodeExists if the name is taken
	AddNode(name string, node Node) error

	// AddNodeEdge declares that the node named to runs after the node named from.
	//
	// Parameters:
	//   - from: the predecessor node name
	//   - to: the successor node name
	//
	// Returns:
	//   - error: ErrNodeNotFound if either node is missing, ErrCycle if the edge closes a cycle
	AddNodeEdge(from, to string) error

	// RemoveNode removes a node and every edge touching it.
	//
	// Parameters:
	//   - name: the node name
	RemoveNode(name string)

	// HasNode reports whether a node with the given name is registered.
	//
	// Parameters:
	//   - name: the node name
	//
	// Returns:
	//   - bool: true if registered
	HasNode(name string) bool

	// Order returns node names in execution order. Independent nodes keep insertion order.
	//
	// Returns:
	//   - []string: the execution order
	Order() []string

	// Run executes every node in order. Node errors are collected and returned together.
	//
	// Parameters:
	//   - frame: the current frame
	//
	// Returns:
	//   - error: the joined node errors, or nil
	Run(frame Frame) error
}

type renderGraph struct {
	mu    sync.RWMutex
	names []string
	nodes map[string]Node
	edges map[string][]string
	order []string
}

var _ RenderGraph = &renderGraph{}

// NewRenderGraph creates an empty RenderGraph.
//
// Returns:
//   - RenderGraph: the new graph
func NewRenderGraph() RenderGraph {
	return &renderGraph{
		nodes: make(map[string]Node),
		edges: make(map[string][]string),
	}
}

func (g *renderGraph) AddNode(name string, node Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%q: %w", name, ErrNodeExists)
	}
	g.nodes[name] = node
	g.names = append(g.names, name)
	g.order = nil
	return nil
}

func (g *renderGraph) AddNodeEdge(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%q: %w", from, ErrNodeNotFound)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%q: %w", to, ErrNodeNotFound)
	}
	if from == to || g.reachable(to, from) {
		return fmt.Errorf("%q -> %q: %w", from, to, ErrCycle)
	}
	for _, n := range g.edges[from] {
		if n == to {
			return nil
		}
	}
	g.edges[from] = append(g.edges[from], to)
	g.order = nil
	return nil
}

func (g *renderGraph) RemoveNode(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[name]; !ok {
		return
	}
	delete(g.nodes, name)
	delete(g.edges, name)
	for from, tos := range g.edges {
		kept := tos[:0]
		for _, to := range tos {
			if to != name {
				kept = append(kept, to)
			}
		}
		g.edges[from] = kept
	}
	for i, n := range g.names {
		if n == name {
			g.names = append(g.names[:i], g.names[i+1:]...)
			break
		}
	}
	g.order = nil
}

func (g *renderGraph) HasNode(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[name]
	return ok
}

func (g *renderGraph) Order() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	order := g.sorted()
	cp := make([]string, len(order))
	copy(cp, order)
	return cp
}

func (g *renderGraph) Run(frame Frame) error {
	g.mu.Lock()
	order := g.sorted()
	nodes := make([]Node, len(order))
	for i, name := range order {
		nodes[i] = g.nodes[name]
	}
	g.mu.Unlock()

	var errs []error
	for i, node := range nodes {
		if err := node.Run(frame); err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", order[i], err))
		}
	}
	return errors.Join(errs...)
}

// reachable reports whether to can be reached from from. Caller holds g.mu.
func (g *renderGraph) reachable(from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		for _, next := range g.edges[n] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// sorted returns the cached topological order, rebuilding it if needed. Caller holds g.mu.
func (g *renderGraph) sorted() []string {
	if g.order != nil {
		return g.order
	}

	indegree := make(map[string]int, len(g.names))
	for _, tos := range g.edges {
		for _, to := range tos {
			indegree[to]++
		}
	}

	order := make([]string, 0, len(g.names))
	done := make(map[string]bool, len(g.names))
	// Kahn's algorithm, repeatedly scanning in insertion order so ties stay stable.
	for len(order) < len(g.names) {
		progressed := false
		for _, name := range g.names {
			if done[name] || indegree[name] > 0 {
				continue
			}
			done[name] = true
			order = append(order, name)
			for _, to := range g.edges[name] {
				indegree[to]--
			}
			progressed = true
		}
		if !progressed {
			break
		}
	}
	g.order = order
	return order
}
