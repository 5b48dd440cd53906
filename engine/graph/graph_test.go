package graph

import (
	"errors"
	"slices"
	"testing"
)

func addNop(t *testing.T, g RenderGraph, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := g.AddNode(name, NodeFunc(func(Frame) error { return nil })); err != nil {
			t.Fatalf("AddNode(%q) failed: %v", name, err)
		}
	}
}

func TestRenderGraphOrder(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{
			name:  "insertion order without edges",
			nodes: []string{"a", "b", "c"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "edge reorders successor",
			nodes: []string{"export", "camera"},
			edges: [][2]string{{"camera", "export"}},
			want:  []string{"camera", "export"},
		},
		{
			name:  "diamond",
			nodes: []string{"d", "c", "b", "a"},
			edges: [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
			want:  []string{"a", "c", "b", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewRenderGraph()
			addNop(t, g, tt.nodes...)
			for _, e := range tt.edges {
				if err := g.AddNodeEdge(e[0], e[1]); err != nil {
					t.Fatalf("AddNodeEdge(%q, %q) failed: %v", e[0], e[1], err)
				}
			}
			if got := g.Order(); !slices.Equal(got, tt.want) {
				t.Errorf("Order() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderGraphErrors(t *testing.T) {
	g := NewRenderGraph()
	addNop(t, g, "a", "b")

	if err := g.AddNode("a", NodeFunc(func(Frame) error { return nil })); !errors.Is(err, ErrNodeExists) {
		t.Errorf("duplicate AddNode err = %v", err)
	}
	if err := g.AddNodeEdge("a", "missing"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("edge to missing node err = %v", err)
	}
	if err := g.AddNodeEdge("a", "b"); err != nil {
		t.Fatalf("AddNodeEdge failed: %v", err)
	}
	if err := g.AddNodeEdge("b", "a"); !errors.Is(err, ErrCycle) {
		t.Errorf("cyclic edge err = %v", err)
	}
	if err := g.AddNodeEdge("a", "a"); !errors.Is(err, ErrCycle) {
		t.Errorf("self edge err = %v", err)
	}
}

func TestRenderGraphRemoveNode(t *testing.T) {
	g := NewRenderGraph()
	addNop(t, g, "a", "b", "c")
	_ = g.AddNodeEdge("a", "b")
	_ = g.AddNodeEdge("b", "c")

	g.RemoveNode("b")
	if g.HasNode("b") {
		t.Fatal("node still present after RemoveNode")
	}
	if got := g.Order(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Order() = %v, want [a c]", got)
	}
	g.RemoveNode("missing")
}

func TestRenderGraphRunCollectsErrors(t *testing.T) {
	g := NewRenderGraph()
	boom := errors.New("boom")
	var ran []string
	_ = g.AddNode("fails", NodeFunc(func(Frame) error {
		ran = append(ran, "fails")
		return boom
	}))
	_ = g.AddNode("after", NodeFunc(func(f Frame) error {
		if f.Number != 7 {
			t.Errorf("frame number = %d, want 7", f.Number)
		}
		ran = append(ran, "after")
		return nil
	}))
	_ = g.AddNodeEdge("fails", "after")

	err := g.Run(Frame{Number: 7})
	if !errors.Is(err, boom) {
		t.Errorf("Run err = %v, want boom", err)
	}
	if !slices.Equal(ran, []string{"fails", "after"}) {
		t.Errorf("ran = %v", ran)
	}
}
