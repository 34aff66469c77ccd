package pipeline

import "testing"

type fakeNode struct {
	name     string
	priority int
	deps     []string
}

func (f fakeNode) Name() string           { return f.name }
func (f fakeNode) Priority() int          { return f.priority }
func (f fakeNode) Dependencies() []string { return f.deps }

func TestTopoSortOrdersByDependencyThenPriority(t *testing.T) {
	nodes := []topoNode{
		fakeNode{name: "feature", priority: 20},
		fakeNode{name: "plane", priority: 30, deps: []string{"marker"}},
		fakeNode{name: "marker", priority: 10},
	}
	order, err := topoSort(nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := make([]string, len(order))
	for i, n := range order {
		names[i] = n.Name()
	}
	if names[len(names)-1] != "plane" {
		t.Fatalf("expected plane (which depends on marker) to run last, got order %v", names)
	}
	markerIdx, planeIdx := -1, -1
	for i, n := range names {
		if n == "marker" {
			markerIdx = i
		}
		if n == "plane" {
			planeIdx = i
		}
	}
	if markerIdx >= planeIdx {
		t.Fatalf("expected marker before plane, got %v", names)
	}
}

func TestTopoSortRejectsDuplicateNames(t *testing.T) {
	nodes := []topoNode{
		fakeNode{name: "marker"},
		fakeNode{name: "marker"},
	}
	if _, err := topoSort(nodes); err == nil {
		t.Fatal("expected an error for duplicate plugin names")
	}
}

func TestTopoSortRejectsMissingDependency(t *testing.T) {
	nodes := []topoNode{
		fakeNode{name: "plane", deps: []string{"marker"}},
	}
	if _, err := topoSort(nodes); err == nil {
		t.Fatal("expected an error for a dependency on an unregistered plugin")
	}
}

func TestTopoSortRejectsCycle(t *testing.T) {
	nodes := []topoNode{
		fakeNode{name: "a", deps: []string{"b"}},
		fakeNode{name: "b", deps: []string{"a"}},
	}
	if _, err := topoSort(nodes); err == nil {
		t.Fatal("expected an error for a dependency cycle")
	}
}
