package domain

import "strings"

// MaxMindMapDepth bounds how many levels of a mind map are kept.
const MaxMindMapDepth = 3

// PlaceholderMindMapName is the root name used when no map could be synthesized.
const PlaceholderMindMapName = "Meeting Overview"

// MindMapNode is one node of a meeting topic tree.
type MindMapNode struct {
	Name     string
	Children []MindMapNode
}

// PlaceholderMindMap returns the fallback tree.
func PlaceholderMindMap() *MindMapNode {
	return &MindMapNode{Name: PlaceholderMindMapName, Children: []MindMapNode{}}
}

// Truncated copies the tree, dropping levels below depth and blank names.
func (n MindMapNode) Truncated(depth int) MindMapNode {
	out := MindMapNode{Name: strings.TrimSpace(n.Name), Children: []MindMapNode{}}
	if depth <= 1 {
		return out
	}
	for _, child := range n.Children {
		if strings.TrimSpace(child.Name) == "" {
			continue
		}
		out.Children = append(out.Children, child.Truncated(depth-1))
	}
	return out
}

// Depth reports the number of levels in the tree.
func (n MindMapNode) Depth() int {
	maxChild := 0
	for _, child := range n.Children {
		maxChild = max(maxChild, child.Depth())
	}
	return maxChild + 1
}

// Walk visits every node depth-first with its level, root at 0.
func (n MindMapNode) Walk(visit func(node MindMapNode, level int)) {
	n.walk(visit, 0)
}

func (n MindMapNode) walk(visit func(MindMapNode, int), level int) {
	visit(n, level)
	for _, child := range n.Children {
		child.walk(visit, level+1)
	}
}
