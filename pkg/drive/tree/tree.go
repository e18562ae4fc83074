// Package tree reconstructs an owner's namespace forest from the flat
// record set returned by the metadata store. The records already carry
// materialized paths; this index exists for callers that want to present
// hierarchy or walk subtrees without re-querying.
package tree

import (
	"sort"

	"github.com/excalidrive/excalidrive/pkg/drive/models"
)

// Node is one item with its resolved children.
type Node struct {
	Item     *models.FileSystemItem
	Children []*Node
}

// Index holds the reconstructed forest and an id lookup table.
type Index struct {
	roots []*Node
	byID  map[string]*Node
}

// Build assembles the forest from a flat record set. Items whose parent is
// absent from the set are treated as roots, so a partial record set still
// yields a usable forest. Children are ordered folders-first, then by name.
func Build(items []*models.FileSystemItem) *Index {
	idx := &Index{
		byID: make(map[string]*Node, len(items)),
	}

	for _, item := range items {
		idx.byID[item.ID] = &Node{Item: item}
	}

	for _, item := range items {
		node := idx.byID[item.ID]
		if item.ParentID != nil {
			if parent, ok := idx.byID[*item.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		idx.roots = append(idx.roots, node)
	}

	sortNodes(idx.roots)
	for _, node := range idx.byID {
		sortNodes(node.Children)
	}

	return idx
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].Item, nodes[j].Item
		if a.Type != b.Type {
			return a.Type == models.ItemTypeFolder
		}
		return a.Name < b.Name
	})
}

// Roots returns the top-level nodes of the forest.
func (x *Index) Roots() []*Node {
	return x.roots
}

// Get returns the node for an item ID.
func (x *Index) Get(id string) (*Node, bool) {
	node, ok := x.byID[id]
	return node, ok
}

// Len returns the number of indexed items.
func (x *Index) Len() int {
	return len(x.byID)
}

// Subtree returns the items of the subtree rooted at id in depth-first
// order, starting with the root item itself. Returns nil when id is not in
// the index.
func (x *Index) Subtree(id string) []*models.FileSystemItem {
	node, ok := x.byID[id]
	if !ok {
		return nil
	}

	var items []*models.FileSystemItem
	var walk func(*Node)
	walk = func(n *Node) {
		items = append(items, n.Item)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)
	return items
}
