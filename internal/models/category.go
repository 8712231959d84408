package models

// CategoryID identifies a node of the category tree. Zero means "no category".
type CategoryID int64

// NoCategory is the zero CategoryID, used when nothing is selected.
const NoCategory CategoryID = 0

// pathSeparator joins ancestor names in LeafCategory.Path.
const pathSeparator = " > "

// CategoryNode is one node of the category tree as returned by the analysis API.
type CategoryNode struct {
	ID       CategoryID     `json:"id"`
	Name     string         `json:"name"`
	ParentID *CategoryID    `json:"parent_id"`
	Children []CategoryNode `json:"children"`
}

// IsLeaf reports whether the node has no children.
func (n CategoryNode) IsLeaf() bool { return len(n.Children) == 0 }

// LeafCategory is a leaf node flattened out of the tree with its full path.
type LeafCategory struct {
	ID   CategoryID `json:"id"`
	Name string     `json:"name"`
	Path string     `json:"path"`
}

// FlattenLeaves walks the tree depth-first and returns only the leaves,
// each annotated with "Root > Child > Leaf" style path.
func FlattenLeaves(nodes []CategoryNode) []LeafCategory {
	out := make([]LeafCategory, 0, len(nodes))
	return appendLeaves(out, nodes, "")
}

func appendLeaves(out []LeafCategory, nodes []CategoryNode, parentPath string) []LeafCategory {
	for _, n := range nodes {
		path := n.Name
		if parentPath != "" {
			path = parentPath + pathSeparator + n.Name
		}
		if n.IsLeaf() {
			out = append(out, LeafCategory{ID: n.ID, Name: n.Name, Path: path})
			continue
		}
		out = appendLeaves(out, n.Children, path)
	}
	return out
}
