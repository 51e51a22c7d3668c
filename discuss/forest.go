package discuss

// Node is a comment with its direct replies, in ascending creation order.
type Node struct {
	*Comment

	Replies []*Node `json:"replies"`
}

// Forest is the reply tree projection of a post's flat comment list. It keeps
// an id index next to the roots so that reply insertion never walks the tree.
// A Forest has a single owner and is not safe for concurrent use.
type Forest struct {
	roots   []*Node
	index   map[string]*Node
	orphans []*Comment
}

// BuildForest projects flat, already ordered comments into a forest. A
// comment whose parent is not in flat is dropped and reported by Orphans.
// The same input always yields the same forest.
func BuildForest(flat []*Comment) *Forest {
	f := &Forest{
		roots: make([]*Node, 0),
		index: make(map[string]*Node, len(flat)),
	}

	for _, comment := range flat {
		f.index[comment.ID] = &Node{Comment: comment, Replies: make([]*Node, 0)}
	}

	for _, comment := range flat {
		node := f.index[comment.ID]

		if comment.ParentID == nil {
			f.roots = append(f.roots, node)

			continue
		}

		parent, found := f.index[*comment.ParentID]
		if !found || parent == node {
			f.orphans = append(f.orphans, comment)
			delete(f.index, comment.ID)

			continue
		}

		parent.Replies = append(parent.Replies, node)
	}

	f.pruneUnreachable(flat)

	return f
}

// pruneUnreachable drops index entries whose ancestry never reaches a root,
// which happens for reply cycles such as A->B->A.
func (f *Forest) pruneUnreachable(flat []*Comment) {
	reachable := make(map[string]struct{}, len(f.index))

	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, node := range nodes {
			reachable[node.ID] = struct{}{}
			walk(node.Replies)
		}
	}
	walk(f.roots)

	for _, comment := range flat {
		if _, ok := f.index[comment.ID]; !ok {
			continue
		}

		if _, ok := reachable[comment.ID]; !ok {
			f.orphans = append(f.orphans, comment)
			delete(f.index, comment.ID)
		}
	}
}

func (f *Forest) Roots() []*Node {
	return f.roots
}

// Orphans lists the comments left out of the forest.
func (f *Forest) Orphans() []*Comment {
	return f.orphans
}

func (f *Forest) Find(commentID string) (*Node, bool) {
	node, ok := f.index[commentID]

	return node, ok
}

// Len is the number of comments reachable from the roots.
func (f *Forest) Len() int {
	return len(f.index)
}

// AddRoot appends a new top-level comment.
func (f *Forest) AddRoot(comment *Comment) {
	node := &Node{Comment: comment, Replies: make([]*Node, 0)}
	f.roots = append(f.roots, node)
	f.index[comment.ID] = node
}

// InsertReply appends comment to the replies of parentID at any depth. It
// reports false and leaves the forest untouched when parentID is unknown.
func (f *Forest) InsertReply(parentID string, comment *Comment) bool {
	parent, ok := f.index[parentID]
	if !ok {
		return false
	}

	if _, exists := f.index[comment.ID]; exists {
		return false
	}

	node := &Node{Comment: comment, Replies: make([]*Node, 0)}
	parent.Replies = append(parent.Replies, node)
	f.index[comment.ID] = node

	return true
}
