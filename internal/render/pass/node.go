package pass

import "github.com/go-gl/mathgl/mgl64"

// Target is an off-screen image a pass was rendered into.
type Target interface {
	Size() (w, h int)
}

// Node is one render pass: a world seen through a camera. Children are keyed
// by the contributor that requested them; a parent holds at most one child per
// key.
type Node struct {
	Key   any
	World string
	// Camera is the camera-to-world transform.
	Camera mgl64.Mat4
	// Previous is the node with the same key in the previous frame, if any.
	Previous *Node
	// Target is set once the pass has been rendered.
	Target Target

	parent   *Node
	children []*Node
	byKey    map[any]*Node
	depth    int
}

func NewRoot(world string, camera mgl64.Mat4, previous *Node) *Node {
	return &Node{World: world, Camera: camera, Previous: previous}
}

func (n *Node) Parent() *Node { return n.parent }
func (n *Node) Depth() int    { return n.depth }

// Children returns the children in the order they were added.
func (n *Node) Children() []*Node { return n.children }

func (n *Node) Child(key any) *Node {
	if n == nil || n.byKey == nil {
		return nil
	}
	return n.byKey[key]
}

// AddChild attaches a pass for key. If the key already has a child it is
// returned unchanged and added is false.
func (n *Node) AddChild(key any, world string, camera mgl64.Mat4, previous *Node) (child *Node, added bool) {
	if c := n.Child(key); c != nil {
		return c, false
	}
	c := &Node{
		Key:      key,
		World:    world,
		Camera:   camera,
		Previous: previous,
		parent:   n,
		depth:    n.depth + 1,
	}
	if n.byKey == nil {
		n.byKey = map[any]*Node{}
	}
	n.byKey[key] = c
	n.children = append(n.children, c)
	return c, true
}

// PostOrder visits children before their parent.
func (n *Node) PostOrder(fn func(*Node) error) error {
	for _, c := range n.children {
		if err := c.PostOrder(fn); err != nil {
			return err
		}
	}
	return fn(n)
}

// Count returns the number of nodes in the subtree.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.children {
		total += c.Count()
	}
	return total
}
