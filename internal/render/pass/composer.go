package pass

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/sim/geom"
)

// Viewer is the camera the frame is rendered for.
type Viewer struct {
	World string
	Pos   mgl64.Vec3
	Yaw   float64
	Pitch float64
}

// Camera returns the camera-to-world transform of the viewer.
func (v Viewer) Camera() mgl64.Mat4 {
	return mgl64.Translate3D(v.Pos[0], v.Pos[1], v.Pos[2]).
		Mul4(geom.RotYaw(v.Yaw)).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(v.Pitch)))
}

// FrameContext is handed to contributors for one frame.
type FrameContext struct {
	Frame uint64
	// Partial is the fraction of a tick elapsed since the last simulation tick.
	Partial float64
	// Viewer may be adjusted by contributors while the tree is populated.
	Viewer *Viewer
}

// Contribution asks for a child pass under the parent being populated.
type Contribution struct {
	Key    any
	World  string
	Camera mgl64.Mat4
}

// Contributor adds passes to the tree and draws over the result once all
// passes are rendered.
type Contributor interface {
	Contribute(f *FrameContext, parent *Node) []Contribution
	Composite(f *FrameContext, root *Node) error
}

// Renderer draws a single pass into an off-screen target. Children of the
// node are already rendered when it is called.
type Renderer interface {
	RenderView(n *Node) (Target, error)
	Release(t Target)
}

// Composer builds and executes the pass tree every frame.
type Composer struct {
	renderer Renderer
	log      *log.Logger
	maxDepth int

	contributors []Contributor
	previous     *Node
	frame        uint64
}

func NewComposer(r Renderer, maxDepth int, logger *log.Logger) *Composer {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Composer{renderer: r, maxDepth: maxDepth, log: logger}
}

// Register adds a contributor. Registering twice has no effect.
func (c *Composer) Register(ct Contributor) {
	if c.Registered(ct) {
		return
	}
	c.contributors = append(c.contributors, ct)
}

func (c *Composer) Unregister(ct Contributor) {
	for i, x := range c.contributors {
		if x == ct {
			c.contributors = append(c.contributors[:i:i], c.contributors[i+1:]...)
			return
		}
	}
}

func (c *Composer) Registered(ct Contributor) bool {
	for _, x := range c.contributors {
		if x == ct {
			return true
		}
	}
	return false
}

func (c *Composer) Len() int { return len(c.contributors) }

// Previous returns the tree of the last completed frame.
func (c *Composer) Previous() *Node { return c.previous }

// Frame populates the tree for viewer, renders it depth first and runs the
// composite phase. The returned root stays valid until the next Frame call.
func (c *Composer) Frame(viewer *Viewer, partial float64) (*Node, error) {
	c.frame++
	f := &FrameContext{Frame: c.frame, Partial: partial, Viewer: viewer}
	var errs []error

	root := NewRoot(viewer.World, viewer.Camera(), c.previous)
	level := []*Node{root}
	for depth := 0; depth < c.maxDepth && len(level) > 0; depth++ {
		var next []*Node
		for _, parent := range level {
			for _, ct := range c.snapshot() {
				cs, err := c.contribute(ct, f, parent)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				for _, cb := range cs {
					child, added := parent.AddChild(cb.Key, cb.World, cb.Camera, parent.Previous.Child(cb.Key))
					if added {
						next = append(next, child)
					}
				}
			}
		}
		level = next
	}

	if err := root.PostOrder(func(n *Node) error {
		t, err := c.renderer.RenderView(n)
		if err != nil {
			return fmt.Errorf("render %s at depth %d: %w", n.World, n.depth, err)
		}
		n.Target = t
		return nil
	}); err != nil {
		errs = append(errs, err)
	}

	for _, ct := range c.snapshot() {
		if err := c.composite(ct, f, root); err != nil {
			errs = append(errs, err)
		}
	}

	if c.previous != nil {
		c.release(c.previous)
	}
	unlinkPrevious(root)
	c.previous = root

	err := errors.Join(errs...)
	if err != nil {
		c.log.Printf("frame %d: %v", c.frame, err)
	}
	return root, err
}

// Close releases the targets of the last frame.
func (c *Composer) Close() {
	if c.previous != nil {
		c.release(c.previous)
		c.previous = nil
	}
}

func (c *Composer) snapshot() []Contributor {
	return append([]Contributor(nil), c.contributors...)
}

func (c *Composer) contribute(ct Contributor, f *FrameContext, parent *Node) (cs []Contribution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("contribute %T: panic: %v", ct, r)
		}
	}()
	return ct.Contribute(f, parent), nil
}

func (c *Composer) composite(ct Contributor, f *FrameContext, root *Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("composite %T: panic: %v", ct, r)
		}
	}()
	if err := ct.Composite(f, root); err != nil {
		return fmt.Errorf("composite %T: %w", ct, err)
	}
	return nil
}

func (c *Composer) release(root *Node) {
	_ = root.PostOrder(func(n *Node) error {
		if n.Target != nil {
			c.renderer.Release(n.Target)
			n.Target = nil
		}
		return nil
	})
}

// unlinkPrevious drops references into older frames once a frame is done.
func unlinkPrevious(root *Node) {
	_ = root.PostOrder(func(n *Node) error {
		n.Previous = nil
		return nil
	})
}
