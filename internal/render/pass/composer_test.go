package pass

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

type fakeTarget struct {
	id   int
	node string
}

func (t *fakeTarget) Size() (int, int) { return 4, 3 }

type fakeRenderer struct {
	next     int
	order    []string
	live     map[int]bool
	released []int
	fail     string
}

func newFakeRenderer() *fakeRenderer { return &fakeRenderer{live: map[int]bool{}} }

func (r *fakeRenderer) RenderView(n *Node) (Target, error) {
	for _, c := range n.Children() {
		if c.Target == nil {
			return nil, errors.New("child not rendered before parent")
		}
	}
	if r.fail != "" && n.World == r.fail {
		return nil, errors.New("boom")
	}
	r.next++
	r.order = append(r.order, n.World)
	r.live[r.next] = true
	return &fakeTarget{id: r.next, node: n.World}, nil
}

func (r *fakeRenderer) Release(t Target) {
	ft := t.(*fakeTarget)
	delete(r.live, ft.id)
	r.released = append(r.released, ft.id)
}

// portalLike contributes one child into world `to` for every pass in world `from`.
type portalLike struct {
	key        string
	from, to   string
	calls      int
	composites int
}

func (p *portalLike) Contribute(f *FrameContext, parent *Node) []Contribution {
	p.calls++
	if parent.World != p.from {
		return nil
	}
	return []Contribution{{Key: p.key, World: p.to, Camera: mgl64.Translate3D(1, 0, 0).Mul4(parent.Camera)}}
}

func (p *portalLike) Composite(f *FrameContext, root *Node) error {
	p.composites++
	return nil
}

type twice struct{ portalLike }

func (p *twice) Contribute(f *FrameContext, parent *Node) []Contribution {
	cs := p.portalLike.Contribute(f, parent)
	return append(cs, cs...)
}

type panicky struct{}

func (panicky) Contribute(*FrameContext, *Node) []Contribution { panic("contribute") }
func (panicky) Composite(*FrameContext, *Node) error           { panic("composite") }

func viewer(world string) *Viewer {
	return &Viewer{World: world, Pos: mgl64.Vec3{1, 2, 3}}
}

func TestFrameBuildsTreeUpToMaxDepth(t *testing.T) {
	r := newFakeRenderer()
	c := NewComposer(r, 3, nil)
	// a <-> b forms an infinite mirror; the depth limit must stop it.
	c.Register(&portalLike{key: "ab", from: "a", to: "b"})
	c.Register(&portalLike{key: "ba", from: "b", to: "a"})

	root, err := c.Frame(viewer("a"), 0)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if got := root.Count(); got != 4 {
		t.Fatalf("nodes=%d want 4", got)
	}
	n := root
	for i, want := range []string{"b", "a", "b"} {
		if len(n.Children()) != 1 {
			t.Fatalf("depth %d: children=%d want 1", i, len(n.Children()))
		}
		n = n.Children()[0]
		if n.World != want || n.Depth() != i+1 {
			t.Fatalf("depth %d: world=%s depth=%d", i, n.World, n.Depth())
		}
	}
	if got := strings.Join(r.order, ","); got != "b,a,b,a" {
		t.Fatalf("render order=%s want deepest first", got)
	}
	wantCam := mgl64.Translate3D(1, 0, 0).Mul4(root.Camera)
	if !root.Children()[0].Camera.ApproxEqual(wantCam) {
		t.Fatalf("child camera=%v want %v", root.Children()[0].Camera, wantCam)
	}
}

func TestContributionsAreIdempotentPerKey(t *testing.T) {
	r := newFakeRenderer()
	c := NewComposer(r, 1, nil)
	p := &twice{portalLike{key: "k", from: "a", to: "b"}}
	c.Register(p)
	c.Register(p)
	if c.Len() != 1 {
		t.Fatalf("contributors=%d want 1", c.Len())
	}
	root, err := c.Frame(viewer("a"), 0)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if len(root.Children()) != 1 {
		t.Fatalf("children=%d want 1", len(root.Children()))
	}
	if p.composites != 1 {
		t.Fatalf("composites=%d want 1", p.composites)
	}
}

func TestPreviousLinksAndRelease(t *testing.T) {
	r := newFakeRenderer()
	c := NewComposer(r, 2, nil)
	c.Register(&portalLike{key: "ab", from: "a", to: "b"})

	first, err := c.Frame(viewer("a"), 0)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	firstChild := first.Child("ab")
	if firstChild == nil {
		t.Fatalf("missing child")
	}

	// Capture the link during population through a probe contributor.
	var seen *Node
	probe := &probeContributor{onParent: func(parent *Node) {
		if parent.Parent() == nil {
			seen = parent.Previous
		}
	}}
	c.Register(probe)
	second, err := c.Frame(viewer("a"), 0.5)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if seen != first {
		t.Fatalf("root.Previous was not the previous root")
	}
	if probe.childPrev != firstChild {
		t.Fatalf("child Previous was not linked to previous frame's child")
	}
	if len(r.live) != second.Count() {
		t.Fatalf("live targets=%d want %d", len(r.live), second.Count())
	}
	if first.Target != nil || firstChild.Target != nil {
		t.Fatalf("previous frame targets not released")
	}
	c.Close()
	if len(r.live) != 0 {
		t.Fatalf("live targets after Close=%d want 0", len(r.live))
	}
}

type probeContributor struct {
	onParent  func(*Node)
	childPrev *Node
}

func (p *probeContributor) Contribute(f *FrameContext, parent *Node) []Contribution {
	p.onParent(parent)
	if c := parent.Child("ab"); c != nil {
		p.childPrev = c.Previous
	}
	return nil
}

func (p *probeContributor) Composite(*FrameContext, *Node) error { return nil }

func TestPanicsAndErrorsStayInsideFrame(t *testing.T) {
	r := newFakeRenderer()
	c := NewComposer(r, 2, nil)
	ok := &portalLike{key: "ab", from: "a", to: "b"}
	c.Register(panicky{})
	c.Register(ok)

	root, err := c.Frame(viewer("a"), 0)
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if !strings.Contains(err.Error(), "panic: contribute") || !strings.Contains(err.Error(), "panic: composite") {
		t.Fatalf("err=%v", err)
	}
	if root.Child("ab") == nil || ok.composites != 1 {
		t.Fatalf("healthy contributor was not served")
	}
}

func TestRenderErrorStillComposites(t *testing.T) {
	r := newFakeRenderer()
	r.fail = "b"
	c := NewComposer(r, 1, nil)
	p := &portalLike{key: "ab", from: "a", to: "b"}
	c.Register(p)
	if _, err := c.Frame(viewer("a"), 0); err == nil {
		t.Fatalf("expected render error")
	}
	if p.composites != 1 {
		t.Fatalf("composites=%d want 1", p.composites)
	}
}

func TestUnregisterDuringComposite(t *testing.T) {
	r := newFakeRenderer()
	c := NewComposer(r, 1, nil)
	s := &selfRemoving{c: c}
	other := &portalLike{key: "ab", from: "a", to: "b"}
	c.Register(s)
	c.Register(other)
	if _, err := c.Frame(viewer("a"), 0); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if c.Registered(s) || !c.Registered(other) {
		t.Fatalf("unexpected registration state")
	}
	if other.composites != 1 {
		t.Fatalf("other composites=%d want 1", other.composites)
	}
}

type selfRemoving struct{ c *Composer }

func (s *selfRemoving) Contribute(*FrameContext, *Node) []Contribution { return nil }
func (s *selfRemoving) Composite(*FrameContext, *Node) error {
	s.c.Unregister(s)
	return nil
}
