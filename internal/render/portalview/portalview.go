// Package portalview contributes the destination view of every drawable
// portal end to the pass tree.
package portalview

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/render/pass"
	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/portal"
)

// Source lists the loaded portal ends.
type Source interface {
	All() []*portal.Instance
}

type Contributor struct {
	src Source
	// ViewDistance limits which portals are considered from a camera. Zero
	// disables the distance test.
	ViewDistance float64
}

func New(src Source, viewDistance float64) *Contributor {
	return &Contributor{src: src, ViewDistance: viewDistance}
}

func (c *Contributor) Contribute(f *pass.FrameContext, parent *pass.Node) []pass.Contribution {
	var out []pass.Contribution
	for _, p := range c.src.All() {
		g := p.Geometry()
		if g.LocalDimension != parent.World {
			continue
		}
		// Never look straight back through the end we came from.
		if k, ok := parent.Key.(portal.Key); ok && k == p.RemoteKey() {
			continue
		}
		if !p.Agent().Visible(func(box geom.AABB) bool { return c.inView(parent.Camera, box) }) {
			continue
		}
		out = append(out, pass.Contribution{
			Key:    p.Key(),
			World:  g.RemoteDimension,
			Camera: g.LocalToRemote().Mul4(parent.Camera),
		})
	}
	return out
}

// Composite is a no-op: portal surfaces sample their child targets while the
// parent pass is rendered.
func (c *Contributor) Composite(*pass.FrameContext, *pass.Node) error { return nil }

func (c *Contributor) inView(camera mgl64.Mat4, box geom.AABB) bool {
	eye := CameraPos(camera)
	if box.Contains(eye) {
		return true
	}
	center := box.Center()
	to := center.Sub(eye)
	if c.ViewDistance > 0 && to.Len() > c.ViewDistance {
		return false
	}
	// Accept anything not fully behind the camera plane.
	fwd := CameraForward(camera)
	half := box.Max.Sub(box.Min).Mul(0.5)
	reach := abs(fwd[0])*half[0] + abs(fwd[1])*half[1] + abs(fwd[2])*half[2]
	return fwd.Dot(to) >= -reach
}

// CameraPos returns the eye position of a camera-to-world transform.
func CameraPos(camera mgl64.Mat4) mgl64.Vec3 {
	return camera.Col(3).Vec3()
}

// CameraForward returns the world-space view direction. Cameras look along +Z
// at yaw 0.
func CameraForward(camera mgl64.Mat4) mgl64.Vec3 {
	return camera.Mul4x1(mgl64.Vec4{0, 0, 1, 0}).Vec3()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
