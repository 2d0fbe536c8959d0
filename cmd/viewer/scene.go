package main

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"

	"voxelportals.ai/internal/render/ebitensurface"
	"voxelportals.ai/internal/render/pass"
	"voxelportals.ai/internal/render/portalview"
	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/portal"
	"voxelportals.ai/internal/sim/world"
)

const eyeHeight = 1.62

var blockColors = map[string]color.RGBA{
	"STONE":        {0x80, 0x80, 0x80, 0xff},
	"DIRT":         {0x86, 0x60, 0x43, 0xff},
	"GRASS":        {0x5c, 0x9e, 0x3c, 0xff},
	"OBSIDIAN":     {0x1e, 0x14, 0x2d, 0xff},
	"END_STONE":    {0xdb, 0xde, 0x9e, 0xff},
	"NETHERRACK":   {0x72, 0x2e, 0x2e, 0xff},
	"PORTAL_FRAME": {0x8e, 0x3c, 0xd8, 0xff},
}

var (
	voidColor   = color.RGBA{0x08, 0x08, 0x10, 0xff}
	playerColor = color.RGBA{0xf0, 0xe0, 0x40, 0xff}
	portalColor = color.RGBA{0xb0, 0x60, 0xff, 0xff}
)

// projection maps world x/z onto a top-down view that keeps the camera's
// forward direction pointing up the screen.
type projection struct {
	eye    mgl64.Vec3
	fwd    [2]float64
	right  [2]float64
	scale  float64
	cx, cy float64
	radius int
	bodyY  int
}

func newProjection(camera mgl64.Mat4, w, h int, scale float64) projection {
	eye := portalview.CameraPos(camera)
	f := portalview.CameraForward(camera)
	fx, fz := f[0], f[2]
	if l := math.Hypot(fx, fz); l > 1e-9 {
		fx, fz = fx/l, fz/l
	} else {
		// Looking straight up or down: use the camera's up vector instead.
		u := camera.Mul4x1(mgl64.Vec4{0, 1, 0, 0})
		fx, fz = u[0], u[2]
		if l := math.Hypot(fx, fz); l > 1e-9 {
			fx, fz = fx/l, fz/l
		} else {
			fx, fz = 0, 1
		}
	}
	diag := math.Hypot(float64(w), float64(h)) / 2 / scale
	return projection{
		eye:    eye,
		fwd:    [2]float64{fx, fz},
		right:  [2]float64{-fz, fx},
		scale:  scale,
		cx:     float64(w) / 2,
		cy:     float64(h) / 2,
		radius: int(math.Ceil(diag)) + 1,
		bodyY:  int(math.Floor(eye[1] - eyeHeight + 0.5)),
	}
}

func (p projection) project(x, z float64) (float32, float32) {
	rx, rz := x-p.eye[0], z-p.eye[2]
	sx := p.cx + p.scale*(rx*p.right[0]+rz*p.right[1])
	sy := p.cy - p.scale*(rx*p.fwd[0]+rz*p.fwd[1])
	return float32(sx), float32(sy)
}

// cell returns the four screen corners of the voxel column at x/z.
func (p projection) cell(x, z int) [4][2]float32 {
	fx, fz := float64(x), float64(z)
	var out [4][2]float32
	for i, c := range [4][2]float64{{fx, fz}, {fx + 1, fz}, {fx + 1, fz + 1}, {fx, fz + 1}} {
		out[i][0], out[i][1] = p.project(c[0], c[1])
	}
	return out
}

// windowQuad is the world x/z region seen through a portal end from eye.
// Vertical ends open a strip behind their plane; horizontal ends show
// through their footprint.
func windowQuad(g portal.Geometry, eye mgl64.Vec3, depth float64) ([4][2]float64, bool) {
	box := g.LocalBoundingBox()
	if g.Plane == portal.Horizontal {
		return [4][2]float64{
			{box.Min[0], box.Min[2]}, {box.Max[0], box.Min[2]},
			{box.Max[0], box.Max[2]}, {box.Min[0], box.Max[2]},
		}, true
	}
	n := g.LocalFacing().Vec3()
	c := box.Center()
	side := eye.Sub(c).Dot(n)
	if side == 0 {
		return [4][2]float64{}, false
	}
	d := n.Mul(-depth)
	if side < 0 {
		d = n.Mul(depth)
	}
	var a, b [2]float64
	if n[0] != 0 {
		a = [2]float64{c[0], box.Min[2]}
		b = [2]float64{c[0], box.Max[2]}
	} else {
		a = [2]float64{box.Min[0], c[2]}
		b = [2]float64{box.Max[0], c[2]}
	}
	return [4][2]float64{a, b, {b[0] + d[0], b[1] + d[2]}, {a[0] + d[0], a[1] + d[2]}}, true
}

// topDown draws a dimension around the pass camera: the layer the camera's
// body occupies, with the layer below shaded as floor.
type topDown struct {
	rt       *world.Runtime
	scale    float64
	depth    float64
	white    *ebiten.Image
	verts    []ebiten.Vertex
	indices  []uint16
	paletted map[uint16]color.RGBA
}

func newTopDown(rt *world.Runtime, scale, depth float64) *topDown {
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)
	return &topDown{
		rt:       rt,
		scale:    scale,
		depth:    depth,
		white:    white.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image),
		paletted: map[uint16]color.RGBA{},
	}
}

func (s *topDown) colorOf(block uint16) color.RGBA {
	if c, ok := s.paletted[block]; ok {
		return c
	}
	c, ok := blockColors[s.rt.Tuning().BlockName(block)]
	if !ok {
		c = color.RGBA{0x60, 0x60, 0x60, 0xff}
	}
	s.paletted[block] = c
	return c
}

func (s *topDown) Draw(dst *ebiten.Image, n *pass.Node) {
	dst.Fill(voidColor)
	d := s.rt.Dimension(n.World)
	if d == nil {
		return
	}
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	p := newProjection(n.Camera, w, h, s.scale)

	air := s.rt.PortalConfig().Air
	ex, ez := int(math.Floor(p.eye[0])), int(math.Floor(p.eye[2]))
	for x := ex - p.radius; x <= ex+p.radius; x++ {
		for z := ez - p.radius; z <= ez+p.radius; z++ {
			if b := d.GetBlock(geom.Vec3i{X: x, Y: p.bodyY, Z: z}); b != air {
				s.quad(dst, p.cell(x, z), s.colorOf(b), 1)
			} else if b := d.GetBlock(geom.Vec3i{X: x, Y: p.bodyY - 1, Z: z}); b != air {
				s.quad(dst, p.cell(x, z), s.colorOf(b), 0.55)
			}
		}
	}
	s.flush(dst, s.white)

	// Destination views through the portal ends of this pass.
	for _, child := range n.Children() {
		key, ok := child.Key.(portal.Key)
		if !ok {
			continue
		}
		inst := s.rt.Registry().Lookup(key)
		img := ebitensurface.ImageOf(child)
		if inst == nil || img == nil {
			continue
		}
		q, ok := windowQuad(inst.Geometry(), p.eye, s.depth)
		if !ok {
			continue
		}
		var corners [4][2]float32
		for i, c := range q {
			corners[i][0], corners[i][1] = p.project(c[0], c[1])
		}
		s.through(dst, img, corners)
	}

	// Portal outlines and players on top.
	for _, inst := range s.rt.Registry().All() {
		g := inst.Geometry()
		if g.LocalDimension != n.World {
			continue
		}
		for _, b := range g.LocalBlocks() {
			s.quad(dst, p.cell(b.X, b.Z), portalColor, 0.35)
		}
	}
	for _, pl := range s.rt.Players() {
		if pl.Dimension != n.World {
			continue
		}
		x, z := pl.Pos[0], pl.Pos[2]
		var c [4][2]float32
		for i, o := range [4][2]float64{{-0.3, -0.3}, {0.3, -0.3}, {0.3, 0.3}, {-0.3, 0.3}} {
			c[i][0], c[i][1] = p.project(x+o[0], z+o[1])
		}
		s.quad(dst, c, playerColor, 1)
	}
	s.flush(dst, s.white)
}

func (s *topDown) quad(dst *ebiten.Image, c [4][2]float32, col color.RGBA, shade float32) {
	if len(s.verts)+4 > math.MaxUint16 {
		s.flush(dst, s.white)
	}
	base := uint16(len(s.verts))
	r := float32(col.R) / 0xff * shade
	g := float32(col.G) / 0xff * shade
	b := float32(col.B) / 0xff * shade
	for _, v := range c {
		s.verts = append(s.verts, ebiten.Vertex{
			DstX: v[0], DstY: v[1], SrcX: 1, SrcY: 1,
			ColorR: r, ColorG: g, ColorB: b, ColorA: 1,
		})
	}
	s.indices = append(s.indices, base, base+1, base+2, base, base+2, base+3)
}

// through copies the pixels of src under the quad into dst. Parent and child
// passes share screen space, so source and destination coordinates match.
func (s *topDown) through(dst, src *ebiten.Image, c [4][2]float32) {
	var vs [4]ebiten.Vertex
	for i, v := range c {
		vs[i] = ebiten.Vertex{DstX: v[0], DstY: v[1], SrcX: v[0], SrcY: v[1], ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1}
	}
	dst.DrawTriangles(vs[:], []uint16{0, 1, 2, 0, 2, 3}, src, &ebiten.DrawTrianglesOptions{})
}

func (s *topDown) flush(dst *ebiten.Image, src *ebiten.Image) {
	if len(s.indices) > 0 {
		dst.DrawTriangles(s.verts, s.indices, src, &ebiten.DrawTrianglesOptions{})
	}
	s.verts = s.verts[:0]
	s.indices = s.indices[:0]
}
