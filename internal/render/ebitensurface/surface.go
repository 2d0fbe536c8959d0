// Package ebitensurface backs render passes with ebiten off-screen images.
package ebitensurface

import (
	"embed"
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"

	"voxelportals.ai/internal/render/pass"
	"voxelportals.ai/internal/render/transition"
)

//go:embed shaders/*.kage
var shaderFS embed.FS

// Image is a pass target.
type Image struct {
	img *ebiten.Image
}

func (i *Image) Size() (int, int) {
	b := i.img.Bounds()
	return b.Dx(), b.Dy()
}

func (i *Image) Ebiten() *ebiten.Image { return i.img }

// Scene draws the world of a pass into dst as seen from n.Camera. Children of
// n are already rendered and can be sampled through ImageOf.
type Scene func(dst *ebiten.Image, n *pass.Node)

// Renderer implements pass.Renderer. Released images are cleared and reused
// while their size still matches.
type Renderer struct {
	width, height int
	scene         Scene
	free          []*ebiten.Image
	live          int
}

func NewRenderer(width, height int, scene Scene) *Renderer {
	return &Renderer{width: width, height: height, scene: scene}
}

// Resize changes the size of images handed out from now on.
func (r *Renderer) Resize(width, height int) {
	if width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	r.drain()
}

func (r *Renderer) Live() int { return r.live }

func (r *Renderer) RenderView(n *pass.Node) (pass.Target, error) {
	if r.width <= 0 || r.height <= 0 {
		return nil, fmt.Errorf("render %s: empty viewport %dx%d", n.World, r.width, r.height)
	}
	var img *ebiten.Image
	if k := len(r.free); k > 0 {
		img = r.free[k-1]
		r.free = r.free[:k-1]
	} else {
		img = ebiten.NewImage(r.width, r.height)
	}
	r.live++
	if r.scene != nil {
		r.scene(img, n)
	}
	return &Image{img: img}, nil
}

func (r *Renderer) Release(t pass.Target) {
	im, ok := t.(*Image)
	if !ok || im.img == nil {
		return
	}
	r.live--
	b := im.img.Bounds()
	if b.Dx() != r.width || b.Dy() != r.height {
		im.img.Deallocate()
	} else {
		im.img.Clear()
		r.free = append(r.free, im.img)
	}
	im.img = nil
}

// Close frees pooled images. Targets still held by a composer are released
// through Release.
func (r *Renderer) Close() { r.drain() }

func (r *Renderer) drain() {
	for _, img := range r.free {
		img.Deallocate()
	}
	r.free = nil
}

// ImageOf returns the ebiten image behind a rendered pass.
func ImageOf(n *pass.Node) *ebiten.Image {
	if n == nil {
		return nil
	}
	if im, ok := n.Target.(*Image); ok {
		return im.img
	}
	return nil
}

// Surface compiles the embedded Kage shaders.
type Surface struct{}

func (Surface) CompileShader(name string) (transition.Shader, error) {
	src, err := shaderFS.ReadFile("shaders/" + name + ".kage")
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	s, err := ebiten.NewShader(src)
	if err != nil {
		return nil, fmt.Errorf("compile shader %s: %w", name, err)
	}
	return &Shader{s: s}, nil
}

type Shader struct {
	s *ebiten.Shader
}

// Draw runs the shader over all of dst with src bound as image 0.
func (s *Shader) Draw(dst, src pass.Target, uniforms map[string]any) error {
	d, ok := dst.(*Image)
	if !ok || d.img == nil {
		return errors.New("shader draw: destination is not an ebiten image")
	}
	in, ok := src.(*Image)
	if !ok || in.img == nil {
		return errors.New("shader draw: source is not an ebiten image")
	}
	w, h := d.Size()
	if sw, sh := in.Size(); sw != w || sh != h {
		return fmt.Errorf("shader draw: source %dx%d does not match destination %dx%d", sw, sh, w, h)
	}
	op := &ebiten.DrawRectShaderOptions{Uniforms: uniforms}
	op.Images[0] = in.img
	d.img.DrawRectShader(w, h, s.s, op)
	return nil
}

func (s *Shader) Release() {
	if s.s != nil {
		s.s.Deallocate()
		s.s = nil
	}
}
