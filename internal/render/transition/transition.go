// Package transition cross-fades from the view an entity left to the view it
// arrived in after changing dimension.
package transition

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/render/pass"
	"voxelportals.ai/internal/sim/geom"
)

const (
	TickMillis      = 50
	DefaultDuration = 10 * time.Second

	ShaderName = "dimension_transition"
)

// Shader blends a source target over a destination target.
type Shader interface {
	Draw(dst, src pass.Target, uniforms map[string]any) error
	Release()
}

// Surface compiles named shaders.
type Surface interface {
	CompileShader(name string) (Shader, error)
}

// Registrar is the composer the animator registers itself with.
type Registrar interface {
	Register(pass.Contributor)
	Unregister(pass.Contributor)
}

// View is a camera pose in a world.
type View struct {
	World string
	Pos   mgl64.Vec3
	Yaw   float64
	Pitch float64
}

func (v View) Camera() mgl64.Mat4 {
	return pass.Viewer{World: v.World, Pos: v.Pos, Yaw: v.Yaw, Pitch: v.Pitch}.Camera()
}

type Animator struct {
	reg      Registrar
	shader   Shader
	whenDone func()
	duration time.Duration

	from   View
	to     View
	hasTo  bool
	ticks  int
	closed bool
}

// Start registers an animator fading out of the departing view. whenDone runs
// exactly once, when the fade completes or the animator is closed early.
func Start(reg Registrar, surface Surface, from View, duration time.Duration, whenDone func()) (*Animator, error) {
	if duration <= 0 {
		duration = DefaultDuration
	}
	shader, err := surface.CompileShader(ShaderName)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", ShaderName, err)
	}
	a := &Animator{
		reg:      reg,
		shader:   shader,
		whenDone: whenDone,
		duration: duration,
		from:     from,
	}
	reg.Register(a)
	return a, nil
}

func (a *Animator) From() View { return a.from }

// To returns the arriving view; ok is false until the first frame captured it.
func (a *Animator) To() (View, bool) { return a.to, a.hasTo }

func (a *Animator) Closed() bool { return a.closed }

// Tick advances the animation by one simulation tick.
func (a *Animator) Tick() {
	if !a.closed {
		a.ticks++
	}
}

// Progress is the completed fraction in [0, 1].
func (a *Animator) Progress(partial float64) float64 {
	ms := (float64(a.ticks) + partial) * TickMillis
	p := ms / float64(a.duration.Milliseconds())
	return mgl64.Clamp(p, 0, 1)
}

// CameraOffset maps positions around the arriving camera onto the matching
// positions around the departing one.
func (a *Animator) CameraOffset() mgl64.Mat4 {
	return mgl64.Translate3D(a.from.Pos[0], a.from.Pos[1], a.from.Pos[2]).
		Mul4(geom.RotYaw(a.from.Yaw - a.to.Yaw)).
		Mul4(mgl64.Translate3D(-a.to.Pos[0], -a.to.Pos[1], -a.to.Pos[2]))
}

func (a *Animator) Contribute(f *pass.FrameContext, parent *pass.Node) []pass.Contribution {
	if a.closed || parent.Parent() != nil {
		return nil
	}
	if !a.hasTo {
		if f.Viewer == nil {
			return nil
		}
		// Keep the pitch across the switch so the camera does not jump.
		f.Viewer.Pitch = a.from.Pitch
		a.to = View{World: f.Viewer.World, Pos: f.Viewer.Pos, Yaw: f.Viewer.Yaw, Pitch: a.from.Pitch}
		a.hasTo = true
		parent.Camera = f.Viewer.Camera()
	}
	if a.Progress(f.Partial) >= 1 {
		return nil
	}
	return []pass.Contribution{{
		Key:    a,
		World:  a.from.World,
		Camera: a.CameraOffset().Mul4(parent.Camera),
	}}
}

func (a *Animator) Composite(f *pass.FrameContext, root *pass.Node) (err error) {
	if a.closed {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transition composite: panic: %v", r)
		}
		if err != nil || a.Progress(f.Partial) >= 1 {
			a.Close()
		}
	}()

	child := root.Child(a)
	if child == nil || child.Target == nil {
		return nil
	}
	if root.Target == nil {
		return errors.New("transition composite: root not rendered")
	}
	w, h := root.Target.Size()
	return a.shader.Draw(root.Target, child.Target, map[string]any{
		"Progress":   float32(a.Progress(f.Partial)),
		"ScreenSize": []float32{float32(w), float32(h)},
	})
}

// Close unregisters the animator, releases the shader and runs the
// completion callback. Later calls do nothing.
func (a *Animator) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.reg.Unregister(a)
	a.shader.Release()
	if a.whenDone != nil {
		a.whenDone()
	}
}
