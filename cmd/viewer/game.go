package main

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"voxelportals.ai/internal/render/ebitensurface"
	"voxelportals.ai/internal/render/pass"
	"voxelportals.ai/internal/render/portalview"
	"voxelportals.ai/internal/render/transition"
	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/world"
)

const (
	walkSpeed = 0.15
	turnSpeed = 3.0
	flySpeed  = 0.1
)

type game struct {
	rt       *world.Runtime
	logger   *log.Logger
	playerID string

	scene    *topDown
	renderer *ebitensurface.Renderer
	composer *pass.Composer
	anim     *transition.Animator

	width, height int
	lastStep      time.Time
	lastView      transition.View
	passes        int
	frameErr      error
}

func newGame(rt *world.Runtime, playerID string, width, height int, scale float64, logger *log.Logger) *game {
	tun := rt.Tuning()
	g := &game{rt: rt, logger: logger, playerID: playerID, width: width, height: height}
	viewDist := math.Hypot(float64(width), float64(height)) / 2 / scale
	g.scene = newTopDown(rt, scale, viewDist)
	g.renderer = ebitensurface.NewRenderer(width, height, g.scene.Draw)
	g.composer = pass.NewComposer(g.renderer, tun.MaxViewDepth, logger)
	g.composer.Register(portalview.New(rt.Registry(), viewDist))
	g.lastView = g.view()
	g.lastStep = time.Now()
	return g
}

func (g *game) view() transition.View {
	p, _ := g.rt.Player(g.playerID)
	return transition.View{
		World: p.Dimension,
		Pos:   p.Pos.Add(mgl64.Vec3{0, eyeHeight, 0}),
		Yaw:   p.Yaw,
		Pitch: p.Pitch,
	}
}

func (g *game) Update() error {
	p, ok := g.rt.Player(g.playerID)
	if !ok {
		return fmt.Errorf("player %s missing", g.playerID)
	}
	before := g.view()

	yaw := p.Yaw
	if ebiten.IsKeyPressed(ebiten.KeyQ) {
		yaw -= turnSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) {
		yaw += turnSpeed
	}
	fwd := geom.RotYaw(yaw).Mul4x1(mgl64.Vec4{0, 0, 1, 0}).Vec3()
	right := mgl64.Vec3{-fwd[2], 0, fwd[0]}

	var step mgl64.Vec3
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		step = step.Add(fwd)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		step = step.Sub(fwd)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		step = step.Add(right)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		step = step.Sub(right)
	}
	if l := step.Len(); l > 0 {
		step = step.Mul(walkSpeed / l)
	}
	if ebiten.IsKeyPressed(ebiten.KeySpace) {
		step[1] += flySpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		step[1] -= flySpeed
	}

	pos := p.Pos
	if step != (mgl64.Vec3{}) {
		pos = g.slide(p.Dimension, p.Pos, step)
	}
	if err := g.rt.MovePlayer(world.MoveRequest{PlayerID: g.playerID, Dimension: p.Dimension, Pos: pos, Yaw: yaw, Pitch: p.Pitch}); err != nil {
		return err
	}
	g.rt.StepOnce()
	g.lastStep = time.Now()

	after, _ := g.rt.Player(g.playerID)
	if after.Dimension != p.Dimension {
		g.startTransition(before)
	}
	if g.anim != nil {
		g.anim.Tick()
	}
	g.lastView = g.view()
	return nil
}

// slide moves axis by axis and drops the components that would collide.
func (g *game) slide(dim string, from, step mgl64.Vec3) mgl64.Vec3 {
	d := g.rt.Dimension(dim)
	if d == nil {
		return from
	}
	pos := from
	for axis := 0; axis < 3; axis++ {
		if step[axis] == 0 {
			continue
		}
		next := pos
		next[axis] += step[axis]
		box := geom.Box(next[0]-0.3, next[1], next[2]-0.3, next[0]+0.3, next[1]+1.8, next[2]+0.3)
		if !d.HasCollision(box) {
			pos = next
		}
	}
	return pos
}

func (g *game) startTransition(from transition.View) {
	if g.anim != nil {
		g.anim.Close()
	}
	anim, err := transition.Start(g.composer, ebitensurface.Surface{}, from, g.rt.Tuning().TransitionDuration(), nil)
	if err != nil {
		g.logger.Printf("transition: %v", err)
		return
	}
	g.anim = anim
	g.logger.Printf("dimension change %s -> %s", from.World, g.view().World)
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.anim != nil && g.anim.Closed() {
		g.anim = nil
	}
	v := g.lastView
	viewer := pass.Viewer{World: v.World, Pos: v.Pos, Yaw: v.Yaw, Pitch: v.Pitch}
	partial := float64(time.Since(g.lastStep)) / float64(g.rt.Tuning().TickDuration())
	root, err := g.composer.Frame(&viewer, mgl64.Clamp(partial, 0, 1))
	g.frameErr = err
	if root != nil {
		g.passes = root.Count()
		if img := ebitensurface.ImageOf(root); img != nil {
			screen.DrawImage(img, nil)
		}
	}
	ebitenutil.DebugPrint(screen, g.status())
}

func (g *game) status() string {
	v := g.lastView
	s := fmt.Sprintf("tick %d  %s  %.1f %.1f %.1f  yaw %.0f\npasses %d  targets %d",
		g.rt.CurrentTick(), v.World, v.Pos[0], v.Pos[1]-eyeHeight, v.Pos[2], v.Yaw, g.passes, g.renderer.Live())
	if g.anim != nil {
		s += fmt.Sprintf("\ntransition %.0f%%", g.anim.Progress(0)*100)
	}
	if g.frameErr != nil {
		s += "\nframe error: " + g.frameErr.Error()
	}
	return s
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth > 0 && outsideHeight > 0 && (outsideWidth != g.width || outsideHeight != g.height) {
		g.width, g.height = outsideWidth, outsideHeight
		g.renderer.Resize(outsideWidth, outsideHeight)
	}
	return g.width, g.height
}

func (g *game) Close() {
	if g.anim != nil {
		g.anim.Close()
	}
	g.composer.Close()
	g.renderer.Close()
}
