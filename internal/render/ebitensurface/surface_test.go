package ebitensurface

import (
	"strings"
	"testing"

	"voxelportals.ai/internal/render/pass"
	"voxelportals.ai/internal/render/transition"
)

func TestTransitionShaderEmbedded(t *testing.T) {
	src, err := shaderFS.ReadFile("shaders/" + transition.ShaderName + ".kage")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, u := range []string{"var Progress float", "var ScreenSize vec2", "imageSrc0At"} {
		if !strings.Contains(string(src), u) {
			t.Fatalf("shader missing %q", u)
		}
	}
}

func TestCompileUnknownShader(t *testing.T) {
	if _, err := (Surface{}).CompileShader("missing"); err == nil {
		t.Fatalf("expected error")
	}
}

type otherTarget struct{}

func (otherTarget) Size() (int, int) { return 1, 1 }

func TestDrawRejectsForeignTargets(t *testing.T) {
	s := &Shader{}
	if err := s.Draw(otherTarget{}, otherTarget{}, nil); err == nil {
		t.Fatalf("expected error")
	}
	s.Release()
}

func TestRenderViewNeedsViewport(t *testing.T) {
	r := NewRenderer(0, 0, nil)
	if _, err := r.RenderView(pass.NewRoot("overworld", pass.Viewer{}.Camera(), nil)); err == nil {
		t.Fatalf("expected error")
	}
	if r.Live() != 0 {
		t.Fatalf("live=%d want 0", r.Live())
	}
}
