package export

import (
	"strings"
	"testing"

	"github.com/san-kum/pushctl/internal/storage"
)

func TestSceneFromTicks(t *testing.T) {
	ticks := []storage.TickRow{
		{Object: [2]float64{0, 0}, Effector: [3]float64{-0.1, 0, 1}},
		{Object: [2]float64{0.05, -0.02}, Effector: [3]float64{0.02, -0.02, 0.83}},
	}
	s := SceneFromTicks(ticks, Point{0.15, -0.10})
	if len(s.Object) != 2 || len(s.Effector) != 2 {
		t.Fatalf("paths %d %d", len(s.Object), len(s.Effector))
	}
	if s.Goal != (Point{0.15, -0.10}) {
		t.Errorf("goal %v", s.Goal)
	}
}

func TestSceneSVG(t *testing.T) {
	s := Scene{
		Object:   []Point{{0, 0}, {0.1, 0}},
		Effector: []Point{{-0.1, 0}, {0.05, 0}},
		Goal:     Point{0.1, 0.1},
	}
	svg := s.SVG(200)
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("not a document:\n%s", svg)
	}
	if n := strings.Count(svg, "<path"); n != 2 {
		t.Errorf("%d paths", n)
	}
	// Span is 0.2 padded to 0.24 around (0, 0.05); the goal sits at
	// x = 0.22/0.24*200, y = 200 - 0.17/0.24*200.
	if !strings.Contains(svg, `cx="183.3" cy="58.3" r="5"`) {
		t.Errorf("goal misplaced:\n%s", svg)
	}
}

func TestSceneSVGNeedsPath(t *testing.T) {
	if got := (Scene{Object: []Point{{0, 0}}}).SVG(100); got != "" {
		t.Errorf("got %q", got)
	}
}
