// Package export renders saved runs as standalone files.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pushctl/internal/storage"
)

type Point struct{ X, Y float64 }

// Scene is a top-down view of one run.
type Scene struct {
	Object   []Point
	Effector []Point
	Goal     Point
}

// SceneFromTicks collects the planar paths from saved tick rows. goalOffset
// is added to the object's first position.
func SceneFromTicks(ticks []storage.TickRow, goalOffset Point) Scene {
	var s Scene
	for _, r := range ticks {
		s.Object = append(s.Object, Point{r.Object[0], r.Object[1]})
		s.Effector = append(s.Effector, Point{r.Effector[0], r.Effector[1]})
	}
	if len(s.Object) > 0 {
		s.Goal = Point{s.Object[0].X + goalOffset.X, s.Object[0].Y + goalOffset.Y}
	}
	return s
}

// bounds is a square window around every point with 10% padding, so both
// axes share one scale.
func (s Scene) bounds() (minX, minY, span float64) {
	minX, minY = s.Goal.X, s.Goal.Y
	maxX, maxY := minX, minY
	for _, path := range [][]Point{s.Object, s.Effector} {
		for _, p := range path {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	span = math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	span *= 1.2
	return cx - span/2, cy - span/2, span
}

// SVG draws the object path, the end-effector path and the goal in a size x
// size image, +y up.
func (s Scene) SVG(size int) string {
	if len(s.Object) < 2 {
		return ""
	}
	minX, minY, span := s.bounds()
	scale := float64(size) / span
	project := func(p Point) (float64, float64) {
		return (p.X - minX) * scale, float64(size) - (p.Y-minY)*scale
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, size, size, size, size))

	path := func(points []Point, stroke, dash string) {
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5"%s d="M`, stroke, dash))
		for i, p := range points {
			x, y := project(p)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}
	path(s.Effector, "#ff00ff", ` stroke-dasharray="4 3"`)
	path(s.Object, "#00ffff", "")

	gx, gy := project(s.Goal)
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="5" fill="none" stroke="#00ff88" stroke-width="2"/>
`, gx, gy))
	ox, oy := project(s.Object[len(s.Object)-1])
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="#00ffff"/>
`, ox, oy))

	sb.WriteString("</svg>")
	return sb.String()
}
