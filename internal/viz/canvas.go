package viz

import (
	"math"
	"strings"

	"github.com/golang/geo/r3"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells addressed in dots: (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

// Set lights the dot at (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) { c.drawLine(x0, y0, x1, y1, 1, 0) }

// DrawDashed draws a line lighting on dots, then skipping off dots.
func (c *Canvas) DrawDashed(x0, y0, x1, y1, on, off int) { c.drawLine(x0, y0, x1, y1, on, off) }

func (c *Canvas) drawLine(x0, y0, x1, y1, on, off int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for n := 0; ; n++ {
		if n%(on+off) < on {
			c.Set(x0, y0)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawSquare outlines a square of half side r centred on (x, y).
func (c *Canvas) DrawSquare(x, y, r int) {
	c.DrawLine(x-r, y-r, x+r, y-r)
	c.DrawLine(x+r, y-r, x+r, y+r)
	c.DrawLine(x+r, y+r, x-r, y+r)
	c.DrawLine(x-r, y+r, x-r, y-r)
}

func (c *Canvas) DrawCross(x, y, r int) {
	c.DrawLine(x-r, y-r, x+r, y+r)
	c.DrawLine(x-r, y+r, x+r, y-r)
}

func (c *Canvas) DrawDiamond(x, y, r int) {
	c.DrawLine(x, y-r, x+r, y)
	c.DrawLine(x+r, y, x, y+r)
	c.DrawLine(x, y+r, x-r, y)
	c.DrawLine(x-r, y, x, y-r)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Frame maps table-plane coordinates (metres, +y away from the viewer) to
// canvas dots, looking down the z axis.
type Frame struct {
	center r3.Vector
	scale  float64
	w, h   int
}

// NewFrame fits a square window of side span metres around center.
func NewFrame(c *Canvas, center r3.Vector, span float64) Frame {
	w, h := c.Dots()
	if span <= 0 {
		span = 1
	}
	return Frame{center: center, scale: math.Min(float64(w), float64(h)) / span, w: w, h: h}
}

// Project returns the dot for p; z is ignored.
func (f Frame) Project(p r3.Vector) (int, int) {
	x := float64(f.w)/2 + (p.X-f.center.X)*f.scale
	y := float64(f.h)/2 - (p.Y-f.center.Y)*f.scale
	return int(math.Round(x)), int(math.Round(y))
}

// Dots converts a length in metres to dots, at least one.
func (f Frame) Dots(metres float64) int {
	return max(1, int(math.Round(metres*f.scale)))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
