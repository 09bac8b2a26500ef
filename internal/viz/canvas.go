package viz

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
// starting at U+2800.
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a braille bitmap of Width x Height cells, i.e. 2*Width by
// 4*Height dots.
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

// Set lights the dot at (x, y); out-of-range dots are ignored.
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

// DrawLine is Bresenham between two dots.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
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

// Blob fills a (2r+1)^2 block of dots around (x, y).
func (c *Canvas) Blob(x, y, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			c.Set(x+dx, y+dy)
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Frame maps the x-y plane onto canvas dots with a uniform scale, centred on
// the origin, so circles stay round up to the 2:4 cell aspect.
type Frame struct {
	cx, cy int
	scale  float64
}

// FitFrame returns a frame in which every point lies inside the canvas.
func FitFrame(c *Canvas, pts []r3.Vec) Frame {
	extent := 0.0
	for _, p := range pts {
		extent = math.Max(extent, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	w, h := c.Width*2, c.Height*4
	f := Frame{cx: w / 2, cy: h / 2, scale: 1}
	if extent > 0 {
		f.scale = float64(min(w, h)/2-1) / extent
	}
	return f
}

func (f Frame) Project(p r3.Vec) (int, int) {
	return f.cx + int(math.Round(p.X*f.scale)), f.cy - int(math.Round(p.Y*f.scale))
}

// DrawPath plots a polyline through pts.
func (c *Canvas) DrawPath(f Frame, pts []r3.Vec) {
	for i, p := range pts {
		x, y := f.Project(p)
		if i == 0 {
			c.Set(x, y)
			continue
		}
		px, py := f.Project(pts[i-1])
		c.DrawLine(px, py, x, y)
	}
}

// OrbitView draws a relative path with the reference body at the centre.
func OrbitView(path []r3.Vec, w, h int) string {
	c := NewCanvas(w, h)
	f := FitFrame(c, path)
	c.DrawPath(f, path)
	x, y := f.Project(r3.Vec{})
	c.Blob(x, y, 1)
	return c.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
