package internal

import "math"

// MaxDots is the most dots ever drawn for one monitor
const MaxDots = 128

// Rect is an axis-aligned rectangle in window coordinates
type Rect struct {
	X, Y          int
	Width, Height int
}

// Segment is a line from (X1, Y1) to (X2, Y2)
type Segment struct {
	X1, Y1, X2, Y2 int
}

// Circle is a full circle inscribed in its bounding box
type Circle struct {
	X, Y, Diameter int
}

// Canvas is the set of drawing primitives the renderer needs
type Canvas interface {
	SetLineWidth(width int)
	DrawRectangle(r Rect)
	ClearArea(r Rect)
	DrawSegments(segments []Segment)
	DrawCircle(c Circle)
	FillCircles(circles []Circle)
}

// Renderer draws password feedback. It holds only static configuration.
type Renderer struct {
	dotSize    int
	dotSpacing int
	idleGlyph  bool
}

// NewRenderer creates a renderer from the configuration
func NewRenderer(config Configuration) Renderer {
	return Renderer{
		dotSize:    config.DotSize,
		dotSpacing: config.DotSpacing,
		idleGlyph:  config.IdleGlyph,
	}
}

// Render draws the feedback for a password of the given length on every
// active monitor
func (r Renderer) Render(c Canvas, monitors []Monitor, length int) {
	for _, m := range monitors {
		if m.Width == 0 {
			continue
		}
		r.renderMonitor(c, m, length)
	}
}

func (r Renderer) renderMonitor(c Canvas, m Monitor, length int) {
	cx := m.X + m.Width/2
	cy := m.Y + m.Height/2

	dotArea := r.dotSpacing
	if dotArea == 0 {
		dotArea = m.Width / 20
	}
	dotSize := r.dotSize
	if dotSize == 0 {
		dotSize = m.Width / 24
	}

	c.SetLineWidth(max(dotSize/2, 1))

	outline := Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}

	switch {
	case length == 0:
		c.ClearArea(dotBand(m, cy, dotSize, dotArea))
		if r.idleGlyph {
			dst := int(float64(m.Height/4) * (math.Sqrt2 / 2))
			c.DrawSegments([]Segment{
				{X1: cx - dst, Y1: cy - dst, X2: cx + dst, Y2: cy + dst},
				{X1: cx - dst, Y1: cy + dst, X2: cx + dst, Y2: cy - dst},
			})
			c.DrawCircle(Circle{X: cx - m.Height/4, Y: cy - m.Height/4, Diameter: m.Height / 2})
		}
		c.DrawRectangle(outline)

	case length == 1:
		c.DrawRectangle(outline)
		c.ClearArea(Rect{
			X:      m.X + dotSize/4,
			Y:      m.Y + dotSize/4,
			Width:  m.Width - dotSize/2,
			Height: m.Height - dotSize/2,
		})

	default:
		c.ClearArea(dotBand(m, cy, dotSize, dotArea))
		n := min(length, MaxDots)
		x := cx - dotArea*(n/2)
		if n%2 == 0 {
			x += dotArea / 2
		}
		dots := make([]Circle, n)
		for i := range dots {
			dots[i] = Circle{X: x - dotSize/2, Y: cy - dotSize/2, Diameter: dotSize}
			x += dotArea
		}
		c.FillCircles(dots)
	}
}

// dotBand is the horizontal strip through the monitor centre holding the dots
func dotBand(m Monitor, cy, dotSize, dotArea int) Rect {
	return Rect{
		X:      m.X + dotSize/4,
		Y:      cy - dotArea/2,
		Width:  m.Width - dotSize/2,
		Height: dotArea,
	}
}
