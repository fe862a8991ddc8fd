package internal

import (
	"reflect"
	"testing"
)

func testRenderer() Renderer {
	return NewRenderer(Configuration{IdleGlyph: true})
}

var fullHD = Monitor{X: 0, Y: 0, Width: 1920, Height: 1080}

func TestRenderIdle(t *testing.T) {
	c := &recordingCanvas{}
	testRenderer().Render(c, []Monitor{fullHD}, 0)

	// dotsize = 1920/24 = 80, dotarea = 1920/20 = 96
	wantBand := Rect{X: 20, Y: 492, Width: 1880, Height: 96}
	if len(c.clears) != 1 || c.clears[0] != wantBand {
		t.Errorf("expected dot band %v cleared, got %v", wantBand, c.clears)
	}
	if len(c.lines) != 2 {
		t.Fatalf("expected 2 glyph segments, got %d", len(c.lines))
	}
	wantCircle := Circle{X: 690, Y: 270, Diameter: 540}
	if len(c.circles) != 1 || c.circles[0] != wantCircle {
		t.Errorf("expected glyph circle %v, got %v", wantCircle, c.circles)
	}
	if len(c.rects) != 1 || c.rects[0] != (Rect{Width: 1920, Height: 1080}) {
		t.Errorf("expected outline rect, got %v", c.rects)
	}
	if len(c.filled) != 0 {
		t.Errorf("expected no dots, got %d", len(c.filled))
	}
	if c.ops[0] != "width 40" {
		t.Errorf("expected line width 40 first, got %q", c.ops[0])
	}
}

func TestRenderIdleWithoutGlyph(t *testing.T) {
	c := &recordingCanvas{}
	NewRenderer(Configuration{}).Render(c, []Monitor{fullHD}, 0)

	if len(c.lines) != 0 || len(c.circles) != 0 {
		t.Errorf("expected no glyph, got %d segments and %d circles", len(c.lines), len(c.circles))
	}
	if len(c.rects) != 1 {
		t.Errorf("expected outline rect, got %v", c.rects)
	}
}

func TestRenderSingleCharacter(t *testing.T) {
	c := &recordingCanvas{}
	testRenderer().Render(c, []Monitor{fullHD}, 1)

	if len(c.filled) != 0 {
		t.Errorf("expected no dots for one character, got %d", len(c.filled))
	}
	wantInterior := Rect{X: 20, Y: 20, Width: 1880, Height: 1040}
	if len(c.rects) != 1 || len(c.clears) != 1 || c.clears[0] != wantInterior {
		t.Errorf("expected outline then interior clear %v, got rects %v clears %v", wantInterior, c.rects, c.clears)
	}
	if c.ops[1] != "rect {0 0 1920 1080}" {
		t.Errorf("expected outline drawn before clear, got %v", c.ops)
	}
}

func TestRenderDots(t *testing.T) {
	tests := []struct {
		name   string
		length int
		wantX  []int
	}{
		{
			name:   "two dots straddle the centre",
			length: 2,
			wantX:  []int{872, 968},
		},
		{
			name:   "three dots centred on the middle one",
			length: 3,
			wantX:  []int{824, 920, 1016},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recordingCanvas{}
			testRenderer().Render(c, []Monitor{fullHD}, tt.length)

			if len(c.filled) != len(tt.wantX) {
				t.Fatalf("expected %d dots, got %d", len(tt.wantX), len(c.filled))
			}
			for i, dot := range c.filled {
				if dot.X != tt.wantX[i] || dot.Y != 500 || dot.Diameter != 80 {
					t.Errorf("dot %d: expected x=%d y=500 d=80, got %v", i, tt.wantX[i], dot)
				}
			}
		})
	}
}

func TestRenderDotCountCapped(t *testing.T) {
	c := &recordingCanvas{}
	testRenderer().Render(c, []Monitor{fullHD}, 200)

	if len(c.filled) != MaxDots {
		t.Errorf("expected %d dots, got %d", MaxDots, len(c.filled))
	}
}

func TestRenderSkipsInactiveMonitors(t *testing.T) {
	c := &recordingCanvas{}
	testRenderer().Render(c, []Monitor{{X: 1920, Width: 0, Height: 0}}, 5)

	if len(c.ops) != 0 {
		t.Errorf("expected nothing drawn, got %v", c.ops)
	}
}

func TestRenderEveryMonitor(t *testing.T) {
	c := &recordingCanvas{}
	monitors := []Monitor{fullHD, {}, {X: 1920, Y: 0, Width: 1280, Height: 1024}}
	testRenderer().Render(c, monitors, 3)

	if len(c.filled) != 6 {
		t.Fatalf("expected 3 dots on each of 2 active monitors, got %d", len(c.filled))
	}
	// Second monitor centre is x=2560, dotarea=64, dotsize=53
	if got := c.filled[4].X; got != 2560-53/2 {
		t.Errorf("expected middle dot of second monitor at %d, got %d", 2560-53/2, got)
	}
}

func TestRenderConfiguredSizes(t *testing.T) {
	c := &recordingCanvas{}
	NewRenderer(Configuration{DotSize: 10, DotSpacing: 20}).Render(c, []Monitor{fullHD}, 2)

	want := []Circle{{X: 945, Y: 535, Diameter: 10}, {X: 965, Y: 535, Diameter: 10}}
	if !reflect.DeepEqual(c.filled, want) {
		t.Errorf("expected %v, got %v", want, c.filled)
	}
	if c.ops[0] != "width 5" {
		t.Errorf("expected line width 5, got %q", c.ops[0])
	}
}

func TestRenderIdempotent(t *testing.T) {
	for _, length := range []int{0, 1, 2, 7, 128} {
		c := &recordingCanvas{}
		testRenderer().Render(c, []Monitor{fullHD}, length)
		first := append([]string(nil), c.ops...)

		c.reset()
		testRenderer().Render(c, []Monitor{fullHD}, length)

		if !reflect.DeepEqual(first, c.ops) {
			t.Errorf("length %d: expected identical draws, got %v then %v", length, first, c.ops)
		}
	}
}
