package display

import (
	"github.com/kestrelos/dispd/cursor"
	"github.com/kestrelos/dispd/gfx"
)

// Each stock cursor is a small procedurally-drawn glyph on a
// transparent/key-colored background, built the same way
// cursor.NewStockTable expects: a 3-value pixel plane (transparent,
// black, white) paired with the rectangle it covers.

const cursorSize = 16

func blankPlane(w, h int) []byte {
	p := make([]byte, w*h)
	for i := range p {
		p[i] = cursor.PixelTransparent
	}
	return p
}

func setPx(p []byte, w, x, y int, v byte) {
	if x < 0 || y < 0 || x >= w {
		return
	}
	p[y*w+x] = v
}

// triangleArrow draws the default pointer: a solid black triangle with a
// one-pixel white outline, tip at the origin.
func triangleArrow() ([]byte, int, int) {
	w, h := cursorSize, cursorSize
	p := blankPlane(w, h)
	for y := 0; y < 12; y++ {
		for x := 0; x <= y; x++ {
			setPx(p, w, x, y, cursor.PixelBlack)
		}
	}
	for y := 0; y < 12; y++ {
		setPx(p, w, y, y, cursor.PixelWhite)
		setPx(p, w, 0, y, cursor.PixelWhite)
	}
	for x := 0; x <= 11; x++ {
		setPx(p, w, x, 11, cursor.PixelWhite)
	}
	return p, w, h
}

// verticalDoubleArrow draws a north-south resize cursor: two opposing
// triangle heads joined by a thin shaft, centered horizontally within its
// rectangle.
func verticalDoubleArrow() ([]byte, int, int) {
	w, h := 11, cursorSize
	p := blankPlane(w, h)
	cx := w / 2
	for y := 0; y < 4; y++ {
		for x := cx - y; x <= cx+y; x++ {
			setPx(p, w, x, y, cursor.PixelBlack)
			setPx(p, w, x, h-1-y, cursor.PixelBlack)
		}
	}
	for y := 4; y < h-4; y++ {
		setPx(p, w, cx-1, y, cursor.PixelBlack)
		setPx(p, w, cx, y, cursor.PixelBlack)
		setPx(p, w, cx+1, y, cursor.PixelBlack)
	}
	for y := 0; y < h; y++ {
		setPx(p, w, cx-4, y, cursor.PixelWhite)
		setPx(p, w, cx+4, y, cursor.PixelWhite)
	}
	return p, w, h
}

// horizontalDoubleArrow is verticalDoubleArrow rotated 90 degrees.
func horizontalDoubleArrow() ([]byte, int, int) {
	vp, vw, vh := verticalDoubleArrow()
	w, h := vh, vw
	p := blankPlane(w, h)
	for y := 0; y < vh; y++ {
		for x := 0; x < vw; x++ {
			p[x*w+y] = vp[y*vw+x]
		}
	}
	return p, w, h
}

// diagonalArrow draws a NW-SE (or, reversed, NE-SW) resize cursor.
func diagonalArrow(reverse bool) ([]byte, int, int) {
	w, h := cursorSize, cursorSize
	p := blankPlane(w, h)
	put := func(x, y int, v byte) {
		if reverse {
			x = w - 1 - x
		}
		setPx(p, w, x, y, v)
	}
	for y := 0; y < 6; y++ {
		for x := 0; x <= y; x++ {
			put(x, y, cursor.PixelBlack)
			put(w-1-x, h-1-y, cursor.PixelBlack)
		}
	}
	for d := 6; d < h-6; d++ {
		put(d, d, cursor.PixelBlack)
	}
	for y := 0; y < 6; y++ {
		put(y, y, cursor.PixelWhite)
		put(w-1-y, h-1-y, cursor.PixelWhite)
	}
	return p, w, h
}

// ibeamPlane draws a text-caret I-beam: two serifs joined by a thin
// vertical stroke, centered horizontally within its rectangle.
func ibeamPlane() ([]byte, int, int) {
	w, h := 7, cursorSize
	p := blankPlane(w, h)
	for x := 0; x < w; x++ {
		setPx(p, w, x, 0, cursor.PixelBlack)
		setPx(p, w, x, h-1, cursor.PixelBlack)
	}
	cx := w / 2
	for y := 1; y < h-1; y++ {
		setPx(p, w, cx, y, cursor.PixelBlack)
	}
	return p, w, h
}

// newStockCursors assembles the six stock cursor images a freshly
// created Display makes available to every seat.
func newStockCursors() [6]*cursor.Cursor {
	type glyph struct {
		plane []byte
		w, h  int
	}
	build := func(fn func() ([]byte, int, int)) glyph {
		p, w, h := fn()
		return glyph{plane: p, w: w, h: h}
	}

	arrow := build(triangleArrow)
	vert := build(verticalDoubleArrow)
	horiz := build(horizontalDoubleArrow)
	diag1 := build(func() ([]byte, int, int) { return diagonalArrow(false) })
	diag2 := build(func() ([]byte, int, int) { return diagonalArrow(true) })
	ibeam := build(ibeamPlane)

	var images [6][]byte
	var rects [6]gfx.Rect
	glyphs := [6]glyph{arrow, vert, horiz, diag1, diag2, ibeam}
	for i, g := range glyphs {
		images[i] = g.plane
		rects[i] = gfx.NewRect(0, 0, g.w, g.h)
	}
	return cursor.NewStockTable(images, rects)
}
