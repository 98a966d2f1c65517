// Package cursor implements hotspot-less, color-keyed mouse cursor
// images: a small per-pixel code plane (transparent/black/white) that is
// lazily materialized into a real gfx.Bitmap the first time it is
// painted, then cached until the cursor is destroyed.
package cursor

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/gfx"
)

// Code identifies one of the stock cursor shapes.
type Code int

// Stock cursor codes (spec §6).
const (
	Arrow Code = iota
	SizeUD
	SizeLR
	SizeULDR
	SizeURDL
	IBeam
	numStock
)

// Valid reports whether c is a recognized stock cursor code.
func (c Code) Valid() bool { return c >= Arrow && c < numStock }

// Pixel codes in a Cursor's raw image plane.
const (
	PixelTransparent byte = 0
	PixelBlack       byte = 1
	PixelWhite       byte = 2
)

// KeyColor is the color used to mark a materialized cursor bitmap's
// transparent pixels.
var KeyColor = gfx.Color{R: 0, G: 0, B: 255, A: 255}

var black = gfx.Color{R: 0, G: 0, B: 0, A: 255}
var white = gfx.Color{R: 255, G: 255, B: 255, A: 255}

func toNRGBA(c gfx.Color) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Cursor holds a cursor image: a bounding rectangle and a raw per-pixel
// code plane, plus a bitmap materialized on first paint against a
// specific GC.
type Cursor struct {
	Rect  gfx.Rect
	Plane []byte // one byte per pixel, row-major, see Pixel* constants

	bitmapGC gfx.GC
	bitmap   gfx.Bitmap
}

// New builds a Cursor from a bounding rect and a pre-initialized code
// plane (the plane's own creation is an external collaborator's
// responsibility per spec §1; this type only owns and composites it).
func New(rect gfx.Rect, plane []byte) *Cursor {
	return &Cursor{Rect: rect, Plane: plane}
}

// Bitmap returns the cursor's materialized bitmap against gc, creating
// and caching it on first call. A subsequent call with a different gc
// invalidates and rematerializes against the new target.
func (c *Cursor) Bitmap(gc gfx.GC) (gfx.Bitmap, error) {
	if c.bitmap != nil && c.bitmapGC == gc {
		return c.bitmap, nil
	}
	if c.bitmap != nil {
		_ = c.bitmapGC.BitmapDestroy(c.bitmap)
		c.bitmap = nil
	}
	params := gfx.BitmapParams{Rect: c.Rect, Keyed: true, KeyColor: KeyColor}
	size := c.Rect.Size()
	pitch := size.X * 4
	alloc := gfx.BitmapAlloc{Pixels: make([]byte, pitch*size.Y), Pitch: pitch}

	// The code plane's byte values (PixelTransparent/Black/White) are
	// already 0/1/2, i.e. palette indices, so the plane doubles directly
	// as an image.Paletted's Pix without any copying or translation.
	bounds := image.Rect(0, 0, size.X, size.Y)
	src := &image.Paletted{
		Pix:    c.Plane,
		Stride: size.X,
		Rect:   bounds,
		Palette: color.Palette{
			toNRGBA(KeyColor),
			toNRGBA(black),
			toNRGBA(white),
		},
	}
	dst := &image.NRGBA{Pix: alloc.Pixels, Stride: pitch, Rect: bounds}
	xdraw.Src.Draw(dst, bounds, src, image.Point{})

	b, err := gc.BitmapCreate(params, &alloc)
	if err != nil {
		return nil, dserr.Wrap(dserr.KindOutOfMemory, "cursor.Bitmap", err)
	}
	c.bitmap = b
	c.bitmapGC = gc
	return b, nil
}

// Destroy releases the cached bitmap, if any.
func (c *Cursor) Destroy() {
	if c.bitmap != nil {
		_ = c.bitmapGC.BitmapDestroy(c.bitmap)
		c.bitmap = nil
		c.bitmapGC = nil
	}
}

// NewStockTable assembles the six stock cursors from caller-supplied pixel
// planes and rectangles, one pair per stock code. It holds no pixel data
// of its own (bitmap creation for cursor images is an external
// collaborator per spec §1).
func NewStockTable(images [int(numStock)][]byte, rects [int(numStock)]gfx.Rect) [int(numStock)]*Cursor {
	var table [int(numStock)]*Cursor
	for i := 0; i < int(numStock); i++ {
		table[i] = New(rects[i], images[i])
	}
	return table
}
