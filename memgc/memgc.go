// Package memgc implements gfx.GC entirely in process memory: a flat RGBA
// pixel buffer that supports the standard GC contract without any real
// output device behind it. It backs both a window's private drawing
// surface and, when a Display enables double buffering, the compositor's
// back buffer (spec §9, "Memory-GC back-channel").
//
// Every mutating call invokes an optional onInvalidate callback with the
// affected rectangle (in the GC's own coordinate space), which a Window
// uses to re-enter Display repaint and a back buffer leaves nil (its
// owner flushes explicitly instead of reacting to every draw).
package memgc

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/gfx"
)

// imgRect converts a gfx.Rect to the equivalent image.Rectangle.
func imgRect(r gfx.Rect) image.Rectangle {
	return image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// wrapNRGBA views alloc, covering rect, as an *image.NRGBA without copying:
// alloc's byte layout (4 bytes per pixel, straight R,G,B,A) is exactly
// image.NRGBA's Pix/Stride convention, so reads and writes through the
// returned image mutate alloc in place.
func wrapNRGBA(rect gfx.Rect, alloc gfx.BitmapAlloc) *image.NRGBA {
	return &image.NRGBA{Pix: alloc.Pixels, Stride: alloc.Pitch, Rect: imgRect(rect)}
}

// GC is an in-memory pixel buffer implementing gfx.GC.
type GC struct {
	rect  gfx.Rect
	alloc gfx.BitmapAlloc

	clip  gfx.Rect
	color gfx.Color

	bitmaps map[*memBitmap]struct{}

	onInvalidate func(gfx.Rect)
}

// New creates a GC over alloc, covering rect. alloc's pixels are used
// directly (not copied): writes through the returned GC mutate alloc in
// place, which is how a window's memory GC shares pixels with the bitmap
// object created for it through the display's own compositing GC (spec §9).
// onInvalidate may be nil.
func New(rect gfx.Rect, alloc gfx.BitmapAlloc, onInvalidate func(gfx.Rect)) *GC {
	return &GC{
		rect:         rect,
		alloc:        alloc,
		clip:         rect,
		color:        gfx.Color{A: 255},
		bitmaps:      make(map[*memBitmap]struct{}),
		onInvalidate: onInvalidate,
	}
}

// Alloc returns the GC's backing allocation, as given to New or Retarget.
func (g *GC) Alloc() gfx.BitmapAlloc { return g.alloc }

// Rect returns the GC's logical rectangle.
func (g *GC) Rect() gfx.Rect { return g.rect }

// Retarget points the GC at a new allocation and rectangle, e.g. after a
// window resize reallocates its backing bitmap. The clip rect is reset to
// the full new rectangle.
func (g *GC) Retarget(rect gfx.Rect, alloc gfx.BitmapAlloc) {
	g.rect = rect
	g.alloc = alloc
	g.clip = rect
}

func (g *GC) invalidate(r gfx.Rect) {
	if g.onInvalidate != nil {
		g.onInvalidate(r)
	}
}

// SetClipRect sets the active clip rectangle, or clears it to the full
// surface when r is nil.
func (g *GC) SetClipRect(r *gfx.Rect) error {
	if r == nil {
		g.clip = g.rect
		return nil
	}
	g.clip = r.Intersect(g.rect)
	return nil
}

// SetColor sets the flat fill color used by FillRect.
func (g *GC) SetColor(c gfx.Color) error {
	g.color = c
	return nil
}

// FillRect fills r, clipped to the active clip rect and the surface
// bounds, with the current color.
func (g *GC) FillRect(r gfx.Rect) error {
	r = r.Intersect(g.clip)
	if r.Empty() {
		return nil
	}
	dst := wrapNRGBA(g.rect, g.alloc)
	src := &image.Uniform{C: color.NRGBA{R: g.color.R, G: g.color.G, B: g.color.B, A: g.color.A}}
	xdraw.Src.Draw(dst, imgRect(r), src, image.Point{})
	g.invalidate(r)
	return nil
}

// memBitmap is an off-screen bitmap owned by a GC.
type memBitmap struct {
	params gfx.BitmapParams
	alloc  gfx.BitmapAlloc
}

func (b *memBitmap) Params() gfx.BitmapParams        { return b.params }
func (b *memBitmap) GetAlloc() (gfx.BitmapAlloc, error) { return b.alloc, nil }

// BitmapCreate allocates a new off-screen bitmap. If alloc is non-nil, its
// pixels are used directly (aliased); otherwise a fresh zeroed buffer is
// allocated sized to params.Rect.
func (g *GC) BitmapCreate(params gfx.BitmapParams, alloc *gfx.BitmapAlloc) (gfx.Bitmap, error) {
	var a gfx.BitmapAlloc
	if alloc != nil {
		a = *alloc
	} else {
		size := params.Rect.Size()
		if size.X <= 0 || size.Y <= 0 {
			return nil, dserr.New(dserr.KindInvalid, "memgc.BitmapCreate")
		}
		pitch := size.X * 4
		a = gfx.BitmapAlloc{Pixels: make([]byte, pitch*size.Y), Pitch: pitch}
	}
	b := &memBitmap{params: params, alloc: a}
	g.bitmaps[b] = struct{}{}
	return b, nil
}

// BitmapDestroy releases a bitmap created by this GC.
func (g *GC) BitmapDestroy(bmp gfx.Bitmap) error {
	b, ok := bmp.(*memBitmap)
	if !ok {
		return dserr.New(dserr.KindInvalid, "memgc.BitmapDestroy")
	}
	delete(g.bitmaps, b)
	return nil
}

// BitmapRender composites bmp's srcRect onto the GC's surface at offset.
// When the bitmap was created with a key color, pixels equal to it are
// skipped rather than copied, giving the cursor and any other color-keyed
// bitmap a transparent background.
func (g *GC) BitmapRender(bmp gfx.Bitmap, srcRect gfx.Rect, offset gfx.Point) error {
	b, ok := bmp.(*memBitmap)
	if !ok {
		return dserr.New(dserr.KindInvalid, "memgc.BitmapRender")
	}
	srcRect = srcRect.Intersect(b.params.Rect)
	if srcRect.Empty() {
		return nil
	}
	dst := srcRect.Translate(offset.Sub(b.params.Rect.Min)).Intersect(g.clip)
	if dst.Empty() {
		return nil
	}
	srcImg := wrapNRGBA(b.params.Rect, b.alloc)
	sp := image.Pt(dst.Min.X-offset.X+b.params.Rect.Min.X, dst.Min.Y-offset.Y+b.params.Rect.Min.Y)

	if !b.params.Keyed {
		dstImg := wrapNRGBA(g.rect, g.alloc)
		xdraw.Src.Draw(dstImg, imgRect(dst), srcImg, sp)
		g.invalidate(dst)
		return nil
	}

	// Color-keyed compositing skips pixels equal to the key color rather
	// than copying them, which draw.Op has no notion of; this path stays
	// a hand loop for that reason alone.
	kc := b.params.KeyColor
	for y := dst.Min.Y; y < dst.Max.Y; y++ {
		sy := y - offset.Y + b.params.Rect.Min.Y
		srow := (sy - b.params.Rect.Min.Y) * b.alloc.Pitch
		drow := (y - g.rect.Min.Y) * g.alloc.Pitch
		for x := dst.Min.X; x < dst.Max.X; x++ {
			sx := x - offset.X + b.params.Rect.Min.X
			soff := srow + (sx-b.params.Rect.Min.X)*4
			doff := drow + (x-g.rect.Min.X)*4
			r, gg, bl, a := b.alloc.Pixels[soff], b.alloc.Pixels[soff+1], b.alloc.Pixels[soff+2], b.alloc.Pixels[soff+3]
			if r == kc.R && gg == kc.G && bl == kc.B && a == kc.A {
				continue
			}
			g.alloc.Pixels[doff+0] = r
			g.alloc.Pixels[doff+1] = gg
			g.alloc.Pixels[doff+2] = bl
			g.alloc.Pixels[doff+3] = a
		}
	}
	g.invalidate(dst)
	return nil
}

// BitmapGetAlloc returns bmp's backing allocation.
func (g *GC) BitmapGetAlloc(bmp gfx.Bitmap) (gfx.BitmapAlloc, error) {
	b, ok := bmp.(*memBitmap)
	if !ok {
		return gfx.BitmapAlloc{}, dserr.New(dserr.KindInvalid, "memgc.BitmapGetAlloc")
	}
	return b.alloc, nil
}
