// Package gfx defines the pixel-accurate geometry and drawing primitives
// shared by every compositor component: points, rectangles, colors, and the
// GC (graphic context) contract that a pixel sink must implement.
//
// Coordinates are integer pixels with the origin in the top-left corner,
// axes extending right and down, matching image.Rectangle's half-open
// convention: a Rect contains pixels (x, y) with Min.X <= x < Max.X and
// Min.Y <= y < Max.Y.
package gfx

// Point is an integer pixel coordinate.
type Point struct {
	X, Y int
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Rect is a half-open rectangle: [Min, Max).
type Rect struct {
	Min, Max Point
}

// NewRect builds a Rect from a top-left point and size.
func NewRect(x0, y0, x1, y1 int) Rect {
	return Rect{Point{x0, y0}, Point{x1, y1}}
}

// Dx returns the rectangle's width.
func (r Rect) Dx() int { return r.Max.X - r.Min.X }

// Dy returns the rectangle's height.
func (r Rect) Dy() int { return r.Max.Y - r.Min.Y }

// Size returns the rectangle's width and height as a Point.
func (r Rect) Size() Point { return Point{r.Dx(), r.Dy()} }

// Empty reports whether the rectangle contains no pixels.
func (r Rect) Empty() bool { return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y }

// Translate returns r shifted by d.
func (r Rect) Translate(d Point) Rect {
	return Rect{r.Min.Add(d), r.Max.Add(d)}
}

// ContainsPt reports whether p lies inside r.
func (r Rect) ContainsPt(p Point) bool {
	return r.Min.X <= p.X && p.X < r.Max.X && r.Min.Y <= p.Y && p.Y < r.Max.Y
}

// Intersect returns the largest rectangle contained in both r and s. The
// result may be empty (and may have negative Dx/Dy) if r and s do not
// overlap; callers that care must check Empty.
func (r Rect) Intersect(s Rect) Rect {
	if r.Min.X < s.Min.X {
		r.Min.X = s.Min.X
	}
	if r.Min.Y < s.Min.Y {
		r.Min.Y = s.Min.Y
	}
	if r.Max.X > s.Max.X {
		r.Max.X = s.Max.X
	}
	if r.Max.Y > s.Max.Y {
		r.Max.Y = s.Max.Y
	}
	return r
}

// Union returns the smallest rectangle containing both r and s. A zero
// rectangle on either side is treated as "no pixels" and ignored, so that
// growing a dirty rect from its zero value behaves as a pure union.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	if s.Min.X < r.Min.X {
		r.Min.X = s.Min.X
	}
	if s.Min.Y < r.Min.Y {
		r.Min.Y = s.Min.Y
	}
	if s.Max.X > r.Max.X {
		r.Max.X = s.Max.X
	}
	if s.Max.Y > r.Max.Y {
		r.Max.Y = s.Max.Y
	}
	return r
}

// Incident reports whether r and s overlap or share a full edge, meaning
// a caller repainting both can merge them into a single envelope repaint
// instead of two separate ones.
func Incident(r, s Rect) bool {
	if !r.Intersect(s).Empty() {
		return true
	}
	if r.Min.Y == s.Min.Y && r.Max.Y == s.Max.Y && (r.Max.X == s.Min.X || s.Max.X == r.Min.X) {
		return true
	}
	if r.Min.X == s.Min.X && r.Max.X == s.Max.X && (r.Max.Y == s.Min.Y || s.Max.Y == r.Min.Y) {
		return true
	}
	return false
}

// Color is a 32-bit RGBA pixel, 8 bits per channel, alpha last.
type Color struct {
	R, G, B, A uint8
}

// BitmapParams describes how a bitmap was created: its logical rectangle
// and, for color-keyed bitmaps (e.g. cursors), the key color that should
// be treated as transparent by BitmapRender.
type BitmapParams struct {
	Rect Rect
	// KeyColor, if Keyed is true, is the color treated as transparent
	// when the bitmap is rendered.
	KeyColor Color
	Keyed    bool
}

// BitmapAlloc identifies the backing pixel allocation of a bitmap. When a
// caller supplies its own allocation at creation time, GC implementations
// that mirror bitmaps across several backing stores (see clonegc.CloneGC)
// use this pointer identity to decide whether storage is aliased or
// independently copied.
type BitmapAlloc struct {
	Pixels []byte
	Pitch  int
}

// Bitmap is an off-screen pixel buffer created through a GC.
type Bitmap interface {
	Params() BitmapParams
	// GetAlloc returns the bitmap's backing allocation.
	GetAlloc() (BitmapAlloc, error)
}

// GC is the standard graphic-context contract every pixel sink
// implements: clipping, flat fills, bitmap lifecycle, and compositing a
// bitmap onto the sink. It is satisfied by a real display-device driver,
// a back-buffer's in-memory GC, or a CloneGC fan-out wrapper.
type GC interface {
	SetClipRect(r *Rect) error
	SetColor(c Color) error
	FillRect(r Rect) error
	BitmapCreate(params BitmapParams, alloc *BitmapAlloc) (Bitmap, error)
	BitmapDestroy(b Bitmap) error
	// BitmapRender composites b onto the GC's target at offset, limited to
	// srcRect within the bitmap's own coordinate space.
	BitmapRender(b Bitmap, srcRect Rect, offset Point) error
	BitmapGetAlloc(b Bitmap) (BitmapAlloc, error)
}
