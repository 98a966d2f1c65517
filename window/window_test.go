package window

import (
	"testing"

	"github.com/kestrelos/dispd/cursor"
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/ievent"
)

// fakeGC is a minimal gfx.GC used to exercise Window without pulling in
// memgc's full pixel semantics: bitmaps carry only their params.
type fakeGC struct {
	created   int
	destroyed int
}

type fakeBitmap struct{ params gfx.BitmapParams }

func (b *fakeBitmap) Params() gfx.BitmapParams { return b.params }
func (b *fakeBitmap) GetAlloc() (gfx.BitmapAlloc, error) {
	size := b.params.Rect.Size()
	pitch := size.X * 4
	return gfx.BitmapAlloc{Pixels: make([]byte, pitch*size.Y), Pitch: pitch}, nil
}

func (g *fakeGC) SetClipRect(r *gfx.Rect) error { return nil }
func (g *fakeGC) SetColor(c gfx.Color) error    { return nil }
func (g *fakeGC) FillRect(r gfx.Rect) error     { return nil }
func (g *fakeGC) BitmapCreate(params gfx.BitmapParams, alloc *gfx.BitmapAlloc) (gfx.Bitmap, error) {
	g.created++
	return &fakeBitmap{params: params}, nil
}
func (g *fakeGC) BitmapDestroy(b gfx.Bitmap) error { g.destroyed++; return nil }
func (g *fakeGC) BitmapRender(b gfx.Bitmap, srcRect gfx.Rect, offset gfx.Point) error {
	return nil
}
func (g *fakeGC) BitmapGetAlloc(b gfx.Bitmap) (gfx.BitmapAlloc, error) {
	return gfx.BitmapAlloc{}, nil
}

type fakeSink struct {
	closed   []dsid.WindowID
	kbd      []ievent.KbdEvent
	pos      []ievent.PosEvent
	resized  []gfx.Rect
	focused  int
	unfocus  int
}

func (s *fakeSink) PostClose(id dsid.WindowID)                 { s.closed = append(s.closed, id) }
func (s *fakeSink) PostKbd(id dsid.WindowID, e ievent.KbdEvent) { s.kbd = append(s.kbd, e) }
func (s *fakeSink) PostPos(id dsid.WindowID, e ievent.PosEvent) { s.pos = append(s.pos, e) }
func (s *fakeSink) PostFocus(id dsid.WindowID, n int)           { s.focused = n }
func (s *fakeSink) PostUnfocus(id dsid.WindowID, n int)         { s.unfocus = n }
func (s *fakeSink) PostResize(id dsid.WindowID, r gfx.Rect)     { s.resized = append(s.resized, r) }

func newTestWindow(t *testing.T) (*Window, *fakeGC, *fakeSink) {
	t.Helper()
	gc := &fakeGC{}
	sink := &fakeSink{}
	hooks := Hooks{
		Sink:   sink,
		SeatOf: func(dsid.IdevID) (dsid.SeatID, bool) { return 1, true },
	}
	w, err := New(1, 1, Params{
		Rect:    gfx.NewRect(0, 0, 100, 80),
		MinSize: gfx.Point{X: 20, Y: 20},
	}, gc, hooks)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w, gc, sink
}

func TestNewAllocatesBitmapAndMemGC(t *testing.T) {
	w, gc, _ := newTestWindow(t)
	if gc.created != 1 {
		t.Fatalf("expected one bitmap created, got %d", gc.created)
	}
	if w.mgc == nil {
		t.Fatal("expected memory GC to be set")
	}
	if w.CursorCode != cursor.Arrow {
		t.Fatalf("expected default cursor Arrow, got %v", w.CursorCode)
	}
}

func TestPostKbdAltF4ClosesInsteadOfForwarding(t *testing.T) {
	w, _, sink := newTestWindow(t)
	w.PostKbd(ievent.KbdEvent{Type: ievent.KbdPress, Name: ievent.NameF4, Mods: ievent.ModAlt})
	if len(sink.closed) != 1 {
		t.Fatalf("expected one close event, got %d", len(sink.closed))
	}
	if len(sink.kbd) != 0 {
		t.Fatalf("expected no forwarded kbd events, got %d", len(sink.kbd))
	}

	w.PostKbd(ievent.KbdEvent{Type: ievent.KbdPress, Name: "A"})
	if len(sink.kbd) != 1 {
		t.Fatalf("expected plain key forwarded, got %d", len(sink.kbd))
	}
}

func TestCalcResizeClampsToMinSize(t *testing.T) {
	w, _, _ := newTestWindow(t) // rect (0,0)-(100,80), min (20,20)

	w.RszType = RszRight
	r := w.CalcResize(gfx.Point{X: -90, Y: 0})
	if r.Max.X != 20 {
		t.Errorf("right-edge resize: expected Max.X clamped to 20, got %d", r.Max.X)
	}
	if r.Min.X != 0 || r.Min.Y != 0 || r.Max.Y != 80 {
		t.Errorf("right-edge resize: non-dragged edges must not move, got %+v", r)
	}

	w.RszType = RszTop | RszLeft
	r = w.CalcResize(gfx.Point{X: 1000, Y: 1000})
	if r.Min.X != 80 || r.Min.Y != 60 {
		t.Errorf("top-left resize: expected clamp to (80,60), got %+v", r)
	}
	if r.Max.X != 100 || r.Max.Y != 80 {
		t.Errorf("top-left resize: opposite edges must not move, got %+v", r)
	}
}

func TestMoveResizeFinalizeAsymmetry(t *testing.T) {
	w, _, sink := newTestWindow(t)

	// Move: drag, release, expect silent position update (no event).
	w.startMove(gfx.Point{X: 10, Y: 10}, 1)
	if w.State != StateMoving {
		t.Fatalf("expected StateMoving after startMove")
	}
	w.finishMove(gfx.Point{X: 15, Y: 25})
	if w.State != StateIdle {
		t.Fatalf("expected StateIdle after finishMove")
	}
	if len(sink.resized) != 0 {
		t.Fatalf("move must not post a resize event, got %d", len(sink.resized))
	}
	wantDPos := gfx.Point{X: 5, Y: 15}
	if w.DPos != wantDPos {
		t.Fatalf("expected DPos %+v after move, got %+v", wantDPos, w.DPos)
	}

	// Resize: drag, release, expect exactly one resize event and a
	// cleared orig_pos_id.
	w.RszType = RszRight | RszBottom
	w.startResize(RszRight|RszBottom, gfx.Point{X: 0, Y: 0}, 1)
	w.finishResize(gfx.Point{X: 10, Y: 10})
	if len(sink.resized) != 1 {
		t.Fatalf("resize must post exactly one resize event, got %d", len(sink.resized))
	}
	if w.OrigPosID != 0 {
		t.Fatalf("expected orig_pos_id reset after finishResize, got %d", w.OrigPosID)
	}
	if w.State != StateIdle {
		t.Fatalf("expected StateIdle after finishResize")
	}
}

func TestOrigSeatAllowsOnlySameSeatToAffectDrag(t *testing.T) {
	w, _, _ := newTestWindow(t)
	seats := map[dsid.IdevID]dsid.SeatID{1: 10, 2: 10, 3: 20}
	w.hooks.SeatOf = func(id dsid.IdevID) (dsid.SeatID, bool) {
		s, ok := seats[id]
		return s, ok
	}
	w.OrigPosID = 1

	if !w.OrigSeat(2) {
		t.Error("device on the same seat as the initiator should qualify")
	}
	if w.OrigSeat(3) {
		t.Error("device on a different seat must not qualify")
	}
}

func TestFindPrevNextWrapAndSkipDisallowed(t *testing.T) {
	a := &Window{ID: 1}
	b := &Window{ID: 2, Flags: FlagPopup}
	c := &Window{ID: 3}
	list := []*Window{a, b, c}

	if got := FindPrev(list, a, 0); got != c {
		t.Errorf("FindPrev(a) should skip popup b and land on c, got %v", got)
	}
	if got := FindNext(list, a, 0); got != c {
		t.Errorf("FindNext(a) should wrap around to c, got %v", got)
	}

	solo := []*Window{a}
	if got := FindPrev(solo, a, 0); got != nil {
		t.Errorf("FindPrev with no other window should return nil, got %v", got)
	}
}

func TestResizeReallocatesBitmapAndRetargetsMemGC(t *testing.T) {
	w, gc, _ := newTestWindow(t)
	oldMgc := w.mgc
	if err := w.Resize(gfx.Point{X: 5, Y: 0}, gfx.NewRect(0, 0, 50, 50)); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if gc.created != 2 {
		t.Fatalf("expected bitmap reallocated, created=%d", gc.created)
	}
	if gc.destroyed != 1 {
		t.Fatalf("expected old bitmap destroyed, destroyed=%d", gc.destroyed)
	}
	if w.mgc != oldMgc {
		t.Fatalf("expected the same memory GC instance to be retargeted, not replaced")
	}
	if w.Rect.Size() != (gfx.Point{X: 50, Y: 50}) {
		t.Fatalf("expected rect updated to new size, got %+v", w.Rect)
	}
}

func TestMaximizeUnmaximizeRoundTrip(t *testing.T) {
	w, _, _ := newTestWindow(t)
	w.DPos = gfx.Point{X: 10, Y: 10}
	origRect, origDPos := w.Rect, w.DPos

	if err := w.Maximize(gfx.NewRect(0, 0, 200, 200)); err != nil {
		t.Fatalf("Maximize: %v", err)
	}
	if w.Flags&FlagMaximized == 0 {
		t.Fatal("expected maximized flag set")
	}
	// A second Maximize must be a no-op (idempotent).
	maxedRect := w.Rect
	if err := w.Maximize(gfx.NewRect(999, 999, 1999, 1999)); err != nil {
		t.Fatalf("Maximize (idempotent): %v", err)
	}
	if w.Rect != maxedRect {
		t.Fatalf("second Maximize must be a no-op, rect changed to %+v", w.Rect)
	}

	if err := w.Unmaximize(); err != nil {
		t.Fatalf("Unmaximize: %v", err)
	}
	if w.Flags&FlagMaximized != 0 {
		t.Fatal("expected maximized flag cleared")
	}
	if w.Rect != origRect || w.DPos != origDPos {
		t.Fatalf("expected geometry restored to %+v/%+v, got %+v/%+v", origRect, origDPos, w.Rect, w.DPos)
	}
}

func TestMemGCInvalidateReentersRepaintTranslatedByDPos(t *testing.T) {
	w, _, _ := newTestWindow(t)
	w.DPos = gfx.Point{X: 100, Y: 200}
	var got gfx.Rect
	w.hooks.RepaintRect = func(r gfx.Rect) error { got = r; return nil }

	w.onMemGCInvalidate(gfx.NewRect(1, 2, 3, 4))

	want := gfx.NewRect(101, 202, 103, 204)
	if got != want {
		t.Fatalf("expected invalidated rect translated by dpos to %+v, got %+v", want, got)
	}
}
