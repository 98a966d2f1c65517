package seat

import (
	"testing"

	"github.com/kestrelos/dispd/cursor"
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/idevcfg"
	"github.com/kestrelos/dispd/ievent"
	"github.com/kestrelos/dispd/window"
)

// fakeGC is a minimal gfx.GC, enough to let windows and cursors allocate
// and render bitmaps without real pixel semantics.
type fakeGC struct{}
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
	return &fakeBitmap{params: params}, nil
}
func (g *fakeGC) BitmapDestroy(b gfx.Bitmap) error { return nil }
func (g *fakeGC) BitmapRender(b gfx.Bitmap, srcRect gfx.Rect, offset gfx.Point) error {
	return nil
}
func (g *fakeGC) BitmapGetAlloc(b gfx.Bitmap) (gfx.BitmapAlloc, error) {
	return gfx.BitmapAlloc{}, nil
}

type fakeSink struct {
	closed  []dsid.WindowID
	focused []dsid.WindowID
}

func (s *fakeSink) PostClose(id dsid.WindowID)                 { s.closed = append(s.closed, id) }
func (s *fakeSink) PostKbd(id dsid.WindowID, e ievent.KbdEvent) {}
func (s *fakeSink) PostPos(id dsid.WindowID, e ievent.PosEvent) {}
func (s *fakeSink) PostFocus(id dsid.WindowID, n int)           { s.focused = append(s.focused, id) }
func (s *fakeSink) PostUnfocus(id dsid.WindowID, n int)         {}
func (s *fakeSink) PostResize(id dsid.WindowID, r gfx.Rect)     {}

// testWorld wires a minimal Display-shaped set of hooks over an in-memory
// list of windows, enough to exercise every Seat operation.
type testWorld struct {
	gc      *fakeGC
	sink    *fakeSink
	windows []*window.Window
	idevs   *idevcfg.Table
	rect    gfx.Rect
	repaint []gfx.Rect
}

func newTestWorld() *testWorld {
	return &testWorld{
		gc:    &fakeGC{},
		sink:  &fakeSink{},
		idevs: idevcfg.NewTable(),
		rect:  gfx.NewRect(0, 0, 800, 600),
	}
}

func (w *testWorld) newWindow(id dsid.WindowID, r gfx.Rect, flags window.Flags) *window.Window {
	wnd, err := window.New(id, 1, window.Params{Rect: r, MinSize: gfx.Point{X: 10, Y: 10}, Flags: flags}, w.gc, window.Hooks{
		Sink:   w.sink,
		SeatOf: func(dsid.IdevID) (dsid.SeatID, bool) { return 1, true },
	})
	if err != nil {
		panic(err)
	}
	w.windows = append(w.windows, wnd)
	return wnd
}

func (w *testWorld) hooks() Hooks {
	return Hooks{
		WindowList:  func() []*window.Window { return w.windows },
		WindowByPos: func(pos gfx.Point) *window.Window { return w.windowByPos(pos) },
		DisplayRect: func() gfx.Rect { return w.rect },
		RepaintRect: func(r gfx.Rect) error { w.repaint = append(w.repaint, r); return nil },
		CursorImage: func(code cursor.Code) *cursor.Cursor {
			return cursor.New(gfx.NewRect(0, 0, 8, 8), make([]byte, 64))
		},
		PointerGC:    func() gfx.GC { return w.gc },
		IdevCfgTable: func() *idevcfg.Table { return w.idevs },
	}
}

func (w *testWorld) windowByPos(pos gfx.Point) *window.Window {
	for i := len(w.windows) - 1; i >= 0; i-- {
		wnd := w.windows[i]
		if wnd.IsVisible() && wnd.Rect.Translate(wnd.DPos).ContainsPt(pos) {
			return wnd
		}
	}
	return nil
}

func TestSetFocusUnfocusesOldAndFocusesNewAndClearsPopup(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), 0)
	b := w.newWindow(2, gfx.NewRect(0, 0, 50, 50), 0)
	s := New(1, "seat0", w.hooks())

	if err := s.SetFocus(a); err != nil {
		t.Fatalf("SetFocus(a): %v", err)
	}
	s.Popup = b // pretend a popup is open

	if err := s.SetFocus(b); err != nil {
		t.Fatalf("SetFocus(b): %v", err)
	}
	if s.Focus != b {
		t.Fatalf("expected focus to move to b")
	}
	if a.FocusCount != 0 {
		t.Fatalf("expected a unfocused (focus count 0), got %d", a.FocusCount)
	}
	if s.Popup != nil {
		t.Fatalf("expected popup cleared as a side effect of SetFocus, got %v", s.Popup)
	}
	if len(w.sink.focused) != 2 {
		t.Fatalf("expected two focus events posted (a then b), got %d", len(w.sink.focused))
	}
}

func TestSetFocusSameWindowStillClearsPopup(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), 0)
	b := w.newWindow(2, gfx.NewRect(0, 0, 50, 50), 0)
	s := New(1, "seat0", w.hooks())
	_ = s.SetFocus(a)
	focusedBefore := len(w.sink.focused)
	s.Popup = b

	if err := s.SetFocus(a); err != nil {
		t.Fatalf("SetFocus(a) again: %v", err)
	}
	if s.Popup != nil {
		t.Fatalf("expected popup cleared even on a no-op focus reassignment")
	}
	if len(w.sink.focused) != focusedBefore {
		t.Fatalf("reassigning the same focus must not post another focus event")
	}
}

func TestSetPopupClosesOutgoingPopup(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), window.FlagPopup)
	b := w.newWindow(2, gfx.NewRect(0, 0, 50, 50), window.FlagPopup)
	s := New(1, "seat0", w.hooks())

	_ = s.SetPopup(a)
	_ = s.SetPopup(b)
	if len(w.sink.closed) != 1 || w.sink.closed[0] != a.ID {
		t.Fatalf("expected a close event posted to the outgoing popup a, got %v", w.sink.closed)
	}
	if s.Popup != b {
		t.Fatalf("expected popup to become b")
	}
}

func TestUnfocusWndFallsBackPastMinimizedAndSystem(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), window.FlagSystem)
	b := w.newWindow(2, gfx.NewRect(0, 0, 50, 50), window.FlagMinimized)
	c := w.newWindow(3, gfx.NewRect(0, 0, 50, 50), 0)
	s := New(1, "seat0", w.hooks())
	_ = s.SetFocus(c)

	// The strict search (excluding both minimized and system) finds no
	// candidate; the fallback (excluding only minimized) accepts the
	// system window a.
	s.UnfocusWnd(c)
	if s.Focus != a {
		t.Fatalf("expected fallback focus to land on the system window a, got %v", s.Focus)
	}
	_ = b
}

func TestUnfocusWndIgnoresOtherWindows(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), 0)
	b := w.newWindow(2, gfx.NewRect(0, 0, 50, 50), 0)
	s := New(1, "seat0", w.hooks())
	_ = s.SetFocus(a)

	s.UnfocusWnd(b) // b isn't focused, must be a no-op
	if s.Focus != a {
		t.Fatalf("expected focus unchanged, got %v", s.Focus)
	}
}

func TestSwitchFocusCyclesAndSkipsSystem(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), 0)
	_ = w.newWindow(2, gfx.NewRect(0, 0, 50, 50), window.FlagSystem)
	c := w.newWindow(3, gfx.NewRect(0, 0, 50, 50), 0)
	s := New(1, "seat0", w.hooks())

	s.SwitchFocus() // no current focus: jumps to topmost (first in list)
	if s.Focus != a {
		t.Fatalf("expected initial switch-focus to land on the first window, got %v", s.Focus)
	}

	s.SwitchFocus()
	if s.Focus != c {
		t.Fatalf("expected switch-focus to skip the system window and land on c, got %v", s.Focus)
	}
}

func TestPostKbdEventAbsorbsAltTab(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), 0)
	b := w.newWindow(2, gfx.NewRect(0, 0, 50, 50), 0)
	s := New(1, "seat0", w.hooks())
	_ = s.SetFocus(a)

	s.PostKbdEvent(ievent.KbdEvent{Type: ievent.KbdPress, Name: ievent.NameTab, Mods: ievent.ModAlt})
	if s.Focus != b {
		t.Fatalf("expected Alt-Tab to switch focus to b, got %v", s.Focus)
	}
}

func TestComputeCursorPrefersWMOverride(t *testing.T) {
	w := newTestWorld()
	s := New(1, "seat0", w.hooks())

	if s.GetCursor() != cursor.Arrow {
		t.Fatalf("expected default cursor Arrow, got %v", s.GetCursor())
	}
	_ = s.SetClientCursor(cursor.IBeam)
	if s.GetCursor() != cursor.IBeam {
		t.Fatalf("expected client cursor IBeam, got %v", s.GetCursor())
	}
	_ = s.SetWMCursor(cursor.SizeLR)
	if s.GetCursor() != cursor.SizeLR {
		t.Fatalf("expected WM override to win, got %v", s.GetCursor())
	}
	s.ClearWMCursor()
	if s.GetCursor() != cursor.IBeam {
		t.Fatalf("expected client cursor restored after ClearWMCursor, got %v", s.GetCursor())
	}
}

func TestSetClientCursorRejectsInvalidCode(t *testing.T) {
	w := newTestWorld()
	s := New(1, "seat0", w.hooks())
	if err := s.SetClientCursor(cursor.Code(999)); err == nil {
		t.Fatal("expected an error for an invalid cursor code")
	}
}

func TestPostPtdEventPressFocusesWindowUnderPointer(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), 0)
	s := New(1, "seat0", w.hooks())
	s.PntPos = gfx.Point{X: 10, Y: 10}

	s.PostPtdEvent(ievent.PtdEvent{Type: ievent.PtdPress, Button: 1, Idev: 5})
	if s.Focus != a {
		t.Fatalf("expected button-1 press over a to focus it, got %v", s.Focus)
	}
}

func TestPostPtdEventPressOverPopupFlaggedWindowDoesNotFocus(t *testing.T) {
	w := newTestWorld()
	w.newWindow(1, gfx.NewRect(0, 0, 50, 50), window.FlagPopup)
	s := New(1, "seat0", w.hooks())
	s.PntPos = gfx.Point{X: 10, Y: 10}

	s.PostPtdEvent(ievent.PtdEvent{Type: ievent.PtdPress, Button: 1, Idev: 5})
	if s.Focus != nil {
		t.Fatalf("expected a press over a popup-flagged window not to change focus, got %v", s.Focus)
	}
}

func TestPostPtdEventMoveClipsToDisplayRect(t *testing.T) {
	w := newTestWorld()
	s := New(1, "seat0", w.hooks())
	s.PntPos = gfx.Point{X: 5, Y: 5}

	s.PostPtdEvent(ievent.PtdEvent{Type: ievent.PtdMove, Idev: 1, Dx: -100, Dy: -100})
	if s.PntPos != (gfx.Point{X: 0, Y: 0}) {
		t.Fatalf("expected pointer clamped to display origin, got %+v", s.PntPos)
	}
}

func TestPostPtdEventAbsMoveProjectsDeviceBounds(t *testing.T) {
	w := newTestWorld()
	s := New(1, "seat0", w.hooks())

	s.PostPtdEvent(ievent.PtdEvent{Type: ievent.PtdAbsMove, Idev: 1, AbsX: 2048, AbsY: 2048, BoundsW: 4096, BoundsH: 4096})
	want := gfx.Point{X: 400, Y: 300} // half of an 800x600 display
	if s.PntPos != want {
		t.Fatalf("expected projected position %+v, got %+v", want, s.PntPos)
	}
}

func TestPostPosEventPressOutsidePopupClosesIt(t *testing.T) {
	w := newTestWorld()
	popup := w.newWindow(1, gfx.NewRect(0, 0, 20, 20), window.FlagPopup)
	s := New(1, "seat0", w.hooks())
	_ = s.SetPopup(popup)

	s.PostPosEvent(ievent.PosEvent{Type: ievent.PosPress, Pos: gfx.Point{X: 500, Y: 500}})
	if s.Popup != nil {
		t.Fatalf("expected popup dismissed by an outside press, got %v", s.Popup)
	}
}

func TestEvacWndRefsClearsFocusAndPopup(t *testing.T) {
	w := newTestWorld()
	a := w.newWindow(1, gfx.NewRect(0, 0, 50, 50), 0)
	s := New(1, "seat0", w.hooks())
	_ = s.SetFocus(a)
	s.Popup = a

	s.EvacWndRefs(a)
	if s.Focus != nil || s.Popup != nil {
		t.Fatalf("expected both focus and popup cleared, got focus=%v popup=%v", s.Focus, s.Popup)
	}
}

func TestIdevCfgRoundTrip(t *testing.T) {
	w := newTestWorld()
	s := New(1, "seat0", w.hooks())

	e := s.AddIdevCfg(7, "input/mouse0")
	cfgs := s.IdevCfgs()
	if len(cfgs) != 1 || cfgs[0].Idev != 7 {
		t.Fatalf("expected one idevcfg entry for device 7, got %+v", cfgs)
	}
	s.RemoveIdevCfg(e.ID)
	if len(s.IdevCfgs()) != 0 {
		t.Fatalf("expected idevcfg entry removed")
	}
}
