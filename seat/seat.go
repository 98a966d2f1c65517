// Package seat implements a display seat: one independent focus/pointer
// context, each with its own cursor position, focused window, popup
// window and set of bound input devices (spec §4.1, §4.2, §4.3).
//
// Seat freely imports window (a window never needs to reach back into a
// seat), but like window it never imports client or display directly:
// the handful of display-wide queries it needs (the current Z-order
// list, hit-testing by position, the compositing GC, cursor images) are
// reached through Hooks, wired in by the display that owns the seat.
package seat

import (
	"github.com/kestrelos/dispd/cursor"
	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/idevcfg"
	"github.com/kestrelos/dispd/ievent"
	"github.com/kestrelos/dispd/window"
)

// Hooks are the callbacks a Display injects into every Seat it creates.
type Hooks struct {
	// WindowList returns the display's windows in current Z-order
	// (topmost-flagged windows form a contiguous prefix).
	WindowList func() []*window.Window

	// WindowByPos hit-tests the topmost window (in Z-order) containing
	// pos, or nil if the point is over no window.
	WindowByPos func(pos gfx.Point) *window.Window

	// DisplayRect returns the display's current bounding rectangle, used
	// to clip relative motion and project absolute motion.
	DisplayRect func() gfx.Rect

	RepaintRect func(r gfx.Rect) error

	// CursorImage resolves a stock cursor code to its drawable image.
	CursorImage func(code cursor.Code) *cursor.Cursor

	// PointerGC returns the GC the pointer image is composited onto.
	PointerGC func() gfx.GC

	// IdevCfgTable returns the display-wide idevcfg binding registry.
	IdevCfgTable func() *idevcfg.Table
}

// Seat is one independent focus and pointer context (spec §4.1).
type Seat struct {
	ID   dsid.SeatID
	Name string

	Focus *window.Window
	Popup *window.Window

	PntPos gfx.Point

	ClientCursor cursor.Code
	WMCursor     cursor.Code
	HasWMCursor  bool

	hooks Hooks
}

// New creates a seat with no focus, no popup, and the arrow cursor
// selected. Enlisting it into the display's seat collection and
// checking name uniqueness is the display's responsibility, the same
// division window.New uses for its own collections.
func New(id dsid.SeatID, name string, hooks Hooks) *Seat {
	return &Seat{
		ID:           id,
		Name:         name,
		ClientCursor: cursor.Arrow,
		hooks:        hooks,
	}
}

// Destroy unfocuses whatever window this seat currently focuses and
// cascade-deletes its idevcfg bindings. Removing the seat from the
// display's own collection is the display's responsibility.
func (s *Seat) Destroy() {
	if s.Focus != nil {
		s.Focus.PostUnfocusEvent()
		s.Focus = nil
	}
	s.Popup = nil
	if s.hooks.IdevCfgTable != nil {
		s.hooks.IdevCfgTable().RemoveSeat(s.ID)
	}
}

// currentWindow is the window that currently receives keyboard input and
// non-positional pointer events: the popup if one is open, else the
// focused window.
func (s *Seat) currentWindow() *window.Window {
	if s.Popup != nil {
		return s.Popup
	}
	return s.Focus
}

// SetFocus reassigns this seat's focused window. Reassigning to the
// window already focused skips the unminimize/unfocus/focus/bring-to-top
// dance, but the popup is always cleared as a side effect, even then.
func (s *Seat) SetFocus(wnd *window.Window) error {
	defer s.SetPopup(nil)

	if wnd == s.Focus {
		return nil
	}
	if wnd != nil {
		if err := wnd.Unminimize(); err != nil {
			return err
		}
	}

	old := s.Focus
	if old != nil {
		old.PostUnfocusEvent()
	}
	s.Focus = wnd
	if wnd != nil {
		wnd.PostFocusEvent()
		wnd.BringToTop()
	}
	return nil
}

// SetPopup reassigns this seat's popup window, closing the outgoing
// popup (if any and if different) first.
func (s *Seat) SetPopup(wnd *window.Window) error {
	if wnd == s.Popup {
		return nil
	}
	if s.Popup != nil {
		s.Popup.PostCloseEvent()
	}
	s.Popup = wnd
	return nil
}

// EvacWndRefs clears this seat's focus and popup references to wnd,
// without searching for a replacement focus. Clearing the focus goes
// through SetFocus(nil), which also closes whatever popup is open.
func (s *Seat) EvacWndRefs(wnd *window.Window) {
	if s.Focus == wnd {
		_ = s.SetFocus(nil)
	}
	if s.Popup == wnd {
		_ = s.SetPopup(nil)
	}
}

// UnfocusWnd removes wnd as this seat's focus, if it is, falling back to
// the previous non-minimized, non-system window in Z-order, or failing
// that, any previous non-minimized window.
func (s *Seat) UnfocusWnd(wnd *window.Window) {
	if s.Focus != wnd {
		return
	}
	list := s.hooks.WindowList()
	next := window.FindPrev(list, wnd, window.AllFlags&^(window.FlagMinimized|window.FlagSystem))
	if next == nil {
		next = window.FindPrev(list, wnd, window.AllFlags&^window.FlagMinimized)
	}
	_ = s.SetFocus(next)
}

// SwitchFocus implements Alt-Tab: advance to the next window in Z-order
// (excluding system windows), or to the topmost window if nothing is
// currently focused.
func (s *Seat) SwitchFocus() {
	list := s.hooks.WindowList()
	if len(list) == 0 {
		return
	}
	if s.Focus == nil {
		_ = s.SetFocus(list[0])
		return
	}
	next := window.FindNext(list, s.Focus, window.AllFlags&^window.FlagSystem)
	if next != nil {
		_ = s.SetFocus(next)
	}
}

// PostKbdEvent routes a keyboard event from a device bound to this seat.
// Alt-Tab and Shift-Tab are absorbed into SwitchFocus; everything else
// goes to the popup, or the focused window if there is no popup, and is
// dropped if neither exists.
func (s *Seat) PostKbdEvent(e ievent.KbdEvent) {
	altOrShift := e.Mods&(ievent.ModAlt|ievent.ModShift) != 0
	if e.Type == ievent.KbdPress && altOrShift && e.Name == ievent.NameTab {
		s.SwitchFocus()
		return
	}
	if wnd := s.currentWindow(); wnd != nil {
		wnd.PostKbd(e)
	}
}

// computeCursor is the effective cursor: a window-manager override, set
// during an interactive resize, always wins over the client-selected
// cursor.
func (s *Seat) computeCursor() cursor.Code {
	if s.HasWMCursor {
		return s.WMCursor
	}
	return s.ClientCursor
}

// GetCursor returns the seat's currently effective cursor code.
func (s *Seat) GetCursor() cursor.Code { return s.computeCursor() }

// GetPointerRect returns the screen rectangle a cursor image occupies at
// the seat's current pointer position, or the zero rect if code has no
// registered image.
func (s *Seat) GetPointerRect(code cursor.Code) gfx.Rect {
	if s.hooks.CursorImage == nil {
		return gfx.Rect{}
	}
	img := s.hooks.CursorImage(code)
	if img == nil {
		return gfx.Rect{}
	}
	return img.Rect.Translate(s.PntPos)
}

// repaintPointerRects repaints the pointer's old and new extents,
// merging them into one envelope when they're incident (see
// window.repaintPreview, the same rule applied to the drag preview
// outline).
func (s *Seat) repaintPointerRects(oldRect, newRect gfx.Rect) {
	if s.hooks.RepaintRect == nil {
		return
	}
	oldOK, newOK := !oldRect.Empty(), !newRect.Empty()
	switch {
	case oldOK && newOK && gfx.Incident(oldRect, newRect):
		_ = s.hooks.RepaintRect(oldRect.Union(newRect))
	default:
		if oldOK {
			_ = s.hooks.RepaintRect(oldRect)
		}
		if newOK {
			_ = s.hooks.RepaintRect(newRect)
		}
	}
}

func (s *Seat) setClientCursor(code cursor.Code) {
	old := s.computeCursor()
	oldRect := s.GetPointerRect(old)
	s.ClientCursor = code
	if newC := s.computeCursor(); newC != old {
		s.repaintPointerRects(oldRect, s.GetPointerRect(newC))
	}
}

// SetClientCursor changes the cursor a client has selected for this
// seat's pointer, repainting the pointer's envelope if that changes the
// effective cursor (a window-manager override may be masking it).
func (s *Seat) SetClientCursor(code cursor.Code) error {
	if !code.Valid() {
		return dserr.New(dserr.KindInvalid, "seat.SetClientCursor")
	}
	s.setClientCursor(code)
	return nil
}

// SetWMCursor installs a window-manager cursor override (e.g. a resize
// arrow during an interactive drag), taking priority over the client's
// own selection until ClearWMCursor.
func (s *Seat) SetWMCursor(code cursor.Code) error {
	if !code.Valid() {
		return dserr.New(dserr.KindInvalid, "seat.SetWMCursor")
	}
	old := s.computeCursor()
	oldRect := s.GetPointerRect(old)
	s.WMCursor = code
	s.HasWMCursor = true
	if newC := s.computeCursor(); newC != old {
		s.repaintPointerRects(oldRect, s.GetPointerRect(newC))
	}
	return nil
}

// ClearWMCursor removes a window-manager cursor override, reverting to
// the client-selected cursor.
func (s *Seat) ClearWMCursor() {
	if !s.HasWMCursor {
		return
	}
	old := s.computeCursor()
	oldRect := s.GetPointerRect(old)
	s.HasWMCursor = false
	if newC := s.computeCursor(); newC != old {
		s.repaintPointerRects(oldRect, s.GetPointerRect(newC))
	}
}

func clipPoint(p gfx.Point, r gfx.Rect) gfx.Point {
	if r.Empty() {
		return p
	}
	if p.X < r.Min.X {
		p.X = r.Min.X
	}
	if p.X >= r.Max.X {
		p.X = r.Max.X - 1
	}
	if p.Y < r.Min.Y {
		p.Y = r.Min.Y
	}
	if p.Y >= r.Max.Y {
		p.Y = r.Max.Y - 1
	}
	return p
}

// projectAbsMove maps a device-bounds-relative absolute position (e.g.
// from a tablet or touch digitizer) onto the display rectangle.
func projectAbsMove(e ievent.PtdEvent, disp gfx.Rect) gfx.Point {
	if e.BoundsW <= 0 || e.BoundsH <= 0 {
		return clipPoint(disp.Min, disp)
	}
	p := gfx.Point{
		X: disp.Min.X + e.AbsX*disp.Dx()/e.BoundsW,
		Y: disp.Min.Y + e.AbsY*disp.Dy()/e.BoundsH,
	}
	return clipPoint(p, disp)
}

func posTypeFor(t ievent.PtdEventType) ievent.PosEventType {
	switch t {
	case ievent.PtdPress:
		return ievent.PosPress
	case ievent.PtdRelease:
		return ievent.PosRelease
	case ievent.PtdDoubleClick:
		return ievent.PosDoubleClick
	default:
		return ievent.PosUpdate
	}
}

// afterPointerMove repaints the pointer's envelope and re-dispatches a
// synthesized position-update event, after PntPos has already been
// updated from oldPos. A no-op move (coalesced down to nothing, or
// clipped back to where it started) is dropped rather than repainted.
func (s *Seat) afterPointerMove(oldPos gfx.Point, idev dsid.IdevID) {
	if oldPos == s.PntPos {
		return
	}
	code := s.computeCursor()
	var oldRect, newRect gfx.Rect
	if s.hooks.CursorImage != nil {
		if img := s.hooks.CursorImage(code); img != nil {
			oldRect = img.Rect.Translate(oldPos)
			newRect = img.Rect.Translate(s.PntPos)
		}
	}
	s.repaintPointerRects(oldRect, newRect)
	s.PostPosEvent(ievent.PosEvent{Type: ievent.PosUpdate, Idev: idev, Pos: s.PntPos})
}

// PostPtdEvent handles one raw device event: presses/releases/clicks are
// synthesized into a PosEvent at the current pointer position (focusing
// the window under the pointer first, on a plain left-button press);
// relative and absolute motion update the pointer position before being
// synthesized the same way.
func (s *Seat) PostPtdEvent(e ievent.PtdEvent) {
	switch e.Type {
	case ievent.PtdPress, ievent.PtdRelease, ievent.PtdDoubleClick:
		if e.Type == ievent.PtdPress && e.Button == 1 {
			if wnd := s.hooks.WindowByPos(s.PntPos); wnd != nil &&
				wnd.Flags&(window.FlagPopup|window.FlagNoFocus) == 0 {
				_ = s.SetFocus(wnd)
			}
		}
		s.PostPosEvent(ievent.PosEvent{
			Type:   posTypeFor(e.Type),
			Button: e.Button,
			Idev:   e.Idev,
			Pos:    s.PntPos,
		})
	case ievent.PtdMove:
		old := s.PntPos
		s.PntPos = clipPoint(s.PntPos.Add(gfx.Point{X: e.Dx, Y: e.Dy}), s.hooks.DisplayRect())
		s.afterPointerMove(old, e.Idev)
	case ievent.PtdAbsMove:
		old := s.PntPos
		s.PntPos = projectAbsMove(e, s.hooks.DisplayRect())
		s.afterPointerMove(old, e.Idev)
	}
}

// PostPosEvent delivers an already-positioned pointer event. The window
// under the pointer always receives it and becomes the new client-cursor
// source (the arrow, if the pointer is over no window); the seat's
// current window (popup-or-focus), if different and the event isn't a
// press, receives it too, so that e.g. a button release that started
// over a window still reaches it after the pointer has moved off; a
// press landing outside an open popup dismisses the popup.
func (s *Seat) PostPosEvent(e ievent.PosEvent) {
	under := s.hooks.WindowByPos(e.Pos)
	if under != nil {
		s.setClientCursor(under.CursorCode)
	} else {
		s.setClientCursor(cursor.Arrow)
	}

	if e.Type == ievent.PosPress && s.Popup != nil && under != s.Popup {
		_ = s.SetPopup(nil)
	}

	if cur := s.currentWindow(); cur != nil && cur != under && e.Type != ievent.PosPress {
		cur.PostPos(e)
	}
	if under != nil {
		under.PostPos(e)
	}
}

// PaintPointer renders the seat's cursor at its current position,
// clipped to rect if given.
func (s *Seat) PaintPointer(rect *gfx.Rect) error {
	if s.hooks.CursorImage == nil || s.hooks.PointerGC == nil {
		return nil
	}
	img := s.hooks.CursorImage(s.computeCursor())
	if img == nil {
		return nil
	}
	gc := s.hooks.PointerGC()
	bmp, err := img.Bitmap(gc)
	if err != nil {
		return err
	}
	if rect == nil {
		return gc.BitmapRender(bmp, img.Rect, s.PntPos)
	}
	full := img.Rect.Translate(s.PntPos)
	local := rect.Intersect(full)
	if local.Empty() {
		return nil
	}
	srcRect := local.Translate(gfx.Point{}.Sub(s.PntPos))
	return gc.BitmapRender(bmp, srcRect, s.PntPos)
}

// AddIdevCfg binds idev to this seat in the display-wide idevcfg table.
func (s *Seat) AddIdevCfg(idev dsid.IdevID, svcName string) *idevcfg.Entry {
	return s.hooks.IdevCfgTable().Assign(idev, s.ID, svcName)
}

// RemoveIdevCfg removes a binding previously returned by AddIdevCfg.
func (s *Seat) RemoveIdevCfg(id dsid.EntryID) {
	s.hooks.IdevCfgTable().Unassign(id)
}

// IdevCfgs lists every input device currently bound to this seat.
func (s *Seat) IdevCfgs() []*idevcfg.Entry {
	return s.hooks.IdevCfgTable().BySeat(s.ID)
}
