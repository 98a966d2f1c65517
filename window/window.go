// Package window implements a single compositor window: its backing pixel
// surface, its Z-order flags, and the interactive move/resize state
// machine driven by pointer input (spec §4.2).
//
// A Window never imports seat, client, or display directly — every
// cross-object effect (routing an outbound event, asking which seat owns
// an input device, repainting, reordering the Z-order list) is reached
// through the Hooks a Display wires in at construction time. This keeps
// window, seat, client and display free of import cycles while letting
// each object's code read as if it simply called its collaborators.
package window

import (
	"github.com/kestrelos/dispd/cursor"
	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/ievent"
	"github.com/kestrelos/dispd/memgc"
)

// Flags is a bitset of window attributes (spec §3).
type Flags uint32

const (
	FlagTopmost Flags = 1 << iota
	FlagPopup
	FlagNoFocus
	FlagMinimized
	FlagMaximized
	FlagSystem
	FlagAvoid
	FlagSetPos
)

// AllFlags is the union of every defined Flags bit, a convenience for
// callers of FindPrev/FindNext that want to allow everything except a
// couple of named bits (e.g. AllFlags &^ FlagSystem).
const AllFlags Flags = FlagTopmost | FlagPopup | FlagNoFocus | FlagMinimized |
	FlagMaximized | FlagSystem | FlagAvoid | FlagSetPos

// RszType identifies which edge(s) of a window a resize drag affects. The
// four corner combinations are formed by ORing two adjacent edges.
type RszType uint32

const (
	RszTop RszType = 1 << iota
	RszLeft
	RszBottom
	RszRight
)

// State is a window's interactive drag state.
type State int

const (
	StateIdle State = iota
	StateMoving
	StateResizing
)

// EventSink is the outbound event path from a window to its owning
// client, implemented structurally by client.Client.
type EventSink interface {
	PostClose(id dsid.WindowID)
	PostKbd(id dsid.WindowID, e ievent.KbdEvent)
	PostPos(id dsid.WindowID, e ievent.PosEvent)
	PostFocus(id dsid.WindowID, nfocus int)
	PostUnfocus(id dsid.WindowID, nfocus int)
	PostResize(id dsid.WindowID, rect gfx.Rect)
}

// Hooks are the callbacks a Display injects into every Window it creates,
// standing in for the direct seat/display references the window would
// otherwise need to import.
type Hooks struct {
	Sink EventSink

	// SeatOf resolves the seat that owns an input device, if any.
	SeatOf func(dsid.IdevID) (dsid.SeatID, bool)

	SetWMCursor   func(seat dsid.SeatID, code cursor.Code)
	ClearWMCursor func(seat dsid.SeatID)

	// BroadcastChanged notifies every WM client that this window's
	// visible properties changed (caption, focus count).
	BroadcastChanged func(id dsid.WindowID)

	RepaintRect func(r gfx.Rect) error
	RepaintAll  func() error

	UpdateMaxRect func()
	MaxRect       func() gfx.Rect

	BringToTop      func(id dsid.WindowID)
	UnfocusAllSeats func(id dsid.WindowID)
}

// Params describes a window at creation time.
type Params struct {
	Rect    gfx.Rect
	MinSize gfx.Point
	Pos     gfx.Point
	Caption string
	Flags   Flags
	IdevID  dsid.IdevID
}

// Window is a single compositor window (spec §3, §4.2).
type Window struct {
	ID       dsid.WindowID
	ClientID dsid.ClientID

	Rect    gfx.Rect
	DPos    gfx.Point
	MinSize gfx.Point

	Caption    string
	Flags      Flags
	FocusCount int
	CursorCode cursor.Code

	State     State
	OrigPos   gfx.Point
	OrigPosID dsid.IdevID
	RszType   RszType

	PreviewPos  gfx.Point
	PreviewRect gfx.Rect

	NormalRect gfx.Rect
	NormalDPos gfx.Point

	gc     gfx.GC
	bitmap gfx.Bitmap
	mgc    *memgc.GC

	hooks Hooks
}

// New allocates a window's backing bitmap against gc (the display's
// current compositing target) and wraps it in a memory GC aliasing the
// same allocation, so that the bitmap gc later renders during compositing
// is kept in sync with whatever the client draws through GC() (spec §9,
// "Memory-GC back-channel"). It does not enlist the window in any client
// or display collection, assign a seat, or repaint — that orchestration
// belongs to the display, which is the only object that knows about
// every other collection a new window touches.
func New(id dsid.WindowID, clientID dsid.ClientID, params Params, gc gfx.GC, hooks Hooks) (*Window, error) {
	bmp, err := gc.BitmapCreate(gfx.BitmapParams{Rect: params.Rect}, nil)
	if err != nil {
		return nil, dserr.Wrap(dserr.KindOutOfMemory, "window.New", err)
	}
	alloc, err := bmp.GetAlloc()
	if err != nil {
		_ = gc.BitmapDestroy(bmp)
		return nil, dserr.Wrap(dserr.KindOutOfMemory, "window.New", err)
	}

	w := &Window{
		ID:         id,
		ClientID:   clientID,
		Rect:       params.Rect,
		MinSize:    params.MinSize,
		Caption:    params.Caption,
		Flags:      params.Flags,
		CursorCode: cursor.Arrow,
		gc:         gc,
		bitmap:     bmp,
		hooks:      hooks,
	}
	w.mgc = memgc.New(params.Rect, alloc, w.onMemGCInvalidate)

	if params.Flags&FlagSetPos != 0 {
		w.DPos = params.Pos
	} else {
		w.DPos = gfx.Point{
			X: int((uint64(id-1) & 1) * 400),
			Y: int((uint64(id-1) & 2) / 2 * 300),
		}
	}

	return w, nil
}

// GC returns the window's private drawing surface, handed to the client
// over the (out of scope) GC tunnel.
func (w *Window) GC() gfx.GC { return w.mgc }

// Destroy unfocuses the window on every seat (w.Unfocus, through its
// hooks) and releases the window's bitmap. Removing it from its client and
// display collections, recomputing max_rect, and repainting is the
// display's responsibility (it mirrors New's division of labor).
func (w *Window) Destroy() {
	w.Unfocus()
	if w.bitmap != nil {
		_ = w.gc.BitmapDestroy(w.bitmap)
		w.bitmap = nil
	}
}

// IsVisible reports whether the window should be painted.
func (w *Window) IsVisible() bool { return w.Flags&FlagMinimized == 0 }

// Paint renders the window's bitmap onto its GC. If rect is nil the full
// bitmap is rendered at DPos; otherwise rect (in display coordinates) is
// translated to window-local space, clipped to the window's own rect, and
// only that sub-rectangle is rendered.
func (w *Window) Paint(rect *gfx.Rect) error {
	if !w.IsVisible() {
		return nil
	}
	if w.bitmap == nil {
		return nil
	}
	if rect == nil {
		return w.gc.BitmapRender(w.bitmap, w.Rect, w.DPos)
	}
	local := rect.Translate(gfx.Point{}.Sub(w.DPos))
	crect := local.Intersect(w.Rect)
	if crect.Empty() {
		return nil
	}
	return w.gc.BitmapRender(w.bitmap, crect, w.DPos)
}

var previewColor = gfx.Color{R: 255, G: 255, B: 255, A: 255}

// previewRect computes the outline rectangle to draw while a drag is in
// progress, or the zero rect if the window is idle.
func (w *Window) previewRect() gfx.Rect {
	switch w.State {
	case StateMoving:
		return w.Rect.Translate(w.PreviewPos)
	case StateResizing:
		return w.PreviewRect.Translate(w.DPos)
	default:
		return gfx.Rect{}
	}
}

// PaintPreview draws the drag preview outline (four 1-pixel bars), each
// clipped to rect, if the window is currently being moved or resized.
func (w *Window) PaintPreview(rect *gfx.Rect) error {
	prect := w.previewRect()
	if prect.Empty() {
		return nil
	}
	if err := w.gc.SetColor(previewColor); err != nil {
		return err
	}
	for _, bar := range previewBars(prect) {
		r := bar
		if rect != nil {
			r = r.Intersect(*rect)
		}
		if r.Empty() {
			continue
		}
		if err := w.gc.FillRect(r); err != nil {
			return err
		}
	}
	return nil
}

func previewBars(r gfx.Rect) [4]gfx.Rect {
	return [4]gfx.Rect{
		gfx.NewRect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),   // top
		gfx.NewRect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),   // bottom
		gfx.NewRect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),   // left
		gfx.NewRect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),   // right
	}
}

// repaintPreview repaints the preview outline's old and new extents,
// merging them into one envelope when they're incident.
func (w *Window) repaintPreview(oldRect gfx.Rect) {
	if w.hooks.RepaintRect == nil {
		return
	}
	newRect := w.previewRect()
	oldOK := !oldRect.Empty()
	newOK := !newRect.Empty()
	switch {
	case oldOK && newOK && gfx.Incident(oldRect, newRect):
		_ = w.hooks.RepaintRect(oldRect.Union(newRect))
	default:
		if oldOK {
			_ = w.hooks.RepaintRect(oldRect)
		}
		if newOK {
			_ = w.hooks.RepaintRect(newRect)
		}
	}
}

// PostKbd routes a keyboard event: Alt/Shift-F4 is translated to a close
// request, everything else is forwarded to the client unchanged.
func (w *Window) PostKbd(e ievent.KbdEvent) {
	altOrShift := e.Mods&(ievent.ModAlt|ievent.ModShift) != 0
	if e.Type == ievent.KbdPress && altOrShift && e.Name == ievent.NameF4 {
		w.hooks.Sink.PostClose(w.ID)
		return
	}
	w.hooks.Sink.PostKbd(w.ID, e)
}

// OrigSeat reports whether idevID resolves to the same seat that owns
// OrigPosID, the device that initiated the current drag. Two unresolved
// devices are considered the same (neither belongs to any seat).
func (w *Window) OrigSeat(idevID dsid.IdevID) bool {
	origSeat, ok1 := w.hooks.SeatOf(w.OrigPosID)
	seat, ok2 := w.hooks.SeatOf(idevID)
	if !ok1 && !ok2 {
		return true
	}
	if ok1 != ok2 {
		return false
	}
	return origSeat == seat
}

// PostPos routes a pointer event given in display coordinates, handling
// the move/resize drag protocol before forwarding anything to the client
// (spec §4.2 post-pos).
func (w *Window) PostPos(e ievent.PosEvent) {
	drect := w.Rect.Translate(w.DPos)
	inside := drect.ContainsPt(e.Pos)

	if e.Type == ievent.PosPress && e.Button == 2 && inside && w.Flags&FlagMaximized == 0 {
		w.startMove(e.Pos, e.Idev)
		return
	}

	if e.Type == ievent.PosRelease {
		if w.State == StateMoving && w.OrigSeat(e.Idev) {
			w.finishMove(e.Pos)
			return
		}
		if w.State == StateResizing && w.OrigSeat(e.Idev) {
			w.finishResize(e.Pos)
			return
		}
	}

	if e.Type == ievent.PosUpdate {
		if w.State == StateMoving && w.OrigSeat(e.Idev) {
			w.updateMove(e.Pos)
			return
		}
		if w.State == StateResizing && w.OrigSeat(e.Idev) {
			w.updateResize(e.Pos)
			return
		}
	}

	local := e
	local.Pos = e.Pos.Sub(w.DPos)
	w.hooks.Sink.PostPos(w.ID, local)
}

// PostFocusEvent notifies the client that this window gained focus in one
// more seat, and broadcasts the resulting change to WM clients.
func (w *Window) PostFocusEvent() {
	w.FocusCount++
	w.hooks.Sink.PostFocus(w.ID, w.FocusCount)
	if w.hooks.BroadcastChanged != nil {
		w.hooks.BroadcastChanged(w.ID)
	}
}

// PostUnfocusEvent is the converse of PostFocusEvent.
func (w *Window) PostUnfocusEvent() {
	w.FocusCount--
	w.hooks.Sink.PostUnfocus(w.ID, w.FocusCount)
	if w.hooks.BroadcastChanged != nil {
		w.hooks.BroadcastChanged(w.ID)
	}
}

// PostCloseEvent asks the owning client to close this window, the same
// request PostKbd synthesizes for Alt-F4. A seat uses it to close a
// popup that has been superseded or dismissed.
func (w *Window) PostCloseEvent() {
	w.hooks.Sink.PostClose(w.ID)
}

func (w *Window) startMove(pos gfx.Point, idevID dsid.IdevID) {
	if w.State != StateIdle {
		return
	}
	w.OrigPos = pos
	w.OrigPosID = idevID
	w.State = StateMoving
	w.PreviewPos = w.DPos
	w.repaintPreview(gfx.Rect{})
}

func (w *Window) finishMove(pos gfx.Point) {
	dmove := pos.Sub(w.OrigPos)
	w.DPos = w.DPos.Add(dmove)
	w.State = StateIdle
	w.OrigPosID = 0
	if w.hooks.RepaintAll != nil {
		_ = w.hooks.RepaintAll()
	}
}

func (w *Window) updateMove(pos gfx.Point) {
	dmove := pos.Sub(w.OrigPos)
	nwpos := w.DPos.Add(dmove)
	old := w.previewRect()
	w.PreviewPos = nwpos
	w.repaintPreview(old)
}

func cursorForRsz(rsz RszType) cursor.Code {
	switch rsz {
	case RszTop, RszBottom:
		return cursor.SizeUD
	case RszLeft, RszRight:
		return cursor.SizeLR
	case RszTop | RszLeft, RszBottom | RszRight:
		return cursor.SizeULDR
	case RszTop | RszRight, RszBottom | RszLeft:
		return cursor.SizeURDL
	default:
		return cursor.Arrow
	}
}

func (w *Window) startResize(rsz RszType, pos gfx.Point, idevID dsid.IdevID) {
	if w.State != StateIdle {
		return
	}
	seat, ok := w.hooks.SeatOf(idevID)
	if !ok {
		return
	}
	w.OrigPos = pos
	w.OrigPosID = idevID
	w.State = StateResizing
	w.RszType = rsz
	w.PreviewRect = w.Rect
	if w.hooks.SetWMCursor != nil {
		w.hooks.SetWMCursor(seat, cursorForRsz(rsz))
	}
	w.repaintPreview(gfx.Rect{})
}

func (w *Window) finishResize(pos gfx.Point) {
	dresize := pos.Sub(w.OrigPos)
	nrect := w.CalcResize(dresize)

	w.State = StateIdle
	w.hooks.Sink.PostResize(w.ID, nrect)

	if seat, ok := w.hooks.SeatOf(w.OrigPosID); ok && w.hooks.ClearWMCursor != nil {
		w.hooks.ClearWMCursor(seat)
	}
	w.OrigPosID = 0

	if w.hooks.RepaintAll != nil {
		_ = w.hooks.RepaintAll()
	}
}

func (w *Window) updateResize(pos gfx.Point) {
	dresize := pos.Sub(w.OrigPos)
	nrect := w.CalcResize(dresize)

	old := w.previewRect()
	w.PreviewRect = nrect
	w.repaintPreview(old)
}

// CalcResize computes the rectangle that results from dragging the edges
// named in RszType by delta, clamped so the result is never smaller than
// MinSize: dragged edges move by delta (floored/ceiled against the
// opposite edge), edges not being dragged stay put (spec §4.2 calc-resize).
func (w *Window) CalcResize(delta gfx.Point) gfx.Rect {
	var nrect gfx.Rect

	if w.RszType&RszTop != 0 {
		nrect.Min.Y = min(w.Rect.Min.Y+delta.Y, w.Rect.Max.Y-w.MinSize.Y)
	} else {
		nrect.Min.Y = w.Rect.Min.Y
	}

	if w.RszType&RszLeft != 0 {
		nrect.Min.X = min(w.Rect.Min.X+delta.X, w.Rect.Max.X-w.MinSize.X)
	} else {
		nrect.Min.X = w.Rect.Min.X
	}

	if w.RszType&RszBottom != 0 {
		nrect.Max.Y = max(w.Rect.Max.Y+delta.Y, w.Rect.Min.Y+w.MinSize.Y)
	} else {
		nrect.Max.Y = w.Rect.Max.Y
	}

	if w.RszType&RszRight != 0 {
		nrect.Max.X = max(w.Rect.Max.X+delta.X, w.Rect.Min.X+w.MinSize.X)
	} else {
		nrect.Max.X = w.Rect.Max.X
	}

	return nrect
}

// MoveReq starts a move drag on behalf of the client (as opposed to one
// detected from a raw button-2 press), with pos given window-local.
func (w *Window) MoveReq(pos gfx.Point, idevID dsid.IdevID) {
	w.startMove(w.DPos.Add(pos), idevID)
}

// ResizeReq starts a resize drag on behalf of the client, with pos given
// window-local.
func (w *Window) ResizeReq(rsz RszType, pos gfx.Point, idevID dsid.IdevID) {
	w.startResize(rsz, w.DPos.Add(pos), idevID)
}

// Move repositions the window directly (not via drag) and repaints. No
// event is sent to the client: unlike Resize, a move never invalidates
// the client's own surface.
func (w *Window) Move(dpos gfx.Point) {
	w.DPos = dpos
	if w.hooks.RepaintAll != nil {
		_ = w.hooks.RepaintAll()
	}
}

// GetPos returns the window's current display position.
func (w *Window) GetPos() gfx.Point { return w.DPos }

// GetMaxRect returns the display's current maximization rectangle.
func (w *Window) GetMaxRect() gfx.Rect {
	if w.hooks.MaxRect == nil {
		return gfx.Rect{}
	}
	return w.hooks.MaxRect()
}

// Resize reallocates the window's backing bitmap to nrect and retargets
// its memory GC onto the new allocation, then applies offset to DPos.
// Contents are not preserved across the reallocation — the client is
// expected to redraw after receiving the resize event that normally
// precedes this call (spec §4.2 move/resize).
func (w *Window) Resize(offset gfx.Point, nrect gfx.Rect) error {
	nbmp, err := w.gc.BitmapCreate(gfx.BitmapParams{Rect: nrect}, nil)
	if err != nil {
		return dserr.Wrap(dserr.KindOutOfMemory, "window.Resize", err)
	}
	alloc, err := nbmp.GetAlloc()
	if err != nil {
		_ = w.gc.BitmapDestroy(nbmp)
		return dserr.Wrap(dserr.KindOutOfMemory, "window.Resize", err)
	}

	if w.bitmap != nil {
		_ = w.gc.BitmapDestroy(w.bitmap)
	}
	w.bitmap = nbmp
	w.mgc.Retarget(nrect, alloc)

	w.DPos = w.DPos.Add(offset)
	w.Rect = nrect

	if w.Flags&FlagAvoid != 0 && w.hooks.UpdateMaxRect != nil {
		w.hooks.UpdateMaxRect()
	}
	if w.hooks.RepaintAll != nil {
		_ = w.hooks.RepaintAll()
	}
	return nil
}

// Minimize hides the window and unfocuses it everywhere. Idempotent.
func (w *Window) Minimize() error {
	if w.Flags&FlagMinimized != 0 {
		return nil
	}
	w.Unfocus()
	w.Flags |= FlagMinimized
	if w.hooks.RepaintAll != nil {
		_ = w.hooks.RepaintAll()
	}
	return nil
}

// Unminimize reveals a minimized window. Idempotent.
func (w *Window) Unminimize() error {
	if w.Flags&FlagMinimized == 0 {
		return nil
	}
	w.Flags &^= FlagMinimized
	if w.hooks.RepaintAll != nil {
		_ = w.hooks.RepaintAll()
	}
	return nil
}

// Maximize stashes the window's current geometry and resizes it to
// maxRect, keeping its content in the same place on the screen. Idempotent.
func (w *Window) Maximize(maxRect gfx.Rect) error {
	if w.Flags&FlagMaximized != 0 {
		return nil
	}
	oldRect, oldDPos := w.Rect, w.DPos
	offset := maxRect.Min.Sub(w.DPos)
	nrect := maxRect.Translate(gfx.Point{}.Sub(maxRect.Min))

	if err := w.Resize(offset, nrect); err != nil {
		return err
	}
	w.Flags |= FlagMaximized
	w.NormalRect = oldRect
	w.NormalDPos = oldDPos
	return nil
}

// Unmaximize restores the geometry stashed by Maximize. Idempotent.
func (w *Window) Unmaximize() error {
	if w.Flags&FlagMaximized == 0 {
		return nil
	}
	offset := w.NormalDPos.Sub(w.DPos)
	if err := w.Resize(offset, w.NormalRect); err != nil {
		return err
	}
	w.Flags &^= FlagMaximized
	return nil
}

// SetCursor changes the window's selected cursor.
func (w *Window) SetCursor(code cursor.Code) error {
	if !code.Valid() {
		return dserr.New(dserr.KindInvalid, "window.SetCursor")
	}
	w.CursorCode = code
	return nil
}

// SetCaption replaces the window's caption and broadcasts the change to
// every WM client.
func (w *Window) SetCaption(s string) {
	w.Caption = s
	if w.hooks.BroadcastChanged != nil {
		w.hooks.BroadcastChanged(w.ID)
	}
}

// BringToTop moves the window to the front of its stratum and repaints.
func (w *Window) BringToTop() {
	if w.hooks.BringToTop != nil {
		w.hooks.BringToTop(w.ID)
	}
	if w.hooks.RepaintAll != nil {
		_ = w.hooks.RepaintAll()
	}
}

// Unfocus removes this window as the focus of every seat that currently
// focuses it, falling back to another window per each seat's own rule.
// Called on destroy and minimize.
func (w *Window) Unfocus() {
	if w.hooks.UnfocusAllSeats != nil {
		w.hooks.UnfocusAllSeats(w.ID)
	}
}

func (w *Window) onMemGCInvalidate(r gfx.Rect) {
	if w.hooks.RepaintRect == nil {
		return
	}
	_ = w.hooks.RepaintRect(r.Translate(w.DPos))
}

// indexOf returns wnd's position in list, or -1 if absent.
func indexOf(list []*Window, wnd *Window) int {
	for i, w := range list {
		if w == wnd {
			return i
		}
	}
	return -1
}

// FindPrev searches list (in display Z-order) for a different window than
// wnd whose flags are a subset of allowed, starting just after wnd and
// wrapping around. Returns nil if no other window qualifies.
func FindPrev(list []*Window, wnd *Window, allowed Flags) *Window {
	return findCircular(list, wnd, allowed, 1)
}

// FindNext is FindPrev's mirror image, searching from just before wnd.
func FindNext(list []*Window, wnd *Window, allowed Flags) *Window {
	return findCircular(list, wnd, allowed, -1)
}

func findCircular(list []*Window, wnd *Window, allowed Flags, step int) *Window {
	n := len(list)
	idx := indexOf(list, wnd)
	if idx < 0 || n < 2 {
		return nil
	}
	for i := 1; i < n; i++ {
		j := ((idx+i*step)%n + n) % n
		if list[j].Flags&^allowed == 0 {
			return list[j]
		}
	}
	return nil
}
