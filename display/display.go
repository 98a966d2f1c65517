// Package display implements the compositor's composition root: the
// Display type that owns every collection (clients, windows in Z-order,
// seats, the idevcfg table, the clone GC and its optional back buffer,
// the stock cursor set) and wires the Hooks window and seat need to
// reach each other and the display without importing one another
// (spec §4.1).
//
// Every mutation of the display graph happens under a single lock
// (spec §5, §9 "single global lock vs. per-object locks"). To satisfy
// that without a reentrant mutex, only the exported methods below
// acquire d.mu; every callback wired into window.Hooks/seat.Hooks is an
// unexported *Locked method that assumes the lock is already held. A
// window's memory GC invalidate callback re-enters paintLocked this
// way, synchronously, from inside the exported method that triggered
// the draw — see windowGC below.
package display

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/kestrelos/dispd/client"
	"github.com/kestrelos/dispd/clonegc"
	"github.com/kestrelos/dispd/config"
	"github.com/kestrelos/dispd/cursor"
	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/idevcfg"
	"github.com/kestrelos/dispd/ievent"
	"github.com/kestrelos/dispd/memgc"
	"github.com/kestrelos/dispd/seat"
	"github.com/kestrelos/dispd/window"
)

// Flags is a bitset of display-wide creation options.
type Flags uint32

const (
	// FlagDoubleBuffer routes every draw through an in-memory back
	// buffer, flushed to the real outputs at the end of each paint.
	FlagDoubleBuffer Flags = 1 << iota
)

// defaultBgColor is the compositor's background fill, carried over from
// the 16-bit RGB the original source initializes (0x8000, 0xc800,
// 0xffff) truncated to the high byte of each channel.
var defaultBgColor = gfx.Color{R: 0x80, G: 0xc8, B: 0xff, A: 0xff}

// Output describes one physical display device attached to the
// compositor: its GC and the rectangle it covers.
type Output struct {
	GC   gfx.GC
	Rect gfx.Rect
}

// SeatInfo is a read-only snapshot of a seat's configuration-protocol
// visible properties (spec §6 "list seats"/"get seat info").
type SeatInfo struct {
	ID   dsid.SeatID
	Name string
}

// Display is the compositor's composition root (spec §4.1).
type Display struct {
	mu sync.Mutex

	flags Flags
	log   zerolog.Logger

	rect    gfx.Rect
	maxRect gfx.Rect
	bgColor gfx.Color

	clone      *clonegc.CloneGC
	backGC     *memgc.GC
	backBitmap gfx.Bitmap
	dirtyRect  gfx.Rect

	windows      []*window.Window // Z-order, head = topmost
	windowsByID  map[dsid.WindowID]*window.Window
	nextWindowID dsid.WindowID

	seats      map[dsid.SeatID]*seat.Seat
	seatOrder  []dsid.SeatID // creation order; seatOrder[0] is the default seat
	nextSeatID dsid.SeatID

	idevcfgs *idevcfg.Table
	cursors  [6]*cursor.Cursor

	clients    map[dsid.ClientID]*client.Client
	wmClients  map[dsid.ClientID]*client.WMClient
	cfgClients map[dsid.ClientID]*client.CfgClient
}

// New creates a display with no outputs, no windows and no seats, ready
// for AddOutput and CreateSeat calls. flags requests double buffering;
// log may be the zero zerolog.Logger (a no-op) for library consumers
// that don't want logging.
func New(flags Flags, log zerolog.Logger) *Display {
	d := &Display{
		flags:       flags,
		log:         log,
		bgColor:     defaultBgColor,
		windowsByID: make(map[dsid.WindowID]*window.Window),
		seats:       make(map[dsid.SeatID]*seat.Seat),
		idevcfgs:    idevcfg.NewTable(),
		clients:     make(map[dsid.ClientID]*client.Client),
		wmClients:   make(map[dsid.ClientID]*client.WMClient),
		cfgClients:  make(map[dsid.ClientID]*client.CfgClient),
	}
	d.cursors = newStockCursors()
	return d
}

// Rect returns the display's current bounding rectangle (spec §6
// get-info), the union of every attached output.
func (d *Display) Rect() gfx.Rect {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rect
}

// target returns the GC windows and seats currently composite onto: the
// back buffer's memory GC if double buffering is enabled and allocated,
// otherwise the clone GC fanning out to the real outputs directly.
func (d *Display) target() gfx.GC {
	if d.flags&FlagDoubleBuffer != 0 && d.backGC != nil {
		return d.backGC
	}
	return d.clone
}

// AddOutput attaches a new output device (spec §4.1 add-output). The
// first call establishes the display's rectangle and, if requested,
// allocates the double-buffer back buffer; later calls retroactively
// mirror every existing logical bitmap onto the new output via the
// clone GC. A failure leaves the display exactly as it was before the
// call.
func (d *Display) AddOutput(out Output) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.clone == nil {
		prevRect, prevMaxRect := d.rect, d.maxRect
		d.rect = out.Rect
		d.maxRect = out.Rect
		clone := clonegc.New()
		if err := clone.AddOutput(out.GC); err != nil {
			d.rect, d.maxRect = prevRect, prevMaxRect
			return dserr.Wrap(dserr.KindIO, "display.AddOutput", err)
		}
		d.clone = clone
		if d.flags&FlagDoubleBuffer != 0 {
			if err := d.allocBackBufferLocked(); err != nil {
				d.clone = nil
				d.rect, d.maxRect = prevRect, prevMaxRect
				return err
			}
		}
		d.log.Debug().Int("w", out.Rect.Dx()).Int("h", out.Rect.Dy()).Msg("display: first output attached")
		return nil
	}

	if err := d.clone.AddOutput(out.GC); err != nil {
		return dserr.Wrap(dserr.KindIO, "display.AddOutput", err)
	}
	d.log.Debug().Int("outputs", d.clone.Outputs()).Msg("display: output attached")
	return nil
}

// allocBackBufferLocked allocates the back buffer's canonical pixel
// storage, hands it to the clone GC as an aliased bitmap (so every
// output, including ones added later, shares these exact bytes), and
// wraps the same allocation in a memory GC that windows and seats draw
// through when double buffering is on.
func (d *Display) allocBackBufferLocked() error {
	size := d.rect.Size()
	pitch := size.X * 4
	alloc := gfx.BitmapAlloc{Pixels: make([]byte, pitch*size.Y), Pitch: pitch}
	bmp, err := d.clone.BitmapCreate(gfx.BitmapParams{Rect: d.rect}, &alloc)
	if err != nil {
		return dserr.Wrap(dserr.KindOutOfMemory, "display.allocBackBuffer", err)
	}
	d.backBitmap = bmp
	d.backGC = memgc.New(d.rect, alloc, nil)
	d.dirtyRect = gfx.Rect{}
	return nil
}

// Paint repaints rect (or the whole display if rect is nil). See spec
// §4.1 paint for the step order.
func (d *Display) Paint(rect *gfx.Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paintLocked(rect)
}

func (d *Display) paintLocked(rect *gfx.Rect) error {
	if d.clone == nil {
		return nil
	}
	clip := d.rect
	if rect != nil {
		clip = rect.Intersect(d.rect)
	}
	if clip.Empty() {
		return nil
	}

	target := d.target()
	if err := target.SetClipRect(&clip); err != nil {
		return err
	}
	if err := target.SetColor(d.bgColor); err != nil {
		return err
	}
	if err := target.FillRect(clip); err != nil {
		return err
	}
	for i := len(d.windows) - 1; i >= 0; i-- {
		if err := d.windows[i].Paint(&clip); err != nil {
			return err
		}
	}
	for i := len(d.windows) - 1; i >= 0; i-- {
		if err := d.windows[i].PaintPreview(&clip); err != nil {
			return err
		}
	}
	for _, sid := range d.seatOrder {
		if err := d.seats[sid].PaintPointer(&clip); err != nil {
			return err
		}
	}

	if d.flags&FlagDoubleBuffer != 0 && d.backBitmap != nil {
		d.dirtyRect = d.dirtyRect.Union(clip)
		if err := d.clone.BitmapRender(d.backBitmap, d.dirtyRect, d.rect.Min); err != nil {
			return err
		}
		d.dirtyRect = gfx.Rect{}
	}
	return nil
}

// windowByPosLocked hit-tests the topmost visible window (in Z-order)
// containing pos, skipping minimized windows.
func (d *Display) windowByPosLocked(pos gfx.Point) *window.Window {
	for _, w := range d.windows {
		if !w.IsVisible() {
			continue
		}
		if w.Rect.Translate(w.DPos).ContainsPt(pos) {
			return w
		}
	}
	return nil
}

// enlistWindowLocked inserts w into the Z-order list per the stratum
// rule: topmost-flagged windows are prepended to the head, non-topmost
// windows are inserted just before the first non-topmost window (or
// appended if the list is all-topmost), keeping the invariant that the
// list is a contiguous topmost prefix followed by a non-topmost suffix.
func (d *Display) enlistWindowLocked(w *window.Window) {
	if w.Flags&window.FlagTopmost != 0 {
		d.windows = slices.Insert(d.windows, 0, w)
		return
	}
	idx := slices.IndexFunc(d.windows, func(o *window.Window) bool {
		return o.Flags&window.FlagTopmost == 0
	})
	if idx < 0 {
		idx = len(d.windows)
	}
	d.windows = slices.Insert(d.windows, idx, w)
}

// delistWindowLocked removes w from the Z-order list.
func (d *Display) delistWindowLocked(w *window.Window) {
	idx := slices.Index(d.windows, w)
	if idx < 0 {
		return
	}
	d.windows = slices.Delete(d.windows, idx, idx+1)
}

// bringToTopLocked implements window.Hooks.BringToTop: remove and
// re-enlist, which lands it at the front of its own stratum.
func (d *Display) bringToTopLocked(id dsid.WindowID) {
	w, ok := d.windowsByID[id]
	if !ok {
		return
	}
	d.delistWindowLocked(w)
	d.enlistWindowLocked(w)
}

// updateMaxRectLocked recomputes the maximization rectangle: the
// display rect cropped by every avoid-flagged window's display rect.
func (d *Display) updateMaxRectLocked() {
	max := d.rect
	for _, w := range d.windows {
		if w.Flags&window.FlagAvoid != 0 {
			max = cropMaxRect(w.Rect.Translate(w.DPos), max)
		}
	}
	d.maxRect = max
}

// cropMaxRect shrinks max by avoid only if avoid aligns flush to exactly
// one of max's four edges (sharing both perpendicular extents and
// touching the parallel edge); a floating avoid window that doesn't
// align to an edge leaves max unchanged. Only the first matching edge,
// in top/bottom/left/right priority order, applies.
func cropMaxRect(avoid, max gfx.Rect) gfx.Rect {
	switch {
	case avoid.Min.X == max.Min.X && avoid.Min.Y == max.Min.Y && avoid.Max.X == max.Max.X:
		max.Min.Y = avoid.Max.Y
	case avoid.Min.X == max.Min.X && avoid.Max.X == max.Max.X && avoid.Max.Y == max.Max.Y:
		max.Max.Y = avoid.Min.Y
	case avoid.Min.X == max.Min.X && avoid.Min.Y == max.Min.Y && avoid.Max.Y == max.Max.Y:
		max.Min.X = avoid.Max.X
	case avoid.Min.Y == max.Min.Y && avoid.Max.X == max.Max.X && avoid.Max.Y == max.Max.Y:
		max.Max.X = avoid.Min.X
	}
	return max
}

// resolveSeatLocked implements the window-creation seat-resolution rule
// (spec §4.2 create): idev 0 is a sentinel for "use the default seat",
// a nonzero idev that doesn't resolve to any seat resolves to no seat at
// all (the window gets no initial focus/popup assignment).
func (d *Display) resolveSeatLocked(idev dsid.IdevID) *seat.Seat {
	if idev != 0 {
		if sid, ok := d.idevcfgs.ByIdev(idev); ok {
			return d.seats[sid]
		}
		return nil
	}
	return d.defaultSeatLocked()
}

// defaultSeatLocked returns the first-created seat, or nil if none exist.
func (d *Display) defaultSeatLocked() *seat.Seat {
	if len(d.seatOrder) == 0 {
		return nil
	}
	return d.seats[d.seatOrder[0]]
}

// unfocusAllSeatsLocked implements window.Hooks.UnfocusAllSeats, called
// on window destroy and minimize. For every seat: a popup reference to
// this window is evacuated outright (no fallback — it's being torn
// down), while a focus reference falls back per Seat.UnfocusWnd, the
// stronger cancellation invariant of spec §5(ii) applied on top of the
// focus-fallback behavior of spec §4.3 unfocus-wnd.
func (d *Display) unfocusAllSeatsLocked(id dsid.WindowID) {
	w, ok := d.windowsByID[id]
	if !ok {
		return
	}
	for _, sid := range d.seatOrder {
		s := d.seats[sid]
		if s.Popup == w {
			_ = s.SetPopup(nil)
		}
		s.UnfocusWnd(w)
	}
}

// broadcastWindowAddedLocked, broadcastWindowRemovedLocked and
// broadcastWindowChangedLocked fan a window lifecycle event out to
// every WM client (spec §4.6).
func (d *Display) broadcastWindowAddedLocked(w *window.Window) {
	for _, wm := range d.wmClients {
		wm.WindowAdded(w)
	}
}

func (d *Display) broadcastWindowRemovedLocked(w *window.Window) {
	for _, wm := range d.wmClients {
		wm.WindowRemoved(w)
	}
}

func (d *Display) broadcastWindowChangedLocked(id dsid.WindowID) {
	w, ok := d.windowsByID[id]
	if !ok {
		return
	}
	for _, wm := range d.wmClients {
		wm.WindowChanged(w)
	}
}

// broadcastSeatAddedLocked and broadcastSeatRemovedLocked fan a seat
// lifecycle event out to every configuration client.
func (d *Display) broadcastSeatAddedLocked(id dsid.SeatID, name string) {
	for _, c := range d.cfgClients {
		c.SeatAdded(id, name)
	}
}

func (d *Display) broadcastSeatRemovedLocked(id dsid.SeatID, name string) {
	for _, c := range d.cfgClients {
		c.SeatRemoved(id, name)
	}
}

// windowHooks builds the Hooks a new window is created with, routing
// outbound events to sink (the owning client).
func (d *Display) windowHooks(sink window.EventSink) window.Hooks {
	return window.Hooks{
		Sink:   sink,
		SeatOf: d.idevcfgs.ByIdev,
		SetWMCursor: func(sid dsid.SeatID, code cursor.Code) {
			if s, ok := d.seats[sid]; ok {
				_ = s.SetWMCursor(code)
			}
		},
		ClearWMCursor: func(sid dsid.SeatID) {
			if s, ok := d.seats[sid]; ok {
				s.ClearWMCursor()
			}
		},
		BroadcastChanged: d.broadcastWindowChangedLocked,
		RepaintRect:      func(r gfx.Rect) error { return d.paintLocked(&r) },
		RepaintAll:       func() error { return d.paintLocked(nil) },
		UpdateMaxRect:    d.updateMaxRectLocked,
		MaxRect:          func() gfx.Rect { return d.maxRect },
		BringToTop:       d.bringToTopLocked,
		UnfocusAllSeats:  d.unfocusAllSeatsLocked,
	}
}

// seatHooks builds the Hooks every seat this display creates shares.
func (d *Display) seatHooks() seat.Hooks {
	return seat.Hooks{
		WindowList:  func() []*window.Window { return d.windows },
		WindowByPos: d.windowByPosLocked,
		DisplayRect: func() gfx.Rect { return d.rect },
		RepaintRect: func(r gfx.Rect) error { return d.paintLocked(&r) },
		CursorImage: func(code cursor.Code) *cursor.Cursor {
			if !code.Valid() {
				return nil
			}
			return d.cursors[code]
		},
		PointerGC:    d.target,
		IdevCfgTable: func() *idevcfg.Table { return d.idevcfgs },
	}
}

// windowLocked resolves id against the display's window collection.
func (d *Display) windowLocked(id dsid.WindowID) (*window.Window, error) {
	w, ok := d.windowsByID[id]
	if !ok {
		return nil, dserr.New(dserr.KindNotFound, "display: window")
	}
	return w, nil
}

// CreateWindow creates a window owned by the client identified by
// clientID (spec §4.2 create): allocates its backing bitmap against the
// display's current compositing target, enlists it in Z-order, assigns
// it as popup or focus on the seat params.IdevID resolves to (or the
// default seat), updates max-rect if it's an avoid window, and repaints.
func (d *Display) CreateWindow(clientID dsid.ClientID, params window.Params) (*window.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.clients[clientID]
	if !ok {
		return nil, dserr.New(dserr.KindNotFound, "display.CreateWindow")
	}

	d.nextWindowID++
	id := d.nextWindowID
	w, err := window.New(id, clientID, params, d.target(), d.windowHooks(c))
	if err != nil {
		d.nextWindowID--
		return nil, err
	}

	c.AddWindow(w)
	d.windowsByID[id] = w
	d.enlistWindowLocked(w)
	d.broadcastWindowAddedLocked(w)

	if s := d.resolveSeatLocked(params.IdevID); s != nil {
		switch {
		case params.Flags&window.FlagPopup != 0:
			_ = s.SetPopup(w)
		case params.Flags&window.FlagNoFocus == 0:
			_ = s.SetFocus(w)
		}
	}
	if params.Flags&window.FlagAvoid != 0 {
		d.updateMaxRectLocked()
	}
	d.log.Debug().Uint64("window", uint64(id)).Msg("display: window created")
	if err := d.paintLocked(nil); err != nil {
		return w, err
	}
	return w, nil
}

// afterWindowDestroyedLocked removes w from every display-owned
// collection after its own teardown (window.Destroy, client.RemoveWindow)
// has already run, recomputing max-rect and notifying WM clients.
func (d *Display) afterWindowDestroyedLocked(w *window.Window) {
	d.delistWindowLocked(w)
	delete(d.windowsByID, w.ID)
	if w.Flags&window.FlagAvoid != 0 {
		d.updateMaxRectLocked()
	}
	d.broadcastWindowRemovedLocked(w)
}

// DestroyWindow tears a window down (spec §4.2 destroy, §5 cancellation):
// unfocus, purge its queued events, delist it, recompute max-rect if it
// was an avoid window, and repaint.
func (d *Display) DestroyWindow(id dsid.WindowID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	w.Destroy()
	if c, ok := d.clients[w.ClientID]; ok {
		c.RemoveWindow(w.ID)
	}
	d.afterWindowDestroyedLocked(w)
	d.log.Debug().Uint64("window", uint64(id)).Msg("display: window destroyed")
	return d.paintLocked(nil)
}

// MoveWindow repositions a window directly (not a drag).
func (d *Display) MoveWindow(id dsid.WindowID, dpos gfx.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	w.Move(dpos)
	return nil
}

// ResizeWindow reallocates a window's backing bitmap to nrect (not a
// drag).
func (d *Display) ResizeWindow(id dsid.WindowID, offset gfx.Point, nrect gfx.Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	return w.Resize(offset, nrect)
}

// MoveWindowReq starts a move drag on behalf of the client.
func (d *Display) MoveWindowReq(id dsid.WindowID, pos gfx.Point, idevID dsid.IdevID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	w.MoveReq(pos, idevID)
	return nil
}

// ResizeWindowReq starts a resize drag on behalf of the client.
func (d *Display) ResizeWindowReq(id dsid.WindowID, rsz window.RszType, pos gfx.Point, idevID dsid.IdevID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	w.ResizeReq(rsz, pos, idevID)
	return nil
}

// GetWindowPos returns a window's current display position.
func (d *Display) GetWindowPos(id dsid.WindowID) (gfx.Point, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return gfx.Point{}, err
	}
	return w.GetPos(), nil
}

// GetWindowMaxRect returns the display's current maximization rectangle,
// failing if id doesn't resolve (the maximize protocol is always scoped
// to a window even though the rectangle itself is display-wide).
func (d *Display) GetWindowMaxRect(id dsid.WindowID) (gfx.Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.windowLocked(id); err != nil {
		return gfx.Rect{}, err
	}
	return d.maxRect, nil
}

// MaximizeWindow maximizes a window into the display's current max-rect.
func (d *Display) MaximizeWindow(id dsid.WindowID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	return w.Maximize(d.maxRect)
}

// UnmaximizeWindow restores a window's pre-maximize geometry.
func (d *Display) UnmaximizeWindow(id dsid.WindowID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	return w.Unmaximize()
}

// SetWindowCursor changes a window's client-selected cursor.
func (d *Display) SetWindowCursor(id dsid.WindowID, code cursor.Code) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	return w.SetCursor(code)
}

// SetWindowCaption replaces a window's caption and broadcasts the change.
func (d *Display) SetWindowCaption(id dsid.WindowID, s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	w.SetCaption(s)
	return nil
}

// WindowInfo snapshots one window's WM-visible properties.
func (d *Display) WindowInfo(id dsid.WindowID) (client.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return client.WindowInfo{}, err
	}
	return client.InfoOf(w), nil
}

// WindowList snapshots every window's WM-visible properties, in current
// Z-order (topmost first).
func (d *Display) WindowList() []client.WindowInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]client.WindowInfo, len(d.windows))
	for i, w := range d.windows {
		out[i] = client.InfoOf(w)
	}
	return out
}

// ActivateWindow implements the window-management "activate" operation:
// unlike window creation, idev must resolve to a seat or the call fails
// — there is no default-seat fallback (spec's wmops activate-window,
// matching the original source's dispwm_activate_window exactly).
func (d *Display) ActivateWindow(idev dsid.IdevID, id dsid.WindowID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	sid, ok := d.idevcfgs.ByIdev(idev)
	if !ok {
		return dserr.New(dserr.KindNotFound, "display.ActivateWindow")
	}
	s, ok := d.seats[sid]
	if !ok {
		return dserr.New(dserr.KindNotFound, "display.ActivateWindow")
	}
	return s.SetFocus(w)
}

// CloseWindow asks a window's owning client to close it, the same
// request Alt-F4 synthesizes. The original source leaves this operation
// an unimplemented stub; this supplements it with a real close request.
func (d *Display) CloseWindow(id dsid.WindowID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.windowLocked(id)
	if err != nil {
		return err
	}
	w.PostCloseEvent()
	return nil
}

// WindowGC hands off a window's memory GC for the GC tunnel (spec §6):
// each call through the returned gfx.GC acquires the display lock for
// the duration of that one call, rather than for the lifetime of the
// handle, since the tunnel is an external, long-lived connection the
// display does not otherwise track.
func (d *Display) WindowGC(id dsid.WindowID) (gfx.GC, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.windowLocked(id); err != nil {
		return nil, err
	}
	return &windowGC{d: d, id: id}, nil
}

// windowGC wraps one window's memory GC so that every call acquires the
// display lock around a single delegated operation. This is the only
// place outside the exported Display methods that takes d.mu, and it
// never nests: a FillRect that triggers the window's invalidate
// callback re-enters paintLocked synchronously while the lock taken
// here is still held, never attempting to reacquire it (spec §9
// "Memory-GC back-channel").
type windowGC struct {
	d  *Display
	id dsid.WindowID
}

func (g *windowGC) real() (gfx.GC, error) {
	w, ok := g.d.windowsByID[g.id]
	if !ok {
		return nil, dserr.New(dserr.KindNotFound, "display.windowGC")
	}
	return w.GC(), nil
}

func (g *windowGC) SetClipRect(r *gfx.Rect) error {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	gc, err := g.real()
	if err != nil {
		return err
	}
	return gc.SetClipRect(r)
}

func (g *windowGC) SetColor(c gfx.Color) error {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	gc, err := g.real()
	if err != nil {
		return err
	}
	return gc.SetColor(c)
}

func (g *windowGC) FillRect(r gfx.Rect) error {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	gc, err := g.real()
	if err != nil {
		return err
	}
	return gc.FillRect(r)
}

func (g *windowGC) BitmapCreate(params gfx.BitmapParams, alloc *gfx.BitmapAlloc) (gfx.Bitmap, error) {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	gc, err := g.real()
	if err != nil {
		return nil, err
	}
	return gc.BitmapCreate(params, alloc)
}

func (g *windowGC) BitmapDestroy(b gfx.Bitmap) error {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	gc, err := g.real()
	if err != nil {
		return err
	}
	return gc.BitmapDestroy(b)
}

func (g *windowGC) BitmapRender(b gfx.Bitmap, srcRect gfx.Rect, offset gfx.Point) error {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	gc, err := g.real()
	if err != nil {
		return err
	}
	return gc.BitmapRender(b, srcRect, offset)
}

func (g *windowGC) BitmapGetAlloc(b gfx.Bitmap) (gfx.BitmapAlloc, error) {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	gc, err := g.real()
	if err != nil {
		return gfx.BitmapAlloc{}, err
	}
	return gc.BitmapGetAlloc(b)
}

// CreateSeat creates a new seat with a unique name.
func (d *Display) CreateSeat(name string) (*seat.Seat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sid := range d.seatOrder {
		if d.seats[sid].Name == name {
			return nil, dserr.New(dserr.KindExists, "display.CreateSeat")
		}
	}
	d.nextSeatID++
	id := d.nextSeatID
	s := seat.New(id, name, d.seatHooks())
	d.seats[id] = s
	d.seatOrder = append(d.seatOrder, id)
	d.broadcastSeatAddedLocked(id, name)
	return s, nil
}

// DeleteSeat destroys a seat, failing with KindBusy if it's the last
// remaining one (spec §7).
func (d *Display) DeleteSeat(id dsid.SeatID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.seats[id]
	if !ok {
		return dserr.New(dserr.KindNotFound, "display.DeleteSeat")
	}
	if len(d.seatOrder) <= 1 {
		return dserr.New(dserr.KindBusy, "display.DeleteSeat")
	}
	s.Destroy()
	delete(d.seats, id)
	if i := slices.Index(d.seatOrder, id); i >= 0 {
		d.seatOrder = slices.Delete(d.seatOrder, i, i+1)
	}
	d.broadcastSeatRemovedLocked(id, s.Name)
	return nil
}

// SeatList lists every seat in creation order.
func (d *Display) SeatList() []SeatInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]SeatInfo, len(d.seatOrder))
	for i, sid := range d.seatOrder {
		out[i] = SeatInfo{ID: sid, Name: d.seats[sid].Name}
	}
	return out
}

// SeatInfoByID snapshots one seat's configuration-visible properties.
func (d *Display) SeatInfoByID(id dsid.SeatID) (SeatInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.seats[id]
	if !ok {
		return SeatInfo{}, dserr.New(dserr.KindNotFound, "display.SeatInfoByID")
	}
	return SeatInfo{ID: s.ID, Name: s.Name}, nil
}

// AssignIdev binds an input device to a seat.
func (d *Display) AssignIdev(seatID dsid.SeatID, idev dsid.IdevID, svcName string) (*idevcfg.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.seats[seatID]
	if !ok {
		return nil, dserr.New(dserr.KindNotFound, "display.AssignIdev")
	}
	return s.AddIdevCfg(idev, svcName), nil
}

// UnassignIdev removes a previously assigned device binding.
func (d *Display) UnassignIdev(id dsid.EntryID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.idevcfgs.Unassign(id)
}

// UnassignIdevByDevice removes idev's binding from whichever seat it is
// currently assigned to, display-wide (spec §7 unassign-device; grounded
// on cfgops.c's dispc_dev_unassign, which scans every idevcfg entry by
// device id rather than taking an entry id or seat id directly).
func (d *Display) UnassignIdevByDevice(idev dsid.IdevID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.idevcfgs.All() {
		if e.Idev == idev {
			d.idevcfgs.Unassign(e.ID)
			return nil
		}
	}
	return dserr.New(dserr.KindNotFound, "display.UnassignIdevByDevice")
}

// SeatIdevs lists every input device currently bound to a seat.
func (d *Display) SeatIdevs(seatID dsid.SeatID) ([]*idevcfg.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.seats[seatID]
	if !ok {
		return nil, dserr.New(dserr.KindNotFound, "display.SeatIdevs")
	}
	return s.IdevCfgs(), nil
}

// AddClient registers a new drawing-protocol endpoint. pending is
// invoked once per empty-to-nonempty transition of its event queue.
func (d *Display) AddClient(id dsid.ClientID, pending func()) *client.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := client.New(id, pending)
	d.clients[id] = c
	return c
}

// RemoveClient tears down every window a client owns (spec §7 "client
// disconnect is not an error") and unregisters it.
func (d *Display) RemoveClient(id dsid.ClientID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.clients[id]
	if !ok {
		return
	}
	for _, wid := range c.Destroy() {
		if w, ok := d.windowsByID[wid]; ok {
			d.afterWindowDestroyedLocked(w)
		}
	}
	delete(d.clients, id)
	_ = d.paintLocked(nil)
}

// AddWMClient registers a new window-management endpoint.
func (d *Display) AddWMClient(id dsid.ClientID, pending func()) *client.WMClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	wm := client.NewWM(id, pending)
	d.wmClients[id] = wm
	return wm
}

// RemoveWMClient unregisters a window-management endpoint.
func (d *Display) RemoveWMClient(id dsid.ClientID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.wmClients, id)
}

// AddCfgClient registers a new configuration endpoint.
func (d *Display) AddCfgClient(id dsid.ClientID, pending func()) *client.CfgClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg := client.NewCfg(id, pending)
	d.cfgClients[id] = cfg
	return cfg
}

// RemoveCfgClient unregisters a configuration endpoint.
func (d *Display) RemoveCfgClient(id dsid.ClientID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cfgClients, id)
}

// PostKbd implements ievent.Sink, routing a raw keyboard event to the
// seat its device is bound to. Events from an unbound device are
// dropped. Pump.Run calls this with no locking of its own, so it must
// take the display lock itself.
func (d *Display) PostKbd(e ievent.KbdEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sid, ok := d.idevcfgs.ByIdev(e.Idev)
	if !ok {
		return
	}
	if s, ok := d.seats[sid]; ok {
		s.PostKbdEvent(e)
	}
}

// PostPtd implements ievent.Sink, routing a raw pointer event to the
// seat its device is bound to.
func (d *Display) PostPtd(e ievent.PtdEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sid, ok := d.idevcfgs.ByIdev(e.Idev)
	if !ok {
		return
	}
	if s, ok := d.seats[sid]; ok {
		s.PostPtdEvent(e)
	}
}

// SaveCfg persists the current seat roster and idevcfg bindings.
func (d *Display) SaveCfg(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var tree config.Tree
	for _, sid := range d.seatOrder {
		s := d.seats[sid]
		tree.Seats = append(tree.Seats, config.SeatEntry{ID: sid, Name: s.Name})
		for _, e := range s.IdevCfgs() {
			tree.IdevCfgs = append(tree.IdevCfgs, config.IdevCfgEntry{SvcName: e.SvcName, SeatID: sid})
		}
	}
	return config.Save(path, tree)
}

// LoadCfg loads the persisted seat roster and idevcfg bindings, creating
// a seat per entry and binding devices resolved through resolveIdev (the
// name-service lookup from a device's persisted svc-name to its current
// id — an external collaborator, out of scope per spec §1). An idevcfg
// entry for a device that doesn't currently resolve is silently dropped;
// any other error (a duplicate seat id, or an idevcfg entry naming a
// seat id that was never loaded) destroys every seat loaded so far and
// fails, leaving the display exactly as it was before the call.
func (d *Display) LoadCfg(path string, resolveIdev func(svcName string) (dsid.IdevID, bool)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tree, err := config.Load(path)
	if err != nil {
		return err
	}

	prevNextSeatID := d.nextSeatID
	var created []dsid.SeatID
	var bound []dsid.EntryID
	rollback := func() {
		for _, eid := range bound {
			d.idevcfgs.Unassign(eid)
		}
		d.nextSeatID = prevNextSeatID
		for _, sid := range created {
			if s, ok := d.seats[sid]; ok {
				s.Destroy()
				delete(d.seats, sid)
				if i := slices.Index(d.seatOrder, sid); i >= 0 {
					d.seatOrder = slices.Delete(d.seatOrder, i, i+1)
				}
			}
		}
	}

	for _, se := range tree.Seats {
		if _, exists := d.seats[se.ID]; exists {
			rollback()
			return dserr.New(dserr.KindExists, "display.LoadCfg")
		}
		s := seat.New(se.ID, se.Name, d.seatHooks())
		d.seats[se.ID] = s
		d.seatOrder = append(d.seatOrder, se.ID)
		if se.ID > d.nextSeatID {
			d.nextSeatID = se.ID
		}
		created = append(created, se.ID)
	}

	for _, ie := range tree.IdevCfgs {
		s, ok := d.seats[ie.SeatID]
		if !ok {
			rollback()
			return dserr.New(dserr.KindInvalid, "display.LoadCfg")
		}
		idev, ok := resolveIdev(ie.SvcName)
		if !ok {
			d.log.Debug().Str("svc", ie.SvcName).Msg("display: LoadCfg dropping idevcfg for disconnected device")
			continue
		}
		bound = append(bound, s.AddIdevCfg(idev, ie.SvcName).ID)
	}
	return nil
}
