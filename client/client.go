// Package client implements the three protocol endpoint kinds a display
// talks to — a drawing Client (owns windows), a WMClient (observes every
// window's lifecycle and focus/caption changes), and a CfgClient
// (observes seat lifecycle) — each built on the same generic outbound
// event Queue (spec §4.6).
package client

import (
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/ievent"
	"github.com/kestrelos/dispd/window"
)

// Queue is a FIFO of outbound events with a pending callback fired on
// the empty-to-nonempty transition, and predicate-based purging (used on
// window destroy to drop that window's now-dangling pending events).
type Queue[T any] struct {
	items   []T
	pending func()
}

// NewQueue creates an empty queue. pending may be nil.
func NewQueue[T any](pending func()) *Queue[T] {
	return &Queue[T]{pending: pending}
}

// Push enqueues item, firing pending if the queue was empty.
func (q *Queue[T]) Push(item T) {
	wasEmpty := len(q.items) == 0
	q.items = append(q.items, item)
	if wasEmpty && q.pending != nil {
		q.pending()
	}
}

// Pop dequeues the oldest item, if any.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len reports how many items are queued.
func (q *Queue[T]) Len() int { return len(q.items) }

// Purge removes every queued item for which keep returns false.
func (q *Queue[T]) Purge(keep func(T) bool) {
	out := q.items[:0]
	for _, it := range q.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	q.items = out
}

// PurgeAll empties the queue, e.g. on client teardown.
func (q *Queue[T]) PurgeAll() { q.items = nil }

// WindowEventKind discriminates the window events a Client receives.
type WindowEventKind int

const (
	EvClose WindowEventKind = iota
	EvKbd
	EvPos
	EvFocus
	EvUnfocus
	EvResize
)

// WindowEvent is one outbound event destined for a drawing client, for
// one of its windows. Exactly the fields matching Kind are meaningful.
type WindowEvent struct {
	Kind     WindowEventKind
	WindowID dsid.WindowID

	Kbd    ievent.KbdEvent
	Pos    ievent.PosEvent
	NFocus int
	Rect   gfx.Rect
}

// Client is a drawing endpoint: it owns a set of windows and receives
// their outbound events on a single queue (spec §2, "Client").
type Client struct {
	ID      dsid.ClientID
	Windows map[dsid.WindowID]*window.Window
	Queue   *Queue[WindowEvent]
}

// New creates an empty client. pending is invoked once per
// empty-to-nonempty transition of its event queue.
func New(id dsid.ClientID, pending func()) *Client {
	return &Client{
		ID:      id,
		Windows: make(map[dsid.WindowID]*window.Window),
		Queue:   NewQueue[WindowEvent](pending),
	}
}

// AddWindow enlists a window this client owns.
func (c *Client) AddWindow(w *window.Window) { c.Windows[w.ID] = w }

// RemoveWindow delists a window (its own teardown is the caller's
// responsibility) and purges any of its events still queued.
func (c *Client) RemoveWindow(id dsid.WindowID) {
	delete(c.Windows, id)
	c.PurgeWindowEvents(id)
}

// PurgeWindowEvents drops every queued event for window id, used on
// window destroy so a torn-down window can't appear in a later dequeue
// (spec §4.6, §5 cancellation).
func (c *Client) PurgeWindowEvents(id dsid.WindowID) {
	c.Queue.Purge(func(e WindowEvent) bool { return e.WindowID != id })
}

// Destroy tears down every window this client owns and empties its
// queue, returning the destroyed window ids so the display can remove
// them from its own collections (Z-order list, idevcfg, focus/popup
// references) — the same division of labor window.Destroy uses for its
// own privately-owned state.
func (c *Client) Destroy() []dsid.WindowID {
	ids := make([]dsid.WindowID, 0, len(c.Windows))
	for id, w := range c.Windows {
		w.Destroy()
		ids = append(ids, id)
	}
	c.Windows = nil
	c.Queue.PurgeAll()
	return ids
}

// PostClose implements window.EventSink.
func (c *Client) PostClose(id dsid.WindowID) {
	c.Queue.Push(WindowEvent{Kind: EvClose, WindowID: id})
}

// PostKbd implements window.EventSink.
func (c *Client) PostKbd(id dsid.WindowID, e ievent.KbdEvent) {
	c.Queue.Push(WindowEvent{Kind: EvKbd, WindowID: id, Kbd: e})
}

// PostPos implements window.EventSink.
func (c *Client) PostPos(id dsid.WindowID, e ievent.PosEvent) {
	c.Queue.Push(WindowEvent{Kind: EvPos, WindowID: id, Pos: e})
}

// PostFocus implements window.EventSink.
func (c *Client) PostFocus(id dsid.WindowID, nfocus int) {
	c.Queue.Push(WindowEvent{Kind: EvFocus, WindowID: id, NFocus: nfocus})
}

// PostUnfocus implements window.EventSink.
func (c *Client) PostUnfocus(id dsid.WindowID, nfocus int) {
	c.Queue.Push(WindowEvent{Kind: EvUnfocus, WindowID: id, NFocus: nfocus})
}

// PostResize implements window.EventSink.
func (c *Client) PostResize(id dsid.WindowID, rect gfx.Rect) {
	c.Queue.Push(WindowEvent{Kind: EvResize, WindowID: id, Rect: rect})
}

// WMEventKind discriminates the window-lifecycle events a WMClient
// receives (spec §4.6).
type WMEventKind int

const (
	WMWindowAdded WMEventKind = iota
	WMWindowRemoved
	WMWindowChanged
)

// WindowInfo is a read-only snapshot of a window's WM-visible
// properties, supplementing the window-management protocol surface
// (spec §6) with a concrete get-info/list-windows payload.
type WindowInfo struct {
	ID         dsid.WindowID
	Caption    string
	Flags      window.Flags
	FocusCount int
	Rect       gfx.Rect
	DPos       gfx.Point
}

// InfoOf snapshots w's WM-visible properties.
func InfoOf(w *window.Window) WindowInfo {
	return WindowInfo{
		ID:         w.ID,
		Caption:    w.Caption,
		Flags:      w.Flags,
		FocusCount: w.FocusCount,
		Rect:       w.Rect,
		DPos:       w.DPos,
	}
}

// WMEvent is one outbound event destined for a window-manager endpoint.
type WMEvent struct {
	Kind WMEventKind
	Info WindowInfo
}

// WMClient is a window-manager endpoint: it owns no windows but observes
// every window's lifecycle and focus/caption changes (spec §2,
// "WMClient").
type WMClient struct {
	ID    dsid.ClientID
	Queue *Queue[WMEvent]
}

// NewWM creates an empty WM client.
func NewWM(id dsid.ClientID, pending func()) *WMClient {
	return &WMClient{ID: id, Queue: NewQueue[WMEvent](pending)}
}

func (c *WMClient) WindowAdded(w *window.Window) {
	c.Queue.Push(WMEvent{Kind: WMWindowAdded, Info: InfoOf(w)})
}

func (c *WMClient) WindowRemoved(w *window.Window) {
	c.Queue.Push(WMEvent{Kind: WMWindowRemoved, Info: InfoOf(w)})
}

func (c *WMClient) WindowChanged(w *window.Window) {
	c.Queue.Push(WMEvent{Kind: WMWindowChanged, Info: InfoOf(w)})
}

// CfgEventKind discriminates the seat-lifecycle events a CfgClient
// receives (spec §4.6).
type CfgEventKind int

const (
	CfgSeatAdded CfgEventKind = iota
	CfgSeatRemoved
)

// CfgEvent is one outbound event destined for a configuration endpoint.
type CfgEvent struct {
	Kind CfgEventKind
	Seat dsid.SeatID
	Name string
}

// CfgClient is a configuration endpoint: it observes seat lifecycle
// (spec §2, "CfgClient").
type CfgClient struct {
	ID    dsid.ClientID
	Queue *Queue[CfgEvent]
}

// NewCfg creates an empty configuration client.
func NewCfg(id dsid.ClientID, pending func()) *CfgClient {
	return &CfgClient{ID: id, Queue: NewQueue[CfgEvent](pending)}
}

func (c *CfgClient) SeatAdded(seat dsid.SeatID, name string) {
	c.Queue.Push(CfgEvent{Kind: CfgSeatAdded, Seat: seat, Name: name})
}

func (c *CfgClient) SeatRemoved(seat dsid.SeatID, name string) {
	c.Queue.Push(CfgEvent{Kind: CfgSeatRemoved, Seat: seat, Name: name})
}
