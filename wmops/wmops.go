// Package wmops implements the window-management protocol façade (spec
// §6 "window management protocol"), grounded on wmops.c: a window
// manager lists window ids, fetches one window's full info on demand,
// activates a window through an input device, and (as a supplement —
// the original leaves this an unimplemented stub) asks a window to
// close.
package wmops

import (
	"github.com/kestrelos/dispd/client"
	"github.com/kestrelos/dispd/dsid"
)

// Backend is the subset of *display.Display a Conn needs.
type Backend interface {
	WindowList() []client.WindowInfo
	WindowInfo(id dsid.WindowID) (client.WindowInfo, error)
	ActivateWindow(idev dsid.IdevID, id dsid.WindowID) error
	CloseWindow(id dsid.WindowID) error
}

// Conn is one window manager's connection: it owns a *client.WMClient
// (the lifecycle event queue the display already fans events into) and
// delegates every other operation straight to the backend, since window
// management is not client-scoped the way drawing is (any WM client may
// query or act on any window).
type Conn struct {
	d  Backend
	wm *client.WMClient
}

// New wraps backend for the window-manager client wm.
func New(backend Backend, wm *client.WMClient) *Conn {
	return &Conn{d: backend, wm: wm}
}

// ListWindowIDs returns every window id in current Z-order, the bare
// id array get_window_list returns (grounded on wmops.c's
// dispwm_get_window_list, which collects wnd->id only — a caller wanting
// more follows up with GetWindowInfo per id, matching the two-call
// protocol shape instead of Display.WindowList's richer one-call
// snapshot).
func (cn *Conn) ListWindowIDs() []dsid.WindowID {
	all := cn.d.WindowList()
	ids := make([]dsid.WindowID, len(all))
	for i, w := range all {
		ids[i] = w.ID
	}
	return ids
}

// GetWindowInfo snapshots one window's WM-visible properties.
func (cn *Conn) GetWindowInfo(id dsid.WindowID) (client.WindowInfo, error) {
	return cn.d.WindowInfo(id)
}

// ActivateWindow focuses a window on behalf of the seat idev resolves
// to, failing if idev doesn't resolve to any seat (no default-seat
// fallback, unlike window creation).
func (cn *Conn) ActivateWindow(idev dsid.IdevID, id dsid.WindowID) error {
	return cn.d.ActivateWindow(idev, id)
}

// CloseWindow asks a window's owning client to close it. The original
// source leaves close_window an unimplemented stub; this supplements it
// with Display.CloseWindow's real close request.
func (cn *Conn) CloseWindow(id dsid.WindowID) error {
	return cn.d.CloseWindow(id)
}

// GetEvent pops one window lifecycle event destined for this window
// manager (window added/removed/changed).
func (cn *Conn) GetEvent() (client.WMEvent, bool) {
	return cn.wm.Queue.Pop()
}
