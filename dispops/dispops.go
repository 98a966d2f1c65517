// Package dispops implements the per-client display protocol façade
// (spec §6 "display protocol"): the thin wrapper a drawing client's
// connection handler calls into, scoping every window lookup to
// windows the calling client actually owns (grounded on dsops.c's
// ds_client_find_window, which the bare Display.WindowGC/MoveWindow/etc.
// methods do not enforce on their own — those look up display-wide by
// id).
package dispops

import (
	"github.com/kestrelos/dispd/client"
	"github.com/kestrelos/dispd/cursor"
	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/window"
)

// Backend is the subset of *display.Display a Conn needs. Declaring it
// as an interface keeps this package's tests free of a real Display.
type Backend interface {
	CreateWindow(clientID dsid.ClientID, params window.Params) (*window.Window, error)
	DestroyWindow(id dsid.WindowID) error
	MoveWindowReq(id dsid.WindowID, pos gfx.Point, idevID dsid.IdevID) error
	MoveWindow(id dsid.WindowID, dpos gfx.Point) error
	GetWindowPos(id dsid.WindowID) (gfx.Point, error)
	GetWindowMaxRect(id dsid.WindowID) (gfx.Rect, error)
	ResizeWindowReq(id dsid.WindowID, rsz window.RszType, pos gfx.Point, idevID dsid.IdevID) error
	ResizeWindow(id dsid.WindowID, offset gfx.Point, nrect gfx.Rect) error
	MaximizeWindow(id dsid.WindowID) error
	UnmaximizeWindow(id dsid.WindowID) error
	SetWindowCursor(id dsid.WindowID, code cursor.Code) error
	WindowGC(id dsid.WindowID) (gfx.GC, error)
	Rect() gfx.Rect
}

// Info is the display-wide information get-info returns.
type Info struct {
	Rect gfx.Rect
}

// Conn is one drawing client's display-protocol connection: it owns a
// *client.Client (the window set and event queue the display already
// tracks) and restricts every operation below to windows found in that
// client's own Windows map, mirroring ds_client_find_window exactly.
type Conn struct {
	d      Backend
	client *client.Client
}

// New wraps backend for the drawing client c.
func New(backend Backend, c *client.Client) *Conn {
	return &Conn{d: backend, client: c}
}

// findOwn resolves id only if the connection's client owns it.
func (cn *Conn) findOwn(id dsid.WindowID) error {
	if _, ok := cn.client.Windows[id]; !ok {
		return dserr.New(dserr.KindNotFound, "dispops: window not owned by client")
	}
	return nil
}

// CreateWindow creates a window owned by this connection's client.
func (cn *Conn) CreateWindow(params window.Params) (*window.Window, error) {
	return cn.d.CreateWindow(cn.client.ID, params)
}

// DestroyWindow tears down a window this client owns.
func (cn *Conn) DestroyWindow(id dsid.WindowID) error {
	if err := cn.findOwn(id); err != nil {
		return err
	}
	return cn.d.DestroyWindow(id)
}

// MoveWindowReq starts a move drag on behalf of the idev identified by
// idevID.
func (cn *Conn) MoveWindowReq(id dsid.WindowID, pos gfx.Point, idevID dsid.IdevID) error {
	if err := cn.findOwn(id); err != nil {
		return err
	}
	return cn.d.MoveWindowReq(id, pos, idevID)
}

// MoveWindow repositions the window directly.
func (cn *Conn) MoveWindow(id dsid.WindowID, dpos gfx.Point) error {
	if err := cn.findOwn(id); err != nil {
		return err
	}
	return cn.d.MoveWindow(id, dpos)
}

// GetWindowPos returns the window's current display position.
func (cn *Conn) GetWindowPos(id dsid.WindowID) (gfx.Point, error) {
	if err := cn.findOwn(id); err != nil {
		return gfx.Point{}, err
	}
	return cn.d.GetWindowPos(id)
}

// GetWindowMaxRect returns the display's current maximization rectangle.
func (cn *Conn) GetWindowMaxRect(id dsid.WindowID) (gfx.Rect, error) {
	if err := cn.findOwn(id); err != nil {
		return gfx.Rect{}, err
	}
	return cn.d.GetWindowMaxRect(id)
}

// ResizeWindowReq starts a resize drag.
func (cn *Conn) ResizeWindowReq(id dsid.WindowID, rsz window.RszType, pos gfx.Point, idevID dsid.IdevID) error {
	if err := cn.findOwn(id); err != nil {
		return err
	}
	return cn.d.ResizeWindowReq(id, rsz, pos, idevID)
}

// ResizeWindow reallocates the window's backing bitmap directly.
func (cn *Conn) ResizeWindow(id dsid.WindowID, offset gfx.Point, nrect gfx.Rect) error {
	if err := cn.findOwn(id); err != nil {
		return err
	}
	return cn.d.ResizeWindow(id, offset, nrect)
}

// MaximizeWindow maximizes the window into the display's max-rect.
func (cn *Conn) MaximizeWindow(id dsid.WindowID) error {
	if err := cn.findOwn(id); err != nil {
		return err
	}
	return cn.d.MaximizeWindow(id)
}

// UnmaximizeWindow restores pre-maximize geometry.
func (cn *Conn) UnmaximizeWindow(id dsid.WindowID) error {
	if err := cn.findOwn(id); err != nil {
		return err
	}
	return cn.d.UnmaximizeWindow(id)
}

// SetWindowCursor changes the window's client-selected cursor.
func (cn *Conn) SetWindowCursor(id dsid.WindowID, code cursor.Code) error {
	if err := cn.findOwn(id); err != nil {
		return err
	}
	return cn.d.SetWindowCursor(id, code)
}

// WindowGC hands off the window's memory GC for the GC tunnel (spec §6).
func (cn *Conn) WindowGC(id dsid.WindowID) (gfx.GC, error) {
	if err := cn.findOwn(id); err != nil {
		return nil, err
	}
	return cn.d.WindowGC(id)
}

// GetEvent pops exactly one event scoped to one of this client's
// windows, the get-event op's shape (grounded on dsops.c's
// ds_display_get_event which delegates to ds_client_get_event).
func (cn *Conn) GetEvent() (client.WindowEvent, bool) {
	return cn.client.Queue.Pop()
}

// GetInfo returns display-wide information (spec §6 get-info).
func (cn *Conn) GetInfo() Info {
	return Info{Rect: cn.d.Rect()}
}
