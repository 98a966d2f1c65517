// Package cfgops implements the configuration protocol façade (spec §7
// "configuration protocol"), grounded on cfgops.c: list/create/delete
// seats, assign/unassign input devices, list a seat's assigned devices,
// and drain seat-lifecycle events. Every mutating op here also persists
// the updated roster, matching cfgops.c calling ds_display_save_cfg
// after every seat_create/seat_delete/dev_assign/dev_unassign.
package cfgops

import (
	"github.com/kestrelos/dispd/client"
	"github.com/kestrelos/dispd/display"
	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/idevcfg"
	"github.com/kestrelos/dispd/seat"
)

// Backend is the subset of *display.Display a Conn needs.
type Backend interface {
	SeatList() []display.SeatInfo
	SeatInfoByID(id dsid.SeatID) (display.SeatInfo, error)
	CreateSeat(name string) (*seat.Seat, error)
	DeleteSeat(id dsid.SeatID) error
	AssignIdev(seatID dsid.SeatID, idev dsid.IdevID, svcName string) (*idevcfg.Entry, error)
	UnassignIdevByDevice(idev dsid.IdevID) error
	SeatIdevs(seatID dsid.SeatID) ([]*idevcfg.Entry, error)
	SaveCfg(path string) error
}

// Conn is one configuration client's connection: it owns a
// *client.CfgClient (the seat-lifecycle event queue the display already
// fans events into). Configuration, like window management, is not
// scoped to the calling client.
type Conn struct {
	d       Backend
	cfg     *client.CfgClient
	cfgPath string
	nameOf  func(dsid.IdevID) (string, bool)
}

// New wraps backend for the configuration client cfg. cfgPath is where
// every mutation persists the updated roster (spec §7). nameOf resolves
// an assigned device's persisted service name from its runtime id — an
// external name-service lookup, out of scope per spec §1, the reverse
// of LoadCfg's resolveIdev.
func New(backend Backend, cfg *client.CfgClient, cfgPath string, nameOf func(dsid.IdevID) (string, bool)) *Conn {
	return &Conn{d: backend, cfg: cfg, cfgPath: cfgPath, nameOf: nameOf}
}

// GetSeatList lists every seat's id.
func (cn *Conn) GetSeatList() []dsid.SeatID {
	all := cn.d.SeatList()
	ids := make([]dsid.SeatID, len(all))
	for i, s := range all {
		ids[i] = s.ID
	}
	return ids
}

// GetSeatInfo snapshots one seat's configuration-visible properties.
func (cn *Conn) GetSeatInfo(id dsid.SeatID) (display.SeatInfo, error) {
	return cn.d.SeatInfoByID(id)
}

// CreateSeat creates a new seat and persists the updated roster.
func (cn *Conn) CreateSeat(name string) (dsid.SeatID, error) {
	s, err := cn.d.CreateSeat(name)
	if err != nil {
		return 0, err
	}
	_ = cn.d.SaveCfg(cn.cfgPath)
	return s.ID, nil
}

// DeleteSeat destroys a seat and persists the updated roster.
func (cn *Conn) DeleteSeat(id dsid.SeatID) error {
	if err := cn.d.DeleteSeat(id); err != nil {
		return err
	}
	_ = cn.d.SaveCfg(cn.cfgPath)
	return nil
}

// AssignIdev binds an input device, identified by svcID, to a seat, and
// persists the updated bindings.
func (cn *Conn) AssignIdev(svcID dsid.IdevID, seatID dsid.SeatID) error {
	name, ok := cn.nameOf(svcID)
	if !ok {
		return dserr.New(dserr.KindNotFound, "cfgops.AssignIdev")
	}
	if _, err := cn.d.AssignIdev(seatID, svcID, name); err != nil {
		return err
	}
	_ = cn.d.SaveCfg(cn.cfgPath)
	return nil
}

// UnassignIdev removes svcID's binding from whichever seat it's
// currently assigned to, and persists the updated bindings. Mirrors
// cfgops.c's dispc_dev_unassign, which takes only a device id — no seat
// id — since the binding table is scanned display-wide.
func (cn *Conn) UnassignIdev(svcID dsid.IdevID) error {
	if err := cn.d.UnassignIdevByDevice(svcID); err != nil {
		return err
	}
	_ = cn.d.SaveCfg(cn.cfgPath)
	return nil
}

// GetAssignedDevList lists the service ids of every input device
// currently bound to a seat.
func (cn *Conn) GetAssignedDevList(seatID dsid.SeatID) ([]dsid.IdevID, error) {
	entries, err := cn.d.SeatIdevs(seatID)
	if err != nil {
		return nil, err
	}
	out := make([]dsid.IdevID, len(entries))
	for i, e := range entries {
		out[i] = e.Idev
	}
	return out, nil
}

// GetEvent pops one seat lifecycle event destined for this
// configuration client.
func (cn *Conn) GetEvent() (client.CfgEvent, bool) {
	return cn.cfg.Queue.Pop()
}
