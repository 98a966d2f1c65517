// Package dsid defines the identifier types shared across the
// compositor's object model, so that window, seat, client, and idevcfg
// can reference each other by id without import cycles.
package dsid

// WindowID uniquely identifies a window, display-wide, monotonically.
type WindowID uint64

// SeatID uniquely identifies a seat.
type SeatID uint64

// ClientID identifies a drawing/WM/config endpoint's connection.
type ClientID uint64

// IdevID is the opaque service id of an input device, assigned by the
// external raw input service (out of scope per spec §1).
type IdevID uint64

// EntryID uniquely identifies an IdevCfg binding entry.
type EntryID uint64
