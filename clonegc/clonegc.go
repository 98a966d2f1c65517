// Package clonegc implements the multi-output fan-out graphic context:
// every draw call and every bitmap creation is replayed verbatim across
// N physical output GCs, and the clone maintains the (output ×
// logical-bitmap) matrix needed to keep a newly attached output coherent
// with everything drawn before it joined.
package clonegc

import (
	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/gfx"
)

// CloneGC fans draws out to a set of output GCs and implements gfx.GC
// itself, so a Display can treat "the composite target" uniformly
// whether it has one output or many.
type CloneGC struct {
	outputs []gfx.GC
	bitmaps []*cloneBitmap
}

// New creates a CloneGC with no outputs. Outputs are attached with
// AddOutput as they become available (spec §4.1 add-output).
func New() *CloneGC {
	return &CloneGC{}
}

// Outputs returns the number of attached outputs.
func (c *CloneGC) Outputs() int { return len(c.outputs) }

// AddOutput attaches a new output GC. Every existing logical bitmap is
// retroactively mirrored onto it: a caller-supplied allocation is shared
// (aliased) across outputs, otherwise the new output gets its own copy
// seeded from the canonical allocation's current content.
func (c *CloneGC) AddOutput(gc gfx.GC) error {
	for i, b := range c.bitmaps {
		var allocArg *gfx.BitmapAlloc
		if b.aliased {
			allocArg = &b.alloc
		}
		ob, err := gc.BitmapCreate(b.params, allocArg)
		if err != nil {
			for _, prev := range c.bitmaps[:i] {
				last := len(prev.perOutput) - 1
				_ = gc.BitmapDestroy(prev.perOutput[last])
				prev.perOutput = prev.perOutput[:last]
			}
			return dserr.Wrap(dserr.KindOutOfMemory, "clonegc.AddOutput", err)
		}
		if !b.aliased {
			if alloc, err := ob.GetAlloc(); err == nil {
				copy(alloc.Pixels, b.alloc.Pixels)
			}
		}
		b.perOutput = append(b.perOutput, ob)
	}
	c.outputs = append(c.outputs, gc)
	return nil
}

// SetClipRect replays on every output, stopping at the first error.
func (c *CloneGC) SetClipRect(r *gfx.Rect) error {
	for _, o := range c.outputs {
		if err := o.SetClipRect(r); err != nil {
			return err
		}
	}
	return nil
}

// SetColor replays on every output, stopping at the first error.
func (c *CloneGC) SetColor(col gfx.Color) error {
	for _, o := range c.outputs {
		if err := o.SetColor(col); err != nil {
			return err
		}
	}
	return nil
}

// FillRect replays on every output, stopping at the first error.
func (c *CloneGC) FillRect(r gfx.Rect) error {
	for _, o := range c.outputs {
		if err := o.FillRect(r); err != nil {
			return err
		}
	}
	return nil
}

// cloneBitmap is one logical bitmap: its creation parameters plus the
// cross-product of per-output backing bitmaps (invariant 9).
type cloneBitmap struct {
	owner     *CloneGC
	params    gfx.BitmapParams
	alloc     gfx.BitmapAlloc
	aliased   bool // true iff the caller supplied the allocation
	perOutput []gfx.Bitmap
}

func (b *cloneBitmap) Params() gfx.BitmapParams { return b.params }

func (b *cloneBitmap) GetAlloc() (gfx.BitmapAlloc, error) {
	return b.alloc, nil
}

// BitmapCreate creates one backing bitmap per output. If alloc is
// supplied, every output shares it (aliased) and GetAlloc returns that
// pointer; otherwise the first output's allocation is canonicalized as
// the one returned, and later outputs keep their own independent copy.
func (c *CloneGC) BitmapCreate(params gfx.BitmapParams, alloc *gfx.BitmapAlloc) (gfx.Bitmap, error) {
	cb := &cloneBitmap{owner: c, params: params}
	if alloc != nil {
		cb.aliased = true
		cb.alloc = *alloc
	}
	for i, o := range c.outputs {
		var allocArg *gfx.BitmapAlloc
		if cb.aliased {
			allocArg = &cb.alloc
		}
		ob, err := o.BitmapCreate(params, allocArg)
		if err != nil {
			// unwind bitmaps already created on earlier outputs
			for j := 0; j < i; j++ {
				_ = c.outputs[j].BitmapDestroy(cb.perOutput[j])
			}
			return nil, dserr.Wrap(dserr.KindOutOfMemory, "clonegc.BitmapCreate", err)
		}
		cb.perOutput = append(cb.perOutput, ob)
		if !cb.aliased && i == 0 {
			if a, err := ob.GetAlloc(); err == nil {
				cb.alloc = a
			}
		}
	}
	c.bitmaps = append(c.bitmaps, cb)
	return cb, nil
}

// BitmapDestroy replays destruction on every output and drops the
// logical bitmap from the clone's bookkeeping.
func (c *CloneGC) BitmapDestroy(bmp gfx.Bitmap) error {
	cb, ok := bmp.(*cloneBitmap)
	if !ok {
		return dserr.New(dserr.KindInvalid, "clonegc.BitmapDestroy")
	}
	var firstErr error
	for i, o := range c.outputs {
		if i < len(cb.perOutput) {
			if err := o.BitmapDestroy(cb.perOutput[i]); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	for i, b := range c.bitmaps {
		if b == cb {
			c.bitmaps = append(c.bitmaps[:i], c.bitmaps[i+1:]...)
			break
		}
	}
	return firstErr
}

// BitmapRender replays the render request on every output's backing
// bitmap, stopping at the first error.
func (c *CloneGC) BitmapRender(bmp gfx.Bitmap, srcRect gfx.Rect, offset gfx.Point) error {
	cb, ok := bmp.(*cloneBitmap)
	if !ok {
		return dserr.New(dserr.KindInvalid, "clonegc.BitmapRender")
	}
	for i, o := range c.outputs {
		if err := o.BitmapRender(cb.perOutput[i], srcRect, offset); err != nil {
			return err
		}
	}
	return nil
}

// BitmapGetAlloc returns the logical (canonical) allocation for bmp.
func (c *CloneGC) BitmapGetAlloc(bmp gfx.Bitmap) (gfx.BitmapAlloc, error) {
	cb, ok := bmp.(*cloneBitmap)
	if !ok {
		return gfx.BitmapAlloc{}, dserr.New(dserr.KindInvalid, "clonegc.BitmapGetAlloc")
	}
	return cb.alloc, nil
}
