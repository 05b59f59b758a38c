// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import "sync/atomic"

// Calls counts engine calls in flight through a Handle. A native callback
// that arrives while Active may have been fired synchronously from inside one
// of those calls, on the goroutine that is blocked waiting for it to return.
type Calls struct {
	n atomic.Int32
}

// Active reports whether at least one engine call has not returned yet.
// A nil Calls is never active.
func (c *Calls) Active() bool {
	return c != nil && c.n.Load() > 0
}

func (c *Calls) enter() { c.n.Add(1) }
func (c *Calls) exit()  { c.n.Add(-1) }
