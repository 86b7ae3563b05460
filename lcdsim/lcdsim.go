// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates a DOGS104 panel behind its SPI connection.
//
// Dev decodes the frames written by the dogs104 driver and keeps the display
// RAM, so the whole panel can run without hardware, on a terminal or into
// PNG snapshots. It also stands in for the backlight PWM.
//
// Only the instructions used by the dogs104 package are modeled.
package lcdsim

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/lcdclock/dimmer"
	"github.com/GermanBionicSystems/lcdclock/dogs104"
	"periph.io/x/conn/v3"
)

// ErrBadFrame is returned by Tx for a transfer that is not a whole number
// of frames or carries an unknown start byte.
var ErrBadFrame = errors.New("lcdsim: malformed frame")

const (
	ddramSize = 0x80
	rowStride = 0x20
	blank     = ' '
)

// Dev is an emulated SSD1803A in 4 line mode.
type Dev struct {
	mu sync.Mutex

	rows, cols int
	ddram      [ddramSize]byte
	ac         byte
	re, is     bool
	lines      int
	on         bool
	cursor     bool
	blink      bool
	contrast   byte
	backlight  uint32
	frames     []dogs104.Frame
}

// New returns a powered off panel with rows x cols visible characters.
func New(rows, cols int) *Dev {
	d := &Dev{rows: rows, cols: cols, lines: 2}
	d.clear()
	return d
}

// String implements conn.Conn.
func (d *Dev) String() string {
	return fmt.Sprintf("lcdsim.Dev{%dx%d}", d.rows, d.cols)
}

// Duplex implements conn.Conn.
func (d *Dev) Duplex() conn.Duplex {
	return conn.Half
}

// Tx implements conn.Conn. w holds one or more frames; r must be empty.
func (d *Dev) Tx(w, r []byte) error {
	if len(r) != 0 {
		return fmt.Errorf("%w: read not supported", ErrBadFrame)
	}
	if len(w) == 0 || len(w)%3 != 0 {
		return fmt.Errorf("%w: %d bytes", ErrBadFrame, len(w))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < len(w); i += 3 {
		var f dogs104.Frame
		copy(f[:], w[i:i+3])
		switch f.Mode() {
		case dogs104.ModeInstruction:
			d.instruction(f.Byte())
		case dogs104.ModeData:
			d.data(f.Byte())
		default:
			return fmt.Errorf("%w: start byte 0x%02x", ErrBadFrame, f[0])
		}
		d.frames = append(d.frames, f)
	}
	return nil
}

func (d *Dev) clear() {
	for i := range d.ddram {
		d.ddram[i] = blank
	}
	d.ac = 0
}

func (d *Dev) instruction(b byte) {
	switch {
	case b&0x80 != 0:
		d.ac = b & 0x7f
	case b&0xe0 == 0x20:
		// Function set: RE in bit 1, IS in bit 0 while RE=0.
		d.re = b&0x02 != 0
		if !d.re {
			d.is = b&0x01 != 0
		}
	case b&0xc0 == 0x40:
		if d.re || !d.is {
			return
		}
		switch b & 0xf0 {
		case 0x50:
			d.contrast = d.contrast&0x0f | (b&0x03)<<4
		case 0x70:
			d.contrast = d.contrast&0x30 | b&0x0f
		}
	case b&0xf0 == 0x10:
		if d.re || d.is || b&0x08 != 0 {
			return
		}
		if b&0x04 != 0 {
			d.ac = (d.ac + 1) & 0x7f
		} else {
			d.ac = (d.ac - 1) & 0x7f
		}
	case b&0xf8 == 0x08:
		if d.re {
			// Extended function set: NW selects 3/4 line mode.
			if b&0x01 != 0 {
				d.lines = 4
			}
			return
		}
		d.on = b&0x04 != 0
		d.cursor = b&0x02 != 0
		d.blink = b&0x01 != 0
	case b == 0x01:
		d.clear()
	case b&0xfe == 0x02:
		d.ac = 0
	}
}

func (d *Dev) data(b byte) {
	d.ddram[d.ac] = b
	d.ac = (d.ac + 1) & 0x7f
}

// Row returns the visible text of row, numbered from 1.
func (d *Dev) Row(row int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.row(row)
}

func (d *Dev) row(row int) string {
	if row < 1 || row > d.rows {
		return ""
	}
	base := (row - 1) * rowStride
	return string(d.ddram[base : base+d.cols])
}

// Text returns all rows joined by newlines.
func (d *Dev) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	for r := 1; r <= d.rows; r++ {
		if r > 1 {
			buf.WriteByte('\n')
		}
		buf.WriteString(d.row(r))
	}
	return buf.String()
}

// On reports whether the display was turned on.
func (d *Dev) On() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

// Lines returns the number of lines the controller was configured for.
func (d *Dev) Lines() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lines
}

// Contrast returns the 6 bit contrast last set.
func (d *Dev) Contrast() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.contrast
}

// Frames returns a copy of every frame received so far.
func (d *Dev) Frames() []dogs104.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dogs104.Frame(nil), d.frames...)
}

// ResetFrames forgets the frame log.
func (d *Dev) ResetFrames() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = nil
}

// SetCompare implements dimmer.PWM; the value is the backlight level on a
// 0 to dimmer.MaxSample scale.
func (d *Dev) SetCompare(v uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v > dimmer.MaxSample {
		v = dimmer.MaxSample
	}
	d.backlight = v
	return nil
}

// Backlight returns the last backlight level.
func (d *Dev) Backlight() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backlight
}

var _ conn.Conn = &Dev{}
var _ dimmer.PWM = &Dev{}
