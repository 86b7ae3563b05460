// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dogs104

import "fmt"

// Mode is the start byte of a frame. It carries the RS bit telling the
// controller whether the payload is an instruction or display data.
type Mode byte

const (
	// ModeInstruction selects the instruction register (RS=0, RW=0).
	ModeInstruction Mode = 0x1F
	// ModeData selects the data register (RS=1, RW=0).
	ModeData Mode = 0x5F
)

func (m Mode) String() string {
	switch m {
	case ModeInstruction:
		return "instruction"
	case ModeData:
		return "data"
	default:
		return fmt.Sprintf("Mode(0x%02x)", byte(m))
	}
}

// Frame is the wire encoding of one byte.
type Frame [3]byte

// Encode splits b into a frame for mode m. It is defined for every byte.
func Encode(b byte, m Mode) Frame {
	return Frame{byte(m), b & 0x0f, b >> 4}
}

// Mode returns the start byte of the frame.
func (f Frame) Mode() Mode {
	return Mode(f[0])
}

// Byte reassembles the payload carried by the frame.
func (f Frame) Byte() byte {
	return f[1]&0x0f | (f[2]&0x0f)<<4
}

func (f Frame) String() string {
	return fmt.Sprintf("%s 0x%02x", f.Mode(), f.Byte())
}
