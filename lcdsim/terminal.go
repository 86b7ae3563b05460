// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"image/color"
	"io"
	"os"

	"github.com/GermanBionicSystems/lcdclock/dimmer"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Terminal draws the emulated glass on a console.
type Terminal struct {
	w       io.Writer
	ansi    bool
	palette ansi256.Palette
	buf     bytes.Buffer
}

// NewTerminal returns a Terminal writing to w. With ansi set, the panel is
// redrawn in place and the backlight is shown in color.
func NewTerminal(w io.Writer, ansi bool) *Terminal {
	return &Terminal{w: w, ansi: ansi, palette: *ansi256.Default}
}

// Stdout returns a Terminal on the process standard output, using ANSI
// sequences only when it is a terminal.
func Stdout() *Terminal {
	fd := os.Stdout.Fd()
	ansi := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return NewTerminal(colorable.NewColorableStdout(), ansi)
}

// backlightColor is the yellow-green LED shade scaled by level.
func backlightColor(level uint32) color.NRGBA {
	if level > dimmer.MaxSample {
		level = dimmer.MaxSample
	}
	scale := func(full uint32) uint8 {
		return uint8(full * level / dimmer.MaxSample)
	}
	return color.NRGBA{R: scale(0x9c), G: scale(0xe0), B: scale(0x3c), A: 255}
}

// Render draws the current content of d.
func (t *Terminal) Render(d *Dev) error {
	text := d.Text()
	level := d.Backlight()
	t.buf.Reset()
	if t.ansi {
		// Move the cursor back to the top left of the previous drawing.
		_, _ = t.buf.WriteString("\033[H\033[0m")
	}
	border := make([]byte, d.cols+2)
	for i := range border {
		border[i] = '-'
	}
	border[0], border[len(border)-1] = '+', '+'
	t.buf.Write(border)
	t.buf.WriteByte('\n')
	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\n' {
			continue
		}
		t.buf.WriteByte('|')
		for _, c := range []byte(text[start:i]) {
			if c < 0x20 || c > 0x7e {
				c = ' '
			}
			t.buf.WriteByte(c)
		}
		t.buf.WriteString("|\n")
		start = i + 1
	}
	t.buf.Write(border)
	t.buf.WriteByte('\n')
	if t.ansi {
		c := backlightColor(level)
		for range d.cols + 2 {
			_, _ = io.WriteString(&t.buf, t.palette.Block(c))
		}
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	_, err := t.buf.WriteTo(t.w)
	return err
}
