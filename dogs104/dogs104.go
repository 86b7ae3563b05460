// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dogs104

import (
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/lcdclock/cycledelay"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Instructions (RE=0, IS=0 unless noted).
const (
	clearDisplay     byte = 0x01
	returnHome       byte = 0x02
	displayControl   byte = 0x08
	cursorShift      byte = 0x10
	functionSetIS0   byte = 0x38
	functionSetIS1   byte = 0x39
	powerControl     byte = 0x54 // IS=1: icon off, booster on, C5 C4 in bits 1-0
	contrastSet      byte = 0x70 // IS=1: C3-C0 in bits 3-0
	setDDRAMAddress  byte = 0x80
	rowStride        byte = 0x20
	displayOnBit     byte = 0x04
	cursorOnBit      byte = 0x02
	blinkOnBit       byte = 0x01
	cursorShiftRight byte = 0x04

	maxContrast       = 0x3f
	defaultDisplayCtl = displayControl | displayOnBit | cursorOnBit | blinkOnBit
)

var (
	// ErrInvalidRow is returned for a row outside MinRow()..Rows().
	ErrInvalidRow = errors.New("dogs104: invalid row")
	// ErrRowOverflow is returned when a glyph sequence does not fit in a row.
	ErrRowOverflow = errors.New("dogs104: glyph sequence longer than row")
)

type instruction struct {
	op   byte
	note string
}

// DefaultContrast is the contrast set by Init unless Opts.Contrast says
// otherwise.
const DefaultContrast display.Contrast = 0x2a

// initSequence returns the bring-up sequence for 8 bit SPI, 4 lines, bottom
// view, with the 6 bit contrast c.
// Order matters: 0x1E, 0x09 and 0x06 are only decoded as listed while RE=1,
// and 0x1B, 0x6E, the power control and contrast set only while IS=1.
func initSequence(c byte) []instruction {
	return []instruction{
		{0x0F, "display on, cursor on, blink on"},
		{0x3A, "function set: 8 bit, RE=1, REV=0"},
		{0x09, "extended function set: 5-dot font, 4 line display"},
		{0x06, "entry mode set (RE=1): bottom view"},
		{0x1E, "bias setting: BS1=1"},
		{0x39, "function set: 8 bit, RE=0, IS=1"},
		{0x1B, "internal osc: BS0=1, bias 1/6"},
		{0x6E, "follower control: divider on, ratio 6"},
		{powerControl | c>>4&0x03, "power control: booster on, contrast C5 C4"},
		{contrastSet | c&0x0f, "contrast set: C3-C0"},
		{0x38, "function set: 8 bit, RE=0, IS=0"},
		{0x06, "entry mode set: increment, no shift"},
		{0x0F, "display on, cursor on, blink on"},
		{0x01, "clear display"},
	}
}

// clampContrast limits c to the 6 bit range of the controller.
func clampContrast(c display.Contrast) byte {
	if c < 0 {
		return 0
	}
	if c > maxContrast {
		return maxContrast
	}
	return byte(c)
}

// Opts holds the panel geometry and bus timing.
type Opts struct {
	Rows int
	Cols int
	// SettleDelay is held after each select line transition.
	SettleDelay time.Duration
	// ResetDelay is held after the reset line is released.
	ResetDelay time.Duration
	// Frequency is the SPI clock. Only used by New.
	Frequency physic.Frequency
	// Delay performs the waits. Defaults to cycledelay.Sleep.
	Delay cycledelay.Delayer
	// Contrast is applied by every Init. 0 selects DefaultContrast; use
	// Dev.Contrast for a zero contrast.
	Contrast display.Contrast
}

// DefaultOpts is the EA DOGS104-A panel with 10ms settle and reset times.
var DefaultOpts = Opts{
	Rows:        4,
	Cols:        10,
	SettleDelay: 10 * time.Millisecond,
	ResetDelay:  10 * time.Millisecond,
	Frequency:   physic.MegaHertz,
}

// Dev is a handle to a DOGS104 display.
//
// Implements display.TextDisplay and display.DisplayContrast.
type Dev struct {
	c     conn.Conn
	cs    gpio.PinOut
	rst   gpio.PinOut
	opts  Opts
	delay cycledelay.Delayer

	row, col int
	dcb      byte
	contrast byte
}

// New opens an SPI connection on p and initializes the display. cs is the
// active low select line and rst the reset line; either may be nil when the
// board ties it off or the SPI driver handles it.
func New(p spi.Port, cs, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	f := opts.Frequency
	if f == 0 {
		f = DefaultOpts.Frequency
	}
	mode := spi.Mode3 | spi.LSBFirst
	if cs != nil {
		mode |= spi.NoCS
	}
	c, err := p.Connect(f, mode, 8)
	if err != nil {
		return nil, fmt.Errorf("dogs104: %w", err)
	}
	return NewConn(c, cs, rst, opts)
}

// NewConn initializes the display on an already configured connection.
func NewConn(c conn.Conn, cs, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{c: c, cs: cs, rst: rst, opts: *opts, row: 1, col: 1}
	if d.opts.Rows <= 0 {
		d.opts.Rows = DefaultOpts.Rows
	}
	if d.opts.Cols <= 0 {
		d.opts.Cols = DefaultOpts.Cols
	}
	d.delay = d.opts.Delay
	if d.delay == nil {
		d.delay = cycledelay.Sleep{}
	}
	d.contrast = clampContrast(DefaultContrast)
	if d.opts.Contrast != 0 {
		d.contrast = clampContrast(d.opts.Contrast)
	}
	return d, d.Init()
}

// Init resets the controller and runs the bring-up sequence. It can be
// called again at any time and leaves the display in the same state, with
// the contrast last set by Contrast.
func (d *Dev) Init() error {
	eh := errorHandler{d: d}
	eh.rstOut(gpio.Low)
	d.delay.Delay(d.opts.SettleDelay)
	eh.rstOut(gpio.High)
	d.delay.Delay(d.opts.ResetDelay)
	for _, in := range initSequence(d.contrast) {
		eh.send(Encode(in.op, ModeInstruction))
	}
	if eh.err != nil {
		return eh.err
	}
	d.row, d.col = 1, 1
	d.dcb = defaultDisplayCtl
	return nil
}

// SendInstruction sends one instruction byte as is.
func (d *Dev) SendInstruction(b byte) error {
	return d.send(Encode(b, ModeInstruction))
}

// SendData writes one byte to display RAM at the address counter.
func (d *Dev) SendData(b byte) error {
	return d.send(Encode(b, ModeData))
}

// RowAddress returns the DDRAM set-address instruction for the start of row.
// Rows are numbered from 1.
func RowAddress(row int) (byte, error) {
	if row < 1 || row > 4 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	return setDDRAMAddress + byte(row-1)*rowStride, nil
}

// WriteRow moves the cursor to the start of row and writes glyphs. The
// sequence ends at the first zero byte, which is not sent, or at the end of
// the slice.
func (d *Dev) WriteRow(row int, glyphs []byte) error {
	if row > d.opts.Rows {
		return fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	addr, err := RowAddress(row)
	if err != nil {
		return err
	}
	n := len(glyphs)
	for i, g := range glyphs {
		if g == 0 {
			n = i
			break
		}
	}
	if n > d.opts.Cols {
		return fmt.Errorf("%w: %d > %d", ErrRowOverflow, n, d.opts.Cols)
	}
	eh := errorHandler{d: d}
	eh.send(Encode(addr, ModeInstruction))
	for _, g := range glyphs[:n] {
		eh.send(Encode(g, ModeData))
	}
	if eh.err != nil {
		return eh.err
	}
	d.row, d.col = row, n+1
	return nil
}

// WriteRowString is WriteRow for text.
func (d *Dev) WriteRowString(row int, s string) error {
	return d.WriteRow(row, []byte(s))
}

// AutoScroll is not supported.
func (d *Dev) AutoScroll(enabled bool) error {
	return fmt.Errorf("dogs104: %w", display.ErrNotImplemented)
}

// Clear clears the display and moves the cursor home.
func (d *Dev) Clear() error {
	if err := d.SendInstruction(clearDisplay); err != nil {
		return err
	}
	d.row, d.col = 1, 1
	return nil
}

// Cols returns the number of visible columns.
func (d *Dev) Cols() int {
	return d.opts.Cols
}

// Rows returns the number of rows.
func (d *Dev) Rows() int {
	return d.opts.Rows
}

// MinCol returns 1.
func (d *Dev) MinCol() int {
	return 1
}

// MinRow returns 1.
func (d *Dev) MinRow() int {
	return 1
}

// Cursor sets the cursor mode. CursorOff may be combined with other modes.
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	val := d.dcb &^ (cursorOnBit | blinkOnBit)
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
		case display.CursorUnderline:
			val |= cursorOnBit
		case display.CursorBlink, display.CursorBlock:
			val |= blinkOnBit
		default:
			return fmt.Errorf("dogs104: %w: cursor %d", display.ErrInvalidCommand, mode)
		}
	}
	if err := d.SendInstruction(displayControl | val); err != nil {
		return err
	}
	d.dcb = displayControl | val
	return nil
}

// Display turns the display on or off, keeping the cursor mode.
func (d *Dev) Display(on bool) error {
	val := d.dcb &^ displayOnBit
	if on {
		val |= displayOnBit
	}
	if err := d.SendInstruction(displayControl | val); err != nil {
		return err
	}
	d.dcb = displayControl | val
	return nil
}

// Home moves the cursor to (MinRow(), MinCol()).
func (d *Dev) Home() error {
	if err := d.SendInstruction(returnHome); err != nil {
		return err
	}
	d.row, d.col = 1, 1
	return nil
}

// Move moves the cursor one position forward or backward. The tracked
// column stays within MinCol()..Cols().
func (d *Dev) Move(dir display.CursorDirection) error {
	val := cursorShift
	col := d.col
	switch dir {
	case display.Backward:
		col--
	case display.Forward:
		val |= cursorShiftRight
		col++
	default:
		return fmt.Errorf("dogs104: %w", display.ErrNotImplemented)
	}
	if err := d.SendInstruction(val); err != nil {
		return err
	}
	d.col = min(max(col, d.MinCol()), d.opts.Cols)
	return nil
}

// MoveTo moves the cursor to row, col, both starting at 1.
func (d *Dev) MoveTo(row, col int) error {
	if row < d.MinRow() || row > d.opts.Rows || col < d.MinCol() || col > d.opts.Cols {
		return fmt.Errorf("dogs104: MoveTo(%d,%d) value out of range", row, col)
	}
	addr, err := RowAddress(row)
	if err != nil {
		return err
	}
	if err := d.SendInstruction(addr + byte(col-1)); err != nil {
		return err
	}
	d.row, d.col = row, col
	return nil
}

// Write writes p at the cursor. Unlike WriteRow, zero bytes are sent and
// nothing stops the text at the end of the row.
func (d *Dev) Write(p []byte) (n int, err error) {
	for _, b := range p {
		if err = d.SendData(b); err != nil {
			return
		}
		n++
		d.col++
	}
	return
}

// WriteString writes text at the cursor.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// Contrast sets the 6 bit contrast value. Larger values are clamped. The
// value is kept and applied again by Init.
func (d *Dev) Contrast(contrast display.Contrast) error {
	c := clampContrast(contrast)
	eh := errorHandler{d: d}
	eh.send(Encode(functionSetIS1, ModeInstruction))
	eh.send(Encode(powerControl|c>>4&0x03, ModeInstruction))
	eh.send(Encode(contrastSet|c&0x0f, ModeInstruction))
	eh.send(Encode(functionSetIS0, ModeInstruction))
	if eh.err != nil {
		return eh.err
	}
	d.contrast = c
	return nil
}

// Halt clears and turns off the display.
func (d *Dev) Halt() error {
	if err := d.Clear(); err != nil {
		return err
	}
	return d.Display(false)
}

func (d *Dev) String() string {
	return fmt.Sprintf("dogs104.Dev{%s, Rows: %d, Cols: %d}", d.c, d.opts.Rows, d.opts.Cols)
}

// send runs one bus transaction. The select line is deasserted and asserted
// again around the transfer and always left deasserted afterward.
func (d *Dev) send(f Frame) error {
	eh := errorHandler{d: d}
	eh.send(f)
	return eh.err
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayContrast = &Dev{}
var _ conn.Resource = &Dev{}
