// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dogs104

import (
	"errors"
	"fmt"
	"testing"

	"github.com/GermanBionicSystems/lcdclock/cycledelay"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

var testOpts = Opts{Rows: 4, Cols: 10, Delay: cycledelay.Instant}

// busLog records pin transitions and transfers in the order they happen.
type busLog struct {
	events []string
	txErr  error
}

type logPin struct {
	gpiotest.Pin
	log *busLog
}

func (p *logPin) Out(l gpio.Level) error {
	p.log.events = append(p.log.events, fmt.Sprintf("%s=%s", p.N, l))
	return p.Pin.Out(l)
}

type logConn struct {
	log *busLog
}

func (c *logConn) String() string      { return "logConn" }
func (c *logConn) Duplex() conn.Duplex { return conn.Half }
func (c *logConn) Tx(w, r []byte) error {
	c.log.events = append(c.log.events, fmt.Sprintf("tx % x", w))
	return c.log.txErr
}

func newLogged(t *testing.T) (*Dev, *busLog) {
	l := &busLog{}
	cs := &logPin{Pin: gpiotest.Pin{N: "CS"}, log: l}
	rst := &logPin{Pin: gpiotest.Pin{N: "RST"}, log: l}
	d, err := NewConn(&logConn{log: l}, cs, rst, &testOpts)
	if err != nil {
		t.Fatal(err)
	}
	l.events = nil
	return d, l
}

func newRecorded(t *testing.T) (*Dev, *spitest.Record) {
	record := &spitest.Record{}
	d, err := New(record, nil, nil, &testOpts)
	if err != nil {
		t.Fatal(err)
	}
	record.Ops = nil
	return d, record
}

func frames(ops []conntest.IO) []Frame {
	var out []Frame
	for _, op := range ops {
		var f Frame
		copy(f[:], op.W)
		out = append(out, f)
	}
	return out
}

func TestInitSequence(t *testing.T) {
	record := &spitest.Record{}
	d, err := New(record, nil, nil, &testOpts)
	if err != nil {
		t.Fatal(err)
	}
	want := []Frame{
		{0x1f, 0x0f, 0x00},
		{0x1f, 0x0a, 0x03},
		{0x1f, 0x09, 0x00},
		{0x1f, 0x06, 0x00},
		{0x1f, 0x0e, 0x01},
		{0x1f, 0x09, 0x03},
		{0x1f, 0x0b, 0x01},
		{0x1f, 0x0e, 0x06},
		{0x1f, 0x06, 0x05},
		{0x1f, 0x0a, 0x07},
		{0x1f, 0x08, 0x03},
		{0x1f, 0x06, 0x00},
		{0x1f, 0x0f, 0x00},
		{0x1f, 0x01, 0x00},
	}
	if len(want) != 14 {
		t.Fatalf("test table has %d entries", len(want))
	}
	first := frames(record.Ops)
	if diff := cmp.Diff(first, want); diff != "" {
		t.Errorf("Init() difference (-got +want):\n%s", diff)
	}

	record.Ops = nil
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(frames(record.Ops), first); diff != "" {
		t.Errorf("second Init() difference (-got +want):\n%s", diff)
	}
}

func TestInitResetAndSelect(t *testing.T) {
	l := &busLog{}
	cs := &logPin{Pin: gpiotest.Pin{N: "CS"}, log: l}
	rst := &logPin{Pin: gpiotest.Pin{N: "RST"}, log: l}
	if _, err := NewConn(&logConn{log: l}, cs, rst, &testOpts); err != nil {
		t.Fatal(err)
	}
	want := []string{"RST=Low", "RST=High", "CS=High", "CS=Low", "tx 1f 0f 00", "CS=High"}
	if diff := cmp.Diff(l.events[:len(want)], want); diff != "" {
		t.Errorf("reset and first transaction (-got +want):\n%s", diff)
	}
	// 2 reset transitions plus 4 events for each of the 14 instructions.
	if n := len(l.events); n != 2+14*4 {
		t.Errorf("got %d events, want %d", n, 2+14*4)
	}
	if cs.L != gpio.High {
		t.Error("select line not left idle after Init")
	}
}

func TestTransactionSelectPolicy(t *testing.T) {
	d, l := newLogged(t)
	if err := d.SendData('A'); err != nil {
		t.Fatal(err)
	}
	want := []string{"CS=High", "CS=Low", "tx 5f 01 04", "CS=High"}
	if diff := cmp.Diff(l.events, want); diff != "" {
		t.Errorf("SendData() difference (-got +want):\n%s", diff)
	}
}

func TestTransmitError(t *testing.T) {
	d, l := newLogged(t)
	l.txErr = errors.New("bus fault")
	err := d.WriteRowString(1, "12:00:00")
	if err == nil || !errors.Is(err, l.txErr) {
		t.Fatalf("WriteRowString() = %v, want wrapped bus fault", err)
	}
	// The failing transfer stops the sequence before any data frame, and
	// the select line still goes back to idle.
	want := []string{"CS=High", "CS=Low", "tx 1f 00 08", "CS=High"}
	if diff := cmp.Diff(l.events, want); diff != "" {
		t.Errorf("events difference (-got +want):\n%s", diff)
	}
}

func TestRowAddress(t *testing.T) {
	for row, want := range map[int]byte{1: 0x80, 2: 0xa0, 3: 0xc0, 4: 0xe0} {
		got, err := RowAddress(row)
		if err != nil {
			t.Errorf("RowAddress(%d) error %v", row, err)
		}
		if got != want {
			t.Errorf("RowAddress(%d) = 0x%02x, want 0x%02x", row, got, want)
		}
	}
	for _, row := range []int{-1, 0, 5, 255} {
		if _, err := RowAddress(row); !errors.Is(err, ErrInvalidRow) {
			t.Errorf("RowAddress(%d) error = %v, want ErrInvalidRow", row, err)
		}
	}
}

func TestWriteRow(t *testing.T) {
	for _, tc := range []struct {
		name   string
		row    int
		glyphs []byte
		want   []Frame
	}{
		{
			name:   "sentinel",
			row:    1,
			glyphs: []byte{'A', 'B', 0, 'C'},
			want:   []Frame{{0x1f, 0x00, 0x08}, Encode('A', ModeData), Encode('B', ModeData)},
		},
		{
			name:   "no sentinel",
			row:    2,
			glyphs: []byte("xyz"),
			want:   []Frame{{0x1f, 0x00, 0x0a}, Encode('x', ModeData), Encode('y', ModeData), Encode('z', ModeData)},
		},
		{
			name:   "empty",
			row:    3,
			glyphs: []byte{0},
			want:   []Frame{{0x1f, 0x00, 0x0c}},
		},
		{
			name:   "nil",
			row:    4,
			glyphs: nil,
			want:   []Frame{{0x1f, 0x00, 0x0e}},
		},
		{
			name:   "full row",
			row:    1,
			glyphs: []byte("0123456789\x00"),
			want: func() []Frame {
				f := []Frame{{0x1f, 0x00, 0x08}}
				for _, b := range []byte("0123456789") {
					f = append(f, Encode(b, ModeData))
				}
				return f
			}(),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, record := newRecorded(t)
			if err := d.WriteRow(tc.row, tc.glyphs); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(frames(record.Ops), tc.want); diff != "" {
				t.Errorf("WriteRow() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestWriteRowRejects(t *testing.T) {
	d, record := newRecorded(t)
	for _, row := range []int{0, 5, -3} {
		if err := d.WriteRow(row, []byte("x")); !errors.Is(err, ErrInvalidRow) {
			t.Errorf("WriteRow(%d) error = %v, want ErrInvalidRow", row, err)
		}
	}
	if err := d.WriteRow(1, []byte("0123456789A")); !errors.Is(err, ErrRowOverflow) {
		t.Errorf("WriteRow() with 11 glyphs error = %v, want ErrRowOverflow", err)
	}
	if len(record.Ops) != 0 {
		t.Errorf("rejected writes sent %d frames", len(record.Ops))
	}

	small, err := NewConn(&logConn{log: &busLog{}}, nil, nil, &Opts{Rows: 2, Cols: 10, Delay: cycledelay.Instant})
	if err != nil {
		t.Fatal(err)
	}
	if err := small.WriteRow(3, []byte("x")); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("WriteRow(3) on a 2 row panel error = %v, want ErrInvalidRow", err)
	}
}

func TestTextDisplay(t *testing.T) {
	d, record := newRecorded(t)
	if err := d.MoveTo(2, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := d.WriteString("hi"); err != nil {
		t.Fatal(err)
	}
	if err := d.Cursor(display.CursorOff); err != nil {
		t.Fatal(err)
	}
	if err := d.Display(false); err != nil {
		t.Fatal(err)
	}
	if err := d.Move(display.Forward); err != nil {
		t.Fatal(err)
	}
	want := []Frame{
		Encode(0xa2, ModeInstruction),
		Encode('h', ModeData),
		Encode('i', ModeData),
		Encode(0x0c, ModeInstruction),
		Encode(0x08, ModeInstruction),
		Encode(0x14, ModeInstruction),
	}
	if diff := cmp.Diff(frames(record.Ops), want); diff != "" {
		t.Errorf("difference (-got +want):\n%s", diff)
	}
	if err := d.MoveTo(5, 1); err == nil {
		t.Error("MoveTo(5, 1) succeeded")
	}
	if err := d.MoveTo(1, 11); err == nil {
		t.Error("MoveTo(1, 11) succeeded")
	}
	if err := d.Move(display.Up); !errors.Is(err, display.ErrNotImplemented) {
		t.Errorf("Move(Up) error = %v", err)
	}
	if err := d.AutoScroll(true); !errors.Is(err, display.ErrNotImplemented) {
		t.Errorf("AutoScroll() error = %v", err)
	}
	if d.Rows() != 4 || d.Cols() != 10 || d.MinRow() != 1 || d.MinCol() != 1 {
		t.Errorf("geometry %d x %d from (%d,%d)", d.Rows(), d.Cols(), d.MinRow(), d.MinCol())
	}
	if len(d.String()) == 0 {
		t.Error("String() is empty")
	}
}

func TestContrast(t *testing.T) {
	d, record := newRecorded(t)
	if err := d.Contrast(0x2a); err != nil {
		t.Fatal(err)
	}
	if err := d.Contrast(200); err != nil {
		t.Fatal(err)
	}
	want := []Frame{
		Encode(0x39, ModeInstruction),
		Encode(0x56, ModeInstruction),
		Encode(0x7a, ModeInstruction),
		Encode(0x38, ModeInstruction),
		Encode(0x39, ModeInstruction),
		Encode(0x57, ModeInstruction),
		Encode(0x7f, ModeInstruction),
		Encode(0x38, ModeInstruction),
	}
	if diff := cmp.Diff(frames(record.Ops), want); diff != "" {
		t.Errorf("Contrast() difference (-got +want):\n%s", diff)
	}
}

func TestHalt(t *testing.T) {
	d, record := newRecorded(t)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	want := []Frame{Encode(0x01, ModeInstruction), Encode(0x0b, ModeInstruction)}
	if diff := cmp.Diff(frames(record.Ops), want); diff != "" {
		t.Errorf("Halt() difference (-got +want):\n%s", diff)
	}
}

func TestContrastKeptByInit(t *testing.T) {
	d, record := newRecorded(t)
	if err := d.Contrast(0x05); err != nil {
		t.Fatal(err)
	}
	record.Ops = nil
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	got := frames(record.Ops)
	if got[8] != Encode(0x54, ModeInstruction) || got[9] != Encode(0x75, ModeInstruction) {
		t.Errorf("Init() contrast frames = %s, %s; want 0x54, 0x75", got[8], got[9])
	}
}

func TestOptsContrast(t *testing.T) {
	record := &spitest.Record{}
	opts := testOpts
	opts.Contrast = 0x3f
	if _, err := New(record, nil, nil, &opts); err != nil {
		t.Fatal(err)
	}
	got := frames(record.Ops)
	if got[8] != Encode(0x57, ModeInstruction) || got[9] != Encode(0x7f, ModeInstruction) {
		t.Errorf("Init() contrast frames = %s, %s; want 0x57, 0x7f", got[8], got[9])
	}
}

func TestMoveTracksColumn(t *testing.T) {
	d, l := newLogged(t)
	if err := d.Move(display.Backward); err != nil {
		t.Fatal(err)
	}
	if d.col != 1 {
		t.Errorf("col after Backward from column 1 = %d, want 1", d.col)
	}
	if err := d.MoveTo(1, 10); err != nil {
		t.Fatal(err)
	}
	if err := d.Move(display.Forward); err != nil {
		t.Fatal(err)
	}
	if d.col != 10 {
		t.Errorf("col after Forward from column 10 = %d, want 10", d.col)
	}
	if err := d.Move(display.Backward); err != nil {
		t.Fatal(err)
	}
	if d.col != 9 {
		t.Errorf("col after Backward = %d, want 9", d.col)
	}

	l.txErr = errors.New("bus fault")
	if err := d.Move(display.Backward); !errors.Is(err, l.txErr) {
		t.Fatalf("Move() = %v, want bus fault", err)
	}
	if d.col != 9 {
		t.Errorf("col after a failed Move = %d, want 9", d.col)
	}
}
