// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds1307 controls a DS1307 real time clock over I²C. The DS3231 and
// DS3232 share the same time keeping registers and work too.
//
// # Datasheet
//
// https://datasheets.maximintegrated.com/en/ds/DS1307.pdf
package ds1307

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/lcdclock/rtc"
	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the fixed I²C address of the device.
const DefaultAddress uint16 = 0x68

// century is added to the two digit year register.
const century = 2000

const (
	regSeconds byte = 0x00
	regWeekday byte = 0x03

	clockHalt byte = 0x80
	mode12h   byte = 0x40
	pm        byte = 0x20
)

// Dev is a handle to a DS1307.
type Dev struct {
	d *i2c.Dev
}

// New returns a handle on bus at addr. It does not talk to the device.
func New(bus i2c.Bus, addr uint16) *Dev {
	return &Dev{d: &i2c.Dev{Bus: bus, Addr: addr}}
}

// Time implements rtc.RTC.
func (d *Dev) Time() (rtc.TimeOfDay, error) {
	var buf [3]byte
	if err := d.d.Tx([]byte{regSeconds}, buf[:]); err != nil {
		return rtc.TimeOfDay{}, fmt.Errorf("ds1307: %w", err)
	}
	t := rtc.TimeOfDay{
		Seconds: fromBCD(buf[0] &^ clockHalt),
		Minutes: fromBCD(buf[1]),
	}
	if buf[2]&mode12h != 0 {
		h := fromBCD(buf[2] & 0x1f)
		if h == 12 {
			h = 0
		}
		if buf[2]&pm != 0 {
			h += 12
		}
		t.Hours = h
	} else {
		t.Hours = fromBCD(buf[2] & 0x3f)
	}
	return t, nil
}

// Date implements rtc.RTC.
func (d *Dev) Date() (rtc.Date, error) {
	var buf [4]byte
	if err := d.d.Tx([]byte{regWeekday}, buf[:]); err != nil {
		return rtc.Date{}, fmt.Errorf("ds1307: %w", err)
	}
	wd := buf[0] & 0x07
	if wd > 0 {
		wd--
	}
	return rtc.Date{
		Year:    century + uint16(fromBCD(buf[3])),
		Month:   time.Month(fromBCD(buf[2] & 0x1f)),
		Day:     fromBCD(buf[1] & 0x3f),
		Weekday: time.Weekday(wd),
	}, nil
}

// SetTime implements rtc.RTC. It selects 24 hour mode and starts the
// oscillator if it was halted.
func (d *Dev) SetTime(t rtc.TimeOfDay) error {
	if err := t.Validate(); err != nil {
		return err
	}
	w := []byte{regSeconds, toBCD(t.Seconds), toBCD(t.Minutes), toBCD(t.Hours)}
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("ds1307: %w", err)
	}
	return nil
}

// SetDate implements rtc.RTC. Only years 2000 to 2099 can be stored.
func (d *Dev) SetDate(date rtc.Date) error {
	if err := date.Validate(); err != nil {
		return err
	}
	if date.Year < century || date.Year >= century+100 {
		return fmt.Errorf("%w: year %d", rtc.ErrOutOfRange, date.Year)
	}
	w := []byte{
		regWeekday,
		byte(date.Weekday) + 1,
		toBCD(date.Day),
		toBCD(uint8(date.Month)),
		toBCD(uint8(date.Year - century)),
	}
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("ds1307: %w", err)
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ds1307{%s}", d.d)
}

// Halt implements conn.Resource. The clock keeps running on its battery.
func (d *Dev) Halt() error {
	return nil
}

func toBCD(v uint8) byte {
	return (v/10)<<4 | v%10
}

func fromBCD(b byte) uint8 {
	return (b>>4)*10 + b&0x0f
}

var _ rtc.RTC = &Dev{}
