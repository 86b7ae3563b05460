// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rtc defines the real time clock interface used by the clock
// service, and a software clock backed by the host time.
package rtc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOutOfRange is returned for a time or date field the clock cannot hold.
var ErrOutOfRange = errors.New("rtc: value out of range")

// TimeOfDay is a wall clock time with one second resolution, 24 hour.
type TimeOfDay struct {
	Hours   uint8
	Minutes uint8
	Seconds uint8
}

// String formats t as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
}

// Validate checks the fields against 0-23, 0-59 and 0-59.
func (t TimeOfDay) Validate() error {
	switch {
	case t.Hours > 23:
		return fmt.Errorf("%w: hours %d", ErrOutOfRange, t.Hours)
	case t.Minutes > 59:
		return fmt.Errorf("%w: minutes %d", ErrOutOfRange, t.Minutes)
	case t.Seconds > 59:
		return fmt.Errorf("%w: seconds %d", ErrOutOfRange, t.Seconds)
	}
	return nil
}

// Date is a calendar date.
type Date struct {
	Year    uint16
	Month   time.Month
	Day     uint8
	Weekday time.Weekday
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Validate checks that d is a real calendar day.
func (d Date) Validate() error {
	if d.Month < time.January || d.Month > time.December || d.Day == 0 {
		return fmt.Errorf("%w: date %s", ErrOutOfRange, d)
	}
	last := time.Date(int(d.Year), d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if int(d.Day) > last {
		return fmt.Errorf("%w: date %s", ErrOutOfRange, d)
	}
	return nil
}

// RTC is a real time clock peripheral.
//
// Implementations latching the calendar on a time read, like the STM32 RTC
// shadow registers, expect Date to be called after Time.
type RTC interface {
	Time() (TimeOfDay, error)
	Date() (Date, error)
	SetTime(t TimeOfDay) error
	SetDate(d Date) error
}

// Split returns the time of day and date parts of t.
func Split(t time.Time) (TimeOfDay, Date) {
	return TimeOfDay{uint8(t.Hour()), uint8(t.Minute()), uint8(t.Second())},
		Date{uint16(t.Year()), t.Month(), uint8(t.Day()), t.Weekday()}
}

// Join is the inverse of Split, in loc.
func Join(tod TimeOfDay, d Date, loc *time.Location) time.Time {
	return time.Date(int(d.Year), d.Month, int(d.Day), int(tod.Hours), int(tod.Minutes), int(tod.Seconds), 0, loc)
}

// Soft is an RTC that runs off the host clock plus an offset.
type Soft struct {
	// Now returns the host time. Defaults to time.Now.
	Now func() time.Time

	mu     sync.Mutex
	offset time.Duration
}

func (s *Soft) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return now().Add(s.offset).Truncate(time.Second)
}

// Time implements RTC.
func (s *Soft) Time() (TimeOfDay, error) {
	tod, _ := Split(s.now())
	return tod, nil
}

// Date implements RTC.
func (s *Soft) Date() (Date, error) {
	_, d := Split(s.now())
	return d, nil
}

// SetTime implements RTC. The date is kept.
func (s *Soft) SetTime(t TimeOfDay) error {
	if err := t.Validate(); err != nil {
		return err
	}
	cur := s.now()
	_, d := Split(cur)
	return s.set(cur, Join(t, d, cur.Location()))
}

// SetDate implements RTC. The time of day is kept.
func (s *Soft) SetDate(d Date) error {
	if err := d.Validate(); err != nil {
		return err
	}
	cur := s.now()
	tod, _ := Split(cur)
	return s.set(cur, Join(tod, d, cur.Location()))
}

func (s *Soft) set(cur, want time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += want.Sub(cur)
	return nil
}

func (s *Soft) String() string {
	return "rtc.Soft"
}

var _ RTC = &Soft{}
