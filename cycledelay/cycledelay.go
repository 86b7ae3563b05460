// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cycledelay provides the settle-time primitive used by the display
// and the supervisory loop.
//
// The firmware this replaces spun a fixed number of core cycles, calibrated
// against an 80 MHz clock. Spin keeps that behavior: it runs a counted loop
// and never looks at a clock, so a Spin whose Clock does not match the rate
// the loop really runs at skews every delay by the ratio. Calibrate measures
// that rate on the host.
package cycledelay

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Delayer blocks the caller for at least d.
type Delayer interface {
	Delay(d time.Duration)
}

// Spin is a calibrated busy-wait. It never yields: the calling goroutine
// keeps the core for the whole delay.
type Spin struct {
	// Clock is the core clock rate the cycle counts are calibrated against.
	Clock physic.Frequency
	// CyclesPerLoop is the cost of one iteration of the wait loop.
	CyclesPerLoop uint32
}

// DefaultSpin matches the STM32L4 board: 80 MHz core, a SUBS/BNE loop of 3
// cycles. There DefaultSpin.WaitCycles(8000000) waits 100ms. Other hosts
// should use Calibrate.
var DefaultSpin = Spin{Clock: 80 * physic.MegaHertz, CyclesPerLoop: 3}

// Cycles converts d to a number of core cycles at s.Clock.
func (s *Spin) Cycles(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	hz := uint64(s.Clock / physic.Hertz)
	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return secs*hz + rem*hz/uint64(time.Second)
}

// Loops returns the number of wait loop iterations that consume n cycles.
func (s *Spin) Loops(n uint64) uint64 {
	if s.CyclesPerLoop == 0 {
		return n
	}
	return n / uint64(s.CyclesPerLoop)
}

// WaitCycles spins for n core cycles, rounded down to whole loop iterations.
func (s *Spin) WaitCycles(n uint64) {
	spin(s.Loops(n))
}

// spin is swapped in tests to count iterations.
var spin = spinLoop

var spinSink uint64

// spinLoop runs n iterations of the wait loop.
//
//go:noinline
func spinLoop(n uint64) {
	var x uint64
	for i := uint64(0); i < n; i++ {
		x += i
	}
	spinSink = x
}

// Calibrate times the wait loop for at least sample and returns a Spin
// with one cycle per loop running at the measured rate.
func Calibrate(sample time.Duration) Spin {
	for n := uint64(1 << 10); ; n *= 2 {
		start := time.Now()
		spinLoop(n)
		elapsed := time.Since(start)
		if (elapsed >= sample || n >= 1<<40) && elapsed > 0 {
			hz := float64(n) / elapsed.Seconds()
			return Spin{Clock: physic.Frequency(hz * float64(physic.Hertz)), CyclesPerLoop: 1}
		}
	}
}

// Delay implements Delayer.
func (s *Spin) Delay(d time.Duration) {
	s.WaitCycles(s.Cycles(d))
}

func (s *Spin) String() string {
	return fmt.Sprintf("cycledelay.Spin{%s, %d cycles/loop}", s.Clock, s.CyclesPerLoop)
}

// Sleep is a Delayer that parks the goroutine with time.Sleep.
type Sleep struct{}

// Delay implements Delayer.
func (Sleep) Delay(d time.Duration) {
	time.Sleep(d)
}

type instant struct{}

func (instant) Delay(time.Duration) {}

// Instant returns immediately. Use it in tests, or with transports that
// already enforce their own timing.
var Instant Delayer = instant{}

var _ Delayer = &Spin{}
var _ Delayer = Sleep{}
