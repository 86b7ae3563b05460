// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package supervisor runs the panel: it brings the display up, has the
// operator set the clock once, then refreshes the clock readout and the
// backlight dimmer in a loop.
//
// Everything runs on the goroutine calling Run. The only blocking points are
// the console receive, the ADC poll and the bus transfers.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/lcdclock/cycledelay"
	"github.com/GermanBionicSystems/lcdclock/dimmer"
	"github.com/rs/zerolog"
)

// State is the position of the loop in its life cycle.
type State int

const (
	// StateInit brings the display controller up.
	StateInit State = iota
	// StateTimeSet waits for the operator to enter the time.
	StateTimeSet
	// StateRunning refreshes clock and dimmer until the context is done.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateTimeSet:
		return "TimeSet"
	case StateRunning:
		return "Running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrTooManyFailures is returned when refreshes kept failing.
var ErrTooManyFailures = errors.New("supervisor: too many consecutive refresh failures")

// Initializer brings the display up.
type Initializer interface {
	Init() error
}

// Clock is the clock service as seen by the loop.
type Clock interface {
	SetFromConsole(ctx context.Context) error
	Refresh() (string, error)
}

// Dimmer is the backlight controller as seen by the loop.
type Dimmer interface {
	Update() (uint16, error)
}

// Opts tunes the loop.
type Opts struct {
	// RefreshDelay is waited between two refresh cycles. 0 runs them back
	// to back.
	RefreshDelay time.Duration
	// Delay performs RefreshDelay. Defaults to cycledelay.Sleep.
	Delay cycledelay.Delayer
	// MaxConsecutiveErrors stops Run once that many cycles in a row had a
	// failure. 0 never stops. A dimmer conversion the dimmer recovered from
	// by holding its last sample is logged but not counted.
	MaxConsecutiveErrors int
	// SkipTimeSet goes from Init straight to Running, keeping the time the
	// RTC already holds.
	SkipTimeSet bool
	// OnState is called on each state change.
	OnState func(State)
}

// Loop is the supervisory loop.
type Loop struct {
	display Initializer
	clock   Clock
	dimmer  Dimmer
	log     zerolog.Logger
	opts    Opts
	delay   cycledelay.Delayer

	state  State
	cycles uint64
}

// New returns a Loop. dim may be nil on boards without a backlight
// potentiometer.
func New(display Initializer, clock Clock, dim Dimmer, log zerolog.Logger, opts *Opts) *Loop {
	l := &Loop{display: display, clock: clock, dimmer: dim, log: log}
	if opts != nil {
		l.opts = *opts
	}
	l.delay = l.opts.Delay
	if l.delay == nil {
		l.delay = cycledelay.Sleep{}
	}
	return l
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

// Cycles returns the number of completed refresh cycles.
func (l *Loop) Cycles() uint64 {
	return l.cycles
}

func (l *Loop) enter(s State) {
	l.state = s
	l.log.Info().Stringer("state", s).Msg("supervisor state")
	if l.opts.OnState != nil {
		l.opts.OnState(s)
	}
}

// Run drives the loop until ctx is done, which is the normal way out and
// returns ctx.Err(). Failures to initialize the display or to set the time
// end Run; refresh failures are logged and the loop goes on.
func (l *Loop) Run(ctx context.Context) error {
	l.enter(StateInit)
	if err := l.display.Init(); err != nil {
		return fmt.Errorf("supervisor: display init: %w", err)
	}
	if !l.opts.SkipTimeSet {
		l.enter(StateTimeSet)
		if err := l.clock.SetFromConsole(ctx); err != nil {
			return fmt.Errorf("supervisor: time set: %w", err)
		}
	}
	l.enter(StateRunning)
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.cycle() {
			failures = 0
		} else {
			failures++
			if l.opts.MaxConsecutiveErrors > 0 && failures >= l.opts.MaxConsecutiveErrors {
				return fmt.Errorf("%w: %d", ErrTooManyFailures, failures)
			}
		}
		l.cycles++
		if l.opts.RefreshDelay > 0 {
			l.delay.Delay(l.opts.RefreshDelay)
		}
	}
}

// cycle refreshes the clock then the dimmer. It reports whether both
// succeeded.
func (l *Loop) cycle() bool {
	ok := true
	text, err := l.clock.Refresh()
	if err != nil {
		ok = false
		l.log.Error().Err(err).Msg("clock refresh")
	} else {
		l.log.Trace().Str("time", text).Msg("clock refresh")
	}
	if l.dimmer == nil {
		return ok
	}
	v, err := l.dimmer.Update()
	switch {
	case err == nil:
	case errors.Is(err, dimmer.ErrSampleHeld):
		l.log.Warn().Err(err).Uint16("compare", v).Msg("dimmer held last sample")
	default:
		ok = false
		l.log.Error().Err(err).Uint16("compare", v).Msg("dimmer update")
	}
	return ok
}
