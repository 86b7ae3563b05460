// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dimmer drives the backlight brightness from a potentiometer: each
// update samples the ADC and writes the raw sample to the PWM compare
// register, without scaling.
package dimmer

import (
	"errors"
	"fmt"
	"time"
)

// MaxSample is the largest 12 bit conversion result.
const MaxSample = 4095

// ErrConversionTimeout is returned when the ADC did not finish in time.
var ErrConversionTimeout = errors.New("dimmer: conversion timed out")

// ErrSampleHeld wraps a failed conversion that Update recovered from by
// writing the last good sample again.
var ErrSampleHeld = errors.New("dimmer: last sample held")

// ADC is a single channel converter with software triggered conversions.
type ADC interface {
	// Start triggers a conversion.
	Start() error
	// Poll waits up to timeout for the conversion to complete. It returns
	// ErrConversionTimeout if it did not.
	Poll(timeout time.Duration) error
	// Value returns the last completed conversion.
	Value() uint16
}

// PWM is the compare register of a PWM timer channel.
type PWM interface {
	SetCompare(v uint32) error
}

// Opts tunes the controller.
type Opts struct {
	// PollTimeout bounds the wait for one conversion.
	PollTimeout time.Duration
	// Default is written when no conversion completed yet.
	Default uint16
}

// DefaultOpts waits 100ms and starts at full brightness.
var DefaultOpts = Opts{PollTimeout: 100 * time.Millisecond, Default: MaxSample}

// Controller forwards ADC samples to the PWM.
type Controller struct {
	adc  ADC
	pwm  PWM
	opts Opts
	last uint16
}

// New returns a Controller.
func New(adc ADC, pwm PWM, opts *Opts) *Controller {
	if opts == nil {
		opts = &DefaultOpts
	}
	c := &Controller{adc: adc, pwm: pwm, opts: *opts}
	if c.opts.PollTimeout <= 0 {
		c.opts.PollTimeout = DefaultOpts.PollTimeout
	}
	c.last = c.opts.Default
	return c
}

// Update samples the ADC and writes the sample to the PWM. If the
// conversion fails the last good sample, or Default before the first one,
// is written instead and the conversion error is returned along with it,
// wrapped in ErrSampleHeld. Any other error means the PWM was not updated.
func (c *Controller) Update() (uint16, error) {
	var convErr error
	if err := c.adc.Start(); err != nil {
		convErr = fmt.Errorf("%w: start: %w", ErrSampleHeld, err)
	} else if err := c.adc.Poll(c.opts.PollTimeout); err != nil {
		convErr = fmt.Errorf("%w: poll: %w", ErrSampleHeld, err)
	} else {
		c.last = c.adc.Value()
	}
	if err := c.pwm.SetCompare(uint32(c.last)); err != nil {
		return c.last, fmt.Errorf("dimmer: %w", err)
	}
	return c.last, convErr
}

// Last returns the value last written to the PWM.
func (c *Controller) Last() uint16 {
	return c.last
}
