// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dimmer

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// AnalogADC adapts a periph analog input to ADC. periph reads are
// synchronous, so the conversion happens in Poll.
type AnalogADC struct {
	p     analog.PinADC
	value uint16
}

// NewAnalogADC returns an ADC reading p.
func NewAnalogADC(p analog.PinADC) *AnalogADC {
	return &AnalogADC{p: p}
}

// Start implements ADC.
func (a *AnalogADC) Start() error {
	return nil
}

// Poll implements ADC. The read runs in the caller's goroutine; a read
// slower than timeout is reported as ErrConversionTimeout but its result is
// dropped.
func (a *AnalogADC) Poll(timeout time.Duration) error {
	start := time.Now()
	s, err := a.p.Read()
	if err != nil {
		return err
	}
	if time.Since(start) > timeout {
		return ErrConversionTimeout
	}
	raw := s.Raw
	if raw < 0 {
		raw = 0
	}
	if raw > MaxSample {
		raw = MaxSample
	}
	a.value = uint16(raw)
	return nil
}

// Value implements ADC.
func (a *AnalogADC) Value() uint16 {
	return a.value
}

func (a *AnalogADC) String() string {
	return fmt.Sprintf("dimmer.AnalogADC{%s}", a.p)
}

// PinPWM adapts a periph PWM capable pin to PWM.
type PinPWM struct {
	p   gpio.PinOut
	f   physic.Frequency
	top uint32
}

// NewPinPWM returns a PWM on p at frequency f where a compare value of top
// is full duty.
func NewPinPWM(p gpio.PinOut, f physic.Frequency, top uint32) *PinPWM {
	if top == 0 {
		top = MaxSample
	}
	return &PinPWM{p: p, f: f, top: top}
}

// SetCompare implements PWM. Values above top mean full duty.
func (p *PinPWM) SetCompare(v uint32) error {
	if v > p.top {
		v = p.top
	}
	d := gpio.Duty(uint64(v) * uint64(gpio.DutyMax) / uint64(p.top))
	return p.p.PWM(d, p.f)
}

func (p *PinPWM) String() string {
	return fmt.Sprintf("dimmer.PinPWM{%s, %s}", p.p, p.f)
}

var _ ADC = &AnalogADC{}
var _ PWM = &PinPWM{}
