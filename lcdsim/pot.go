// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"sync"
	"time"

	"github.com/GermanBionicSystems/lcdclock/dimmer"
)

// Pot is a potentiometer on an emulated 12 bit ADC. With a non zero Step it
// sweeps from 0 to full scale and back by Step on every conversion.
type Pot struct {
	Step uint16

	mu    sync.Mutex
	value uint16
	down  bool
}

// Set moves the wiper.
func (p *Pot) Set(v uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v > dimmer.MaxSample {
		v = dimmer.MaxSample
	}
	p.value = v
}

// Start implements dimmer.ADC.
func (p *Pot) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	step := p.Step
	if step == 0 {
		return nil
	}
	if step > dimmer.MaxSample {
		step = dimmer.MaxSample
	}
	if p.down {
		if p.value <= step {
			p.value, p.down = 0, false
		} else {
			p.value -= step
		}
	} else {
		if p.value >= dimmer.MaxSample-step {
			p.value, p.down = dimmer.MaxSample, true
		} else {
			p.value += step
		}
	}
	return nil
}

// Poll implements dimmer.ADC. Conversions are instant.
func (p *Pot) Poll(timeout time.Duration) error {
	return nil
}

// Value implements dimmer.ADC.
func (p *Pot) Value() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

var _ dimmer.ADC = &Pot{}
