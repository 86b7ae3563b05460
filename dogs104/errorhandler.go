// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dogs104

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// errorHandler keeps the first error of a sequence of bus operations and
// turns the following ones into no-ops.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil || eh.d.rst == nil {
		return
	}
	if err := eh.d.rst.Out(l); err != nil {
		eh.err = fmt.Errorf("dogs104: reset line: %w", err)
	}
}

func (eh *errorHandler) csOut(l gpio.Level) {
	if eh.err != nil || eh.d.cs == nil {
		return
	}
	if err := eh.d.cs.Out(l); err != nil {
		eh.err = fmt.Errorf("dogs104: select line: %w", err)
	}
}

func (eh *errorHandler) cTx(w []byte) {
	if eh.err != nil {
		return
	}
	if err := eh.d.c.Tx(w, nil); err != nil {
		eh.err = fmt.Errorf("dogs104: transmit: %w", err)
	}
}

// release deselects the display even when the transfer failed, so the bus
// is idle between transactions.
func (eh *errorHandler) release() {
	if eh.d.cs == nil {
		return
	}
	if err := eh.d.cs.Out(gpio.High); err != nil && eh.err == nil {
		eh.err = fmt.Errorf("dogs104: select line: %w", err)
	}
}

// send is one bus transaction: deselect, settle, select, settle, transfer
// the frame, deselect.
func (eh *errorHandler) send(f Frame) {
	if eh.err != nil {
		return
	}
	eh.csOut(gpio.High)
	eh.d.delay.Delay(eh.d.opts.SettleDelay)
	eh.csOut(gpio.Low)
	if eh.err != nil {
		return
	}
	eh.d.delay.Delay(eh.d.opts.SettleDelay)
	eh.cTx(f[:])
	eh.release()
}
