// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dogs104 controls the EA DOGS104-A 4x10 character LCD, built around
// the Solomon SSD1803A controller, over its 3-wire SPI interface.
//
// Every byte goes out as a 3 byte frame: a start byte selecting instruction
// or data mode, then the low nibble and the high nibble of the value, each in
// the low 4 bits of its own byte. The bus is LSB first.
//
// # Datasheets
//
// https://www.lcd-module.com/fileadmin/eng/pdf/doma/dogs104e.pdf
//
// https://www.lcd-module.de/fileadmin/eng/pdf/zubehoer/ssd1803a_2_0.pdf
package dogs104
