// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdclock is a container for the packages of a clock panel built on
// an EA DOGS104-A character display.
//
// dogs104 drives the display, ds1307 and rtc keep the time, dimmer follows a
// potentiometer with the backlight, clock and supervisor tie them together.
// lcdsim emulates the display so all of it runs without hardware; see
// cmd/lcdclock.
package lcdclock
