// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package clock shows a real time clock on a character display and lets an
// operator set it from a console.
package clock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/lcdclock/console"
	"github.com/GermanBionicSystems/lcdclock/rtc"
	"github.com/rs/zerolog"
)

// ErrInputTimeout is returned when the operator did not answer a prompt
// within the allowed attempts.
var ErrInputTimeout = errors.New("clock: no input from console")

// Prompts sent to the operator.
const (
	PromptHours   = "\n write hours\n\r"
	PromptMinutes = "write minutes\n\r"
	PromptSeconds = "write seconds\n\r"
	PromptInvalid = "invalid value, try again\n\r"
	PromptDone    = "transfer is done!\n\r"
)

// fieldWidth is the number of characters of each console field.
const fieldWidth = 2

// RowWriter renders text on one row of a display. A zero byte ends the
// text.
type RowWriter interface {
	WriteRow(row int, glyphs []byte) error
}

// Opts tunes the console flow and the readout position.
type Opts struct {
	// FieldTimeout bounds a single receive of one field.
	FieldTimeout time.Duration
	// MaxAttempts is the number of timed out receives tolerated per field
	// before giving up. 0 retries until the context is done.
	MaxAttempts int
	// Row is the display row of the readout.
	Row int
}

// DefaultOpts waits one second per receive, forever, and shows the time on
// the first row.
var DefaultOpts = Opts{FieldTimeout: time.Second, Row: 1}

// Service owns the clock readout. It holds no copy of the time between
// calls; every Refresh reads the RTC again.
type Service struct {
	rtc     rtc.RTC
	display RowWriter
	console console.Console
	log     zerolog.Logger
	opts    Opts
}

// New returns a Service. con may be nil if SetFromConsole is never used.
func New(r rtc.RTC, display RowWriter, con console.Console, log zerolog.Logger, opts *Opts) *Service {
	if opts == nil {
		opts = &DefaultOpts
	}
	s := &Service{rtc: r, display: display, console: con, log: log, opts: *opts}
	if s.opts.FieldTimeout <= 0 {
		s.opts.FieldTimeout = DefaultOpts.FieldTimeout
	}
	if s.opts.Row == 0 {
		s.opts.Row = DefaultOpts.Row
	}
	return s
}

// Format returns t as the 8 character readout HH:MM:SS.
func Format(t rtc.TimeOfDay) string {
	return t.String()
}

// Refresh reads the RTC and renders the time. It returns the rendered text.
func (s *Service) Refresh() (string, error) {
	t, err := s.rtc.Time()
	if err != nil {
		return "", fmt.Errorf("clock: read time: %w", err)
	}
	// The date read unlocks the calendar shadow registers latched by the
	// time read on some RTCs.
	if _, err := s.rtc.Date(); err != nil {
		return "", fmt.Errorf("clock: read date: %w", err)
	}
	text := Format(t)
	if err := s.display.WriteRow(s.opts.Row, []byte(text)); err != nil {
		return "", fmt.Errorf("clock: render: %w", err)
	}
	return text, nil
}

// Acquire prompts for hours, minutes and seconds, in that order. Each field
// is two digits. Answers that do not parse or are out of range are rejected
// and the same field is asked again.
func (s *Service) Acquire(ctx context.Context) (rtc.TimeOfDay, error) {
	if s.console == nil {
		return rtc.TimeOfDay{}, errors.New("clock: no console")
	}
	var t rtc.TimeOfDay
	fields := []struct {
		name   string
		prompt string
		limit  uint64
		dst    *uint8
	}{
		{"hours", PromptHours, 23, &t.Hours},
		{"minutes", PromptMinutes, 59, &t.Minutes},
		{"seconds", PromptSeconds, 59, &t.Seconds},
	}
	for _, f := range fields {
		v, err := s.field(ctx, f.name, f.prompt, f.limit)
		if err != nil {
			return rtc.TimeOfDay{}, err
		}
		*f.dst = v
	}
	if err := s.console.Send(PromptDone); err != nil {
		return rtc.TimeOfDay{}, err
	}
	return t, nil
}

func (s *Service) field(ctx context.Context, name, prompt string, limit uint64) (uint8, error) {
	for {
		if err := s.console.Send(prompt); err != nil {
			return 0, err
		}
		raw, err := s.receive(ctx, name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseUint(string(raw), 10, 8)
		if err == nil && v <= limit {
			return uint8(v), nil
		}
		s.log.Warn().Str("field", name).Bytes("input", raw).Msg("rejected console input")
		if err := s.console.Send(PromptInvalid); err != nil {
			return 0, err
		}
	}
}

// receive waits for one field, retrying on receive timeouts.
func (s *Service) receive(ctx context.Context, name string) ([]byte, error) {
	buf := make([]byte, fieldWidth)
	for attempt := 1; ; attempt++ {
		err := s.console.Receive(ctx, buf, s.opts.FieldTimeout)
		if err == nil {
			return buf, nil
		}
		if !errors.Is(err, console.ErrTimeout) {
			return nil, err
		}
		if s.opts.MaxAttempts > 0 && attempt >= s.opts.MaxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrInputTimeout, name, attempt)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Debug().Str("field", name).Int("attempt", attempt).Msg("waiting for console input")
	}
}

// Commit writes t to the RTC. The date currently held by the RTC is written
// back first so both registers are set by the same update.
func (s *Service) Commit(t rtc.TimeOfDay) error {
	d, err := s.rtc.Date()
	if err != nil {
		return fmt.Errorf("clock: read date: %w", err)
	}
	if err := s.rtc.SetDate(d); err != nil {
		return fmt.Errorf("clock: set date: %w", err)
	}
	if err := s.rtc.SetTime(t); err != nil {
		return fmt.Errorf("clock: set time: %w", err)
	}
	s.log.Info().Str("time", t.String()).Str("date", d.String()).Msg("clock set")
	return nil
}

// SetFromConsole runs Acquire then Commit.
func (s *Service) SetFromConsole(ctx context.Context) error {
	t, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	return s.Commit(t)
}
