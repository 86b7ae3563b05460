// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console is the operator terminal used to seed the clock: prompts
// go out as text, answers come back as fixed size fields.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrTimeout is returned when a receive did not complete in time.
var ErrTimeout = errors.New("console: receive timed out")

// Console sends prompts and receives fixed length answers.
type Console interface {
	// Send writes s as is.
	Send(s string) error
	// Receive fills buf completely or returns ErrTimeout once timeout
	// elapsed.
	Receive(ctx context.Context, buf []byte, timeout time.Duration) error
}

// Stream is a Console on top of a byte stream, such as a serial port or the
// process standard input and output.
//
// A goroutine reads r until it fails. CR and LF are skipped, so a line
// buffered terminal can be used to type the fields. Bytes of a receive that
// timed out or was canceled are kept and start the next receive, so a field
// typed across a timeout is not split.
type Stream struct {
	w io.Writer

	in   chan byte
	once sync.Once
	r    io.Reader

	mu      sync.Mutex
	err     error
	pending []byte
}

// NewStream returns a Stream reading r and writing w.
func NewStream(r io.Reader, w io.Writer) *Stream {
	return &Stream{r: r, w: w, in: make(chan byte, 64)}
}

func (s *Stream) start() {
	s.once.Do(func() {
		go s.pump()
	})
}

func (s *Stream) pump() {
	var b [1]byte
	for {
		n, err := s.r.Read(b[:])
		if n == 1 && b[0] != '\r' && b[0] != '\n' {
			s.in <- b[0]
		}
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			close(s.in)
			return
		}
	}
}

// Send implements Console.
func (s *Stream) Send(str string) error {
	if _, err := io.WriteString(s.w, str); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// Receive implements Console. Once the reader failed, it returns that error
// after the buffered bytes are consumed.
func (s *Stream) Receive(ctx context.Context, buf []byte, timeout time.Duration) error {
	s.start()
	s.mu.Lock()
	n := copy(buf, s.pending)
	s.pending = s.pending[n:]
	s.mu.Unlock()
	if n == len(buf) {
		return nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	for ; n < len(buf); n++ {
		select {
		case b, ok := <-s.in:
			if !ok {
				s.mu.Lock()
				defer s.mu.Unlock()
				return fmt.Errorf("console: %w", s.err)
			}
			buf[n] = b
		case <-t.C:
			s.keep(buf[:n])
			return ErrTimeout
		case <-ctx.Done():
			s.keep(buf[:n])
			return ctx.Err()
		}
	}
	return nil
}

// keep puts back the bytes of an incomplete receive.
func (s *Stream) keep(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(append([]byte(nil), b...), s.pending...)
}

func (s *Stream) String() string {
	return "console.Stream"
}

var _ Console = &Stream{}
