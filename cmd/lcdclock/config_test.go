// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lcdclock.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, defaultConfig()); diff != "" {
		t.Errorf("(-got +want):\n%s", diff)
	}
	if cfg.CoreClock != 0 || cfg.CyclesPerLoop != 1 {
		t.Errorf("spin calibration %s/%d", cfg.CoreClock, cfg.CyclesPerLoop)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
spi = "/dev/spidev0.1"
cs = " GPIO7 "
frequency = "500kHz"
settle = "2ms"
rtc = "soft"
adc = "ADC0"
contrast = 42
core_clock = "16MHz"
cycles_per_loop = 4
field_timeout = "5s"
max_attempts = 30
refresh = "1s"
max_consecutive_errors = 10
skip_time_set = true
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := defaultConfig()
	want.SPI = "/dev/spidev0.1"
	want.CS = "GPIO7"
	want.Frequency = 500 * physic.KiloHertz
	want.Settle = 2 * time.Millisecond
	want.RTC = "soft"
	want.ADC = "ADC0"
	want.Contrast = 42
	want.CoreClock = 16 * physic.MegaHertz
	want.CyclesPerLoop = 4
	want.FieldTimeout = 5 * time.Second
	want.MaxAttempts = 30
	want.Refresh = time.Second
	want.MaxErrors = 10
	want.SkipTimeSet = true
	if diff := cmp.Diff(cfg, want); diff != "" {
		t.Errorf("(-got +want):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	data := []struct {
		body string
		want string
	}{
		{`settle = "soon"`, "parse settle"},
		{`refresh = "-1s"`, "negative duration"},
		{`frequency = "fast"`, "parse frequency"},
		{`rtc_address = 200`, "rtc_address"},
		{`contrast = 64`, "contrast 64"},
		{`cycles_per_loop = 0`, "cycles_per_loop"},
		{`rtc = "ds3231"`, "want ds1307 or soft"},
		{`colour = "green"`, "unknown key"},
		{`spi = `, "load config"},
	}
	for i, line := range data {
		_, err := loadConfig(writeConfig(t, line.body))
		if err == nil || !strings.Contains(err.Error(), line.want) {
			t.Errorf("#%d: loadConfig(%q) = %v, want error containing %q", i, line.body, err, line.want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewLogger(t *testing.T) {
	t.Setenv(logLevelEnv, "")
	var buf strings.Builder
	log, err := newLogger(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}

	t.Setenv(logLevelEnv, "debug")
	buf.Reset()
	log, err = newLogger(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}
	log.Debug().Msg("override")
	if !strings.Contains(buf.String(), "override") {
		t.Errorf("env override ignored: %q", buf.String())
	}

	t.Setenv(logLevelEnv, "loud")
	if _, err := newLogger(&buf, "info"); err == nil {
		t.Error("expected error for unknown level")
	}
}
