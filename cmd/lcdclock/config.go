// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/GermanBionicSystems/lcdclock/ds1307"
	"periph.io/x/conn/v3/physic"
)

// config is the resolved configuration of the panel.
type config struct {
	SPI       string
	CS        string
	Reset     string
	Frequency physic.Frequency
	Settle    time.Duration

	RTC        string
	I2C        string
	RTCAddress uint16

	ADC      string
	PWM      string
	PWMFreq  physic.Frequency
	ADCPoll  time.Duration
	Contrast int

	// CoreClock is the settle delay loop rate; zero measures it at start.
	CoreClock     physic.Frequency
	CyclesPerLoop uint32

	FieldTimeout time.Duration
	MaxAttempts  int
	Refresh      time.Duration
	MaxErrors    int
	SkipTimeSet  bool
	LogLevel     string
}

func defaultConfig() config {
	return config{
		SPI:           "",
		CS:            "GPIO8",
		Reset:         "GPIO25",
		Frequency:     physic.MegaHertz,
		Settle:        10 * time.Millisecond,
		RTC:           "ds1307",
		I2C:           "",
		RTCAddress:    ds1307.DefaultAddress,
		ADC:           "",
		PWM:           "GPIO18",
		PWMFreq:       physic.KiloHertz,
		ADCPoll:       100 * time.Millisecond,
		Contrast:      -1,
		CyclesPerLoop: 1,
		FieldTimeout:  time.Second,
		Refresh:       200 * time.Millisecond,
		LogLevel:      "info",
	}
}

type fileConfig struct {
	SPI           string `toml:"spi"`
	CS            string `toml:"cs"`
	Reset         string `toml:"reset"`
	Frequency     string `toml:"frequency"`
	Settle        string `toml:"settle"`
	RTC           string `toml:"rtc"`
	I2C           string `toml:"i2c"`
	RTCAddress    int64  `toml:"rtc_address"`
	ADC           string `toml:"adc"`
	PWM           string `toml:"pwm"`
	PWMFreq       string `toml:"pwm_frequency"`
	ADCPoll       string `toml:"adc_poll"`
	Contrast      int    `toml:"contrast"`
	CoreClock     string `toml:"core_clock"`
	CyclesPerLoop int64  `toml:"cycles_per_loop"`
	FieldTimeout  string `toml:"field_timeout"`
	MaxAttempts   int    `toml:"max_attempts"`
	Refresh       string `toml:"refresh"`
	MaxErrors     int    `toml:"max_consecutive_errors"`
	SkipTimeSet   bool   `toml:"skip_time_set"`
	LogLevel      string `toml:"log_level"`
}

// loadConfig returns the defaults overridden by the keys present in path.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		return config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("spi") {
		cfg.SPI = strings.TrimSpace(raw.SPI)
	}
	if meta.IsDefined("cs") {
		cfg.CS = strings.TrimSpace(raw.CS)
	}
	if meta.IsDefined("reset") {
		cfg.Reset = strings.TrimSpace(raw.Reset)
	}
	if meta.IsDefined("rtc") {
		switch v := strings.TrimSpace(raw.RTC); v {
		case "ds1307", "soft":
			cfg.RTC = v
		default:
			return config{}, fmt.Errorf("rtc %q: want ds1307 or soft", v)
		}
	}
	if meta.IsDefined("i2c") {
		cfg.I2C = strings.TrimSpace(raw.I2C)
	}
	if meta.IsDefined("adc") {
		cfg.ADC = strings.TrimSpace(raw.ADC)
	}
	if meta.IsDefined("pwm") {
		cfg.PWM = strings.TrimSpace(raw.PWM)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	freqs := []struct {
		key string
		raw string
		dst *physic.Frequency
	}{
		{"frequency", raw.Frequency, &cfg.Frequency},
		{"pwm_frequency", raw.PWMFreq, &cfg.PWMFreq},
		{"core_clock", raw.CoreClock, &cfg.CoreClock},
	}
	for _, f := range freqs {
		if !meta.IsDefined(f.key) {
			continue
		}
		if err := f.dst.Set(strings.TrimSpace(f.raw)); err != nil {
			return config{}, fmt.Errorf("parse %s: %w", f.key, err)
		}
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"settle", raw.Settle, &cfg.Settle},
		{"adc_poll", raw.ADCPoll, &cfg.ADCPoll},
		{"field_timeout", raw.FieldTimeout, &cfg.FieldTimeout},
		{"refresh", raw.Refresh, &cfg.Refresh},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v < 0 {
			return config{}, fmt.Errorf("parse %s: negative duration %s", d.key, v)
		}
		*d.dst = v
	}

	if meta.IsDefined("rtc_address") {
		if raw.RTCAddress <= 0 || raw.RTCAddress > 0x7f {
			return config{}, fmt.Errorf("rtc_address 0x%x is not a 7 bit address", raw.RTCAddress)
		}
		cfg.RTCAddress = uint16(raw.RTCAddress)
	}
	if meta.IsDefined("contrast") {
		if raw.Contrast > 63 {
			return config{}, fmt.Errorf("contrast %d out of range 0..63", raw.Contrast)
		}
		cfg.Contrast = raw.Contrast
	}
	if meta.IsDefined("cycles_per_loop") {
		if raw.CyclesPerLoop <= 0 || raw.CyclesPerLoop > 1<<16 {
			return config{}, fmt.Errorf("cycles_per_loop %d out of range", raw.CyclesPerLoop)
		}
		cfg.CyclesPerLoop = uint32(raw.CyclesPerLoop)
	}
	if meta.IsDefined("max_attempts") {
		cfg.MaxAttempts = raw.MaxAttempts
	}
	if meta.IsDefined("max_consecutive_errors") {
		cfg.MaxErrors = raw.MaxErrors
	}
	if meta.IsDefined("skip_time_set") {
		cfg.SkipTimeSet = raw.SkipTimeSet
	}
	return cfg, nil
}
