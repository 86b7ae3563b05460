// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcdclock shows a real time clock on an EA DOGS104-A panel and dims its
// backlight from a potentiometer.
//
// On start the time is asked on the console, two digits per field. With -sim
// the panel is emulated and drawn on the terminal instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/lcdclock/clock"
	"github.com/GermanBionicSystems/lcdclock/console"
	"github.com/GermanBionicSystems/lcdclock/cycledelay"
	"github.com/GermanBionicSystems/lcdclock/dimmer"
	"github.com/GermanBionicSystems/lcdclock/dogs104"
	"github.com/GermanBionicSystems/lcdclock/ds1307"
	"github.com/GermanBionicSystems/lcdclock/lcdsim"
	"github.com/GermanBionicSystems/lcdclock/rtc"
	"github.com/GermanBionicSystems/lcdclock/supervisor"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const logLevelEnv = "LCDCLOCK_LOG_LEVEL"

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	if v := strings.TrimSpace(os.Getenv(logLevelEnv)); v != "" {
		level = v
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "lcdclock").Logger(), nil
}

// panel is everything the supervisor drives, plus what has to be released
// on exit.
type panel struct {
	display *dogs104.Dev
	rtc     rtc.RTC
	dimmer  supervisor.Dimmer
	closers []io.Closer
}

func (p *panel) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func pinByName(kind, name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%s pin %q not found", kind, name)
	}
	return p, nil
}

// openHardware opens the panel, the RTC and the dimmer through periph.
func openHardware(cfg *config, log zerolog.Logger) (*panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	p := &panel{}
	port, err := spireg.Open(cfg.SPI)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, port)

	var cs, rst gpio.PinOut
	if pin, err := pinByName("cs", cfg.CS); err != nil {
		_ = p.Close()
		return nil, err
	} else if pin != nil {
		cs = pin
	}
	if pin, err := pinByName("reset", cfg.Reset); err != nil {
		_ = p.Close()
		return nil, err
	} else if pin != nil {
		rst = pin
	}
	spin := &cycledelay.Spin{Clock: cfg.CoreClock, CyclesPerLoop: cfg.CyclesPerLoop}
	if cfg.CoreClock == 0 {
		*spin = cycledelay.Calibrate(50 * time.Millisecond)
	}
	log.Debug().Stringer("delay", spin).Msg("settle delay")
	p.display, err = dogs104.New(port, cs, rst, &dogs104.Opts{
		Rows:        dogs104.DefaultOpts.Rows,
		Cols:        dogs104.DefaultOpts.Cols,
		SettleDelay: cfg.Settle,
		ResetDelay:  cfg.Settle,
		Frequency:   cfg.Frequency,
		Delay:       spin,
	})
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	if cfg.Contrast >= 0 {
		if err := p.display.Contrast(display.Contrast(cfg.Contrast)); err != nil {
			_ = p.Close()
			return nil, err
		}
	}

	switch cfg.RTC {
	case "ds1307":
		bus, err := i2creg.Open(cfg.I2C)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.closers = append(p.closers, bus)
		p.rtc = ds1307.New(bus, cfg.RTCAddress)
	default:
		p.rtc = &rtc.Soft{}
	}

	if cfg.ADC == "" {
		log.Info().Msg("no ADC configured, backlight dimmer disabled")
		return p, nil
	}
	adc, ok := gpioreg.ByName(cfg.ADC).(analog.PinADC)
	if !ok {
		_ = p.Close()
		return nil, fmt.Errorf("adc pin %q not found or not analog", cfg.ADC)
	}
	pwm, err := pinByName("pwm", cfg.PWM)
	if err != nil || pwm == nil {
		_ = p.Close()
		return nil, fmt.Errorf("pwm pin %q not found", cfg.PWM)
	}
	p.dimmer = dimmer.New(dimmer.NewAnalogADC(adc), dimmer.NewPinPWM(pwm, cfg.PWMFreq, dimmer.MaxSample), &dimmer.Opts{
		PollTimeout: cfg.ADCPoll,
		Default:     dimmer.MaxSample,
	})
	return p, nil
}

// simDimmer redraws the emulated panel after each dimmer update, which is
// the last step of a refresh cycle.
type simDimmer struct {
	next *dimmer.Controller
	sim  *lcdsim.Dev
	term *lcdsim.Terminal
	log  zerolog.Logger
}

func (s *simDimmer) Update() (uint16, error) {
	v, err := s.next.Update()
	if rerr := s.term.Render(s.sim); rerr != nil {
		s.log.Warn().Err(rerr).Msg("render")
	}
	return v, err
}

// openSim builds the same panel on the emulator.
func openSim(cfg *config, log zerolog.Logger) (*panel, *lcdsim.Dev, error) {
	sim := lcdsim.New(dogs104.DefaultOpts.Rows, dogs104.DefaultOpts.Cols)
	d, err := dogs104.NewConn(sim, nil, nil, &dogs104.Opts{Delay: cycledelay.Instant})
	if err != nil {
		return nil, nil, err
	}
	if cfg.Contrast >= 0 {
		if err := d.Contrast(display.Contrast(cfg.Contrast)); err != nil {
			return nil, nil, err
		}
	}
	pot := &lcdsim.Pot{Step: 64}
	p := &panel{
		display: d,
		rtc:     &rtc.Soft{},
		dimmer: &simDimmer{
			next: dimmer.New(pot, sim, &dimmer.Opts{PollTimeout: cfg.ADCPoll, Default: dimmer.MaxSample}),
			sim:  sim,
			term: lcdsim.Stdout(),
			log:  log,
		},
	}
	return p, sim, nil
}

func writeSnapshot(path string, sim *lcdsim.Dev) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sim.Snapshot(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func mainImpl() error {
	configPath := flag.String("config", "", "TOML configuration file")
	simulate := flag.Bool("sim", false, "emulate the panel on the terminal")
	snapshot := flag.String("snapshot", "", "write a PNG of the emulated panel on exit; requires -sim")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *snapshot != "" && !*simulate {
		return errors.New("-snapshot requires -sim")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	var p *panel
	var sim *lcdsim.Dev
	if *simulate {
		p, sim, err = openSim(&cfg, log)
	} else {
		p, err = openHardware(&cfg, log)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Error().Err(err).Msg("close")
		}
	}()
	log.Info().Stringer("display", p.display).Str("rtc", fmt.Sprint(p.rtc)).Msg("panel ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	con := console.NewStream(os.Stdin, os.Stdout)
	svc := clock.New(p.rtc, p.display, con, log, &clock.Opts{
		FieldTimeout: cfg.FieldTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Row:          clock.DefaultOpts.Row,
	})
	loop := supervisor.New(p.display, svc, p.dimmer, log, &supervisor.Opts{
		RefreshDelay:         cfg.Refresh,
		MaxConsecutiveErrors: cfg.MaxErrors,
		SkipTimeSet:          cfg.SkipTimeSet,
	})
	err = loop.Run(ctx)
	if sim != nil && *snapshot != "" {
		if serr := writeSnapshot(*snapshot, sim); serr != nil {
			log.Error().Err(serr).Str("path", *snapshot).Msg("snapshot")
		}
	}
	if errors.Is(err, context.Canceled) {
		log.Info().Uint64("cycles", loop.Cycles()).Msg("stopped")
		return nil
	}
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "lcdclock: %s.\n", err)
		os.Exit(1)
	}
}
