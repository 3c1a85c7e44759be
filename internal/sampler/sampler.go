// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/arm_sensor_node/internal/orientation"
)

// Opts are the sampler timings.
type Opts struct {
	// Period is the tick interval.
	Period time.Duration
	// HeartbeatInterval is how often the indicator toggles while running.
	HeartbeatInterval time.Duration
	// StartPoll is how often the start input is checked before boot.
	StartPoll time.Duration
}

// DefaultOpts runs at 100 Hz with a 250 ms heartbeat.
func DefaultOpts() Opts {
	return Opts{
		Period:            10 * time.Millisecond,
		HeartbeatInterval: 250 * time.Millisecond,
		StartPoll:         10 * time.Millisecond,
	}
}

func (o Opts) validate() error {
	if o.Period <= 0 {
		return errors.Errorf("sampler: period must be > 0, got %s", o.Period)
	}
	if o.HeartbeatInterval <= 0 {
		return errors.Errorf("sampler: heartbeat interval must be > 0, got %s", o.HeartbeatInterval)
	}
	if o.StartPoll <= 0 {
		return errors.Errorf("sampler: start poll must be > 0, got %s", o.StartPoll)
	}
	return nil
}

// Stats is a snapshot of the sampler counters.
type Stats struct {
	Ticks            uint64
	IMUReadFailures  uint64
	JointFailures    uint64
	TransmitFailures uint64
}

// Sampler boots the devices and then drives one acquisition cycle per tick.
type Sampler struct {
	clk       clock.Clock
	start     gpio.PinIn
	heartbeat gpio.PinOut
	opts      Opts
	log       logrus.FieldLogger

	devices cell

	armed     chan struct{}
	armedOnce sync.Once

	ticks            atomic.Uint64
	jointFailures    atomic.Uint64
	transmitFailures atomic.Uint64
}

// New returns a sampler. start must read High before boot proceeds;
// heartbeat is lit during calibration and blinks while running.
func New(clk clock.Clock, start gpio.PinIn, heartbeat gpio.PinOut, opts Opts, log logrus.FieldLogger) (*Sampler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if start == nil || heartbeat == nil {
		return nil, errors.New("sampler: start and heartbeat pins are required")
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sampler{
		clk:       clk,
		start:     start,
		heartbeat: heartbeat,
		opts:      opts,
		log:       log,
		armed:     make(chan struct{}),
	}, nil
}

// WaitForStart polls the start input until it reads High.
func (s *Sampler) WaitForStart(ctx context.Context) error {
	if s.start.Read() == gpio.High {
		return nil
	}
	s.log.Infof("sampler: waiting for start input %s", s.start)
	for {
		t := s.clk.Timer(s.opts.StartPoll)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if s.start.Read() == gpio.High {
			return nil
		}
	}
}

// Boot waits for the start input, calibrates both sensors with the
// indicator lit, and hands d to the sampler. d must not be used by the
// caller afterwards.
func (s *Sampler) Boot(ctx context.Context, d *Devices) error {
	if err := d.validate(); err != nil {
		return err
	}
	if s.devices.filled() {
		return errors.New("sampler: already booted")
	}
	if err := s.WaitForStart(ctx); err != nil {
		return errors.Wrap(err, "sampler: start")
	}

	if err := s.heartbeat.Out(gpio.High); err != nil {
		return errors.Wrap(err, "sampler: heartbeat on")
	}
	s.log.Infof("sampler: calibrating, keep the arm still")
	if err := d.IMU.Initialize(ctx); err != nil {
		return errors.Wrap(err, "sampler: imu calibration")
	}
	if err := d.Joint.Initialize(ctx); err != nil {
		return errors.Wrap(err, "sampler: joint calibration")
	}
	if err := s.heartbeat.Out(gpio.Low); err != nil {
		return errors.Wrap(err, "sampler: heartbeat off")
	}

	d.IMU.Read(ctx)
	a := d.IMU.Accel()
	tilt := orientation.ComputePoseFromAccel(float64(a.X), float64(a.Y), float64(a.Z))
	s.log.Infof("sampler: calibration done, resting tilt roll=%.1f pitch=%.1f", tilt.Roll, tilt.Pitch)

	if !s.devices.put(d) {
		return errors.New("sampler: already booted")
	}
	return nil
}

// Tick runs one acquisition cycle. It reports false if Boot has not
// completed.
func (s *Sampler) Tick(ctx context.Context) bool {
	return s.devices.with(func(d *Devices) {
		d.IMU.Read(ctx)
		a := d.IMU.Accel()
		g := d.IMU.Compensate(d.IMU.Gyro())
		d.Filter.Update(a, g)

		angle, err := d.Joint.Read(ctx)
		if err != nil {
			angle = 0
			s.jointFailures.Inc()
		}

		if err := d.Encoder.TransmitQuaternion(d.Filter); err != nil {
			s.transmitFailures.Inc()
		}
		if err := d.Encoder.TransmitAngle(angle); err != nil {
			s.transmitFailures.Inc()
		}
		s.ticks.Inc()
	})
}

// Armed is closed once the tick loop is running.
func (s *Sampler) Armed() <-chan struct{} { return s.armed }

// Run ticks at the configured period and blinks the heartbeat until ctx
// is cancelled. Boot must have succeeded. Ticks that arrive while one is
// still running are dropped.
func (s *Sampler) Run(ctx context.Context) error {
	if !s.devices.filled() {
		return errors.New("sampler: run before boot")
	}

	ticker := s.clk.Ticker(s.opts.Period)
	defer ticker.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
	hb := s.clk.Ticker(s.opts.HeartbeatInterval)
	defer hb.Stop()

	s.log.Infof("sampler: armed at %s", s.opts.Period)
	s.armedOnce.Do(func() { close(s.armed) })
	level := gpio.Low
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			if err := s.heartbeat.Out(gpio.Low); err != nil {
				s.log.Warnf("sampler: heartbeat off: %v", err)
			}
			st := s.Stats()
			s.log.Infof("sampler: stopped after %d ticks (imu failures %d, joint failures %d, transmit failures %d)",
				st.Ticks, st.IMUReadFailures, st.JointFailures, st.TransmitFailures)
			return nil
		case <-hb.C:
			level = !level
			if err := s.heartbeat.Out(level); err != nil {
				s.log.Warnf("sampler: heartbeat: %v", err)
			}
		}
	}
}

// Stats returns the current counters.
func (s *Sampler) Stats() Stats {
	st := Stats{
		Ticks:            s.ticks.Load(),
		JointFailures:    s.jointFailures.Load(),
		TransmitFailures: s.transmitFailures.Load(),
	}
	s.devices.with(func(d *Devices) {
		if fc, ok := d.IMU.(failureCounter); ok {
			st.IMUReadFailures = fc.ReadFailures()
		}
	})
	return st
}
