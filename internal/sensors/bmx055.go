// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/arm_sensor_node/internal/imu"
)

const (
	// AccelAddr is the BMX055 accelerometer I2C address.
	AccelAddr uint16 = 0x19
	// GyroAddr is the BMX055 gyroscope I2C address.
	GyroAddr uint16 = 0x69

	// dataReg is the first data register on both devices.
	dataReg byte = 0x02
)

// InertialOpts configures boot-time behaviour of the BMX055 driver.
type InertialOpts struct {
	CalibrationSamples int
	SampleInterval     time.Duration
	SettleDelay        time.Duration
	Retry              RetryPolicy
}

// DefaultInertialOpts matches the node's factory setup.
func DefaultInertialOpts() InertialOpts {
	return InertialOpts{
		CalibrationSamples: 1000,
		SampleInterval:     10 * time.Millisecond,
		SettleDelay:        10 * time.Millisecond,
		Retry:              Unbounded,
	}
}

// InertialSensor drives the BMX055 accelerometer and gyroscope over I2C.
//
// Read never fails: a failed transaction keeps the previous reading and is
// counted in ReadFailures.
type InertialSensor struct {
	accel i2c.Dev
	gyro  i2c.Dev
	clk   clock.Clock
	opts  InertialOpts
	log   logrus.FieldLogger

	mu        sync.Mutex
	lastAccel imu.PhysicalAccel
	lastGyro  imu.PhysicalGyro
	bias      imu.GyroBias

	failures atomic.Uint64
}

// NewInertialSensor returns a driver on bus. Nothing is written until
// Initialize is called.
func NewInertialSensor(bus i2c.Bus, clk clock.Clock, opts InertialOpts, log logrus.FieldLogger) (*InertialSensor, error) {
	if bus == nil {
		return nil, errors.New("imu: nil bus")
	}
	if opts.CalibrationSamples < 1 {
		return nil, errors.Errorf("imu: calibration samples must be >= 1, got %d", opts.CalibrationSamples)
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InertialSensor{
		accel: i2c.Dev{Bus: bus, Addr: AccelAddr},
		gyro:  i2c.Dev{Bus: bus, Addr: GyroAddr},
		clk:   clk,
		opts:  opts,
		log:   log,
	}, nil
}

// Initialize configures both devices and measures the gyroscope bias.
// The device must be at rest.
func (s *InertialSensor) Initialize(ctx context.Context) error {
	for _, blk := range bmx055Setup {
		dev := s.accel
		if blk.Addr == GyroAddr {
			dev = s.gyro
		}
		s.log.Debugf("imu: configuring %s at 0x%02X", blk.Name, blk.Addr)
		for _, w := range blk.Writes {
			s.log.Debugf("imu:   %s", w)
		}
		seq := blk.Sequence()
		err := s.opts.Retry.Do(ctx, "imu: configure "+blk.Name, func() error {
			return dev.Tx(seq, nil)
		})
		if err != nil {
			return err
		}
		if err := sleep(ctx, s.clk, s.opts.SettleDelay); err != nil {
			return errors.Wrap(err, "imu: settle")
		}
	}
	s.log.Infof("imu: accelerometer and gyroscope configured")

	bias, err := s.calibrate(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bias = bias
	s.mu.Unlock()
	s.log.Infof("imu: gyro bias x=%.4f y=%.4f z=%.4f deg/s (%d samples)",
		bias.X, bias.Y, bias.Z, s.opts.CalibrationSamples)
	return nil
}

func (s *InertialSensor) calibrate(ctx context.Context) (imu.GyroBias, error) {
	n := s.opts.CalibrationSamples
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	zs := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		var g imu.PhysicalGyro
		err := s.opts.Retry.Do(ctx, "imu: calibration sample", func() error {
			var err error
			g, err = s.readGyro()
			return err
		})
		if err != nil {
			return imu.GyroBias{}, err
		}
		xs = append(xs, float64(g.X))
		ys = append(ys, float64(g.Y))
		zs = append(zs, float64(g.Z))
		if err := sleep(ctx, s.clk, s.opts.SampleInterval); err != nil {
			return imu.GyroBias{}, errors.Wrap(err, "imu: calibration")
		}
	}

	var b imu.GyroBias
	var err error
	if b.X, err = mean(xs); err != nil {
		return b, errors.Wrap(err, "imu: bias x")
	}
	if b.Y, err = mean(ys); err != nil {
		return b, errors.Wrap(err, "imu: bias y")
	}
	if b.Z, err = mean(zs); err != nil {
		return b, errors.Wrap(err, "imu: bias z")
	}
	return b, nil
}

func (s *InertialSensor) readAccel() (imu.PhysicalAccel, error) {
	var raw imu.RawAccelSample
	if err := s.accel.Tx([]byte{dataReg}, raw[:]); err != nil {
		return imu.PhysicalAccel{}, errors.Wrap(err, "imu: accel read")
	}
	return imu.DecodeAccel(raw), nil
}

func (s *InertialSensor) readGyro() (imu.PhysicalGyro, error) {
	var raw imu.RawGyroSample
	if err := s.gyro.Tx([]byte{dataReg}, raw[:]); err != nil {
		return imu.PhysicalGyro{}, errors.Wrap(err, "imu: gyro read")
	}
	return imu.DecodeGyro(raw), nil
}

// Read refreshes the accelerometer then the gyroscope. Each device that
// fails keeps its previous value.
func (s *InertialSensor) Read(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	a, aerr := s.readAccel()
	g, gerr := s.readGyro()

	s.mu.Lock()
	defer s.mu.Unlock()
	if aerr == nil {
		s.lastAccel = a
	} else {
		s.failures.Inc()
	}
	if gerr == nil {
		s.lastGyro = g
	} else {
		s.failures.Inc()
	}
}

// Accel returns the last good accelerometer reading.
func (s *InertialSensor) Accel() imu.PhysicalAccel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccel
}

// Gyro returns the last good gyroscope reading, bias not removed.
func (s *InertialSensor) Gyro() imu.PhysicalGyro {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGyro
}

// Bias returns the calibrated gyroscope bias.
func (s *InertialSensor) Bias() imu.GyroBias {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bias
}

// Compensate removes the calibrated bias from g.
func (s *InertialSensor) Compensate(g imu.PhysicalGyro) imu.PhysicalGyro {
	return s.Bias().Sub(g)
}

// ReadFailures is the number of failed device reads since construction.
func (s *InertialSensor) ReadFailures() uint64 {
	return s.failures.Load()
}
