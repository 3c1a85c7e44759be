// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"periph.io/x/conn/v3/analog"
)

// Converter is a single analog channel. ads1x15.PinADC satisfies it.
type Converter interface {
	Read() (analog.Sample, error)
}

// JointOpts configures the potentiometer driver.
type JointOpts struct {
	CalibrationSamples int
	SampleInterval     time.Duration
	// Gain is degrees per raw count.
	Gain  float32
	Retry RetryPolicy
}

// DefaultJointOpts matches the node's factory setup.
func DefaultJointOpts() JointOpts {
	return JointOpts{
		CalibrationSamples: 100,
		SampleInterval:     10 * time.Millisecond,
		Gain:               1.0 / 15.0,
		Retry:              Unbounded,
	}
}

// JointAngleSensor turns potentiometer conversions into a joint angle in
// radians relative to the rest position measured at boot.
type JointAngleSensor struct {
	conv Converter
	clk  clock.Clock
	opts JointOpts
	log  logrus.FieldLogger

	mu     sync.Mutex
	offset float32

	failures atomic.Uint64
}

// NewJointAngleSensor wraps conv. The offset is zero until Initialize.
func NewJointAngleSensor(conv Converter, clk clock.Clock, opts JointOpts, log logrus.FieldLogger) (*JointAngleSensor, error) {
	if conv == nil {
		return nil, errors.New("joint: nil converter")
	}
	if opts.CalibrationSamples < 1 {
		return nil, errors.Errorf("joint: calibration samples must be >= 1, got %d", opts.CalibrationSamples)
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &JointAngleSensor{conv: conv, clk: clk, opts: opts, log: log}, nil
}

// Initialize averages the rest position into the offset.
func (j *JointAngleSensor) Initialize(ctx context.Context) error {
	n := j.opts.CalibrationSamples
	samples := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		var s analog.Sample
		err := j.opts.Retry.Do(ctx, "joint: calibration sample", func() error {
			var err error
			s, err = j.conv.Read()
			return err
		})
		if err != nil {
			return err
		}
		samples = append(samples, float64(s.Raw))
		if err := sleep(ctx, j.clk, j.opts.SampleInterval); err != nil {
			return errors.Wrap(err, "joint: calibration")
		}
	}
	off, err := mean(samples)
	if err != nil {
		return errors.Wrap(err, "joint: offset")
	}
	j.mu.Lock()
	j.offset = off
	j.mu.Unlock()
	j.log.Infof("joint: offset %.2f counts (%d samples)", off, n)
	return nil
}

// Offset returns the calibrated rest position in raw counts.
func (j *JointAngleSensor) Offset() float32 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.offset
}

// Angle converts a raw count to radians.
func (j *JointAngleSensor) Angle(raw float32) float32 {
	return (raw - j.Offset()) * j.opts.Gain * math32.Pi / 180
}

// Read performs one conversion and returns the joint angle in radians.
func (j *JointAngleSensor) Read(ctx context.Context) (float32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s, err := j.conv.Read()
	if err != nil {
		j.failures.Inc()
		return 0, errors.Wrap(err, "joint: read")
	}
	return j.Angle(float32(s.Raw)), nil
}

// ReadFailures is the number of failed conversions since construction.
func (j *JointAngleSensor) ReadFailures() uint64 {
	return j.failures.Load()
}
