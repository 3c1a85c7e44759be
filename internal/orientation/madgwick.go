// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/relabs-tech/arm_sensor_node/internal/imu"
)

const degToRad = math32.Pi / 180

// FilterConfig holds the fixed parameters of the estimator.
type FilterConfig struct {
	// Gain weights the accelerometer correction, in (0, 1].
	Gain float32
	// SamplePeriod is the update interval in seconds.
	SamplePeriod float32
}

// ConfigForRate builds a FilterConfig for updates at hz.
func ConfigForRate(gain, hz float32) FilterConfig {
	if hz <= 0 {
		return FilterConfig{Gain: gain}
	}
	return FilterConfig{Gain: gain, SamplePeriod: 1 / hz}
}

// Validate rejects gains outside (0, 1] and non-positive periods.
func (c FilterConfig) Validate() error {
	if !(c.Gain > 0 && c.Gain <= 1) {
		return errors.Errorf("filter gain must be in (0, 1], got %v", c.Gain)
	}
	if !(c.SamplePeriod > 0) || math32.IsInf(c.SamplePeriod, 0) {
		return errors.Errorf("filter sample period must be > 0, got %v", c.SamplePeriod)
	}
	return nil
}

// Madgwick is a gradient-descent AHRS fusing accelerometer and gyroscope.
// It is not safe for concurrent use; the sampler serialises access.
type Madgwick struct {
	cfg FilterConfig
	q   Quaternion
}

// NewMadgwick returns an estimator starting at the identity orientation.
func NewMadgwick(cfg FilterConfig) (*Madgwick, error) {
	return NewMadgwickAt(cfg, Identity)
}

// NewMadgwickAt returns an estimator starting at q, normalised.
func NewMadgwickAt(cfg FilterConfig, q Quaternion) (*Madgwick, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if q.Norm() == 0 {
		return nil, errors.New("initial orientation must be non-zero")
	}
	return &Madgwick{cfg: cfg, q: q.Normalized()}, nil
}

// Config returns the parameters the estimator was built with.
func (m *Madgwick) Config() FilterConfig { return m.cfg }

// Quaternion returns the current orientation.
func (m *Madgwick) Quaternion() Quaternion { return m.q }

func (m *Madgwick) Q0() float32 { return m.q.Q0 }
func (m *Madgwick) Q1() float32 { return m.q.Q1 }
func (m *Madgwick) Q2() float32 { return m.q.Q2 }
func (m *Madgwick) Q3() float32 { return m.q.Q3 }

// Component returns Q0..Q3 by index.
func (m *Madgwick) Component(i int) (float32, error) { return m.q.Component(i) }

// Update advances the orientation by one sample period. a is in any
// consistent unit, g in deg/s.
//
// The accelerometer correction is skipped only when a.X is exactly zero;
// ay and az are not consulted.
func (m *Madgwick) Update(a imu.PhysicalAccel, g imu.PhysicalGyro) {
	q0, q1, q2, q3 := m.q.Q0, m.q.Q1, m.q.Q2, m.q.Q3

	gx := g.X * degToRad
	gy := g.Y * degToRad
	gz := g.Z * degToRad

	// qDot = ½ q ⊗ (0, g)
	qd0 := 0.5 * (-q1*gx - q2*gy - q3*gz)
	qd1 := 0.5 * (q0*gx + q2*gz - q3*gy)
	qd2 := 0.5 * (q0*gy - q1*gz + q3*gx)
	qd3 := 0.5 * (q0*gz + q1*gy - q2*gx)

	if a.X != 0 {
		ax, ay, az := normalize3(a.X, a.Y, a.Z)
		s0, s1, s2, s3 := gradient(q0, q1, q2, q3, ax, ay, az)
		s0, s1, s2, s3 = normalize4(s0, s1, s2, s3)

		gain := m.cfg.Gain
		qd0 -= gain * s0
		qd1 -= gain * s1
		qd2 -= gain * s2
		qd3 -= gain * s3
	}

	dt := m.cfg.SamplePeriod
	q0 += qd0 * dt
	q1 += qd1 * dt
	q2 += qd2 * dt
	q3 += qd3 * dt

	q0, q1, q2, q3 = normalize4(q0, q1, q2, q3)
	m.q = Quaternion{q0, q1, q2, q3}
}

// gradient is ∇f for f(q) = R(q)ᵀ·d − a with reference direction d = (0, 0, 1),
// carried as 2d to match the closed form.
func gradient(q0, q1, q2, q3, ax, ay, az float32) (s0, s1, s2, s3 float32) {
	const dx, dy, dz = 0, 0, 2

	f0 := dx*(0.5-q2*q2-q3*q3) + dy*(q0*q3+q1*q2) + dz*(q1*q3-q0*q2) - ax
	f1 := dx*(q1*q2-q0*q3) + dy*(0.5-q1*q1-q3*q3) + dz*(q0*q1+q2*q3) - ay
	f2 := dx*(q0*q2+q1*q3) + dy*(q2*q3-q0*q1) + dz*(0.5-q1*q1-q2*q2) - az

	s0 = (dy*q3-dz*q2)*f0 + (-dx*q3+dz*q1)*f1 + (dx*q2-dy*q1)*f2
	s1 = (dy*q2+dz*q3)*f0 + (dx*q2-2*dy*q1+dz*q0)*f1 + (dx*q3-dy*q0-2*dz*q1)*f2
	s2 = (-2*dx*q2+dy*q1-dz*q0)*f0 + (dx*q1+dz*q3)*f1 + (dx*q0+dy*q3-2*dz*q2)*f2
	s3 = (-2*dx*q3+dy*q0+dz*q1)*f0 + (-dx*q0-2*dy*q3+dz*q2)*f1 + (dx*q1+dy*q2)*f2
	return
}
