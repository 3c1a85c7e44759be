// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/arm_sensor_node/internal/imu"
)

// Simulated gyro offset in deg/s, recovered by calibration.
var simGyroBias = [3]float64{0.5, -0.3, 0.2}

// SimBus is an in-memory BMX055 on an I2C bus. It stays level for the rest
// period after construction, then sways smoothly in roll and pitch.
type SimBus struct {
	clk   clock.Clock
	start time.Time
	rest  time.Duration

	mu     sync.Mutex
	writes map[uint16][]byte
}

// NewSimBus returns a simulated bus that starts moving after rest.
func NewSimBus(clk clock.Clock, rest time.Duration) *SimBus {
	if clk == nil {
		clk = clock.New()
	}
	return &SimBus{clk: clk, start: clk.Now(), rest: rest, writes: map[uint16][]byte{}}
}

func (b *SimBus) String() string { return "sim-i2c" }

// SetSpeed accepts any frequency.
func (b *SimBus) SetSpeed(physic.Frequency) error { return nil }

// Close is a no-op.
func (b *SimBus) Close() error { return nil }

// Configured returns the last configuration block written to addr.
func (b *SimBus) Configured(addr uint16) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.writes[addr]...)
}

// Tx implements i2c.Bus.
func (b *SimBus) Tx(addr uint16, w, r []byte) error {
	if addr != AccelAddr && addr != GyroAddr {
		return errors.Errorf("sim-i2c: no device at 0x%02X", addr)
	}
	if len(r) == 0 {
		b.mu.Lock()
		b.writes[addr] = append([]byte(nil), w...)
		b.mu.Unlock()
		return nil
	}
	if len(w) != 1 || w[0] != dataReg || len(r) != 6 {
		return errors.Errorf("sim-i2c: unsupported read at 0x%02X", addr)
	}

	t := b.motionTime()
	if addr == AccelAddr {
		raw := simAccel(t)
		copy(r, raw[:])
	} else {
		raw := simGyro(t)
		copy(r, raw[:])
	}
	return nil
}

func (b *SimBus) motionTime() float64 {
	return simMotionTime(b.clk, b.start, b.rest)
}

func simMotionTime(clk clock.Clock, start time.Time, rest time.Duration) float64 {
	d := clk.Since(start) - rest
	if d < 0 {
		return 0
	}
	return d.Seconds()
}

// simPose returns roll and pitch in degrees and their rates in deg/s.
func simPose(t float64) (roll, pitch, rollRate, pitchRate float64) {
	if t <= 0 {
		return 0, 0, 0, 0
	}
	roll = 20 * math.Sin(t)
	pitch = 15 * math.Sin(t*0.7)
	rollRate = 20 * math.Cos(t)
	pitchRate = 15 * 0.7 * math.Cos(t*0.7)
	return
}

func simAccel(t float64) imu.RawAccelSample {
	roll, pitch, _, _ := simPose(t)
	r := roll * math.Pi / 180
	p := pitch * math.Pi / 180
	const g = 9.80665
	scale := float64(imu.AccelScale)
	return imu.EncodeAccel(
		clampCounts(-g*math.Sin(p)/scale, 2047),
		clampCounts(g*math.Sin(r)*math.Cos(p)/scale, 2047),
		clampCounts(g*math.Cos(r)*math.Cos(p)/scale, 2047),
	)
}

func simGyro(t float64) imu.RawGyroSample {
	_, _, rollRate, pitchRate := simPose(t)
	scale := float64(imu.GyroScale)
	return imu.EncodeGyro(
		clampCounts((rollRate+simGyroBias[0])/scale, 32767),
		clampCounts((pitchRate+simGyroBias[1])/scale, 32767),
		clampCounts(simGyroBias[2]/scale, 32767),
	)
}

func clampCounts(v, limit float64) int16 {
	v = math.Round(v)
	if v > limit {
		v = limit
	}
	if v < -limit-1 {
		v = -limit - 1
	}
	return int16(v)
}

// SimADC is a potentiometer that holds its mid position for the rest
// period and then swings ±30°.
type SimADC struct {
	clk   clock.Clock
	start time.Time
	rest  time.Duration
	gain  float64
}

// NewSimADC returns a simulated converter. gain is degrees per count.
func NewSimADC(clk clock.Clock, rest time.Duration, gain float32) *SimADC {
	if clk == nil {
		clk = clock.New()
	}
	if gain == 0 {
		gain = DefaultJointOpts().Gain
	}
	return &SimADC{clk: clk, start: clk.Now(), rest: rest, gain: float64(gain)}
}

const simADCMid = 16384

// Read implements Converter.
func (a *SimADC) Read() (analog.Sample, error) {
	t := simMotionTime(a.clk, a.start, a.rest)
	deg := 0.0
	if t > 0 {
		deg = 30 * math.Sin(t*0.5)
	}
	raw := int32(simADCMid + math.Round(deg/a.gain))
	return analog.Sample{
		V:   physic.ElectricPotential(raw) * 125 * physic.MicroVolt,
		Raw: raw,
	}, nil
}
