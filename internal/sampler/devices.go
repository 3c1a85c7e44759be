// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampler

import (
	"context"

	"github.com/pkg/errors"

	"github.com/relabs-tech/arm_sensor_node/internal/imu"
	"github.com/relabs-tech/arm_sensor_node/internal/orientation"
	"github.com/relabs-tech/arm_sensor_node/internal/wire"
)

// IMU is the inertial sensor as the sampler uses it.
// *sensors.InertialSensor satisfies it.
type IMU interface {
	Initialize(ctx context.Context) error
	Read(ctx context.Context)
	Accel() imu.PhysicalAccel
	Gyro() imu.PhysicalGyro
	Compensate(g imu.PhysicalGyro) imu.PhysicalGyro
}

// Joint is the joint angle sensor. *sensors.JointAngleSensor satisfies it.
type Joint interface {
	Initialize(ctx context.Context) error
	Read(ctx context.Context) (float32, error)
}

// Encoder frames one tick. *wire.Encoder satisfies it.
type Encoder interface {
	TransmitQuaternion(q wire.ComponentSource) error
	TransmitAngle(angle float32) error
}

// failureCounter is implemented by drivers that count failed reads.
type failureCounter interface {
	ReadFailures() uint64
}

// Devices is everything a tick touches. It is built at boot and owned by
// the sampler from then on.
type Devices struct {
	IMU     IMU
	Joint   Joint
	Filter  *orientation.Madgwick
	Encoder Encoder
}

func (d *Devices) validate() error {
	switch {
	case d == nil:
		return errors.New("sampler: nil devices")
	case d.IMU == nil:
		return errors.New("sampler: missing IMU")
	case d.Joint == nil:
		return errors.New("sampler: missing joint sensor")
	case d.Filter == nil:
		return errors.New("sampler: missing filter")
	case d.Encoder == nil:
		return errors.New("sampler: missing encoder")
	}
	return nil
}
