// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// RawAccelSample is one 6-byte burst read of the accelerometer data block
// (LSB, MSB for x, y, z). Each axis is a 12-bit signed value left-aligned
// in 16 bits; the low nibble of the LSB carries no data.
type RawAccelSample [6]byte

// RawGyroSample is one 6-byte burst read of the gyroscope data block
// (LSB, MSB for x, y, z), full 16-bit signed per axis.
type RawGyroSample [6]byte

// Vector3 is a 3-axis reading in physical units.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// PhysicalAccel is a linear acceleration in m/s².
type PhysicalAccel Vector3

// PhysicalGyro is an angular rate in deg/s.
type PhysicalGyro Vector3

// GyroBias is the at-rest gyroscope offset in deg/s.
type GyroBias Vector3

// Sub returns g with the bias removed on every axis.
func (b GyroBias) Sub(g PhysicalGyro) PhysicalGyro {
	return PhysicalGyro{
		X: g.X - b.X,
		Y: g.Y - b.Y,
		Z: g.Z - b.Z,
	}
}
