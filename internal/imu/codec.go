// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

const (
	// AccelScale converts accelerometer counts to m/s² (0.98 mg/LSB at ±2g).
	AccelScale = float32(9.80665 * 0.00098)

	// GyroScale converts gyroscope counts to deg/s.
	// Frame consumers expect the 2000 dps scale regardless of the range register.
	GyroScale = float32(2000.0 / 32768.0)
)

// AccelCounts sign-extends one accelerometer axis from its register pair.
// The arithmetic is done in float32 exactly as the frame consumers expect.
func AccelCounts(lsb, msb byte) float32 {
	v := (float32(msb)*256 + float32(lsb&0xF0)) / 16
	if v > 2047 {
		v -= 4096
	}
	return v
}

// GyroCounts sign-extends one gyroscope axis from its register pair.
func GyroCounts(lsb, msb byte) float32 {
	v := float32(msb)*256 + float32(lsb)
	if v > 32767 {
		v -= 65536
	}
	return v
}

// DecodeAccel converts a burst read into m/s².
func DecodeAccel(raw RawAccelSample) PhysicalAccel {
	return PhysicalAccel{
		X: AccelCounts(raw[0], raw[1]) * AccelScale,
		Y: AccelCounts(raw[2], raw[3]) * AccelScale,
		Z: AccelCounts(raw[4], raw[5]) * AccelScale,
	}
}

// DecodeGyro converts a burst read into deg/s.
func DecodeGyro(raw RawGyroSample) PhysicalGyro {
	return PhysicalGyro{
		X: GyroCounts(raw[0], raw[1]) * GyroScale,
		Y: GyroCounts(raw[2], raw[3]) * GyroScale,
		Z: GyroCounts(raw[4], raw[5]) * GyroScale,
	}
}

// EncodeAccelCounts packs a 12-bit signed magnitude into its register pair.
// Values outside [-2048, 2047] are truncated to 12 bits.
func EncodeAccelCounts(v int16) (lsb, msb byte) {
	u := uint16(v) << 4
	return byte(u) & 0xF0, byte(u >> 8)
}

// EncodeGyroCounts packs a 16-bit signed magnitude into its register pair.
func EncodeGyroCounts(v int16) (lsb, msb byte) {
	u := uint16(v)
	return byte(u), byte(u >> 8)
}

// EncodeAccel builds the burst read that decodes to the given counts.
func EncodeAccel(x, y, z int16) RawAccelSample {
	var raw RawAccelSample
	raw[0], raw[1] = EncodeAccelCounts(x)
	raw[2], raw[3] = EncodeAccelCounts(y)
	raw[4], raw[5] = EncodeAccelCounts(z)
	return raw
}

// EncodeGyro builds the burst read that decodes to the given counts.
func EncodeGyro(x, y, z int16) RawGyroSample {
	var raw RawGyroSample
	raw[0], raw[1] = EncodeGyroCounts(x)
	raw[2], raw[3] = EncodeGyroCounts(y)
	raw[4], raw[5] = EncodeGyroCounts(z)
	return raw
}
