// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// Pose is roll, pitch and yaw in degrees, for display.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// PoseFromQuaternion converts q to degrees.
func PoseFromQuaternion(q Quaternion) Pose {
	roll, pitch, yaw := q.Euler()
	return Pose{
		Roll:  float64(roll) * 180.0 / math.Pi,
		Pitch: float64(pitch) * 180.0 / math.Pi,
		Yaw:   float64(yaw) * 180.0 / math.Pi,
	}
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is unobservable without a magnetometer and is left at 0.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}
