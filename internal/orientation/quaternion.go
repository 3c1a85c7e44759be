// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// ErrComponentIndex is returned for a quaternion component outside 0..3.
var ErrComponentIndex = errors.New("quaternion component index out of range")

// Quaternion is an orientation with Q0 as the scalar part.
type Quaternion struct {
	Q0 float32 `json:"q0"`
	Q1 float32 `json:"q1"`
	Q2 float32 `json:"q2"`
	Q3 float32 `json:"q3"`
}

// Identity is the resting orientation.
var Identity = Quaternion{Q0: 1}

// Component returns Q0..Q3 by index.
func (q Quaternion) Component(i int) (float32, error) {
	switch i {
	case 0:
		return q.Q0, nil
	case 1:
		return q.Q1, nil
	case 2:
		return q.Q2, nil
	case 3:
		return q.Q3, nil
	}
	return 0, errors.Wrapf(ErrComponentIndex, "index %d", i)
}

// Norm is the exact Euclidean norm.
func (q Quaternion) Norm() float32 {
	return math32.Sqrt(q.Q0*q.Q0 + q.Q1*q.Q1 + q.Q2*q.Q2 + q.Q3*q.Q3)
}

// Normalized returns q scaled to unit length. A unit q is returned as is.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n == 0 || n == 1 {
		return q
	}
	return Quaternion{q.Q0 / n, q.Q1 / n, q.Q2 / n, q.Q3 / n}
}

// Euler returns roll, pitch and yaw in radians (aerospace sequence).
func (q Quaternion) Euler() (roll, pitch, yaw float32) {
	roll = math32.Atan2(
		2*(q.Q0*q.Q1+q.Q2*q.Q3),
		q.Q0*q.Q0-q.Q1*q.Q1-q.Q2*q.Q2+q.Q3*q.Q3,
	)
	s := 2 * (q.Q0*q.Q2 - q.Q1*q.Q3)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	pitch = math32.Asin(s)
	yaw = math32.Atan2(
		2*(q.Q0*q.Q3+q.Q1*q.Q2),
		q.Q0*q.Q0+q.Q1*q.Q1-q.Q2*q.Q2-q.Q3*q.Q3,
	)
	return roll, pitch, yaw
}
