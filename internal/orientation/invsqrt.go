// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "math"

// invSqrt approximates 1/sqrt(x) with the 0x5f3759df estimate refined by
// two Newton-Raphson steps. Relative error is below 5e-6 for normal x.
// invSqrt(0) is finite, so a zero vector normalises to zero.
func invSqrt(x float32) float32 {
	half := 0.5 * x
	y := math.Float32frombits(0x5f3759df - math.Float32bits(x)>>1)
	y *= 1.5 - half*y*y
	y *= 1.5 - half*y*y
	return y
}

func normalize3(x, y, z float32) (float32, float32, float32) {
	n := invSqrt(x*x + y*y + z*z)
	return x * n, y * n, z * n
}

func normalize4(a, b, c, d float32) (float32, float32, float32, float32) {
	n := invSqrt(a*a + b*b + c*c + d*d)
	return a * n, b * n, c * n, d * n
}
