package orientation

import (
	"errors"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/relabs-tech/arm_sensor_node/internal/imu"
)

var defaultCfg = FilterConfig{Gain: 0.1, SamplePeriod: 0.01}

func TestFilterConfigValidate(t *testing.T) {
	test.That(t, defaultCfg.Validate(), test.ShouldBeNil)
	test.That(t, FilterConfig{Gain: 1, SamplePeriod: 1}.Validate(), test.ShouldBeNil)

	for _, bad := range []FilterConfig{
		{Gain: 0, SamplePeriod: 0.01},
		{Gain: -0.1, SamplePeriod: 0.01},
		{Gain: 1.5, SamplePeriod: 0.01},
		{Gain: float32(math.NaN()), SamplePeriod: 0.01},
		{Gain: 0.1, SamplePeriod: 0},
		{Gain: 0.1, SamplePeriod: -1},
		{Gain: 0.1, SamplePeriod: float32(math.Inf(1))},
	} {
		_, err := NewMadgwick(bad)
		test.That(t, err, test.ShouldNotBeNil)
	}

	cfg := ConfigForRate(0.1, 100)
	test.That(t, cfg.SamplePeriod, test.ShouldEqual, float32(0.01))
	test.That(t, ConfigForRate(0.1, 0).Validate(), test.ShouldNotBeNil)
}

func TestStartsAtIdentity(t *testing.T) {
	m, err := NewMadgwick(defaultCfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Quaternion(), test.ShouldResemble, Identity)
	test.That(t, m.Q0(), test.ShouldEqual, float32(1))
}

func TestComponentIndex(t *testing.T) {
	q := Quaternion{Q0: 1, Q1: 2, Q2: 3, Q3: 4}
	for i, want := range []float32{1, 2, 3, 4} {
		v, err := q.Component(i)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, v, test.ShouldEqual, want)
	}
	for _, i := range []int{-1, 4, 100} {
		_, err := q.Component(i)
		test.That(t, errors.Is(err, ErrComponentIndex), test.ShouldBeTrue)
	}
}

func TestUnitNormAfterEveryUpdate(t *testing.T) {
	m, err := NewMadgwick(defaultCfg)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 2000; i++ {
		fi := float64(i)
		a := imu.PhysicalAccel{
			X: float32(3 * math.Sin(fi*0.01)),
			Y: float32(2 * math.Cos(fi*0.013)),
			Z: float32(9.8 + math.Sin(fi*0.1)),
		}
		g := imu.PhysicalGyro{
			X: float32(200 * math.Sin(fi*0.02)),
			Y: float32(-150 * math.Cos(fi*0.03)),
			Z: float32(500 * math.Sin(fi*0.005)),
		}
		m.Update(a, g)
		test.That(t, float64(m.Quaternion().Norm()), test.ShouldAlmostEqual, 1, 1e-3)
	}
}

func TestZeroAccelXSkipsCorrection(t *testing.T) {
	g := imu.PhysicalGyro{X: 10, Y: -20, Z: 30}
	for _, a := range []imu.PhysicalAccel{
		{},
		{X: 0, Y: 5, Z: 9.8},
		{X: 0, Y: -9.8, Z: 0},
	} {
		withAccel, err := NewMadgwickAt(defaultCfg, Quaternion{0.9, 0.1, 0.3, 0.2})
		test.That(t, err, test.ShouldBeNil)
		gyroOnly, err := NewMadgwickAt(FilterConfig{Gain: 1, SamplePeriod: defaultCfg.SamplePeriod}, Quaternion{0.9, 0.1, 0.3, 0.2})
		test.That(t, err, test.ShouldBeNil)

		withAccel.Update(a, g)
		gyroOnly.Update(imu.PhysicalAccel{}, g)
		test.That(t, withAccel.Quaternion(), test.ShouldResemble, gyroOnly.Quaternion())
	}
}

func TestNonZeroAccelXIsCorrected(t *testing.T) {
	start := Quaternion{0.9, 0.1, 0.3, 0.2}
	g := imu.PhysicalGyro{}

	corrected, err := NewMadgwickAt(defaultCfg, start)
	test.That(t, err, test.ShouldBeNil)
	corrected.Update(imu.PhysicalAccel{X: 1e-3, Y: 0, Z: 9.8}, g)

	plain, err := NewMadgwickAt(defaultCfg, start)
	test.That(t, err, test.ShouldBeNil)
	plain.Update(imu.PhysicalAccel{}, g)

	test.That(t, corrected.Quaternion(), test.ShouldNotResemble, plain.Quaternion())
}

func TestConvergesToLevel(t *testing.T) {
	// Tilted about x and y only: yaw is unobservable from gravity.
	m, err := NewMadgwickAt(defaultCfg, Quaternion{0.5, 0.5, 0.5, 0})
	test.That(t, err, test.ShouldBeNil)
	a := imu.PhysicalAccel{X: 1e-9, Y: 0, Z: 9.80665}
	for i := 0; i < 5000; i++ {
		m.Update(a, imu.PhysicalGyro{})
	}
	q := m.Quaternion()
	test.That(t, float64(q.Q0), test.ShouldAlmostEqual, 1, 0.01)
	test.That(t, float64(q.Q1), test.ShouldAlmostEqual, 0, 0.01)
	test.That(t, float64(q.Q2), test.ShouldAlmostEqual, 0, 0.01)
	test.That(t, float64(q.Q3), test.ShouldAlmostEqual, 0, 0.01)
}

func TestGyroIntegration(t *testing.T) {
	// 90 deg/s about z for one second with no correction.
	m, err := NewMadgwick(defaultCfg)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 100; i++ {
		m.Update(imu.PhysicalAccel{}, imu.PhysicalGyro{Z: 90})
	}
	_, _, yaw := m.Quaternion().Euler()
	test.That(t, float64(yaw), test.ShouldAlmostEqual, math.Pi/2, 1e-2)
}

func TestInvSqrt(t *testing.T) {
	for _, x := range []float32{1e-6, 0.25, 1, 2, 9.80665 * 9.80665, 1e6} {
		want := 1 / math.Sqrt(float64(x))
		got := float64(invSqrt(x))
		test.That(t, math.Abs(got-want)/want, test.ShouldBeLessThan, 5e-6)
	}
	z := invSqrt(0)
	test.That(t, math.IsInf(float64(z), 0), test.ShouldBeFalse)
	test.That(t, math.IsNaN(float64(z)), test.ShouldBeFalse)
}

func TestPoseFromQuaternion(t *testing.T) {
	// 30° roll.
	h := math.Pi / 12
	q := Quaternion{Q0: float32(math.Cos(h)), Q1: float32(math.Sin(h))}
	p := PoseFromQuaternion(q)
	test.That(t, p.Roll, test.ShouldAlmostEqual, 30, 1e-3)
	test.That(t, p.Pitch, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, p.Yaw, test.ShouldAlmostEqual, 0, 1e-3)

	tilt := ComputePoseFromAccel(0, 9.80665*math.Sin(2*h), 9.80665*math.Cos(2*h))
	test.That(t, tilt.Roll, test.ShouldAlmostEqual, p.Roll, 1e-3)
}
