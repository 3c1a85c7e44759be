package sensors

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.viam.com/test"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/arm_sensor_node/internal/imu"
)

var (
	accelSetup = []byte{0x0F, 0x03, 0x10, 0x08, 0x11, 0x00}
	gyroSetup  = []byte{0x0F, 0x04, 0x10, 0x07, 0x11, 0x00}
)

func quickOpts(samples int) InertialOpts {
	return InertialOpts{CalibrationSamples: samples, Retry: Unbounded}
}

func TestInitializeWritesSetupAndCalibrates(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	raw := imu.EncodeGyro(100, -50, 7)
	ops := []i2ctest.IO{
		{Addr: AccelAddr, W: accelSetup},
		{Addr: GyroAddr, W: gyroSetup},
	}
	for i := 0; i < 10; i++ {
		ops = append(ops, i2ctest.IO{Addr: GyroAddr, W: []byte{0x02}, R: raw[:]})
	}
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}

	s, err := NewInertialSensor(bus, clock.NewMock(), quickOpts(10), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Initialize(context.Background()), test.ShouldBeNil)
	test.That(t, bus.Close(), test.ShouldBeNil)

	want := imu.DecodeGyro(raw)
	test.That(t, s.Bias(), test.ShouldResemble, imu.GyroBias(want))
	test.That(t, s.Compensate(want), test.ShouldResemble, imu.PhysicalGyro{})
}

func TestReadDecodesBothDevices(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	a := imu.EncodeAccel(0, 0, 1020)
	g := imu.EncodeGyro(-16384, 0, 16384)
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: AccelAddr, W: []byte{0x02}, R: a[:]},
		{Addr: GyroAddr, W: []byte{0x02}, R: g[:]},
	}, DontPanic: true}

	s, err := NewInertialSensor(bus, nil, quickOpts(1), logger)
	test.That(t, err, test.ShouldBeNil)
	s.Read(context.Background())
	test.That(t, bus.Close(), test.ShouldBeNil)

	test.That(t, s.Accel(), test.ShouldResemble, imu.DecodeAccel(a))
	test.That(t, s.Gyro(), test.ShouldResemble, imu.PhysicalGyro{X: -1000, Y: 0, Z: 1000})
	test.That(t, s.ReadFailures(), test.ShouldEqual, uint64(0))
}

// flakyBus fails every transaction while fail is set.
type flakyBus struct {
	mu    sync.Mutex
	fail  bool
	accel imu.RawAccelSample
	gyro  imu.RawGyroSample
	calls int
	// failFirst fails that many transactions before behaving.
	failFirst int
}

func (b *flakyBus) String() string                  { return "flaky" }
func (b *flakyBus) SetSpeed(physic.Frequency) error { return nil }

func (b *flakyBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.fail || b.calls <= b.failFirst {
		return errors.New("nack")
	}
	switch {
	case len(r) == 0:
	case addr == AccelAddr:
		copy(r, b.accel[:])
	default:
		copy(r, b.gyro[:])
	}
	return nil
}

func TestReadFailureKeepsPreviousValue(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	bus := &flakyBus{accel: imu.EncodeAccel(10, 20, 30), gyro: imu.EncodeGyro(1, 2, 3)}
	s, err := NewInertialSensor(bus, nil, quickOpts(1), logger)
	test.That(t, err, test.ShouldBeNil)

	s.Read(context.Background())
	prevA, prevG := s.Accel(), s.Gyro()

	bus.fail = true
	bus.accel = imu.EncodeAccel(-10, -20, -30)
	s.Read(context.Background())
	test.That(t, s.Accel(), test.ShouldResemble, prevA)
	test.That(t, s.Gyro(), test.ShouldResemble, prevG)
	test.That(t, s.ReadFailures(), test.ShouldEqual, uint64(2))
}

func TestInitializeRetriesUntilAcknowledged(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	bus := &flakyBus{failFirst: 5, gyro: imu.EncodeGyro(4, 4, 4)}
	s, err := NewInertialSensor(bus, nil, quickOpts(3), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Initialize(context.Background()), test.ShouldBeNil)
	// 5 failures, 2 setup writes, 3 samples.
	test.That(t, bus.calls, test.ShouldEqual, 10)
}

func TestInitializeBoundedRetryGivesUp(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	bus := &flakyBus{fail: true}
	opts := quickOpts(1)
	opts.Retry = RetryPolicy{MaxAttempts: 3}
	s, err := NewInertialSensor(bus, nil, opts, logger)
	test.That(t, err, test.ShouldBeNil)

	err = s.Initialize(context.Background())
	test.That(t, errors.Is(err, ErrRetryExhausted), test.ShouldBeTrue)
	test.That(t, bus.calls, test.ShouldEqual, 3)
}

func TestInitializeStopsOnCancel(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	s, err := NewInertialSensor(&flakyBus{fail: true}, nil, quickOpts(1), logger)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Initialize(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestNewInertialSensorValidates(t *testing.T) {
	_, err := NewInertialSensor(nil, nil, quickOpts(1), nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewInertialSensor(&flakyBus{}, nil, quickOpts(0), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSetupTableMatchesWireSequence(t *testing.T) {
	blocks := SetupBlocks()
	test.That(t, len(blocks), test.ShouldEqual, 2)
	test.That(t, blocks[0].Addr, test.ShouldEqual, AccelAddr)
	test.That(t, blocks[0].Sequence(), test.ShouldResemble, accelSetup)
	test.That(t, blocks[1].Addr, test.ShouldEqual, GyroAddr)
	test.That(t, blocks[1].Sequence(), test.ShouldResemble, gyroSetup)
}

func TestSimBusCalibratesToBias(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	mock := clock.NewMock()
	bus := NewSimBus(mock, 0)
	s, err := NewInertialSensor(bus, mock, quickOpts(20), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Initialize(context.Background()), test.ShouldBeNil)
	test.That(t, bus.Configured(AccelAddr), test.ShouldResemble, accelSetup)
	test.That(t, bus.Configured(GyroAddr), test.ShouldResemble, gyroSetup)

	b := s.Bias()
	tol := float64(imu.GyroScale)
	test.That(t, float64(b.X), test.ShouldAlmostEqual, simGyroBias[0], tol)
	test.That(t, float64(b.Y), test.ShouldAlmostEqual, simGyroBias[1], tol)
	test.That(t, float64(b.Z), test.ShouldAlmostEqual, simGyroBias[2], tol)

	s.Read(context.Background())
	test.That(t, float64(s.Accel().Z), test.ShouldAlmostEqual, 9.80665, 0.02)
}
