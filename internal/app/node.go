// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/arm_sensor_node/internal/config"
	"github.com/relabs-tech/arm_sensor_node/internal/orientation"
	"github.com/relabs-tech/arm_sensor_node/internal/sampler"
	"github.com/relabs-tech/arm_sensor_node/internal/sensors"
	"github.com/relabs-tech/arm_sensor_node/internal/wire"
)

// adcChannels maps ADC_CHANNEL to single-ended inputs.
var adcChannels = [4]ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

// adcFullScale is the potentiometer supply voltage.
const adcFullScale = 5 * physic.Volt

// hardware is everything the node opens before boot.
type hardware struct {
	bus       i2c.Bus
	adc       sensors.Converter
	start     gpio.PinIn
	heartbeat gpio.PinOut
	port      io.Writer

	closers []func() error
}

func (h *hardware) Close() error {
	var err error
	for i := len(h.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, h.closers[i]())
	}
	return err
}

// openSerial opens the link in 8N1.
func openSerial(name string, baud uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:        name,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "serial: open %s", name)
	}
	return port, nil
}

func openHardware(cfg *config.Config, log logrus.FieldLogger) (*hardware, error) {
	h := &hardware{}

	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, errors.Wrapf(err, "i2c open %q", cfg.I2CBus)
	}
	h.closers = append(h.closers, bus.Close)
	if err := bus.SetSpeed(physic.Frequency(cfg.I2CSpeedKHz) * physic.KiloHertz); err != nil {
		_ = h.Close()
		return nil, errors.Wrap(err, "i2c set speed")
	}
	h.bus = bus
	log.Infof("node: i2c bus %s at %d kHz", bus, cfg.I2CSpeedKHz)

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: cfg.ADCI2CAddr})
	if err != nil {
		_ = h.Close()
		return nil, errors.Wrapf(err, "adc at 0x%02X", cfg.ADCI2CAddr)
	}
	pin, err := adc.PinForChannel(adcChannels[cfg.ADCChannel], adcFullScale,
		physic.Frequency(cfg.ADCRateHz)*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		_ = h.Close()
		return nil, errors.Wrapf(err, "adc channel %d", cfg.ADCChannel)
	}
	h.closers = append(h.closers, pin.Halt)
	h.adc = pin

	start := gpioreg.ByName(cfg.StartPin)
	if start == nil {
		_ = h.Close()
		return nil, errors.Errorf("start pin %q not found", cfg.StartPin)
	}
	if err := start.In(gpio.PullDown, gpio.NoEdge); err != nil {
		_ = h.Close()
		return nil, errors.Wrapf(err, "start pin %s", start)
	}
	heartbeat := gpioreg.ByName(cfg.HeartbeatPin)
	if heartbeat == nil {
		_ = h.Close()
		return nil, errors.Errorf("heartbeat pin %q not found", cfg.HeartbeatPin)
	}
	if err := heartbeat.Out(gpio.Low); err != nil {
		_ = h.Close()
		return nil, errors.Wrapf(err, "heartbeat pin %s", heartbeat)
	}
	h.start, h.heartbeat = start, heartbeat

	port, err := openSerial(cfg.SerialPort, cfg.SerialBaud)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	h.closers = append(h.closers, port.Close)
	h.port = port
	log.Infof("node: serial %s at %d baud", cfg.SerialPort, cfg.SerialBaud)
	return h, nil
}

// simRest is how long the simulated arm stays still: both calibrations
// plus a second of margin.
func simRest(cfg *config.Config) time.Duration {
	samples := cfg.IMUCalibrationSamples + cfg.JointCalibrationSamples
	return time.Duration(samples)*cfg.CalibrationInterval() + 2*cfg.SettleDelay() + time.Second
}

func openSimulated(cfg *config.Config, clk clock.Clock, log logrus.FieldLogger) (*hardware, error) {
	rest := simRest(cfg)
	h := &hardware{
		bus:       sensors.NewSimBus(clk, rest),
		adc:       sensors.NewSimADC(clk, rest, cfg.JointGain),
		start:     &gpiotest.Pin{N: "sim-start", L: gpio.High},
		heartbeat: &gpiotest.Pin{N: "sim-heartbeat"},
		port:      io.Discard,
	}
	if cfg.SerialPort != "" {
		port, err := openSerial(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, port.Close)
		h.port = port
	}
	log.Infof("node: simulated sensors, motion starts after %s", rest)
	return h, nil
}

// RunNode boots the sensors, then streams orientation and joint angle
// until ctx is cancelled.
func RunNode(ctx context.Context, cfg *config.Config, simulate bool, log logrus.FieldLogger) (err error) {
	if err := cfg.ValidateNode(simulate); err != nil {
		return err
	}
	log.Infof("node: starting at %d Hz, filter gain %.3f", cfg.SampleRateHz, cfg.FilterGain)

	clk := clock.New()
	var hw *hardware
	if simulate {
		hw, err = openSimulated(cfg, clk, log)
	} else {
		hw, err = openHardware(cfg, log)
	}
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, hw.Close())
	}()

	retry := sensors.RetryPolicy{MaxAttempts: cfg.BootRetryAttempts}
	inertial, err := sensors.NewInertialSensor(hw.bus, clk, sensors.InertialOpts{
		CalibrationSamples: cfg.IMUCalibrationSamples,
		SampleInterval:     cfg.CalibrationInterval(),
		SettleDelay:        cfg.SettleDelay(),
		Retry:              retry,
	}, log)
	if err != nil {
		return err
	}
	joint, err := sensors.NewJointAngleSensor(hw.adc, clk, sensors.JointOpts{
		CalibrationSamples: cfg.JointCalibrationSamples,
		SampleInterval:     cfg.CalibrationInterval(),
		Gain:               cfg.JointGain,
		Retry:              retry,
	}, log)
	if err != nil {
		return err
	}
	filter, err := orientation.NewMadgwick(orientation.ConfigForRate(cfg.FilterGain, float32(cfg.SampleRateHz)))
	if err != nil {
		return errors.Wrap(err, "node: filter")
	}

	s, err := sampler.New(clk, hw.start, hw.heartbeat, sampler.Opts{
		Period:            cfg.SamplePeriod(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		StartPoll:         cfg.StartPoll(),
	}, log)
	if err != nil {
		return err
	}

	devices := &sampler.Devices{
		IMU:     inertial,
		Joint:   joint,
		Filter:  filter,
		Encoder: wire.NewEncoder(hw.port),
	}
	if err := s.Boot(ctx, devices); err != nil {
		if ctx.Err() != nil {
			log.Infof("node: cancelled during boot")
			return nil
		}
		return err
	}
	return s.Run(ctx)
}
