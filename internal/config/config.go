// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ARMNODE_SERIAL_PORT.
const EnvPrefix = "ARMNODE"

// Config holds all application configuration values.
type Config struct {
	// I2C
	I2CBus      string
	I2CSpeedKHz int

	// Serial link
	SerialPort string
	SerialBaud uint

	// Digital I/O
	StartPin     string
	HeartbeatPin string

	// Potentiometer ADC
	ADCI2CAddr uint16
	ADCChannel int
	ADCRateHz  int

	// Sampling and fusion
	SampleRateHz int
	FilterGain   float32
	JointGain    float32

	// Calibration (milliseconds where noted)
	IMUCalibrationSamples   int
	JointCalibrationSamples int
	CalibrationIntervalMS   int
	SettleDelayMS           int
	BootRetryAttempts       int // 0 = retry forever

	// Timing (milliseconds)
	HeartbeatIntervalMS int
	StartPollMS         int

	// Bridge and MQTT
	BridgeTCPAddr       string
	MQTTBroker          string
	MQTTClientIDBridge  string
	MQTTClientIDConsole string
	TopicTelemetry      string

	LogLevel string
}

// defaults lists every recognised key. Keys are lower case as viper
// stores them.
var defaults = map[string]interface{}{
	"i2c_bus":                   "",
	"i2c_speed_khz":             100,
	"serial_port":               "",
	"serial_baud":               115200,
	"start_pin":                 "",
	"heartbeat_pin":             "",
	"adc_i2c_addr":              "0x48",
	"adc_channel":               0,
	"adc_rate_hz":               475,
	"sample_rate_hz":            100,
	"filter_gain":               0.1,
	"joint_gain":                1.0 / 15.0,
	"imu_calibration_samples":   1000,
	"joint_calibration_samples": 100,
	"calibration_interval_ms":   10,
	"settle_delay_ms":           10,
	"boot_retry_attempts":       0,
	"heartbeat_interval_ms":     250,
	"start_poll_ms":             10,
	"bridge_tcp_addr":           "127.0.0.1:55555",
	"mqtt_broker":               "",
	"mqtt_client_id_bridge":     "arm-bridge",
	"mqtt_client_id_console":    "arm-console",
	"topic_telemetry":           "arm/telemetry",
	"log_level":                 "info",
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads a KEY=VALUE config file and applies ARMNODE_* environment
// overrides. An empty path uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
		}
	}

	var unknown []string
	for _, k := range v.AllKeys() {
		if _, ok := defaults[k]; !ok {
			unknown = append(unknown, strings.ToUpper(k))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errors.Errorf("unknown config keys: %s", strings.Join(unknown, ", "))
	}

	addr, err := strconv.ParseUint(strings.TrimSpace(v.GetString("adc_i2c_addr")), 0, 16)
	if err != nil {
		return nil, errors.Wrap(err, "ADC_I2C_ADDR")
	}

	cfg := &Config{
		I2CBus:                  v.GetString("i2c_bus"),
		I2CSpeedKHz:             v.GetInt("i2c_speed_khz"),
		SerialPort:              v.GetString("serial_port"),
		SerialBaud:              v.GetUint("serial_baud"),
		StartPin:                v.GetString("start_pin"),
		HeartbeatPin:            v.GetString("heartbeat_pin"),
		ADCI2CAddr:              uint16(addr),
		ADCChannel:              v.GetInt("adc_channel"),
		ADCRateHz:               v.GetInt("adc_rate_hz"),
		SampleRateHz:            v.GetInt("sample_rate_hz"),
		FilterGain:              float32(v.GetFloat64("filter_gain")),
		JointGain:               float32(v.GetFloat64("joint_gain")),
		IMUCalibrationSamples:   v.GetInt("imu_calibration_samples"),
		JointCalibrationSamples: v.GetInt("joint_calibration_samples"),
		CalibrationIntervalMS:   v.GetInt("calibration_interval_ms"),
		SettleDelayMS:           v.GetInt("settle_delay_ms"),
		BootRetryAttempts:       v.GetInt("boot_retry_attempts"),
		HeartbeatIntervalMS:     v.GetInt("heartbeat_interval_ms"),
		StartPollMS:             v.GetInt("start_poll_ms"),
		BridgeTCPAddr:           v.GetString("bridge_tcp_addr"),
		MQTTBroker:              v.GetString("mqtt_broker"),
		MQTTClientIDBridge:      v.GetString("mqtt_client_id_bridge"),
		MQTTClientIDConsole:     v.GetString("mqtt_client_id_console"),
		TopicTelemetry:          v.GetString("topic_telemetry"),
		LogLevel:                v.GetString("log_level"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks the values every binary depends on.
func (c *Config) validate() error {
	if c.SampleRateHz <= 0 {
		return errors.Errorf("SAMPLE_RATE_HZ must be > 0, got %d", c.SampleRateHz)
	}
	if !(c.FilterGain > 0 && c.FilterGain <= 1) {
		return errors.Errorf("FILTER_GAIN must be in (0, 1], got %v", c.FilterGain)
	}
	if c.JointGain == 0 {
		return errors.New("JOINT_GAIN must be non-zero")
	}
	if c.IMUCalibrationSamples < 1 {
		return errors.Errorf("IMU_CALIBRATION_SAMPLES must be >= 1, got %d", c.IMUCalibrationSamples)
	}
	if c.JointCalibrationSamples < 1 {
		return errors.Errorf("JOINT_CALIBRATION_SAMPLES must be >= 1, got %d", c.JointCalibrationSamples)
	}
	if c.CalibrationIntervalMS < 0 || c.SettleDelayMS < 0 {
		return errors.New("CALIBRATION_INTERVAL_MS and SETTLE_DELAY_MS must be >= 0")
	}
	if c.BootRetryAttempts < 0 {
		return errors.Errorf("BOOT_RETRY_ATTEMPTS must be >= 0, got %d", c.BootRetryAttempts)
	}
	if c.HeartbeatIntervalMS <= 0 || c.StartPollMS <= 0 {
		return errors.New("HEARTBEAT_INTERVAL_MS and START_POLL_MS must be > 0")
	}
	if c.ADCChannel < 0 || c.ADCChannel > 3 {
		return errors.Errorf("ADC_CHANNEL must be 0..3, got %d", c.ADCChannel)
	}
	if c.ADCRateHz <= 0 {
		return errors.Errorf("ADC_RATE_HZ must be > 0, got %d", c.ADCRateHz)
	}
	if c.I2CSpeedKHz <= 0 {
		return errors.Errorf("I2C_SPEED_KHZ must be > 0, got %d", c.I2CSpeedKHz)
	}
	if c.SerialBaud == 0 {
		return errors.New("SERIAL_BAUD must be > 0")
	}
	return nil
}

// ValidateNode checks what the acquisition node needs. A simulated node
// needs no pins and may run without a serial port.
func (c *Config) ValidateNode(simulated bool) error {
	if simulated {
		return nil
	}
	if c.SerialPort == "" {
		return errors.New("SERIAL_PORT is required")
	}
	if c.StartPin == "" {
		return errors.New("START_PIN is required")
	}
	if c.HeartbeatPin == "" {
		return errors.New("HEARTBEAT_PIN is required")
	}
	return nil
}

// ValidateBridge checks what the serial-to-TCP bridge needs.
func (c *Config) ValidateBridge() error {
	if c.SerialPort == "" {
		return errors.New("SERIAL_PORT is required")
	}
	if c.BridgeTCPAddr == "" && c.MQTTBroker == "" {
		return errors.New("BRIDGE_TCP_ADDR or MQTT_BROKER is required")
	}
	return nil
}

// ValidateConsole checks what the MQTT console needs.
func (c *Config) ValidateConsole() error {
	if c.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is required")
	}
	if c.TopicTelemetry == "" {
		return errors.New("TOPIC_TELEMETRY is required")
	}
	return nil
}

// SamplePeriod is the tick interval.
func (c *Config) SamplePeriod() time.Duration {
	return time.Second / time.Duration(c.SampleRateHz)
}

// CalibrationInterval is the delay between calibration samples.
func (c *Config) CalibrationInterval() time.Duration {
	return time.Duration(c.CalibrationIntervalMS) * time.Millisecond
}

// SettleDelay is the pause after each register configuration write.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// HeartbeatInterval is the heartbeat toggle period.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

// StartPoll is the start input polling interval.
func (c *Config) StartPoll() time.Duration {
	return time.Duration(c.StartPollMS) * time.Millisecond
}

// InitGlobal loads the configuration once; later calls return the first
// result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
