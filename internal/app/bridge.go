// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/relabs-tech/arm_sensor_node/internal/config"
	"github.com/relabs-tech/arm_sensor_node/internal/wire"
)

// serialRetryInterval paces attempts to open a port that is not there yet.
const serialRetryInterval = 10 * time.Millisecond

// relayStats counts bridge traffic.
type relayStats struct {
	bytesIn     atomic.Uint64
	writeErrors atomic.Uint64
	frames      atomic.Uint64
}

// relay copies src to dst verbatim until src fails. When publish is set,
// the stream is also decoded and each tick handed to it. Write failures
// on dst are counted and the data dropped.
func relay(src io.Reader, dst io.Writer, publish func(wire.Telemetry), stats *relayStats, log logrus.FieldLogger) error {
	var dec wire.Decoder
	buf := make([]byte, wire.TickSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			stats.bytesIn.Add(uint64(n))
			log.Debugf("bridge: % X", chunk)
			if dst != nil {
				if _, werr := dst.Write(chunk); werr != nil {
					stats.writeErrors.Inc()
					log.Debugf("bridge: write: %v", werr)
				}
			}
			if publish != nil {
				for _, t := range dec.Feed(chunk) {
					stats.frames.Inc()
					publish(t)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "bridge: serial read")
		}
	}
}

// mqttPublisher publishes ticks as JSON.
func mqttPublisher(client mqtt.Client, topic string, log logrus.FieldLogger) func(wire.Telemetry) {
	return func(t wire.Telemetry) {
		payload, err := json.Marshal(t.Message())
		if err != nil {
			log.Warnf("bridge: json marshal: %v", err)
			return
		}
		if token := client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Warnf("bridge: MQTT publish: %v", token.Error())
		}
	}
}

// RunBridge relays the node's serial stream to a TCP consumer and,
// if a broker is configured, publishes decoded telemetry to MQTT.
func RunBridge(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (err error) {
	if err := cfg.ValidateBridge(); err != nil {
		return err
	}

	var port io.ReadWriteCloser
	attempts := 0
	open := func() error {
		attempts++
		p, err := openSerial(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return err
		}
		port = p
		return nil
	}
	notify := func(err error, _ time.Duration) {
		if attempts == 1 {
			log.Warnf("bridge: %v, retrying", err)
		}
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(serialRetryInterval), ctx)
	if err := backoff.RetryNotify(open, b, notify); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Infof("bridge: opened %s after %d attempts", cfg.SerialPort, attempts)

	closePort := sync.OnceValue(port.Close)
	closers := []func() error{closePort}
	defer func() {
		for _, c := range closers {
			err = multierr.Append(err, c())
		}
	}()

	var dst io.Writer
	if cfg.BridgeTCPAddr != "" {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", cfg.BridgeTCPAddr)
		if err != nil {
			return errors.Wrapf(err, "bridge: connect %s", cfg.BridgeTCPAddr)
		}
		closers = append(closers, conn.Close)
		dst = conn
		log.Infof("bridge: connected to %s", cfg.BridgeTCPAddr)
	}

	var publish func(wire.Telemetry)
	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDBridge)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		publish = mqttPublisher(client, cfg.TopicTelemetry, log)
		log.Infof("bridge: publishing telemetry to %s on %s", cfg.MQTTBroker, cfg.TopicTelemetry)
	}

	// Closing the port unblocks the read on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = closePort() })
	defer stop()

	var stats relayStats
	rerr := relay(port, dst, publish, &stats, log)
	log.Infof("bridge: relayed %d bytes, %d frames, %d write errors",
		stats.bytesIn.Load(), stats.frames.Load(), stats.writeErrors.Load())
	if ctx.Err() != nil {
		return nil
	}
	return rerr
}
