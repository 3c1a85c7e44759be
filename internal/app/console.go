// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/arm_sensor_node/internal/config"
	"github.com/relabs-tech/arm_sensor_node/internal/wire"
)

// formatTelemetry renders one telemetry message as a console line.
func formatTelemetry(payload []byte) (string, error) {
	var m wire.Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", errors.Wrap(err, "telemetry unmarshal")
	}
	return fmt.Sprintf(
		"[ARM]  q=(%7.4f %7.4f %7.4f %7.4f)  ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f  JOINT=%7.2f°\n",
		m.Q0, m.Q1, m.Q2, m.Q3, m.Roll, m.Pitch, m.Yaw, float64(m.Angle)*180/math.Pi,
	), nil
}

// RunConsole prints telemetry published by the bridge until ctx is cancelled.
func RunConsole(ctx context.Context, cfg *config.Config, out io.Writer, log logrus.FieldLogger) error {
	if err := cfg.ValidateConsole(); err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Infof("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := formatTelemetry(msg.Payload())
		if err != nil {
			log.Warnf("console: %v", err)
			return
		}
		fmt.Fprint(out, line)
	})
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(250)
		return errors.Wrapf(token.Error(), "subscribe %s", cfg.TopicTelemetry)
	}
	log.Infof("console: subscribed to %s", cfg.TopicTelemetry)

	<-ctx.Done()
	log.Infof("console: shutting down")
	client.Disconnect(250)
	return nil
}
