// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/relabs-tech/arm_sensor_node/internal/orientation"
)

// Telemetry is one decoded tick.
type Telemetry struct {
	Orientation orientation.Quaternion
	Angle       float32
}

// Message is the JSON form published for consumers.
type Message struct {
	Q0    float32 `json:"q0"`
	Q1    float32 `json:"q1"`
	Q2    float32 `json:"q2"`
	Q3    float32 `json:"q3"`
	Angle float32 `json:"angle"`
	orientation.Pose
}

// Message adds Euler angles in degrees.
func (t Telemetry) Message() Message {
	q := t.Orientation
	return Message{
		Q0: q.Q0, Q1: q.Q1, Q2: q.Q2, Q3: q.Q3,
		Angle: t.Angle,
		Pose:  orientation.PoseFromQuaternion(q),
	}
}

// Decoder reassembles ticks from a byte stream. A tick is the header
// followed by 20 payload bytes; anything before a header is skipped.
type Decoder struct {
	buf     []byte
	skipped int
}

// Feed appends p and returns every complete tick found.
func (d *Decoder) Feed(p []byte) []Telemetry {
	d.buf = append(d.buf, p...)
	var out []Telemetry
	for {
		i := bytes.Index(d.buf, Header[:])
		if i < 0 {
			// Keep a trailing first header byte.
			keep := 0
			if n := len(d.buf); n > 0 && d.buf[n-1] == Header[0] {
				keep = 1
			}
			d.skipped += len(d.buf) - keep
			d.buf = append(d.buf[:0], d.buf[len(d.buf)-keep:]...)
			return out
		}
		d.skipped += i
		d.buf = d.buf[i:]
		if len(d.buf) < TickSize {
			d.buf = append([]byte(nil), d.buf...)
			return out
		}
		out = append(out, decodeTick(d.buf[len(Header):TickSize]))
		d.buf = d.buf[TickSize:]
	}
}

// Skipped is the number of bytes discarded while searching for a header.
func (d *Decoder) Skipped() int { return d.skipped }

func decodeTick(p []byte) Telemetry {
	f := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(p[4*i:]))
	}
	return Telemetry{
		Orientation: orientation.Quaternion{Q0: f(0), Q1: f(1), Q2: f(2), Q3: f(3)},
		Angle:       f(4),
	}
}
