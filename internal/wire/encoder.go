// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/relabs-tech/arm_sensor_node/internal/orientation"
)

// Header marks the start of a quaternion frame.
var Header = [2]byte{0xE0, 0xE0}

const (
	// QuaternionFrameSize is the header plus four float32 components.
	QuaternionFrameSize = len(Header) + 4*4
	// AngleFrameSize is one float32, sent without a header.
	AngleFrameSize = 4
	// TickSize is the number of bytes sent per sampler tick.
	TickSize = QuaternionFrameSize + AngleFrameSize
)

// ComponentSource exposes quaternion components by index.
type ComponentSource interface {
	Component(i int) (float32, error)
}

func appendFloat32(dst []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
}

// AppendQuaternionFrame appends the header and q0..q3.
func AppendQuaternionFrame(dst []byte, q orientation.Quaternion) []byte {
	dst = append(dst, Header[:]...)
	dst = appendFloat32(dst, q.Q0)
	dst = appendFloat32(dst, q.Q1)
	dst = appendFloat32(dst, q.Q2)
	return appendFloat32(dst, q.Q3)
}

// AppendAngleFrame appends the joint angle in radians.
func AppendAngleFrame(dst []byte, angle float32) []byte {
	return appendFloat32(dst, angle)
}

// Encoder frames orientation and joint angle onto a serial port.
type Encoder struct {
	tx  *Transmitter
	buf []byte
}

// NewEncoder sends frames to w one byte at a time.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{tx: NewTransmitter(w), buf: make([]byte, 0, QuaternionFrameSize)}
}

// TransmitQuaternion sends the header followed by components 0..3.
func (e *Encoder) TransmitQuaternion(q ComponentSource) error {
	e.buf = append(e.buf[:0], Header[:]...)
	for i := 0; i < 4; i++ {
		c, err := q.Component(i)
		if err != nil {
			return errors.Wrapf(err, "wire: component %d", i)
		}
		e.buf = appendFloat32(e.buf, c)
	}
	return e.tx.Send(e.buf)
}

// TransmitAngle sends the joint angle frame.
func (e *Encoder) TransmitAngle(angle float32) error {
	e.buf = AppendAngleFrame(e.buf[:0], angle)
	return e.tx.Send(e.buf)
}
