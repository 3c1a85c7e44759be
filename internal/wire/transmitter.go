// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import (
	"io"

	"github.com/pkg/errors"
)

// maxStalls bounds consecutive zero-length writes for a single byte.
const maxStalls = 1000

// Transmitter writes one byte per call to the underlying port and does not
// move on until that byte has been accepted.
type Transmitter struct {
	w io.Writer
}

// NewTransmitter wraps w.
func NewTransmitter(w io.Writer) *Transmitter {
	return &Transmitter{w: w}
}

// WriteByte blocks until w accepts b.
func (t *Transmitter) WriteByte(b byte) error {
	buf := [1]byte{b}
	for stalls := 0; ; stalls++ {
		n, err := t.w.Write(buf[:])
		if n == 1 {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "serial: write")
		}
		if stalls >= maxStalls {
			return errors.Wrap(io.ErrShortWrite, "serial: port not accepting data")
		}
	}
}

// Send writes p byte by byte.
func (t *Transmitter) Send(p []byte) error {
	for _, b := range p {
		if err := t.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}
