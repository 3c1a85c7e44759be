package wire

import (
	"bytes"
	"errors"
	"testing"

	"go.viam.com/test"

	"github.com/relabs-tech/arm_sensor_node/internal/orientation"
)

// recorder accepts one byte per call and records call sizes.
type recorder struct {
	bytes.Buffer
	calls []int
	// stall makes every nth call accept nothing.
	stall int
}

func (r *recorder) Write(p []byte) (int, error) {
	r.calls = append(r.calls, len(p))
	if r.stall > 0 && len(r.calls)%r.stall == 0 {
		return 0, nil
	}
	return r.Buffer.Write(p[:1])
}

func TestIdentityTickIsExact(t *testing.T) {
	rec := &recorder{}
	enc := NewEncoder(rec)
	test.That(t, enc.TransmitQuaternion(orientation.Identity), test.ShouldBeNil)
	test.That(t, enc.TransmitAngle(0), test.ShouldBeNil)

	want := []byte{
		0xE0, 0xE0,
		0x00, 0x00, 0x80, 0x3F,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	test.That(t, rec.Bytes(), test.ShouldResemble, want)
	test.That(t, len(want), test.ShouldEqual, TickSize)
	for _, n := range rec.calls {
		test.That(t, n, test.ShouldEqual, 1)
	}
}

func TestTransmitterRetriesStalledByte(t *testing.T) {
	rec := &recorder{stall: 3}
	tx := NewTransmitter(rec)
	test.That(t, tx.Send([]byte{1, 2, 3, 4, 5}), test.ShouldBeNil)
	test.That(t, rec.Bytes(), test.ShouldResemble, []byte{1, 2, 3, 4, 5})
	test.That(t, len(rec.calls), test.ShouldEqual, 7)
}

type brokenPort struct{}

func (brokenPort) Write([]byte) (int, error) { return 0, errors.New("unplugged") }

func TestTransmitterReportsErrors(t *testing.T) {
	enc := NewEncoder(brokenPort{})
	test.That(t, enc.TransmitAngle(1), test.ShouldNotBeNil)
}

type badSource struct{}

func (badSource) Component(i int) (float32, error) {
	if i == 2 {
		return 0, orientation.ErrComponentIndex
	}
	return 1, nil
}

func TestTransmitQuaternionStopsOnComponentError(t *testing.T) {
	rec := &recorder{}
	err := NewEncoder(rec).TransmitQuaternion(badSource{})
	test.That(t, errors.Is(err, orientation.ErrComponentIndex), test.ShouldBeTrue)
	test.That(t, rec.Len(), test.ShouldEqual, 0)
}

func TestDecoderRoundTripAndResync(t *testing.T) {
	q := orientation.Quaternion{Q0: 0.5, Q1: -0.5, Q2: 0.5, Q3: -0.5}
	tick := AppendAngleFrame(AppendQuaternionFrame(nil, q), 1.25)

	stream := []byte{0x01, 0xE0, 0x02}
	stream = append(stream, tick...)
	stream = append(stream, tick...)

	var d Decoder
	var got []Telemetry
	// Byte at a time, as it arrives from a serial port.
	for _, b := range stream {
		got = append(got, d.Feed([]byte{b})...)
	}
	test.That(t, len(got), test.ShouldEqual, 2)
	for _, tm := range got {
		test.That(t, tm.Orientation, test.ShouldResemble, q)
		test.That(t, tm.Angle, test.ShouldEqual, float32(1.25))
	}
	test.That(t, d.Skipped(), test.ShouldEqual, 3)
}

func TestDecoderWholeChunk(t *testing.T) {
	tick := AppendAngleFrame(AppendQuaternionFrame(nil, orientation.Identity), 0)
	var d Decoder
	got := d.Feed(append(append([]byte{}, tick...), tick[:10]...))
	test.That(t, len(got), test.ShouldEqual, 1)
	got = d.Feed(tick[10:])
	test.That(t, len(got), test.ShouldEqual, 1)
	test.That(t, got[0].Orientation, test.ShouldResemble, orientation.Identity)
	test.That(t, got[0].Message().Roll, test.ShouldEqual, 0.0)
}
