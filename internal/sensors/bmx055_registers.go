// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "fmt"

// BitField describes a field inside a register value.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterWrite is one register/value pair of a boot configuration block.
type RegisterWrite struct {
	Reg         byte       `json:"reg"`
	Value       byte       `json:"value"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

func (w RegisterWrite) String() string {
	return fmt.Sprintf("0x%02X %-12s <- 0x%02X (%s)", w.Reg, w.Name, w.Value, w.Description)
}

// SetupBlock is the configuration written to one device in a single
// I2C transaction.
type SetupBlock struct {
	Name   string          `json:"name"`
	Addr   uint16          `json:"addr"`
	Writes []RegisterWrite `json:"writes"`
}

// Sequence flattens the block into the bytes sent on the bus.
func (b SetupBlock) Sequence() []byte {
	seq := make([]byte, 0, 2*len(b.Writes))
	for _, w := range b.Writes {
		seq = append(seq, w.Reg, w.Value)
	}
	return seq
}

// bmx055Setup is written in order at boot: accelerometer first, then gyroscope.
var bmx055Setup = []SetupBlock{
	{
		Name: "accelerometer",
		Addr: AccelAddr,
		Writes: []RegisterWrite{
			{Reg: 0x0F, Value: 0x03, Name: "PMU_RANGE", Description: "range ±2g",
				BitFields: []BitField{
					{Bits: "3:0", Name: "range", Description: "g-range", Values: "3=±2g, 5=±4g, 8=±8g, 12=±16g"},
				}},
			{Reg: 0x10, Value: 0x08, Name: "PMU_BW", Description: "bandwidth 7.81Hz",
				BitFields: []BitField{
					{Bits: "4:0", Name: "bw", Description: "filtered data bandwidth", Values: "8=7.81Hz ... 15=1000Hz"},
				}},
			{Reg: 0x11, Value: 0x00, Name: "PMU_LPW", Description: "normal mode, sleep 0.5ms",
				BitFields: []BitField{
					{Bits: "7:5", Name: "mode", Description: "power mode", Values: "0=Normal"},
					{Bits: "4:1", Name: "sleep_dur", Description: "low-power sleep duration", Values: "0=0.5ms"},
				}},
		},
	},
	{
		Name: "gyroscope",
		Addr: GyroAddr,
		Writes: []RegisterWrite{
			{Reg: 0x0F, Value: 0x04, Name: "RANGE", Description: "full scale ±125°/s",
				BitFields: []BitField{
					{Bits: "2:0", Name: "range", Description: "angular rate range", Values: "0=±2000, 1=±1000, 2=±500, 3=±250, 4=±125 °/s"},
				}},
			{Reg: 0x10, Value: 0x07, Name: "BW", Description: "ODR 100Hz, filter 32Hz",
				BitFields: []BitField{
					{Bits: "3:0", Name: "bw", Description: "output data rate and filter bandwidth", Values: "7=100Hz/32Hz"},
				}},
			{Reg: 0x11, Value: 0x00, Name: "LPM1", Description: "normal mode, sleep 2ms",
				BitFields: []BitField{
					{Bits: "7:5", Name: "mode", Description: "power mode", Values: "0=Normal"},
					{Bits: "3:1", Name: "sleep_dur", Description: "sleep duration", Values: "0=2ms"},
				}},
		},
	},
}

// SetupBlocks returns a copy of the boot configuration table.
func SetupBlocks() []SetupBlock {
	out := make([]SetupBlock, len(bmx055Setup))
	copy(out, bmx055Setup)
	return out
}
