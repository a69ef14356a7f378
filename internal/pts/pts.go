// Package pts implements arithmetic on the 33-bit MPEG presentation
// timestamp domain and the delta schedule used to rebase a timeline at
// operator-chosen breakpoints.
package pts

import "strconv"

// Modulus is the size of the PTS domain. Timestamps are 33-bit unsigned
// values on the 90 kHz clock and wrap to zero at Modulus.
const Modulus int64 = 1 << 33

// ClockRate is the PTS tick rate in Hz.
const ClockRate = 90000

// PTS is a presentation timestamp in 90 kHz ticks. Values outside
// [0, Modulus) are invalid; Invalid is the canonical invalid value.
type PTS int64

// Invalid marks a packet without a resolvable timestamp.
const Invalid PTS = -1

// Valid reports whether p lies inside the 33-bit domain.
func (p PTS) Valid() bool {
	return p >= 0 && int64(p) < Modulus
}

// String renders p in decimal, or "-" when invalid.
func (p PTS) String() string {
	if !p.Valid() {
		return "-"
	}
	return strconv.FormatInt(int64(p), 10)
}

// Add returns p shifted by delta, wrapping within the 33-bit domain in both
// directions. Invalid input stays invalid.
func Add(p PTS, delta int64) PTS {
	if !p.Valid() {
		return Invalid
	}
	v := (int64(p) + delta%Modulus) % Modulus
	if v < 0 {
		v += Modulus
	}
	return PTS(v)
}

// Diff returns the signed distance from b to a along the shortest path
// around the wrap point, in the range [-Modulus/2, Modulus/2).
func Diff(a, b PTS) int64 {
	return (int64(a)-int64(b)+3*Modulus/2)%Modulus - Modulus/2
}

// Parse reads a decimal PTS. The token "-" parses as Invalid.
func Parse(s string) (PTS, error) {
	if s == "-" {
		return Invalid, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Invalid, err
	}
	return PTS(v), nil
}
