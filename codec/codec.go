// Package codec decodes multi-byte register fields from raw sensor frames.
// All functions are pure; byte order and signedness are picked by the caller
// per the device's register map.
package codec

// BEUint16 combines a big-endian byte pair into an unsigned 16-bit value.
func BEUint16(hi, lo byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// BEInt16 combines a big-endian byte pair and reinterprets it as
// two's complement.
func BEInt16(hi, lo byte) int16 {
	return int16(BEUint16(hi, lo))
}

// LEUint16 combines a little-endian byte pair into an unsigned 16-bit value.
func LEUint16(lo, hi byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// LEInt16 combines a little-endian byte pair and reinterprets it as
// two's complement.
func LEInt16(lo, hi byte) int16 {
	return int16(LEUint16(lo, hi))
}

// U20FromTriplet rebuilds a 20-bit ADC code from a 3-byte big-endian,
// left-justified field: the upper nibble of xlsb carries the low 4 bits.
func U20FromTriplet(msb, lsb, xlsb byte) uint32 {
	return uint32(msb)<<12 | uint32(lsb)<<4 | uint32(xlsb)>>4
}
