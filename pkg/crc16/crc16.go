// Package crc16 implements the CRC-16/CCITT (XMODEM) checksum used by Davis
// Instruments transmitters and consoles: polynomial 0x1021, initial value 0,
// no reflection. A frame that carries its own checksum big-endian in the
// trailing two bytes sums to zero.
package crc16

var crcTable [256]uint16

func init() {
	for i := range crcTable {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// Crc16 computes the checksum of buf.
func Crc16(buf []byte) uint16 {
	var crc uint16
	for _, b := range buf {
		crc = crc<<8 ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}
