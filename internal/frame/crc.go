package frame

// crcPoly is the reflected CRC-16/IBM polynomial used by the MCU firmware.
const crcPoly = 0xA001

// CRC16 computes CRC-16/IBM over data: polynomial 0xA001 (reflected), initial
// value 0, LSB-first, no final XOR. This matches the checksum the firmware
// appends to every frame, so a mismatch means the payload was corrupted in
// transit.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ crcPoly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
