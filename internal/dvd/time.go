package dvd

// bcd decodes a packed binary-coded-decimal byte. Nibbles outside 0-9
// yield values outside 0-99; the IFO format never flags them, so
// neither do we.
func bcd(v byte) int {
	return int(v>>4)*10 + int(v&0x0F)
}

// CellTime is the raw 4-byte playback time of one cell: BCD-packed
// hour, minute and second, plus a combined byte holding the frame-rate
// code in its top two bits and a BCD frame count in its low six.
type CellTime struct {
	Hour   byte
	Minute byte
	Second byte
	Frame  byte
}

// Rate returns the frame rate encoded in the combined byte: code 1 is
// 25 fps (PAL), every other code is treated as 30 fps (NTSC).
func (t CellTime) Rate() uint32 {
	if (t.Frame>>6)&0x03 == 1 {
		return 25
	}
	return 30
}

// Frames returns the cell duration in frames at the given rate.
func (t CellTime) Frames(rate uint32) uint64 {
	seconds := bcd(t.Hour)*3600 + bcd(t.Minute)*60 + bcd(t.Second)
	return uint64(seconds)*uint64(rate) + uint64(bcd(t.Frame&0x3F))
}

// framesToMilliseconds converts an elapsed frame count to a truncated
// millisecond timestamp. NTSC frames last 1001/30 ms, PAL frames an
// exact 40 ms.
func framesToMilliseconds(frames uint64, rate uint32) int64 {
	factor := uint64(1000)
	if rate == 30 {
		factor = 1001
	}
	if rate == 0 {
		rate = 1
	}
	return int64(factor * frames / uint64(rate))
}
