package raster

// Gray12Max is the default ceiling of 16-bit grayscale samples, which are
// taken to hold 12 significant bits.
const Gray12Max = 4095

// GrayPolicy maps grayscale samples to 8 bits. 8-bit samples pass through.
// 16-bit samples are clamped to Max and scaled onto 0..255 by truncating
// division, so 4095 maps to 255 and 2048 to 127.
type GrayPolicy struct {
	Max uint16
}

// DefaultGray returns the 12-bit policy.
func DefaultGray() GrayPolicy {
	return GrayPolicy{Max: Gray12Max}
}

// Scale16 maps one 16-bit sample.
func (p GrayPolicy) Scale16(v uint16) uint8 {
	ceiling := p.Max
	if ceiling == 0 {
		ceiling = Gray12Max
	}
	if v > ceiling {
		v = ceiling
	}
	return uint8(uint32(v) * 255 / uint32(ceiling))
}
