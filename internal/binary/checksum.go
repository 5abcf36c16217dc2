package binary

import (
	"encoding/binary"
	"math/bits"
)

// Lookup3Checksum is Bob Jenkins' hashlittle with a zero seed, the checksum
// carried by version 2 superblocks and the newer metadata structures.
func Lookup3Checksum(data []byte) uint32 {
	seed := 0xdeadbeef + uint32(len(data))
	a, b, c := seed, seed, seed
	if len(data) == 0 {
		return c
	}

	// the last block, full or not, goes through the final mix only
	for len(data) > 12 {
		a += binary.LittleEndian.Uint32(data)
		b += binary.LittleEndian.Uint32(data[4:])
		c += binary.LittleEndian.Uint32(data[8:])
		a, b, c = mix(a, b, c)
		data = data[12:]
	}
	var tail [12]byte
	copy(tail[:], data)
	a += binary.LittleEndian.Uint32(tail[:])
	b += binary.LittleEndian.Uint32(tail[4:])
	c += binary.LittleEndian.Uint32(tail[8:])
	_, _, c = final(a, b, c)
	return c
}

func mix(a, b, c uint32) (uint32, uint32, uint32) {
	a -= c
	a ^= bits.RotateLeft32(c, 4)
	c += b
	b -= a
	b ^= bits.RotateLeft32(a, 6)
	a += c
	c -= b
	c ^= bits.RotateLeft32(b, 8)
	b += a
	a -= c
	a ^= bits.RotateLeft32(c, 16)
	c += b
	b -= a
	b ^= bits.RotateLeft32(a, 19)
	a += c
	c -= b
	c ^= bits.RotateLeft32(b, 4)
	b += a
	return a, b, c
}

func final(a, b, c uint32) (uint32, uint32, uint32) {
	c = (c ^ b) - bits.RotateLeft32(b, 14)
	a = (a ^ c) - bits.RotateLeft32(c, 11)
	b = (b ^ a) - bits.RotateLeft32(a, 25)
	c = (c ^ b) - bits.RotateLeft32(b, 16)
	a = (a ^ c) - bits.RotateLeft32(c, 4)
	b = (b ^ a) - bits.RotateLeft32(a, 14)
	c = (c ^ b) - bits.RotateLeft32(b, 24)
	return a, b, c
}

// Fletcher32 sums the data as little-endian 16-bit words, padding an odd
// final byte with zero, modulo 65535.
func Fletcher32(data []byte) uint32 {
	var lo, hi uint32
	for i := 0; i < len(data); i += 2 {
		w := uint32(data[i])
		if i+1 < len(data) {
			w |= uint32(data[i+1]) << 8
		}
		lo = (lo + w) % 65535
		hi = (hi + lo) % 65535
	}
	return hi<<16 | lo
}
