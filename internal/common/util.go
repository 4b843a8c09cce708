package common

import "crypto/rand"

// GenerateRandByteArray returns size cryptographically random bytes.
func GenerateRandByteArray(size int) []byte {
	buf := make([]byte, size)
	_, _ = rand.Read(buf)
	return buf
}

// WipeByteArray zeroes the buffer in place. Used to scrub key material
// before it goes out of scope.
func WipeByteArray(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
