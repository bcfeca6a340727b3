// Package uniuri generates random strings from crypto/rand, used for the
// unusable local passwords of directory users.
package uniuri

import (
	"crypto/rand"
	"math/big"
)

// StdChars is the alphabet of NewLen.
const StdChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewLen returns a random string of length characters from StdChars.
func NewLen(length int) string {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of length characters from chars.
// It panics when chars has fewer than two characters or the system random source fails.
func NewLenChars(length int, chars string) string {
	if length <= 0 {
		return ""
	}

	if len(chars) < 2 {
		panic("uniuri: charset needs at least two characters")
	}

	limit := big.NewInt(int64(len(chars)))
	out := make([]byte, length)

	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("uniuri: error reading random bytes: " + err.Error())
		}

		out[i] = chars[n.Int64()]
	}

	return string(out)
}
