package vcs

import (
	"crypto/rand"
	"math/big"
)

const randomTokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomToken returns a random string of the given length drawn from lowercase
// alphanumerics, used to name scratch branches (the temp branch gets 20
// characters; branch-suffix "random" gets 7, per §3/§4.3).
func RandomToken(length int) string {
	b := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(randomTokenAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand failures are effectively never observed in practice;
			// fall back to a fixed low-entropy character rather than panicking.
			b[i] = randomTokenAlphabet[0]
			continue
		}
		b[i] = randomTokenAlphabet[n.Int64()]
	}
	return string(b)
}
