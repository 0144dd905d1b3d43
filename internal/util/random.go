package util

import "math/rand"

const letterBytes = "abcdefghijklmnopqrstuvwxyz0123456789"

// Random builds an n-character lowercase suffix for instance names.
func Random(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
