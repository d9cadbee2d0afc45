package store

import (
	"crypto/rand"
	"fmt"
)

const (
	base36Alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	sessionIDPrefix = "ss"
	sessionIDLength = 16
)

func generateSessionID() (string, error) {
	hash, err := randomBase36(sessionIDLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", sessionIDPrefix, hash), nil
}

func randomBase36(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out), nil
}
