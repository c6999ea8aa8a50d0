package utils

import (
	"math/rand"
)

func RandomString(length int) string {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	ret := make([]byte, length)
	for i := 0; i < length; i++ {
		num := rand.Int() % len(letters)
		ret[i] = letters[num]
	}
	return string(ret)
}

func RandomInt(min, max int) int {
	return min + int(rand.Int63n(int64(max-min)))
}

func Deref[T any](p *T, defaultValue T) T {
	if p != nil {
		return *p
	}
	return defaultValue
}
