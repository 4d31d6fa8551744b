// CLAUDE:SUMMARY Pluggable ID generators: random UUIDv4 read ids, UUIDv7 event ids, NanoID session and request ids, prefix decorator.
// Package idgen provides the identifier strategies used across bulkvis.
//
// Components take a Generator instead of calling uuid directly, so tests can
// inject deterministic ids:
//
//	exported read ids   UUIDv4 (random, not derived from the source)
//	history event ids   UUIDv7 (time-sortable)
//	session cookies     Prefixed("sess_", NanoID(20))
//	request ids         Prefixed("req_", NanoID(12))
package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// NanoID returns a Generator of base-36 ids of the given length.
// Short and URL-safe, for cookies and file names.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// UUIDv4 returns a Generator of random RFC 9562 version 4 UUIDs.
func UUIDv4() Generator {
	return func() string {
		return uuid.NewString()
	}
}

// UUIDv7 returns a Generator of time-sortable RFC 9562 version 7 UUIDs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends a fixed prefix to every id of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is used for history event ids.
var Default Generator = UUIDv7()
