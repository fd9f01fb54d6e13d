package database

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// fingerprintSize is the digest length in bytes of an argument fingerprint.
const fingerprintSize = 8

// fingerprint summarises bound arguments for logs. Equal argument lists give
// equal fingerprints, so failures can be correlated without ever writing
// values such as emails into the log.
func fingerprint(args []any) string {
	if len(args) == 0 {
		return ""
	}

	h, err := blake2b.New(fingerprintSize, nil)
	if err != nil {
		return "[unavailable]"
	}
	for _, a := range args {
		fmt.Fprintf(h, "%T:%v\x00", a, a)
	}

	return fmt.Sprintf("%d:%s", len(args), hex.EncodeToString(h.Sum(nil)))
}
