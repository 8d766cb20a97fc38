// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Separate
// domains keep a file and a directory whose serialized listing happens
// to equal that file's bytes from colliding.
type domainKey [32]byte

// Domain separation keys: the ASCII domain name zero-padded to 32
// bytes. Changing them changes every digest.
var (
	fileDomainKey = domainKey{
		'e', 's', 'c', 'a', 'p', 'e', '-', 'h', 'a', 't', 'c', 'h', '.', 'f', 'i', 'l',
		'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	directoryDomainKey = domainKey{
		'e', 's', 'c', 'a', 'p', 'e', '-', 'h', 'a', 't', 'c', 'h', '.', 'd', 'i', 'r',
		'e', 'c', 't', 'o', 'r', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	symlinkDomainKey = domainKey{
		'e', 's', 'c', 'a', 'p', 'e', '-', 'h', 'a', 't', 'c', 'h', '.', 's', 'y', 'm',
		'l', 'i', 'n', 'k', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// newHasher returns a keyed BLAKE3 hasher for the given domain.
func newHasher(key domainKey) *blake3.Hasher {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed only fails on a key that is not 32 bytes.
		panic("artifact: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

func sum(hasher *blake3.Hasher) Hash {
	var result Hash
	copy(result[:], hasher.Sum(nil))
	return result
}

// FormatHash returns the hex-encoded string representation of a hash.
// This is the format used in logs and CLI output.
func FormatHash(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return FormatHash(h)
}
