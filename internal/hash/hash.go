// Package hash computes the 256-bit content fingerprint used by the
// persistence layer (C8) to deduplicate imported files (spec §4.4, §6).
package hash

import (
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the length in bytes of a content hash.
const Size = 32

// ContentHash is a 256-bit content fingerprint, independent of filename or
// any other metadata.
type ContentHash [Size]byte

// File streams path through BLAKE3 and returns its content hash. It never
// loads the whole file into memory, so it is safe to call on large MIDI
// archives as well as individual files.
func File(path string) (ContentHash, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContentHash{}, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return ContentHash{}, err
	}
	return sum(h), nil
}

// Bytes hashes b directly, for callers that already have the file's
// content in memory (e.g. a stage that just read the bytes for parsing).
func Bytes(b []byte) ContentHash {
	h := blake3.New()
	h.Write(b)
	return sum(h)
}

func sum(h *blake3.Hasher) ContentHash {
	var out ContentHash
	copy(out[:], h.Sum(nil))
	return out
}
