package internal

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

var digestEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: deterministic encoding mode: %v", err))
	}
	return mode
}()

// CanonicalCBOR encodes v with CBOR core deterministic encoding, so equal
// values always produce identical bytes.
func CanonicalCBOR(v any) ([]byte, error) {
	return digestEncMode.Marshal(v)
}

// Digest returns the hex BLAKE3-256 hash of v's canonical CBOR encoding
func Digest(v any) (string, error) {
	data, err := CanonicalCBOR(v)
	if err != nil {
		return "", &ParseError{Source: "digest", Err: err}
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Fingerprint identifies an ordered event list; two lists with the same
// fingerprint fold to the same projections.
func Fingerprint(events []Envelope) (string, error) {
	return Digest(events)
}

// ChangeDetector remembers the last digest seen per key
type ChangeDetector struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewChangeDetector creates an empty ChangeDetector
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{seen: make(map[string]string)}
}

// Changed records digest for key and reports whether it differs from the
// previous one. The first digest for a key always counts as a change.
func (c *ChangeDetector) Changed(key, digest string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.seen[key]; ok && prev == digest {
		return false
	}
	c.seen[key] = digest
	return true
}
