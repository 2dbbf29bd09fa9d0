// Package fingerprint derives the storage key of a derivative from its
// option set.
//
// An option set is first normalized into a closed value model (nil, bool,
// string, int64, float64, map[string]any, []any), then serialized with CBOR
// Core Deterministic Encoding (RFC 8949 §4.2), which sorts map keys at
// every nesting level. The serialization is hashed with keyed BLAKE3 and
// truncated to 128 bits. Equal option sets therefore map to equal keys
// regardless of map insertion order.
package fingerprint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

const (
	// OriginalName is the blob name of a file's original bytes.
	OriginalName = "original"

	// IDKey is merged into every option set before hashing.
	IDKey = "id"

	keyBytes = 16
)

// ErrMalformed reports an option set that cannot be canonicalized.
var ErrMalformed = errors.New("malformed option set")

// fingerprintDomainKey separates option fingerprints from any other
// BLAKE3 use. Changing it invalidates every cached derivative path.
var fingerprintDomainKey = [32]byte{
	'c', 'l', 'i', 'p', 'p', 'e', 'r', '.', 'd', 'e', 'r', 'i', 'v', 'a', 't', 'i',
	'v', 'e', '.', 'v', '1', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fingerprint: CBOR encoder initialization failed: " + err.Error())
	}
}

// Canonicalize returns the deterministic serialization of opts.
func Canonicalize(opts map[string]any) ([]byte, error) {
	normalized, err := normalizeMap(reflect.ValueOf(opts), "")
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}

// Key returns the derivative name for opts on the file with the given id.
// The caller may not supply the reserved "id" key.
func Key(fileID int64, opts map[string]any) (string, error) {
	if _, ok := opts[IDKey]; ok {
		return "", fmt.Errorf("%w: %q is reserved", ErrMalformed, IDKey)
	}
	merged := make(map[string]any, len(opts)+1)
	for k, v := range opts {
		merged[k] = v
	}
	merged[IDKey] = fileID

	data, err := Canonicalize(merged)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}

// Sum hashes a canonical serialization into a 32 character hex key.
func Sum(canonical []byte) string {
	hasher, err := blake3.NewKeyed(fingerprintDomainKey[:])
	if err != nil {
		panic("fingerprint: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write(canonical)
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:keyBytes])
}

// IsKey reports whether name has the shape of a derivative key.
func IsKey(name string) bool {
	if len(name) != keyBytes*2 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}
