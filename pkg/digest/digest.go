// Package digest computes the 128-bit XXH3 fingerprint used throughout the
// daemon to address content. Fingerprints are deterministic and seedless —
// the same bytes always produce the same fingerprint, in this process or
// any other, because the on-disk block layout and file names are derived
// from it.
package digest

import (
	"fmt"
	"math/big"

	"github.com/zeebo/xxh3"
)

// Fingerprint is a 128-bit XXH3 hash, split into high and low 64-bit halves
// to avoid dragging a big-integer type through the hot hashing path.
type Fingerprint struct {
	Hi uint64
	Lo uint64
}

// Calculate returns the 128-bit XXH3 fingerprint of data. Deterministic,
// seedless, and infallible — there are no error conditions.
func Calculate(data []byte) Fingerprint {
	h := xxh3.Hash128(data)
	return Fingerprint{Hi: h.Hi, Lo: h.Lo}
}

// Hex returns the canonical 32-character lowercase hexadecimal form used to
// name block files and their containing three-level directory path.
func (f Fingerprint) Hex() string {
	return fmt.Sprintf("%016x%016x", f.Hi, f.Lo)
}

// String implements fmt.Stringer for debugging and log output.
func (f Fingerprint) String() string {
	return f.Hex()
}

// bigMask64 is the low-64-bit mask used to split a decoded big.Int back
// into Hi/Lo halves.
var bigMask64 = new(big.Int).SetUint64(^uint64(0))

// toBig converts the fingerprint to its unsigned 128-bit big.Int value.
func (f Fingerprint) toBig() *big.Int {
	v := new(big.Int).SetUint64(f.Hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(f.Lo))
	return v
}

// MarshalJSON encodes the fingerprint as a base-10 string. Go's
// encoding/json cannot round-trip a 128-bit integer through its native
// number type, so every pool in this implementation uses the string form.
func (f Fingerprint) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.toBig().String() + `"`), nil
}

// UnmarshalJSON decodes the base-10 string form produced by MarshalJSON.
func (f *Fingerprint) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("digest: fingerprint must be a JSON string, got %q", data)
	}
	s := string(data[1 : len(data)-1])

	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("digest: invalid fingerprint decimal string %q", s)
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return fmt.Errorf("digest: fingerprint %q out of 128-bit range", s)
	}

	lo := new(big.Int).And(v, bigMask64)
	hi := new(big.Int).Rsh(v, 64)

	f.Hi = hi.Uint64()
	f.Lo = lo.Uint64()
	return nil
}
