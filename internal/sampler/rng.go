package sampler

import (
	"fmt"
	"strconv"
	"unicode/utf16"
)

// #region rand
// Rand is a small deterministic generator: an FNV-1a hashed seed feeding a
// Weyl sequence with two xorshift-multiply mixing rounds per draw.
// Identical seeds yield identical infinite sequences.
type Rand struct {
	state uint32
}

// New creates a Rand from a seed. Strings are used verbatim; integers and
// floats use their shortest decimal form; fmt.Stringer values use String().
func New(seed any) *Rand {
	return NewFromString(SeedString(seed))
}

// NewFromString creates a Rand from the string form of a seed.
func NewFromString(seed string) *Rand {
	return &Rand{state: HashSeed(seed)}
}

// Uint32 advances the state and returns the next mixed 32-bit value.
func (r *Rand) Uint32() uint32 {
	r.state += stateIncrement
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / twoPow32
}

// #endregion rand

// #region seed-hash
// HashSeed folds a seed string into 32 bits with FNV-1a over its UTF-16
// code units. A zero hash is replaced by a fixed non-zero constant.
func HashSeed(seed string) uint32 {
	h := fnvOffsetBasis
	for _, unit := range utf16.Encode([]rune(seed)) {
		h ^= uint32(unit)
		h *= fnvPrime
	}
	if h == 0 {
		return zeroHashFallback
	}
	return h
}

// SeedString renders a seed value in the form that HashSeed consumes.
func SeedString(seed any) string {
	switch v := seed.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}

// #endregion seed-hash
