package sampler

// #region source
// Source is a stream of uniform values in [0, 1).
// Implementations are stateful; a Source must not be shared between
// goroutines without external synchronisation.
type Source interface {
	Float64() float64
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() float64

// Float64 calls f.
func (f SourceFunc) Float64() float64 { return f() }

// #endregion source

// #region constants
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619

	// zeroHashFallback replaces a zero seed hash; an all-zero state would
	// otherwise start every stream from the same point.
	zeroHashFallback uint32 = 0x9E3779B9

	// stateIncrement is the odd Weyl-sequence step added per draw.
	stateIncrement uint32 = 0x6D2B79F5

	twoPow32 = 4294967296.0
)

// #endregion constants
