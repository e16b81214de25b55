package cache

import "strings"

// #region key
// KeyParts are the four ordered components of a cache key.
type KeyParts struct {
	Version           string
	ContentID         string
	Seed              string // empty renders as NullSeed
	InputsFingerprint string
}

const (
	// KeyDelimiter separates key segments.
	KeyDelimiter = "|"
	// NullSeed is the seed token written when no seed is set.
	NullSeed = "null"
)

// fieldEscaper percent-encodes the characters that structure a key, so no
// field value can reproduce a delimiter or a segment name.
var fieldEscaper = strings.NewReplacer("%", "%25", "|", "%7C", "=", "%3D")

// escapedNullSeed is how a seed that is literally "null" is written, keeping
// it distinct from an absent seed.
const escapedNullSeed = "%6Eull"

// ComposeKey renders parts as "v=..|content=..|seed=..|inputs=..". Field
// values are escaped; the key stays human readable and equality is plain
// string equality.
func ComposeKey(p KeyParts) string {
	var seed string
	switch p.Seed {
	case "":
		seed = NullSeed
	case NullSeed:
		seed = escapedNullSeed
	default:
		seed = fieldEscaper.Replace(p.Seed)
	}
	return strings.Join([]string{
		"v=" + fieldEscaper.Replace(p.Version),
		"content=" + fieldEscaper.Replace(p.ContentID),
		"seed=" + seed,
		"inputs=" + fieldEscaper.Replace(p.InputsFingerprint),
	}, KeyDelimiter)
}

// #endregion key
