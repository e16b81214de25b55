package geometry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region provider
// CubeBiasProvider supplies an optional Bias for a content id, such as a
// hexagram identifier.
type CubeBiasProvider interface {
	BiasFor(contentID string) Bias
}

// NoBias always returns nil, giving uniform selection.
type NoBias struct{}

// BiasFor implements CubeBiasProvider.
func (NoBias) BiasFor(string) Bias { return nil }

// StaticBiasProvider serves biases from a fixed lookup table.
type StaticBiasProvider struct {
	table map[string]Bias
}

// NewStaticBiasProvider copies table into a read-only provider.
func NewStaticBiasProvider(table map[string]Bias) *StaticBiasProvider {
	copied := make(map[string]Bias, len(table))
	for id, b := range table {
		copied[id] = cloneBias(b)
	}
	return &StaticBiasProvider{table: copied}
}

// BiasFor implements CubeBiasProvider. Unknown ids get nil.
func (p *StaticBiasProvider) BiasFor(contentID string) Bias {
	b, ok := p.table[contentID]
	if !ok {
		return nil
	}
	return cloneBias(b)
}

// Len reports how many content ids carry a bias.
func (p *StaticBiasProvider) Len() int { return len(p.table) }

// #endregion provider

// #region bias-table
// biasTableFile is the YAML layout of a bias table:
//
//	biases:
//	  "29":
//	    visibility: {HIDE: 3, SEEK: 1}
//	    direction: {INTERIOR: 2}
type biasTableFile struct {
	Biases map[string]Bias `yaml:"biases"`
}

// LoadBiasTable reads a YAML bias table and builds a StaticBiasProvider.
func LoadBiasTable(path string) (*StaticBiasProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bias table %s: %w", path, err)
	}
	var f biasTableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse bias table %s: %w", path, err)
	}
	for id, b := range f.Biases {
		for axis := range b {
			switch axis {
			case AxisVisibility, AxisRevelation, AxisDirection:
			default:
				return nil, fmt.Errorf("bias table %s: content %s: unknown axis %q", path, id, axis)
			}
		}
	}
	return NewStaticBiasProvider(f.Biases), nil
}

func cloneBias(b Bias) Bias {
	if b == nil {
		return nil
	}
	out := make(Bias, len(b))
	for axis, weights := range b {
		w := make(AxisWeights, len(weights))
		for k, v := range weights {
			w[k] = v
		}
		out[axis] = w
	}
	return out
}

// #endregion bias-table
