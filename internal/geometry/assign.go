package geometry

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/danielpatrickdp/quest-forensics/internal/sampler"
)

// Source is the uniform stream consumed by Assign.
type Source = sampler.Source

// #region assign
// Assign draws one value per axis and composes the Geometry.
func Assign(req AssignRequest) Geometry {
	rng := req.Rand
	if rng == nil {
		if req.Seed != nil {
			rng = sampler.New(req.Seed)
		} else {
			rng = sampler.NewFromString(req.ContentID)
		}
	}

	v := pickWeighted(rng, visibilityValues, req.Bias[AxisVisibility])
	r := pickWeighted(rng, revelationValues, req.Bias[AxisRevelation])
	d := pickWeighted(rng, directionValues, req.Bias[AxisDirection])

	return NewGeometry(Visibility(v), Revelation(r), Direction(d))
}

// AssignWithProvider looks up the bias for contentID before assigning.
// An explicit req.Bias wins over the provider.
func AssignWithProvider(p CubeBiasProvider, req AssignRequest) Geometry {
	if req.Bias == nil && p != nil {
		req.Bias = p.BiasFor(req.ContentID)
	}
	return Assign(req)
}

// #endregion assign

// #region weighted-pick
// pickWeighted draws a threshold in [0, total) and returns the first value
// whose cumulative weight reaches it.
func pickWeighted(rng Source, values []string, weights AxisWeights) string {
	normalized := make([]float64, len(values))
	total := 0.0
	for i, v := range values {
		normalized[i] = normalizeWeight(weights, v)
		total += normalized[i]
	}
	if total <= 0 {
		for i := range normalized {
			normalized[i] = 1
		}
		total = float64(len(values))
	}
	if math.IsInf(total, 0) {
		// finite weights whose sum overflows: rescale by the largest
		peak := slices.Max(normalized)
		total = 0
		for i := range normalized {
			normalized[i] /= peak
			total += normalized[i]
		}
	}

	threshold := rng.Float64() * total
	acc := 0.0
	for i, v := range values {
		acc += normalized[i]
		if acc >= threshold {
			return v
		}
	}
	return values[len(values)-1]
}

func normalizeWeight(weights AxisWeights, value string) float64 {
	w, ok := weights[value]
	if !ok || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 1
	}
	return w
}

// #endregion weighted-pick

// #region parse
// AllStates lists the eight state labels in enumeration order.
func AllStates() []string {
	states := make([]string, 0, 8)
	for _, v := range visibilityValues {
		for _, r := range revelationValues {
			for _, d := range directionValues {
				states = append(states, NewGeometry(Visibility(v), Revelation(r), Direction(d)).State)
			}
		}
	}
	return states
}

// ParseState converts a state label back into a Geometry.
func ParseState(state string) (Geometry, error) {
	parts := strings.Split(state, StateSeparator)
	if len(parts) != 3 ||
		!slices.Contains(visibilityValues, parts[0]) ||
		!slices.Contains(revelationValues, parts[1]) ||
		!slices.Contains(directionValues, parts[2]) {
		return Geometry{}, fmt.Errorf("parse state %q: unknown geometry", state)
	}
	return NewGeometry(Visibility(parts[0]), Revelation(parts[1]), Direction(parts[2])), nil
}

// #endregion parse
