package forensics

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/quest-forensics/internal/generator"
)

// #region plan
// planTrials builds the n generation requests for a run.
//   - A: seed "<base>-<i>" per trial, inputs unchanged.
//   - B: seed fixed at base, trial i > 0 perturbs one input field.
//   - C: identical requests.
func planTrials(req Request, contentID, baseSeed string, inputs map[string]any) []trial {
	trials := make([]trial, req.N)
	field := req.PerturbField
	if req.Mode == ModeSensitivity && field == "" {
		field = defaultPerturbField(inputs)
	}

	for i := range trials {
		t := trial{
			index: i,
			request: generator.Request{
				ContentID:   contentID,
				Seed:        baseSeed,
				Inputs:      inputs,
				ModelParams: req.ModelParams,
			},
		}
		switch req.Mode {
		case ModeVariability:
			t.request.Seed = fmt.Sprintf("%s-%d", baseSeed, i)
		case ModeSensitivity:
			t.request.Inputs, t.value = perturb(inputs, field, i)
			t.field = field
		}
		trials[i] = t
	}
	return trials
}

// fallbackField is added when the inputs hold nothing to perturb.
const fallbackField = "variant"

// defaultPerturbField is the first key, in sorted order, holding a string or
// a number.
func defaultPerturbField(inputs map[string]any) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch inputs[k].(type) {
		case string, float64, float32, int, int64, int32:
			return k
		}
	}
	return fallbackField
}

// perturb copies inputs and nudges field for trial i. Trial 0 is the
// unmodified baseline.
func perturb(inputs map[string]any, field string, i int) (map[string]any, any) {
	out := make(map[string]any, len(inputs)+1)
	for k, v := range inputs {
		out[k] = v
	}
	if i == 0 {
		return out, out[field]
	}

	var next any
	switch v := out[field].(type) {
	case string:
		next = fmt.Sprintf("%s (variant %d)", v, i)
	case float64:
		next = v + float64(i)
	case float32:
		next = float64(v) + float64(i)
	case int:
		next = v + i
	case int64:
		next = v + int64(i)
	case int32:
		next = int64(v) + int64(i)
	default:
		next = i
	}
	out[field] = next
	return out, next
}

// #endregion plan
