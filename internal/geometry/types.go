package geometry

import "strings"

// #region axes
// Visibility is the hide/seek axis.
type Visibility string

// Revelation is the truth/dare axis.
type Revelation string

// Direction is the interior/exterior axis.
type Direction string

const (
	Hide Visibility = "HIDE"
	Seek Visibility = "SEEK"

	Truth Revelation = "TRUTH"
	Dare  Revelation = "DARE"

	Interior Direction = "INTERIOR"
	Exterior Direction = "EXTERIOR"
)

// Axis names used as Bias keys.
const (
	AxisVisibility = "visibility"
	AxisRevelation = "revelation"
	AxisDirection  = "direction"
)

// Enumeration order matters: ties during weighted selection resolve to the
// earlier value.
var (
	visibilityValues = []string{string(Hide), string(Seek)}
	revelationValues = []string{string(Truth), string(Dare)}
	directionValues  = []string{string(Interior), string(Exterior)}
)

// StateSeparator joins axis values into a state label.
const StateSeparator = "_"

// #endregion axes

// #region geometry
// Geometry is one value per axis plus the derived state label.
type Geometry struct {
	Visibility Visibility `json:"visibility"`
	Revelation Revelation `json:"revelation"`
	Direction  Direction  `json:"direction"`
	State      string     `json:"state"`
}

// NewGeometry builds a Geometry and derives its state label.
func NewGeometry(v Visibility, r Revelation, d Direction) Geometry {
	return Geometry{
		Visibility: v,
		Revelation: r,
		Direction:  d,
		State:      strings.Join([]string{string(v), string(r), string(d)}, StateSeparator),
	}
}

// #endregion geometry

// #region bias
// AxisWeights maps an axis value (e.g. "SEEK") to a non-negative weight.
type AxisWeights map[string]float64

// Bias holds optional per-axis weights keyed by axis name. Missing axes and
// missing, negative or non-finite weights count as 1.
type Bias map[string]AxisWeights

// #endregion bias

// #region request
// AssignRequest selects the sampling stream for one assignment. Rand takes
// precedence over Seed, and Seed over ContentID.
type AssignRequest struct {
	ContentID string
	Bias      Bias
	Seed      any
	Rand      Source
}

// #endregion request
