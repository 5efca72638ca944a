package stats

import (
	"fmt"
)

// LabelNotSignificant is the fallback label when no cutoff is satisfied
const LabelNotSignificant = "ns"

// Threshold maps a p-value cutoff to a display label
type Threshold struct {
	MaxP  float64 `json:"max_p" yaml:"max_p"`
	Label string  `json:"label" yaml:"label"`
}

// ThresholdScale is an ascending list of (cutoff, label) pairs. LabelFor
// assigns the label of the tightest cutoff a p-value satisfies, which makes
// labeling monotone by construction: a smaller p-value never receives a
// looser label.
type ThresholdScale []Threshold

// DefaultScale returns the conventional three-star scale
func DefaultScale() ThresholdScale {
	return ThresholdScale{
		{MaxP: 0.001, Label: "***"},
		{MaxP: 0.01, Label: "**"},
		{MaxP: 0.05, Label: "*"},
	}
}

// Validate checks that cutoffs are strictly ascending within (0, 1] and
// every label is non-empty
func (s ThresholdScale) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("threshold scale is empty")
	}
	prev := 0.0
	for i, th := range s {
		if th.MaxP <= 0 || th.MaxP > 1 {
			return fmt.Errorf("threshold %d: cutoff %v outside (0,1]", i, th.MaxP)
		}
		if th.MaxP <= prev {
			return fmt.Errorf("threshold %d: cutoff %v not strictly ascending", i, th.MaxP)
		}
		if th.Label == "" {
			return fmt.Errorf("threshold %d: empty label", i)
		}
		prev = th.MaxP
	}
	return nil
}

// LabelFor returns the label of the tightest cutoff p satisfies (p <= MaxP),
// or LabelNotSignificant when none does
func (s ThresholdScale) LabelFor(p float64) string {
	for _, th := range s {
		if p <= th.MaxP {
			return th.Label
		}
	}
	return LabelNotSignificant
}
