package taxonomy

import "github.com/rotisserie/eris"

// Bounds is one inclusive [Min, Max] range group.
type Bounds struct {
	Min int `yaml:"min" mapstructure:"min"`
	Max int `yaml:"max" mapstructure:"max"`
}

// RangeGroups partitions a numeric attribute (storeys, year built) into contiguous groups.
type RangeGroups []Bounds

// Validate requires Min <= Max in every group and each group to start right
// after the previous one ends.
func (g RangeGroups) Validate() error {
	for i, b := range g {
		if b.Min > b.Max {
			return eris.Errorf("taxonomy: range %d: maximum %d is less than minimum %d", i, b.Max, b.Min)
		}
		if i > 0 && b.Min != g[i-1].Max+1 {
			return eris.Errorf("taxonomy: range %d: minimum %d does not follow previous maximum %d", i, b.Min, g[i-1].Max)
		}
	}
	return nil
}

// Bucket returns the group containing v.
func (g RangeGroups) Bucket(v int) (Bounds, bool) {
	for _, b := range g {
		if v >= b.Min && v <= b.Max {
			return b, true
		}
	}
	return Bounds{}, false
}
