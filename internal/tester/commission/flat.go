package commission

// flatCharge is the fixed per-deal commission the simulator books, matching
// the terminal's demo server behaviour.
const flatCharge = -0.2

type FlatModel struct{}

func NewFlatModel() Model {
	return &FlatModel{}
}

// Calculate returns the fixed charge regardless of volume.
func (m *FlatModel) Calculate(volume float64) float64 {
	return flatCharge
}
