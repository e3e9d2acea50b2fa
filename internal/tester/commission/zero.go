package commission

// ZeroModel implements Model with no commission.
type ZeroModel struct{}

// NewZeroModel creates a commission-free model.
func NewZeroModel() Model {
	return &ZeroModel{}
}

// Calculate returns 0 for any volume.
func (m *ZeroModel) Calculate(volume float64) float64 {
	return 0.0
}
