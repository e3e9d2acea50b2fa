package commission

// Model computes the commission booked on a simulated deal. The returned
// amount is signed the way the terminal reports it, so a charge is negative.
type Model interface {
	// Calculate returns the commission in the account currency for a deal
	// of the given volume.
	Calculate(volume float64) float64
}

type ModelName string

const (
	ModelFlat ModelName = "flat"
	ModelZero ModelName = "zero"
)

var AllModels = []any{
	ModelFlat,
	ModelZero,
}

func GetModel(name ModelName) Model {
	switch name {
	case ModelFlat:
		return NewFlatModel()
	case ModelZero:
		return NewZeroModel()
	default:
		return NewFlatModel()
	}
}
