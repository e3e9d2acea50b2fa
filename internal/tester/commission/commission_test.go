package commission

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type CommissionTestSuite struct {
	suite.Suite
}

func TestCommissionSuite(t *testing.T) {
	suite.Run(t, new(CommissionTestSuite))
}

func (suite *CommissionTestSuite) TestFlatModel() {
	model := NewFlatModel()
	suite.NotNil(model)

	tests := []struct {
		name   string
		volume float64
	}{
		{"zero volume", 0},
		{"small volume", 0.01},
		{"standard lot", 1.0},
		{"large volume", 100},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result := model.Calculate(tc.volume)
			suite.Equal(-0.2, result)
		})
	}
}

func (suite *CommissionTestSuite) TestZeroModel() {
	model := NewZeroModel()
	suite.NotNil(model)

	tests := []struct {
		name   string
		volume float64
	}{
		{"zero volume", 0},
		{"standard lot", 1.0},
		{"large volume", 10000},
		{"negative volume", -100},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result := model.Calculate(tc.volume)
			suite.Equal(0.0, result)
		})
	}
}

func (suite *CommissionTestSuite) TestGetModel() {
	tests := []struct {
		name           string
		model          ModelName
		testVolume     float64
		expectedResult float64
	}{
		{
			name:           "flat model",
			model:          ModelFlat,
			testVolume:     1.0,
			expectedResult: -0.2,
		},
		{
			name:           "zero model",
			model:          ModelZero,
			testVolume:     1.0,
			expectedResult: 0.0,
		},
		{
			name:           "unknown model defaults to flat",
			model:          ModelName("unknown"),
			testVolume:     1.0,
			expectedResult: -0.2,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			model := GetModel(tc.model)
			suite.NotNil(model)
			result := model.Calculate(tc.testVolume)
			suite.Equal(tc.expectedResult, result)
		})
	}
}

func (suite *CommissionTestSuite) TestAllModels() {
	suite.Len(AllModels, 2)
	suite.Contains(AllModels, ModelFlat)
	suite.Contains(AllModels, ModelZero)
}
