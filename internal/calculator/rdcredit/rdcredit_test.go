package rdcredit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateWithHistory(t *testing.T) {
	est, err := Calculate(Inputs{
		Wages:              400_000,
		Supplies:           50_000,
		ContractResearch:   100_000,
		ConsortiumResearch: 20_000,
		PriorYearQREs:      []float64{300_000, 360_000, 420_000},
		GrossReceipts:      3_000_000,
		YearsWithReceipts:  4,
	})
	require.NoError(t, err)

	assert.Equal(t, 65_000.0, est.ContractQRE)
	assert.Equal(t, 15_000.0, est.ConsortiumQRE)
	assert.Equal(t, 530_000.0, est.TotalQRE)
	assert.Equal(t, MethodASC, est.Method)
	assert.Equal(t, 360_000.0, est.PriorAverage)
	assert.Equal(t, 180_000.0, est.BaseAmount)
	assert.Equal(t, 49_000.0, est.Credit)
	assert.True(t, est.PayrollOffsetEligible)
	assert.Equal(t, 49_000.0, est.PayrollOffset)
	assert.InDelta(t, 0.0925, est.EffectiveRate, 0.00005)
}

func TestEstimateStartupRate(t *testing.T) {
	est, err := Calculate(Inputs{
		Wages:         200_000,
		PriorYearQREs: []float64{0, 50_000, 80_000},
		GrossReceipts: 8_000_000,
	})
	require.NoError(t, err)

	assert.Equal(t, MethodASCStartup, est.Method)
	assert.Equal(t, 12_000.0, est.Credit)
	assert.False(t, est.PayrollOffsetEligible)
	assert.Zero(t, est.PayrollOffset)
}

func TestEstimateBaseAboveQRE(t *testing.T) {
	est, err := Calculate(Inputs{
		Wages:         100_000,
		PriorYearQREs: []float64{500_000, 500_000, 500_000},
	})
	require.NoError(t, err)
	assert.Equal(t, MethodASC, est.Method)
	assert.Zero(t, est.Credit)
	assert.Zero(t, est.EffectiveRate)
}

func TestEstimatePayrollOffsetCapped(t *testing.T) {
	est, err := Calculate(Inputs{Wages: 10_000_000, GrossReceipts: 4_999_999})
	require.NoError(t, err)
	assert.Equal(t, 600_000.0, est.Credit)
	assert.Equal(t, float64(PayrollOffsetCap), est.PayrollOffset)
}

func TestEstimateRejectsInvalidInputs(t *testing.T) {
	cases := []Inputs{
		{Wages: -1},
		{PriorYearQREs: []float64{1, 2, 3, 4}},
		{YearsWithReceipts: -2},
	}
	for _, in := range cases {
		_, err := Calculate(in)
		assert.True(t, errors.Is(err, ErrInvalidInputs), "inputs %+v: %v", in, err)
	}
}

func TestQualify(t *testing.T) {
	all := Answers{
		PermittedPurpose:         true,
		TechnologicalInNature:    true,
		EliminatesUncertainty:    true,
		ProcessOfExperimentation: true,
	}
	result := Qualify(all)
	assert.True(t, result.Qualifies)
	assert.Equal(t, 4, result.TestsPassed)
	assert.Empty(t, result.Reasons)

	funded := all
	funded.FundedByOthers = true
	result = Qualify(funded)
	assert.False(t, result.Qualifies)
	assert.Equal(t, 4, result.TestsPassed)
	assert.Len(t, result.Reasons, 1)

	partial := Answers{PermittedPurpose: true, TechnologicalInNature: true}
	result = Qualify(partial)
	assert.False(t, result.Qualifies)
	assert.Equal(t, 2, result.TestsPassed)
	assert.Len(t, result.Reasons, 2)
}
