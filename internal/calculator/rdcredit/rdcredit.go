// Package rdcredit 估算联邦研发税收抵免（ASC 方法）并判断活动是否符合四项测试。
package rdcredit

import (
	"errors"
	"fmt"
	"math"
)

const (
	ContractResearchRate   = 0.65
	ConsortiumResearchRate = 0.75
	ASCRate                = 0.14
	ASCStartupRate         = 0.06
	ASCBaseRate            = 0.50

	// 小企业可将抵免冲抵工资税的条件与上限
	PayrollOffsetReceiptsLimit = 5_000_000
	PayrollOffsetMaxYears      = 5
	PayrollOffsetCap           = 500_000
)

const (
	MethodASC        = "asc"
	MethodASCStartup = "asc_startup"
)

var ErrInvalidInputs = errors.New("invalid r&d credit inputs")

// Inputs 为本年度的研发支出以及前三年的 QRE。
type Inputs struct {
	Wages              float64   `json:"wages"`
	Supplies           float64   `json:"supplies"`
	ContractResearch   float64   `json:"contract_research"`
	ConsortiumResearch float64   `json:"consortium_research"`
	PriorYearQREs      []float64 `json:"prior_year_qres"`
	GrossReceipts      float64   `json:"gross_receipts"`
	YearsWithReceipts  int       `json:"years_with_receipts"`
}

// Estimate 是估算结果。
type Estimate struct {
	WageQRE               float64 `json:"wage_qre"`
	SupplyQRE             float64 `json:"supply_qre"`
	ContractQRE           float64 `json:"contract_qre"`
	ConsortiumQRE         float64 `json:"consortium_qre"`
	TotalQRE              float64 `json:"total_qre"`
	Method                string  `json:"method"`
	PriorAverage          float64 `json:"prior_average"`
	BaseAmount            float64 `json:"base_amount"`
	Credit                float64 `json:"credit"`
	EffectiveRate         float64 `json:"effective_rate"`
	PayrollOffsetEligible bool    `json:"payroll_offset_eligible"`
	PayrollOffset         float64 `json:"payroll_offset"`
}

// Calculate 按 ASC 方法估算抵免：前三年 QRE 均大于 0 时为 14% × (QRE − 50% × 三年均值)，否则为 6% × QRE。
func Calculate(in Inputs) (Estimate, error) {
	if err := in.validate(); err != nil {
		return Estimate{}, err
	}

	est := Estimate{
		WageQRE:       roundCents(in.Wages),
		SupplyQRE:     roundCents(in.Supplies),
		ContractQRE:   roundCents(in.ContractResearch * ContractResearchRate),
		ConsortiumQRE: roundCents(in.ConsortiumResearch * ConsortiumResearchRate),
	}
	est.TotalQRE = roundCents(est.WageQRE + est.SupplyQRE + est.ContractQRE + est.ConsortiumQRE)

	if hasFullHistory(in.PriorYearQREs) {
		sum := 0.0
		for _, qre := range in.PriorYearQREs {
			sum += qre
		}
		est.Method = MethodASC
		est.PriorAverage = roundCents(sum / float64(len(in.PriorYearQREs)))
		est.BaseAmount = roundCents(est.PriorAverage * ASCBaseRate)
		est.Credit = roundCents(math.Max(0, est.TotalQRE-est.BaseAmount) * ASCRate)
	} else {
		est.Method = MethodASCStartup
		est.Credit = roundCents(est.TotalQRE * ASCStartupRate)
	}

	if est.TotalQRE > 0 {
		est.EffectiveRate = math.Round(est.Credit/est.TotalQRE*10000) / 10000
	}

	est.PayrollOffsetEligible = in.GrossReceipts < PayrollOffsetReceiptsLimit &&
		in.YearsWithReceipts <= PayrollOffsetMaxYears
	if est.PayrollOffsetEligible {
		est.PayrollOffset = math.Min(est.Credit, PayrollOffsetCap)
	}
	return est, nil
}

func hasFullHistory(prior []float64) bool {
	if len(prior) != 3 {
		return false
	}
	for _, qre := range prior {
		if qre <= 0 {
			return false
		}
	}
	return true
}

func (in Inputs) validate() error {
	values := []float64{in.Wages, in.Supplies, in.ContractResearch, in.ConsortiumResearch, in.GrossReceipts}
	values = append(values, in.PriorYearQREs...)
	for _, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return fmt.Errorf("%w: amounts must be finite and non-negative", ErrInvalidInputs)
		}
	}
	if len(in.PriorYearQREs) > 3 {
		return fmt.Errorf("%w: at most three prior years are used", ErrInvalidInputs)
	}
	if in.YearsWithReceipts < 0 {
		return fmt.Errorf("%w: years with receipts cannot be negative", ErrInvalidInputs)
	}
	return nil
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}
