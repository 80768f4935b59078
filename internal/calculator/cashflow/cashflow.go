// Package cashflow 按月推算企业现金流。
package cashflow

import (
	"errors"
	"fmt"
	"math"
)

// MaxMonths 是单次推算允许的最长月数。
const MaxMonths = 120

var ErrInvalidConfig = errors.New("invalid cash flow config")

// Item 是某个月的一次性收支，Amount 为正表示流入，为负表示流出。
type Item struct {
	Month  int     `json:"month"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Config 描述推算参数，增长率为每月百分比。
type Config struct {
	Months          int     `json:"months"`
	StartingCash    float64 `json:"starting_cash"`
	MonthlyRevenue  float64 `json:"monthly_revenue"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
	RevenueGrowth   float64 `json:"revenue_growth"`
	ExpenseGrowth   float64 `json:"expense_growth"`
	OneOffs         []Item  `json:"one_offs"`
}

// Row 是单月结果，金额均已取整到分。
type Row struct {
	Month    int     `json:"month"`
	Revenue  float64 `json:"revenue"`
	Expenses float64 `json:"expenses"`
	OneOff   float64 `json:"one_off"`
	Net      float64 `json:"net"`
	Opening  float64 `json:"opening"`
	Closing  float64 `json:"closing"`
}

// Report 汇总整段推算。RunwayMonth 为首个期末余额为负的月份，0 表示未出现。
type Report struct {
	Rows          []Row   `json:"rows"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalExpenses float64 `json:"total_expenses"`
	TotalOneOff   float64 `json:"total_one_off"`
	NetChange     float64 `json:"net_change"`
	EndingBalance float64 `json:"ending_balance"`
	LowestBalance float64 `json:"lowest_balance"`
	LowestMonth   int     `json:"lowest_month"`
	RunwayMonth   int     `json:"runway_month"`
}

// Project 逐月推算现金余额。
func Project(cfg Config) (Report, error) {
	if err := cfg.validate(); err != nil {
		return Report{}, err
	}

	oneOffs := make(map[int]float64, len(cfg.OneOffs))
	for _, item := range cfg.OneOffs {
		oneOffs[item.Month] += item.Amount
	}

	report := Report{Rows: make([]Row, 0, cfg.Months)}
	balance := roundCents(cfg.StartingCash)

	revenueFactor := 1 + cfg.RevenueGrowth/100
	expenseFactor := 1 + cfg.ExpenseGrowth/100

	for month := 1; month <= cfg.Months; month++ {
		step := float64(month - 1)
		row := Row{
			Month:    month,
			Revenue:  roundCents(cfg.MonthlyRevenue * math.Pow(revenueFactor, step)),
			Expenses: roundCents(cfg.MonthlyExpenses * math.Pow(expenseFactor, step)),
			OneOff:   roundCents(oneOffs[month]),
			Opening:  balance,
		}
		row.Net = roundCents(row.Revenue - row.Expenses + row.OneOff)
		row.Closing = roundCents(row.Opening + row.Net)
		balance = row.Closing

		report.TotalRevenue += row.Revenue
		report.TotalExpenses += row.Expenses
		report.TotalOneOff += row.OneOff
		if month == 1 || row.Closing < report.LowestBalance {
			report.LowestBalance = row.Closing
			report.LowestMonth = month
		}
		if report.RunwayMonth == 0 && row.Closing < 0 {
			report.RunwayMonth = month
		}
		report.Rows = append(report.Rows, row)
	}

	report.TotalRevenue = roundCents(report.TotalRevenue)
	report.TotalExpenses = roundCents(report.TotalExpenses)
	report.TotalOneOff = roundCents(report.TotalOneOff)
	report.EndingBalance = balance
	report.NetChange = roundCents(balance - roundCents(cfg.StartingCash))
	return report, nil
}

func (cfg Config) validate() error {
	if cfg.Months < 1 || cfg.Months > MaxMonths {
		return fmt.Errorf("%w: months must be between 1 and %d", ErrInvalidConfig, MaxMonths)
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"starting_cash", cfg.StartingCash},
		{"monthly_revenue", cfg.MonthlyRevenue},
		{"monthly_expenses", cfg.MonthlyExpenses},
		{"revenue_growth", cfg.RevenueGrowth},
		{"expense_growth", cfg.ExpenseGrowth},
	}
	for _, field := range fields {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidConfig, field.name)
		}
	}
	if cfg.MonthlyRevenue < 0 || cfg.MonthlyExpenses < 0 {
		return fmt.Errorf("%w: monthly revenue and expenses cannot be negative", ErrInvalidConfig)
	}
	if cfg.RevenueGrowth <= -100 || cfg.ExpenseGrowth <= -100 {
		return fmt.Errorf("%w: growth rates must be greater than -100%%", ErrInvalidConfig)
	}
	for _, item := range cfg.OneOffs {
		if item.Month < 1 || item.Month > cfg.Months {
			return fmt.Errorf("%w: one-off %q falls outside month 1-%d", ErrInvalidConfig, item.Label, cfg.Months)
		}
		if math.IsNaN(item.Amount) || math.IsInf(item.Amount, 0) {
			return fmt.Errorf("%w: one-off %q amount must be a finite number", ErrInvalidConfig, item.Label)
		}
	}
	return nil
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}
