package rdcredit

// Answers 是资格问卷的回答。
type Answers struct {
	PermittedPurpose          bool `json:"permitted_purpose"`
	TechnologicalInNature     bool `json:"technological_in_nature"`
	EliminatesUncertainty     bool `json:"eliminates_uncertainty"`
	ProcessOfExperimentation  bool `json:"process_of_experimentation"`
	AfterCommercialProduction bool `json:"after_commercial_production"`
	FundedByOthers            bool `json:"funded_by_others"`
	ConductedOutsideUS        bool `json:"conducted_outside_us"`
}

// Qualification 汇总四项测试与排除条款的结果。
type Qualification struct {
	Qualifies   bool     `json:"qualifies"`
	TestsPassed int      `json:"tests_passed"`
	Reasons     []string `json:"reasons"`
}

// Qualify 仅当四项测试全部通过且不触发任何排除条款时返回合格。
func Qualify(a Answers) Qualification {
	result := Qualification{Reasons: []string{}}

	tests := []struct {
		passed bool
		reason string
	}{
		{a.PermittedPurpose, "activity must aim to create or improve a product, process, software, technique, formula or invention"},
		{a.TechnologicalInNature, "activity must rely on principles of engineering, physical, biological or computer science"},
		{a.EliminatesUncertainty, "activity must address uncertainty about capability, method or appropriate design"},
		{a.ProcessOfExperimentation, "activity must evaluate alternatives through modeling, simulation or trial and error"},
	}
	for _, test := range tests {
		if test.passed {
			result.TestsPassed++
			continue
		}
		result.Reasons = append(result.Reasons, test.reason)
	}

	exclusions := []struct {
		applies bool
		reason  string
	}{
		{a.AfterCommercialProduction, "research after commercial production is excluded"},
		{a.FundedByOthers, "research funded by another party is excluded"},
		{a.ConductedOutsideUS, "research conducted outside the United States is excluded"},
	}
	excluded := false
	for _, exclusion := range exclusions {
		if exclusion.applies {
			excluded = true
			result.Reasons = append(result.Reasons, exclusion.reason)
		}
	}

	result.Qualifies = result.TestsPassed == len(tests) && !excluded
	return result
}
