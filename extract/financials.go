package extract

import "github.com/votelens/netalink/record"

// ProfileText holds the raw field text pulled from one linked profile
// page, before any parsing.
type ProfileText struct {
	Education   string
	Profession  string
	Assets      string
	Liabilities string
	Income      string
	Criminal    string
}

// Financials assembles the typed financial record for one candidate from
// raw profile field text. Net worth is assets minus liabilities, floored
// at zero.
func Financials(name string, pt ProfileText) record.Financials {
	assets := Amount(pt.Assets)
	liabilities := Amount(pt.Liabilities)
	netWorth := assets - liabilities
	if netWorth < 0 {
		netWorth = 0
	}
	income := Income(pt.Income)

	return record.Financials{
		Name:          name,
		Education:     EducationCategory(pt.Education),
		Profession:    Profession(pt.Profession),
		NetWorth:      netWorth,
		NetWorthUnit:  FormatUnit(netWorth),
		Income:        income,
		IncomeUnit:    FormatUnit(income),
		CriminalCases: CriminalCases(pt.Criminal),
	}
}
