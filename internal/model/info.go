package model

import "github.com/guregu/null/v6"

// CompanyInfo holds descriptive fields about a ticker. Name is required;
// a provider that cannot resolve the ticker leaves it empty.
type CompanyInfo struct {
	Name      string      `json:"name"`
	Sector    null.String `json:"sector"`
	Industry  null.String `json:"industry"`
	Country   null.String `json:"country"`
	Website   null.String `json:"website"`
	MarketCap null.Int    `json:"market_cap"`
	Summary   null.String `json:"summary"`
}

// InfoResult is the company info of a symbol.
type InfoResult struct {
	Symbol string      `json:"symbol"`
	Info   CompanyInfo `json:"info"`
}

// OptionalString returns s as a present value, or absent when empty.
func OptionalString(s string) null.String {
	return null.NewString(s, s != "")
}
